package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Fixed classification values attached to every flow reported by the service.
const (
	ProtocolTCP         = 6
	LabelNormal         = "Normal"
	DefaultConfidence   = 0.95
	ThreatLevelLow      = "low"
	flowTimestampLayout = "2006-01-02T15:04:05Z"
)

// Flow is one request's network flow record as accepted by the dashboard.
type Flow struct {
	FlowKey     string  `json:"flow_key"`
	SrcIP       string  `json:"src_ip"`
	DstIP       string  `json:"dst_ip"`
	SrcPort     int     `json:"src_port"`
	DstPort     int     `json:"dst_port"`
	Protocol    int     `json:"protocol"`
	Label       string  `json:"label"`
	Confidence  float64 `json:"confidence"`
	ThreatLevel string  `json:"threat_level"`
	Timestamp   string  `json:"timestamp"`
}

// NewFlow builds the flow record for r observed at now.
func NewFlow(r *http.Request, now time.Time) Flow {
	srcIP := ClientIP(r)
	_, srcPort := splitHostPort(r.RemoteAddr)

	var dstIP string
	var dstPort int
	if addr, ok := r.Context().Value(http.LocalAddrContextKey).(net.Addr); ok {
		dstIP, dstPort = splitHostPort(addr.String())
	}

	ts := now.UTC()
	return Flow{
		FlowKey:     flowKey(srcIP, ts),
		SrcIP:       srcIP,
		DstIP:       dstIP,
		SrcPort:     srcPort,
		DstPort:     dstPort,
		Protocol:    ProtocolTCP,
		Label:       LabelNormal,
		Confidence:  DefaultConfidence,
		ThreatLevel: ThreatLevelLow,
		Timestamp:   ts.Format(flowTimestampLayout),
	}
}

// ClientIP returns the request's source address: the first X-Forwarded-For
// hop, then X-Real-IP, then the connection's remote host. Returns "unknown"
// when none is available.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _ := splitHostPort(r.RemoteAddr); host != "" {
		return host
	}
	return "unknown"
}

func splitHostPort(addr string) (string, int) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 0
	}
	p, _ := strconv.Atoi(port)
	return host, p
}

func flowKey(ip string, ts time.Time) string {
	sum := sha256.Sum256([]byte(ip + ":" + ts.Format(time.RFC3339Nano) + ":" + uuid.NewString()))
	return hex.EncodeToString(sum[:])[:12]
}
