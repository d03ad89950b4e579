package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// WildcardOrigin in CORSConfig.Origins allows any request origin.
const WildcardOrigin = "*"

// CORS returns middleware that applies CORS headers based on the config.
// Passes through without headers when disabled or no origins are configured.
// With the wildcard origin and credentials enabled, the request origin is echoed
// back because browsers reject "*" on credentialed requests.
func CORS(cfg *CORSConfig) func(http.Handler) http.Handler {
	wildcard := slices.Contains(cfg.Origins, WildcardOrigin)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled || len(cfg.Origins) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			origin := r.Header.Get("Origin")
			if origin != "" && (wildcard || slices.Contains(cfg.Origins, origin)) {
				h := w.Header()
				if wildcard && !cfg.AllowCredentials {
					h.Set("Access-Control-Allow-Origin", WildcardOrigin)
				} else {
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
				h.Set("Access-Control-Allow-Methods", strings.Join(cfg.AllowedMethods, ", "))
				h.Set("Access-Control-Allow-Headers", strings.Join(cfg.AllowedHeaders, ", "))

				if cfg.AllowCredentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
				if cfg.MaxAge > 0 {
					h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
				}
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
