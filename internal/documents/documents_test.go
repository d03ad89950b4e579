package documents_test

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/shelf/internal/documents"
	pdffixture "github.com/JaimeStill/shelf/internal/testutil"
	"github.com/JaimeStill/shelf/pkg/lifecycle"
	"github.com/JaimeStill/shelf/pkg/metrics"
	"github.com/JaimeStill/shelf/pkg/storage"
)

var fixedNow = time.Date(2026, 3, 1, 10, 15, 0, 0, time.Local)

type fixture struct {
	sys     documents.System
	root    string
	metrics *metrics.Metrics
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T, cfg documents.Config) *fixture {
	t.Helper()

	root := t.TempDir()
	storeCfg := &storage.Config{Root: root}
	require.NoError(t, storeCfg.Finalize(nil))

	store, err := storage.New(storeCfg, discardLogger())
	require.NoError(t, err)
	require.NoError(t, store.Start(lifecycle.New()))

	m, err := metrics.New("shelf")
	require.NoError(t, err)

	return &fixture{
		sys:     documents.New(store, cfg, m, discardLogger()),
		root:    root,
		metrics: m,
	}
}

func (f *fixture) storedFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(f.root)
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	staged, err := os.ReadDir(filepath.Join(f.root, storage.StagingDir))
	require.NoError(t, err)
	for _, e := range staged {
		names = append(names, filepath.Join(storage.StagingDir, e.Name()))
	}
	return names
}

func (f *fixture) ingest(t *testing.T, name string, data []byte) string {
	t.Helper()
	stored, err := f.sys.Ingest(context.Background(), name, bytes.NewReader(data))
	require.NoError(t, err)
	return stored
}

func TestIngestRejections(t *testing.T) {
	valid := pdffixture.PDF(1)

	tests := []struct {
		name     string
		filename string
		data     []byte
		limit    int64
		want     error
	}{
		{"non pdf extension", "notes.txt", valid, 0, documents.ErrInvalidType},
		{"no extension", "report", valid, 0, documents.ErrInvalidType},
		{"empty filename", "", valid, 0, documents.ErrInvalidType},
		{"dot dot", "..", valid, 0, documents.ErrInvalidType},
		{"over limit", "big.pdf", valid, 64, documents.ErrTooLarge},
		{"corrupt pdf", "broken.pdf", []byte("%PDF-1.4\nthis is not a pdf"), 0, documents.ErrInvalidPDF},
		{"empty pdf", "empty.pdf", nil, 0, documents.ErrInvalidPDF},
		{"truncated after startxref", "cut.pdf", pdffixture.TruncatedPDF(3), 0, documents.ErrInvalidPDF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, documents.Config{MaxUploadSize: tt.limit, Clock: func() time.Time { return fixedNow }})

			_, err := f.sys.Ingest(context.Background(), tt.filename, bytes.NewReader(tt.data))
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 400, documents.MapHTTPStatus(err))
			assert.Empty(t, f.storedFiles(t), "nothing may be persisted on rejection")
		})
	}
}

func TestIngestTooLargeMessage(t *testing.T) {
	f := newFixture(t, documents.Config{MaxUploadSize: 1 << 20})

	_, err := f.sys.Ingest(context.Background(), "big.pdf", bytes.NewReader(make([]byte, 1<<20+1)))
	require.ErrorIs(t, err, documents.ErrTooLarge)
	assert.Equal(t, "file size exceeds upload limit of 1 MB", err.Error())
}

func TestIngestStoresTimestampedName(t *testing.T) {
	f := newFixture(t, documents.Config{})
	data := pdffixture.PDF(2)

	name := f.ingest(t, "doc.pdf", data)
	assert.Regexp(t, regexp.MustCompile(`^\d{8}_\d{6}_doc\.pdf$`), name)

	stored, err := os.ReadFile(filepath.Join(f.root, name))
	require.NoError(t, err)
	assert.Equal(t, data, stored)
	assert.Equal(t, []string{name}, f.storedFiles(t), "staging area must be empty after commit")
}

func TestIngestUsesClockAndBaseName(t *testing.T) {
	f := newFixture(t, documents.Config{Clock: func() time.Time { return fixedNow }})

	tests := []struct {
		filename string
		want     string
	}{
		{"Report.PDF", "20260301_101500_Report.PDF"},
		{"../../etc/evil.pdf", "20260301_101500_evil.pdf"},
		{`C:\Users\me\scan.pdf`, "20260301_101500_scan.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, f.ingest(t, tt.filename, pdffixture.PDF(1)))
		})
	}
}

func TestIngestSameSecondCollision(t *testing.T) {
	f := newFixture(t, documents.Config{Clock: func() time.Time { return fixedNow }})

	first := f.ingest(t, "doc.pdf", pdffixture.PDF(1))
	second := f.ingest(t, "doc.pdf", pdffixture.PDF(3))

	assert.Equal(t, "20260301_101500_doc.pdf", first)
	assert.Regexp(t, regexp.MustCompile(`^20260301_101500_doc_[0-9a-f]{8}\.pdf$`), second)

	firstDoc, err := f.sys.Find(context.Background(), first)
	require.NoError(t, err)
	assert.Equal(t, 1, firstDoc.PageCount, "first upload must not be overwritten")

	secondDoc, err := f.sys.Find(context.Background(), second)
	require.NoError(t, err)
	assert.Equal(t, 3, secondDoc.PageCount)
}

func TestIngestRecordsOutcomes(t *testing.T) {
	f := newFixture(t, documents.Config{})

	f.ingest(t, "a.pdf", pdffixture.PDF(1))
	_, _ = f.sys.Ingest(context.Background(), "a.txt", strings.NewReader("x"))
	_, _ = f.sys.Ingest(context.Background(), "b.pdf", strings.NewReader("garbage"))

	expected := `
# HELP shelf_ingest_total Document uploads by outcome.
# TYPE shelf_ingest_total counter
shelf_ingest_total{outcome="invalid_pdf"} 1
shelf_ingest_total{outcome="invalid_type"} 1
shelf_ingest_total{outcome="success"} 1
`
	err := testutil.GatherAndCompare(f.metrics.Registry(), strings.NewReader(expected), "shelf_ingest_total")
	assert.NoError(t, err)
}

func TestListNewestFirstWithPageCounts(t *testing.T) {
	f := newFixture(t, documents.Config{})

	older := f.ingest(t, "older.pdf", pdffixture.PDF(2))
	newer := f.ingest(t, "newer.pdf", pdffixture.PDF(3))
	corrupt := f.ingest(t, "corrupt.pdf", pdffixture.PDF(1))
	truncated := f.ingest(t, "truncated.pdf", pdffixture.PDF(1))

	base := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(f.root, older), base, base))
	require.NoError(t, os.Chtimes(filepath.Join(f.root, newer), base.Add(20*time.Minute), base.Add(20*time.Minute)))
	require.NoError(t, os.WriteFile(filepath.Join(f.root, corrupt), []byte("no longer a pdf"), 0644))
	require.NoError(t, os.Chtimes(filepath.Join(f.root, corrupt), base.Add(10*time.Minute), base.Add(10*time.Minute)))
	require.NoError(t, os.WriteFile(filepath.Join(f.root, truncated), pdffixture.TruncatedPDF(3), 0644))
	require.NoError(t, os.Chtimes(filepath.Join(f.root, truncated), base.Add(-10*time.Minute), base.Add(-10*time.Minute)))

	require.NoError(t, os.WriteFile(filepath.Join(f.root, "notes.txt"), []byte("ignored"), 0644))

	docs, err := f.sys.List(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 4)

	assert.Equal(t, newer, docs[0].Name)
	assert.Equal(t, 3, docs[0].PageCount)
	assert.Equal(t, corrupt, docs[1].Name)
	assert.Equal(t, 0, docs[1].PageCount)
	assert.Equal(t, int64(len("no longer a pdf")), docs[1].SizeBytes)
	assert.Equal(t, older, docs[2].Name)
	assert.Equal(t, 2, docs[2].PageCount)
	assert.Equal(t, truncated, docs[3].Name)
	assert.Equal(t, 0, docs[3].PageCount)

	doc, err := f.sys.Find(context.Background(), truncated)
	require.NoError(t, err)
	assert.Equal(t, 0, doc.PageCount)
}

func TestListEmpty(t *testing.T) {
	f := newFixture(t, documents.Config{})

	docs, err := f.sys.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestSearch(t *testing.T) {
	f := newFixture(t, documents.Config{Clock: func() time.Time { return fixedNow }})

	f.ingest(t, "Annual-REPORT.pdf", pdffixture.PDF(1))
	f.ingest(t, "report-draft.pdf", pdffixture.PDF(1))
	f.ingest(t, "invoice.pdf", pdffixture.PDF(1))

	docs, err := f.sys.Search(context.Background(), "report")
	require.NoError(t, err)

	var names []string
	for _, d := range docs {
		names = append(names, d.Name)
	}
	assert.ElementsMatch(t, []string{
		"20260301_101500_Annual-REPORT.pdf",
		"20260301_101500_report-draft.pdf",
	}, names)

	none, err := f.sys.Search(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = f.sys.Search(context.Background(), "")
	assert.ErrorIs(t, err, documents.ErrInvalidQuery)
}

func TestSearchMatchesWhitespaceLiterally(t *testing.T) {
	f := newFixture(t, documents.Config{Clock: func() time.Time { return fixedNow }})

	spaced := f.ingest(t, "my report.pdf", pdffixture.PDF(1))
	f.ingest(t, "report.pdf", pdffixture.PDF(1))

	tests := []struct {
		query string
		want  []string
	}{
		{" ", []string{spaced}},
		{" report", []string{spaced}},
		{"   ", nil},
	}

	for _, tt := range tests {
		t.Run(strconv.Quote(tt.query), func(t *testing.T) {
			docs, err := f.sys.Search(context.Background(), tt.query)
			require.NoError(t, err)

			var names []string
			for _, d := range docs {
				names = append(names, d.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestResolveConfinement(t *testing.T) {
	f := newFixture(t, documents.Config{})
	stored := f.ingest(t, "doc.pdf", pdffixture.PDF(1))

	require.NoError(t, os.WriteFile(filepath.Join(f.root, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(f.root, "dir.pdf"), 0755))

	for _, name := range []string{
		"../../etc/passwd",
		"../" + stored,
		"",
		".",
		"..",
		"sub/doc.pdf",
		"notes.txt",
		"dir.pdf",
		"missing.pdf",
		"doc\x00.pdf",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.sys.Resolve(context.Background(), name)
			assert.ErrorIs(t, err, documents.ErrNotFound)
		})
	}

	p, err := f.sys.Resolve(context.Background(), stored)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.root, stored), p)
}

func TestOpen(t *testing.T) {
	f := newFixture(t, documents.Config{})
	data := pdffixture.PDF(1)
	stored := f.ingest(t, "doc.pdf", data)

	file, info, err := f.sys.Open(context.Background(), stored)
	require.NoError(t, err)
	defer file.Close()

	assert.Equal(t, int64(len(data)), info.Size())
	got, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	_, _, err = f.sys.Open(context.Background(), "missing.pdf")
	assert.ErrorIs(t, err, documents.ErrNotFound)
}

func TestDeleteTwice(t *testing.T) {
	f := newFixture(t, documents.Config{})
	stored := f.ingest(t, "doc.pdf", pdffixture.PDF(1))

	require.NoError(t, f.sys.Delete(context.Background(), stored))

	err := f.sys.Delete(context.Background(), stored)
	assert.ErrorIs(t, err, documents.ErrNotFound)

	_, err = f.sys.Resolve(context.Background(), stored)
	assert.ErrorIs(t, err, documents.ErrNotFound)

	assert.ErrorIs(t, f.sys.Delete(context.Background(), "../../etc/passwd"), documents.ErrNotFound)
}

type failingDeleteStore struct {
	storage.System
	err error
}

func (s *failingDeleteStore) Delete(ctx context.Context, key string) error {
	return s.err
}

func TestDeleteSurfacesIOFailure(t *testing.T) {
	f := newFixture(t, documents.Config{})
	stored := f.ingest(t, "doc.pdf", pdffixture.PDF(1))

	storeCfg := &storage.Config{Root: f.root}
	require.NoError(t, storeCfg.Finalize(nil))
	store, err := storage.New(storeCfg, discardLogger())
	require.NoError(t, err)

	osErr := &fs.PathError{Op: "remove", Path: filepath.Join(f.root, stored), Err: syscall.EACCES}
	sys := documents.New(&failingDeleteStore{System: store, err: osErr}, documents.Config{}, nil, discardLogger())

	err = sys.Delete(context.Background(), stored)
	require.ErrorIs(t, err, documents.ErrIO)
	assert.NotErrorIs(t, err, documents.ErrNotFound)
	assert.ErrorIs(t, err, syscall.EACCES)
	assert.Equal(t, 500, documents.MapHTTPStatus(err))

	_, err = sys.Resolve(context.Background(), stored)
	assert.NoError(t, err, "failed delete leaves the document in place")
}

func TestDeleteReadOnlyRoot(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced for root")
	}

	f := newFixture(t, documents.Config{})
	stored := f.ingest(t, "doc.pdf", pdffixture.PDF(1))

	require.NoError(t, os.Chmod(f.root, 0555))
	t.Cleanup(func() { os.Chmod(f.root, 0755) })

	err := f.sys.Delete(context.Background(), stored)
	require.ErrorIs(t, err, documents.ErrIO)
	assert.NotErrorIs(t, err, documents.ErrNotFound)
}

func TestFind(t *testing.T) {
	f := newFixture(t, documents.Config{})
	stored := f.ingest(t, "doc.pdf", pdffixture.PDF(4))

	doc, err := f.sys.Find(context.Background(), stored)
	require.NoError(t, err)
	assert.Equal(t, stored, doc.Name)
	assert.Equal(t, 4, doc.PageCount)
	assert.WithinDuration(t, time.Now(), doc.UploadedAt, time.Minute)

	_, err = f.sys.Find(context.Background(), "missing.pdf")
	assert.ErrorIs(t, err, documents.ErrNotFound)
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{documents.ErrInvalidType, 400},
		{documents.ErrTooLarge, 400},
		{documents.ErrInvalidPDF, 400},
		{documents.ErrMissingFile, 400},
		{documents.ErrInvalidQuery, 400},
		{documents.ErrNotFound, 404},
		{documents.ErrIO, 500},
		{io.ErrUnexpectedEOF, 500},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, documents.MapHTTPStatus(tt.err))
		})
	}
}

func TestIsPDFName(t *testing.T) {
	assert.True(t, documents.IsPDFName("a.pdf"))
	assert.True(t, documents.IsPDFName("a.PdF"))
	assert.False(t, documents.IsPDFName("a.pdf.txt"))
	assert.False(t, documents.IsPDFName("pdf"))
}
