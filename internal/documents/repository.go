package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"runtime"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/shelf/pkg/formatting"
	"github.com/JaimeStill/shelf/pkg/metrics"
	"github.com/JaimeStill/shelf/pkg/storage"
)

// Ingestion outcomes recorded in metrics.
const (
	OutcomeSuccess     = "success"
	OutcomeInvalidType = "invalid_type"
	OutcomeTooLarge    = "too_large"
	OutcomeInvalidPDF  = "invalid_pdf"
	OutcomeError       = "error"
)

const (
	timestampLayout   = "20060102_150405"
	maxCommitAttempts = 5
	tracerName        = "github.com/JaimeStill/shelf/internal/documents"
)

type repo struct {
	storage storage.System
	cfg     Config
	metrics *metrics.Metrics
	tracer  trace.Tracer
	logger  *slog.Logger
}

// New creates a document system backed by store. m may be nil.
func New(
	store storage.System,
	cfg Config,
	m *metrics.Metrics,
	logger *slog.Logger,
) System {
	return &repo{
		storage: store,
		cfg:     cfg.withDefaults(),
		metrics: m,
		tracer:  otel.Tracer(tracerName),
		logger:  logger.With("system", "documents"),
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.cfg.MaxUploadSize)
}

func (r *repo) Ingest(ctx context.Context, filename string, body io.Reader) (string, error) {
	ctx, span := r.tracer.Start(ctx, "documents.Ingest",
		trace.WithAttributes(attribute.String("document.original_name", filename)),
	)
	defer span.End()

	name, err := r.ingest(ctx, filename, body)
	r.metrics.ObserveIngest(ingestOutcome(err))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	span.SetAttributes(attribute.String("document.name", name))
	return name, nil
}

func (r *repo) ingest(ctx context.Context, filename string, body io.Reader) (string, error) {
	base, err := originalName(filename)
	if err != nil {
		return "", err
	}

	staged, err := r.storage.Stage(ctx, body, r.cfg.MaxUploadSize)
	if err != nil {
		if errors.Is(err, storage.ErrLimitExceeded) {
			return "", fmt.Errorf("%w of %s", ErrTooLarge, formatting.FormatBytes(r.cfg.MaxUploadSize, 1))
		}
		return "", fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer staged.Discard()

	rs, err := staged.Reader()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrIO, err)
	}
	if err := validatePDF(rs); err != nil {
		r.logger.Warn("upload rejected, pdf validation failed", "filename", base, "error", err)
		return "", ErrInvalidPDF
	}

	stem := r.cfg.Clock().Format(timestampLayout) + "_" + base
	key := stem

	for range maxCommitAttempts {
		err := r.storage.Commit(ctx, staged, key)
		if err == nil {
			r.metrics.ObserveUploadSize(staged.Size())
			r.logger.Info("document stored", "filename", key, "size", staged.Size())
			return key, nil
		}
		if !errors.Is(err, storage.ErrExists) {
			if errors.Is(err, storage.ErrInvalidKey) || errors.Is(err, storage.ErrEmptyKey) {
				return "", ErrInvalidType
			}
			return "", fmt.Errorf("%w: %w", ErrIO, err)
		}

		r.logger.Debug("stored name taken, retrying with suffix", "filename", key)
		key = withSuffix(stem)
	}

	return "", fmt.Errorf("%w: no free name for %s after %d attempts", ErrIO, base, maxCommitAttempts)
}

func (r *repo) List(ctx context.Context) ([]Document, error) {
	ctx, span := r.tracer.Start(ctx, "documents.List")
	defer span.End()

	docs, err := r.list(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("documents.count", len(docs)))
	return docs, nil
}

func (r *repo) list(ctx context.Context) ([]Document, error) {
	entries, err := r.storage.List(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	entries = slices.DeleteFunc(entries, func(e storage.Entry) bool {
		return !IsPDFName(e.Key)
	})

	docs := make([]Document, len(entries))
	if len(entries) == 0 {
		return docs, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(runtime.NumCPU(), len(entries)))

	for i, e := range entries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			docs[i] = Document{
				Name:       e.Key,
				SizeBytes:  e.Info.Size(),
				UploadedAt: e.Info.ModTime(),
				PageCount:  pageCount(e.Path),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortStableFunc(docs, func(a, b Document) int {
		return b.UploadedAt.Compare(a.UploadedAt)
	})

	return docs, nil
}

func (r *repo) Search(ctx context.Context, query string) ([]Document, error) {
	if query == "" {
		return nil, ErrInvalidQuery
	}

	docs, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	return slices.DeleteFunc(docs, func(d Document) bool {
		return !strings.Contains(strings.ToLower(d.Name), needle)
	}), nil
}

func (r *repo) Find(ctx context.Context, name string) (*Document, error) {
	f, info, err := r.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	target := f.Name()
	f.Close()

	return &Document{
		Name:       name,
		SizeBytes:  info.Size(),
		UploadedAt: info.ModTime(),
		PageCount:  pageCount(target),
	}, nil
}

func (r *repo) Resolve(ctx context.Context, name string) (string, error) {
	if !IsPDFName(name) {
		return "", ErrNotFound
	}

	p, err := r.storage.Resolve(ctx, name)
	if err != nil {
		return "", mapStorageError(err)
	}
	return p, nil
}

func (r *repo) Open(ctx context.Context, name string) (*os.File, fs.FileInfo, error) {
	if !IsPDFName(name) {
		return nil, nil, ErrNotFound
	}

	f, info, err := r.storage.Open(ctx, name)
	if err != nil {
		return nil, nil, mapStorageError(err)
	}
	return f, info, nil
}

func (r *repo) Delete(ctx context.Context, name string) error {
	if !IsPDFName(name) {
		return ErrNotFound
	}

	if err := r.storage.Delete(ctx, name); err != nil {
		return mapStorageError(err)
	}

	r.logger.Info("document deleted", "filename", name)
	return nil
}

// originalName reduces an uploaded filename to its base name and checks the
// extension. Both slash styles are treated as separators.
func originalName(filename string) (string, error) {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	switch base {
	case "", ".", "..", "/":
		return "", ErrInvalidType
	}
	if strings.ContainsRune(base, 0) || !IsPDFName(base) {
		return "", ErrInvalidType
	}
	return base, nil
}

// withSuffix inserts a random 8 hex character disambiguator before the extension.
func withSuffix(stem string) string {
	ext := path.Ext(stem)
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return strings.TrimSuffix(stem, ext) + "_" + suffix + ext
}

func mapStorageError(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, storage.ErrInvalidKey),
		errors.Is(err, storage.ErrEmptyKey):
		return ErrNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
}

func ingestOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrInvalidType):
		return OutcomeInvalidType
	case errors.Is(err, ErrTooLarge):
		return OutcomeTooLarge
	case errors.Is(err, ErrInvalidPDF):
		return OutcomeInvalidPDF
	default:
		return OutcomeError
	}
}
