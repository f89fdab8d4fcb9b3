// Package upload implements the media ingestion pipeline: it validates an
// incoming stream against size and media-type limits, splits it into
// fixed-size chunks, writes the chunks through the registry, and finalizes
// the blob so it becomes visible.
//
// Failure semantics: if anything goes wrong after the first chunk is
// written, the pipeline aborts the draft, removing every chunk it wrote. An
// upload therefore either produces one complete, visible blob or leaves no
// visible trace.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/casahub/casahub/internal/logger"
	"github.com/casahub/casahub/internal/uploadgate"
	"github.com/casahub/casahub/pkg/blob"
	"github.com/casahub/casahub/pkg/blob/registry"
)

// DefaultMaxBytes is the default upload size ceiling (10 MiB). Large enough
// for listing photography, small enough to bound chunk-store pressure from a
// single request.
const DefaultMaxBytes = 10 * 1024 * 1024

// DefaultAllowedTypes lists the MIME types accepted by default. The store
// serves listing imagery, so only image formats are admitted.
var DefaultAllowedTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
}

// Limits bounds what a single upload may be.
type Limits struct {
	// MaxBytes is the maximum payload size in bytes. Zero means
	// DefaultMaxBytes.
	MaxBytes int64

	// AllowedTypes is the MIME type allowlist. Empty means
	// DefaultAllowedTypes.
	AllowedTypes []string
}

// Pipeline ingests media streams into the blob registry.
//
// Thread safety: safe for concurrent use. Each upload works on its own
// draft; the gate bounds how many run at once.
type Pipeline struct {
	registry *registry.Registry
	limits   Limits
	allowed  map[string]struct{}
	gate     *uploadgate.Gate
	metrics  Metrics
}

// New creates an upload pipeline over the given registry.
//
// gate may be nil to run uploads unthrottled. metrics may be nil to disable
// metrics collection.
func New(reg *registry.Registry, limits Limits, gate *uploadgate.Gate, metrics Metrics) *Pipeline {
	if limits.MaxBytes <= 0 {
		limits.MaxBytes = DefaultMaxBytes
	}
	if len(limits.AllowedTypes) == 0 {
		limits.AllowedTypes = DefaultAllowedTypes
	}
	if gate == nil {
		gate = uploadgate.New(0, 0)
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}

	allowed := make(map[string]struct{}, len(limits.AllowedTypes))
	for _, t := range limits.AllowedTypes {
		allowed[strings.ToLower(t)] = struct{}{}
	}

	return &Pipeline{
		registry: reg,
		limits:   limits,
		allowed:  allowed,
		gate:     gate,
		metrics:  metrics,
	}
}

// Request describes one upload.
type Request struct {
	// Filename is the client-supplied object name. Only its base name is
	// kept.
	Filename string

	// ContentType is the declared MIME type, checked against the allowlist.
	ContentType string

	// DeclaredSize is the payload size announced by the client, or -1 if
	// unknown. Known sizes above the ceiling are rejected before any byte
	// is read; the true size is enforced while streaming either way.
	DeclaredSize int64

	// Body is the payload stream. The pipeline reads it to EOF; the caller
	// retains ownership and closes it.
	Body io.Reader

	// Metadata is attached to the blob record verbatim.
	Metadata map[string]string
}

// Run ingests one upload and returns the finalized blob record.
//
// Returns blob.ErrSizeLimitExceeded, blob.ErrUnsupportedMediaType, or a
// storage error. On any error no visible blob exists and written chunks
// have been removed.
func (p *Pipeline) Run(ctx context.Context, req Request) (*blob.Record, error) {
	start := time.Now()
	record, err := p.run(ctx, req)
	p.metrics.ObserveUpload(time.Since(start), err)
	return record, err
}

func (p *Pipeline) run(ctx context.Context, req Request) (*blob.Record, error) {
	contentType := normalizeContentType(req.ContentType)
	if _, ok := p.allowed[contentType]; !ok {
		p.metrics.RecordRejection("media_type")
		return nil, fmt.Errorf("content type %q: %w", req.ContentType, blob.ErrUnsupportedMediaType)
	}

	if req.DeclaredSize > p.limits.MaxBytes {
		p.metrics.RecordRejection("size_limit")
		return nil, fmt.Errorf("declared size %d exceeds limit %d: %w",
			req.DeclaredSize, p.limits.MaxBytes, blob.ErrSizeLimitExceeded)
	}

	if err := p.gate.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("upload gate: %w", err)
	}
	defer p.gate.Release()

	id, err := p.registry.Begin(ctx, sanitizeFilename(req.Filename), contentType, req.Metadata)
	if err != nil {
		return nil, fmt.Errorf("begin upload: %w", err)
	}

	total, count, err := p.writeChunks(ctx, id, req.Body)
	if err != nil {
		p.abort(ctx, id)
		return nil, err
	}

	record, err := p.registry.Finalize(ctx, id, total, count)
	if err != nil {
		p.abort(ctx, id)
		return nil, fmt.Errorf("finalize upload: %w", err)
	}

	p.metrics.RecordBytes(total)
	logger.Debug("Stored blob %s (%d bytes, %d chunks)", record.ID, total, count)
	return record, nil
}

// writeChunks splits the stream into registry-sized chunks and writes them
// in order. The size ceiling is enforced on observed bytes, so a client
// that lied about DeclaredSize is still cut off.
func (p *Pipeline) writeChunks(ctx context.Context, id blob.ID, body io.Reader) (int64, uint32, error) {
	chunkSize := p.registry.ChunkSize()
	buf := make([]byte, chunkSize)

	var total int64
	var count uint32

	for {
		n, err := io.ReadFull(body, buf)
		if n > 0 {
			total += int64(n)
			if total > p.limits.MaxBytes {
				p.metrics.RecordRejection("size_limit")
				return 0, 0, fmt.Errorf("stream exceeds limit %d: %w",
					p.limits.MaxBytes, blob.ErrSizeLimitExceeded)
			}
			if werr := p.registry.WriteChunk(ctx, id, count, buf[:n]); werr != nil {
				return 0, 0, fmt.Errorf("write chunk %d: %w", count, werr)
			}
			count++
		}

		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return total, count, nil
		}
		if err != nil {
			return 0, 0, fmt.Errorf("read upload stream: %w", err)
		}
	}
}

// abort is best-effort cleanup: the upload already failed, so a cleanup
// failure is logged rather than masking the original error. The sweeper
// reclaims whatever abort could not.
func (p *Pipeline) abort(ctx context.Context, id blob.ID) {
	if err := p.registry.Abort(context.WithoutCancel(ctx), id); err != nil {
		logger.Warn("Failed to abort upload %s, sweeper will reclaim: %v", id, err)
	}
}

// Result is the outcome of one upload inside a batch.
type Result struct {
	Record *blob.Record
	Err    error
}

// RunAll ingests several uploads, one at a time, isolating failures: a
// failed item is aborted and reported in its Result without affecting the
// others. The returned slice is index-aligned with reqs.
func (p *Pipeline) RunAll(ctx context.Context, reqs []Request) []Result {
	results := make([]Result, len(reqs))
	for i, req := range reqs {
		if err := ctx.Err(); err != nil {
			results[i] = Result{Err: err}
			continue
		}
		record, err := p.Run(ctx, req)
		results[i] = Result{Record: record, Err: err}
	}
	return results
}

// normalizeContentType lowercases the type and strips parameters such as
// "; charset=binary".
func normalizeContentType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// sanitizeFilename keeps only the base name, discarding any path component
// a client may have sent.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	base := filepath.Base(name)
	if base == "." || base == "/" || base == "" {
		return "upload"
	}
	return base
}

// IsRejection reports whether err is one of the upload rejection
// sentinels, meaning the client sent something inadmissible rather than the
// store failing. Callers use it to map errors to client-side failures.
func IsRejection(err error) bool {
	return errors.Is(err, blob.ErrSizeLimitExceeded) || errors.Is(err, blob.ErrUnsupportedMediaType)
}
