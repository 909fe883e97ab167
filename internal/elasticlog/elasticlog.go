package elasticlog

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"sync"
	"time"

	"git.informatik.uni-hamburg.de/iss/bp-itsec-ss23/fswatch/internal/lineread"
	"github.com/elastic/go-elasticsearch/v8/esutil"
)

const (
	flushInterval = 10 * time.Second
	maxBufferSize = 1 << 20 // 1 MiB
)

// BulkWriter buffers newline-delimited JSON documents and indexes them
// in bulk. Each complete line written becomes one document.
type BulkWriter struct {
	bi esutil.BulkIndexer

	// full is signalled when the buffer grows beyond maxBufferSize.
	full chan struct{}

	// mu protects access to buf.
	mu sync.Mutex

	buf bytes.Buffer
}

var _ io.Writer = (*BulkWriter)(nil)

func NewBulkWriter(bi esutil.BulkIndexer) *BulkWriter {
	return &BulkWriter{
		bi: bi,

		full: make(chan struct{}, 1),
	}
}

func (w *BulkWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, _ := w.buf.Write(p)

	if w.buf.Len() > maxBufferSize {
		select {
		case w.full <- struct{}{}:
		default: // flush already pending
		}
	}

	return n, nil
}

// Sync periodically pushes buffered log messages to ElasticSearch.
// Sync blocks until ctx is done.
func (w *BulkWriter) Sync(ctx context.Context) {
	tick := time.NewTicker(flushInterval)
	defer tick.Stop()

	for {
		select {
		case <-tick.C:
			w.flush(ctx)
		case <-w.full:
			w.flush(ctx)

			tick.Reset(flushInterval)
		case <-ctx.Done():
			w.flush(context.Background())
			return
		}
	}
}

func (w *BulkWriter) Close() error {
	return w.bi.Close(context.Background())
}

func (w *BulkWriter) flush(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.buf.Len() == 0 {
		return // buffer empty, nothing to flush
	}

	n, _ := lineread.Complete(w.buf.Bytes(), func(line []byte) error {
		if len(line) == 0 {
			return nil
		}

		sum := sha256.Sum256(line)
		hash := hex.EncodeToString(sum[:])

		return w.bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: hash,

			// the indexer reads the body later; buf is reused by then.
			Body: bytes.NewReader(bytes.Clone(line)),
		})
	})

	w.buf.Next(n) // keep any incomplete trailing line
}

type Handler struct {
	base slog.Handler
}

var _ slog.Handler = (*Handler)(nil)

// NewHandler returns a JSON handler writing every record to both
// console and bw.
func NewHandler(bw *BulkWriter, console io.Writer, opts *slog.HandlerOptions) *Handler {
	tee := io.MultiWriter(console, bw)

	return &Handler{
		base: slog.NewJSONHandler(tee, opts),
	}
}

func (h *Handler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return h.base.Enabled(ctx, lvl)
}

func (h *Handler) Handle(ctx context.Context, rec slog.Record) error {
	return h.base.Handle(ctx, rec)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{
		base: h.base.WithAttrs(attrs),
	}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{
		base: h.base.WithGroup(name),
	}
}
