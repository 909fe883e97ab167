package control

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/alexedwards/flow"
)

// Server exposes the state of a watch session over HTTP.
// It never serves the changes themselves.
type Server struct {
	addr string

	src StatusSource

	since time.Time
}

func NewServer(addr string, src StatusSource) *Server {
	return &Server{
		addr: addr,
		src:  src,

		since: time.Now().UTC(),
	}
}

func (s *Server) Handler() http.Handler {
	mux := flow.New()

	mux.HandleFunc("/ping", s.ping, http.MethodGet)
	mux.HandleFunc("/status", s.status, http.MethodGet)

	return mux
}

// ListenAndServe serves requests until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr: s.addr,

		Handler: s.Handler(),

		ReadHeaderTimeout: 5 * time.Second,
	}

	quit := make(chan error, 1)

	go func() {
		quit <- srv.ListenAndServe()
	}()

	select {
	case err := <-quit:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	}
}

func (s *Server) ping(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	reply := StatusReply{
		Session: s.src.Status(),

		Since: s.since,
	}

	w.Header().Set("Content-Type", "application/json")

	_ = json.NewEncoder(w).Encode(reply)
}
