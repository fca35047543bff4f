package metrics

import (
	"context"
	"log"
	"net/http"
)

// Server runs the status HTTP server.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer serves handler on addr.
func NewServer(addr string, handler http.Handler) *Server {
	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: handler,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
