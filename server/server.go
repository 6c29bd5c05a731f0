// Package server exposes the transpiler over Connect RPC (HTTP/JSON) and
// as an LSP language server on stdio.
package server

import (
	"net/http"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"

	"github.com/hyperpolymath/obli-transpiler-framework/artifact"
)

var log = commonlog.GetLogger("obli.server")

// Server is the transpile server. It serves Connect (HTTP/JSON) handlers
// for transpilation, checking, and secrecy analysis.
type Server struct {
	service *TranspileService
	mux     *http.ServeMux
}

// Option configures a Server.
type Option func(*serverConfig)

type serverConfig struct {
	store *artifact.Store
}

// WithStore attaches an artifact cache. Transpile responses for already
// seen sources are served from the cache.
func WithStore(store *artifact.Store) Option {
	return func(c *serverConfig) { c.store = store }
}

// New creates a Server.
func New(opts ...Option) *Server {
	cfg := &serverConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &Server{
		service: NewTranspileService(cfg.store),
		mux:     http.NewServeMux(),
	}

	codec := connect.WithCodec(jsonCodec{})
	s.mux.Handle(TranspileProcedure, connect.NewUnaryHandler(
		TranspileProcedure, s.service.Transpile, codec,
	))
	s.mux.Handle(CheckProcedure, connect.NewUnaryHandler(
		CheckProcedure, s.service.Check, codec,
	))
	s.mux.Handle(AnalyzeProcedure, connect.NewUnaryHandler(
		AnalyzeProcedure, s.service.Analyze, codec,
	))

	return s
}

// Handler returns the HTTP handler serving all procedures, for embedding
// in an existing mux or for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe starts the HTTP server on the given address.
// The address should be in the form "host:port" or ":port".
func (s *Server) ListenAndServe(addr string) error {
	log.Noticef("transpile server listening on %s", addr)
	log.Noticef("  Connect (HTTP/JSON): http://%s%s", addr, TranspileProcedure)
	return http.ListenAndServe(addr, s.mux)
}
