// Package server exposes the auth flows over HTTP as a JSON API.
package server

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jrsteele09/ziris-auth/auth"
	"github.com/jrsteele09/ziris-auth/internal/config"
)

type Server struct {
	env    string // Environment (e.g., "DEV", "production")
	mux    *http.ServeMux
	routes []string
	config config.Config
	auth   *auth.Service
	log    zerolog.Logger
}

func New(cfg config.Config, authService *auth.Service, log zerolog.Logger) (*Server, error) {
	s := &Server{
		mux:    http.NewServeMux(),
		config: cfg,
		auth:   authService,
		log:    log,
	}
	s.env = cfg.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			s.log.Info().Str("method", parts[0]).Str("path", parts[1]).Msg("route")
		} else {
			s.log.Info().Str("path", parts[0]).Msg("route")
		}
	}
}

// clientIP resolves the originating address, preferring the first entry of
// X-Forwarded-For when a proxy sits in front of the service.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return host
}
