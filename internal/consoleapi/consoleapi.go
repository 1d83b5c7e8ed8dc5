// Package consoleapi implements the HTTP retrieval surface from spec.md
// §6: GET /console_log/{uuid} returns the accumulated console log for a
// VM, gated by HTTP Basic auth.
//
// Grounded on _examples/original_source/vspc/console_log.py's
// check_auth/requires_auth/retrieve_console_log for the exact contract
// (normalize, stat, 404 on miss, serve raw bytes); re-expressed with the
// standard library's net/http since no repo in the pack carries a
// third-party HTTP router or Basic-auth middleware — see DESIGN.md.
package consoleapi

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"os"

	"github.com/stlalpha/vspcd/internal/logging"
	"github.com/stlalpha/vspcd/internal/logsink"
	"github.com/stlalpha/vspcd/internal/vmid"
)

// Config configures the retrieval server.
type Config struct {
	Host     string
	Port     int
	CertFile string
	KeyFile  string
	Username string
	Password string
	Sink     *logsink.Sink
}

// Server serves the console log retrieval endpoint.
type Server struct {
	cfg Config
	srv *http.Server
}

// New returns a Server ready to call ListenAndServe.
func New(cfg Config) *Server {
	return &Server{cfg: cfg}
}

// Handler returns the configured mux, wrapped in Basic auth when
// credentials are set.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /console_log/{uuid}", s.handleGet)

	if s.cfg.Username == "" {
		return mux
	}
	return basicAuth(s.cfg.Username, s.cfg.Password, mux)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("uuid")
	vmID, err := vmid.NormalizeAndValidate(raw)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	path := s.cfg.Sink.Path(vmID)
	logging.Info("reading console log %s", path)

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		logging.Error("console log not found: %s", path)
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, path)
}

// basicAuth gates next behind HTTP Basic auth. Constant-time comparison
// avoids leaking credential length/prefix via timing.
func basicAuth(username, password string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		validUser := subtle.ConstantTimeCompare([]byte(user), []byte(username)) == 1
		validPass := subtle.ConstantTimeCompare([]byte(pass), []byte(password)) == 1
		if !ok || !validUser || !validPass {
			w.Header().Set("WWW-Authenticate", `Basic realm="vspc console logs"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ListenAndServe binds the configured host:web_port (with TLS if CertFile
// is set) and blocks until Close is called.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.srv = &http.Server{Addr: addr, Handler: s.Handler()}

	logging.Info("console log HTTP server on %s", addr)

	if s.cfg.CertFile != "" {
		return s.srv.ListenAndServeTLS(s.cfg.CertFile, s.cfg.KeyFile)
	}
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Close shuts down the HTTP server.
func (s *Server) Close() error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Close()
}
