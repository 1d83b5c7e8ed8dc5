// Listener implements spec.md §4.6: a bind+accept loop, optionally
// wrapped in TLS, spawning one Connection Driver per accepted socket.
//
// Grounded on Server.ListenAndServe in internal/telnetserver/server.go
// for the mutex-guarded listener handle, the "nil listener means closed"
// shutdown check, and the per-connection recover().
package vspcconn

import (
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stlalpha/vspcd/internal/logging"
	"github.com/stlalpha/vspcd/internal/logsink"
	"github.com/stlalpha/vspcd/internal/registry"
	"github.com/stlalpha/vspcd/internal/vmwext"
)

// Config configures a Listener.
type Config struct {
	Host     string
	Port     int
	CertFile string
	KeyFile  string
	URI      string
	Registry *registry.Registry
	Sink     *logsink.Sink
}

// Listener accepts telnet connections and spawns a Connection Driver for
// each one.
type Listener struct {
	cfg     Config
	mu      sync.Mutex
	ln      net.Listener
	nextID  uint64
}

// NewListener returns a Listener ready to call ListenAndServe.
func NewListener(cfg Config) *Listener {
	return &Listener{cfg: cfg}
}

// ListenAndServe binds the configured host:port (with TLS if CertFile is
// set) and blocks, spawning a goroutine per accepted connection. Transient
// accept errors are logged and retried. It returns nil on a clean Close,
// or a non-nil error for a listen failure or a non-transient accept error.
func (l *Listener) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", l.cfg.Host, l.cfg.Port)

	ln, err := l.listen(addr)
	if err != nil {
		return fmt.Errorf("vspcconn: listen on %s: %w", addr, err)
	}

	l.mu.Lock()
	l.ln = ln
	l.mu.Unlock()

	logging.Info("telnet listener on %s", addr)

	for {
		nc, err := ln.Accept()
		if err != nil {
			l.mu.Lock()
			closed := l.ln == nil
			l.mu.Unlock()
			if closed {
				return nil
			}
			if ne, ok := err.(net.Error); ok && ne.Temporary() {
				logging.Warn("transient accept error, retrying: %v", err)
				time.Sleep(100 * time.Millisecond)
				continue
			}
			logging.Error("accept error, terminating listener: %v", err)
			return fmt.Errorf("vspcconn: accept: %w", err)
		}
		go l.handle(nc)
	}
}

func (l *Listener) listen(addr string) (net.Listener, error) {
	if l.cfg.CertFile == "" {
		return net.Listen("tcp", addr)
	}
	cert, err := tls.LoadX509KeyPair(l.cfg.CertFile, l.cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load TLS keypair: %w", err)
	}
	tlsCfg := &tls.Config{Certificates: []tls.Certificate{cert}}
	return tls.Listen("tcp", addr, tlsCfg)
}

func (l *Listener) handle(nc net.Conn) {
	addr := nc.RemoteAddr().String()
	defer func() {
		if r := recover(); r != nil {
			logging.Error("panic handling %s: %v", addr, r)
			nc.Close()
		}
	}()

	logging.Info("connected from %s", addr)

	id := registry.ConnID(atomic.AddUint64(&l.nextID, 1))
	conn := New(id, nc, vmwext.New(l.cfg.URI), l.cfg.Registry, l.cfg.Sink)
	conn.Serve()
}

// Close shuts down the listener. In-flight connections are left to their
// own drivers to unwind (each closes and unbinds on its next read error).
func (l *Listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln != nil {
		err := l.ln.Close()
		l.ln = nil
		return err
	}
	return nil
}
