// Package registry implements the Session Registry from spec.md §4.3: a
// concurrent mapping from connection to VM identifier.
//
// Grounded on the sync.RWMutex-guarded map in
// internal/session/registry.go's SessionRegistry, generalized from
// map[int]*BbsSession (node ID to BBS session struct) to map[ConnID]string
// (connection handle to normalized VM identifier) — the concentrator only
// ever needs the identifier, not a rich session object, per spec.md §3.
package registry

import "sync"

// ConnID is a stable handle identifying a connection, distinct from its
// socket file descriptor (which can be reused after close). Connection
// drivers mint one per accepted socket.
type ConnID uint64

// Registry tracks the connection -> VM identifier binding described in
// spec.md §3 (Session Binding). It is safe for concurrent use by
// independent connection drivers.
type Registry struct {
	mu       sync.RWMutex
	bindings map[ConnID]string
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{bindings: make(map[ConnID]string)}
}

// Bind records that conn is now associated with vmID, replacing any prior
// binding for that connection (used during vMotion re-identification).
func (r *Registry) Bind(conn ConnID, vmID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[conn] = vmID
}

// Lookup returns the VM identifier bound to conn, if any.
func (r *Registry) Lookup(conn ConnID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	vmID, ok := r.bindings[conn]
	return vmID, ok
}

// Unbind removes any binding for conn. It is idempotent: unbinding a
// connection with no binding is a no-op.
func (r *Registry) Unbind(conn ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bindings, conn)
}

// Len reports the number of currently bound connections, for diagnostics.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bindings)
}
