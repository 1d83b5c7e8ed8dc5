// Package vspcconn implements the Connection Driver from spec.md §4.5: it
// wires the telnet codec, the vendor-extension option handler, and the
// log sink together for one TCP connection, enforcing the
// identification-before-data invariant and single-writer discipline on
// the send half.
//
// Grounded on Server.handleConnection in internal/telnetserver/server.go
// for the accept -> wrap -> read-loop -> deferred-cleanup shape, and on
// TelnetConn.writeMu in internal/telnetserver/telnet.go for serializing
// writes to the send half (P4: at-most-one writer per connection).
package vspcconn

import (
	"io"
	"net"
	"sync"

	"github.com/stlalpha/vspcd/internal/logging"
	"github.com/stlalpha/vspcd/internal/logsink"
	"github.com/stlalpha/vspcd/internal/registry"
	"github.com/stlalpha/vspcd/internal/telnetcodec"
	"github.com/stlalpha/vspcd/internal/vmwext"
)

const readBufferSize = 4096

// OptionHandler is the subset of *vmwext.Handler the driver depends on.
// Factored out so tests can substitute a fake.
type OptionHandler interface {
	HandleOption(ev telnetcodec.Event) (vmwext.Result, error)
}

// Conn owns one accepted TCP connection end to end: exclusively owned by
// its driving goroutine, destroyed on EOF, I/O error, or protocol
// violation.
type Conn struct {
	ID      registry.ConnID
	nc      net.Conn
	decoder *telnetcodec.Decoder
	handler OptionHandler
	reg     *registry.Registry
	sink    *logsink.Sink

	writeMu sync.Mutex
}

// New wires a Connection Driver around an already-accepted socket.
func New(id registry.ConnID, nc net.Conn, handler OptionHandler, reg *registry.Registry, sink *logsink.Sink) *Conn {
	return &Conn{
		ID:      id,
		nc:      nc,
		decoder: telnetcodec.NewDecoder(),
		handler: handler,
		reg:     reg,
		sink:    sink,
	}
}

// Serve runs the connection until EOF, an I/O error, or a protocol
// violation closes it. It always unbinds the connection from the
// registry and closes the socket before returning.
func (c *Conn) Serve() {
	addr := c.nc.RemoteAddr().String()
	defer c.teardown(addr)

	buf := make([]byte, readBufferSize)
	for {
		n, err := c.nc.Read(buf)
		if n > 0 {
			events, decodeErr := c.decoder.Decode(buf[:n])
			for _, ev := range events {
				if c.dispatch(addr, ev) {
					return
				}
			}
			if decodeErr != nil {
				logging.Error("protocol violation from %s: %v", addr, decodeErr)
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				logging.Warn("read error from %s: %v", addr, err)
			}
			return
		}
	}
}

// dispatch handles one decoded event and reports whether the connection
// must now close.
func (c *Conn) dispatch(addr string, ev telnetcodec.Event) bool {
	if ev.Kind == telnetcodec.EventData {
		return c.handleData(addr, ev.Data)
	}
	return c.handleOption(addr, ev)
}

// handleData implements the identification-before-data invariant
// (spec.md §4.5, §3 Session Binding): a data chunk with no registry
// binding for this connection is a protocol violation.
func (c *Conn) handleData(addr string, data []byte) bool {
	vmID, ok := c.reg.Lookup(c.ID)
	if !ok {
		logging.Error("data before identification from %s, closing", addr)
		return true
	}
	if err := c.sink.Append(vmID, data); err != nil {
		logging.Error("log append failed for %s (%s): %v", vmID, addr, err)
		return true
	}
	return false
}

func (c *Conn) handleOption(addr string, ev telnetcodec.Event) bool {
	res, err := c.handler.HandleOption(ev)

	for _, reply := range res.Replies {
		if werr := c.write(reply); werr != nil {
			logging.Warn("write error to %s: %v", addr, werr)
			return true
		}
	}

	if res.VMID != "" {
		c.reg.Bind(c.ID, res.VMID)
		logging.Info("%s identified as %s", addr, res.VMID)
	}

	if err != nil {
		logging.Error("protocol violation from %s: %v", addr, err)
		return true
	}
	return res.Close
}

// write serializes all writes to the send half: only the driver's own
// goroutine calls it, and it holds writeMu for the duration so a future
// concurrent caller (e.g. a housekeeping goroutine) cannot interleave.
func (c *Conn) write(b []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := c.nc.Write(b)
	return err
}

func (c *Conn) teardown(addr string) {
	c.reg.Unbind(c.ID)
	c.nc.Close()
	logging.Info("%s disconnected", addr)
}
