// Package vmwext implements the VMware telnet extension sub-protocol
// described in spec.md §4.2: suboption discovery, VM identification, the
// vMotion three-phase handshake, and the DO-PROXY handshake, all carried
// inside telnet sub-negotiations whose first payload byte is the vendor
// option code 232 (VMWARE_EXT).
//
// The switch-on-suboption-byte shape is grounded on handleSubnegotiation
// in internal/telnetserver/telnet.go; the exact sub-command codes, the
// supported-options advertisement, and the reply semantics are grounded on
// _examples/original_source/vspc/server.py.
package vmwext

import (
	"crypto/rand"
	"fmt"

	"github.com/stlalpha/vspcd/internal/logging"
	"github.com/stlalpha/vspcd/internal/telnetcodec"
	"github.com/stlalpha/vspcd/internal/vmid"
)

// OptionCode is a telnet option byte (RFC 1091 et al. plus the vendor
// extension).
type OptionCode byte

const (
	OptBinary    OptionCode = 0
	OptSGA       OptionCode = 3
	OptVMwareExt OptionCode = 232
)

// Vendor sub-command codes, carried as the second byte of a VMWARE_EXT
// sub-negotiation payload.
const (
	SubKnownSuboptions1 byte = 0
	SubKnownSuboptions2 byte = 1
	SubVMotionBegin     byte = 40
	SubVMotionGoAhead   byte = 41
	SubVMotionNotNow    byte = 43
	SubVMotionPeer      byte = 44
	SubVMotionPeerOK    byte = 45
	SubVMotionComplete  byte = 46
	SubVMotionAbort     byte = 48
	SubVMVCUUID         byte = 80
	SubGetVMVCUUID      byte = 81
	SubVMName           byte = 82
	SubGetVMName        byte = 83
	SubDoProxy          byte = 70
	SubWillProxy        byte = 71
	SubWontProxy        byte = 73
)

// supportedSubOptions is the exact byte sequence advertised in reply to
// KNOWN-SUBOPTIONS-1; order matches the source (server.py SUPPORTED_OPTS).
var supportedSubOptions = []byte{
	SubKnownSuboptions1, SubKnownSuboptions2,
	SubVMotionBegin, SubVMotionGoAhead, SubVMotionNotNow, SubVMotionPeer, SubVMotionPeerOK,
	SubVMotionComplete, SubVMotionAbort,
	SubVMVCUUID, SubGetVMVCUUID, SubVMName, SubGetVMName,
	SubDoProxy, SubWillProxy, SubWontProxy,
}

// RandomSecret produces the 4 cryptographically random bytes sent in a
// VMOTION-GOAHEAD reply. Overridable in tests.
type RandomSecret func() ([4]byte, error)

func defaultRandomSecret() ([4]byte, error) {
	var b [4]byte
	_, err := rand.Read(b[:])
	return b, err
}

// Result is what HandleOption decides: zero or more reply frames to write
// (in order, before any further input is consumed — §5 half-duplex
// ordering), an optional VM identifier that the connection driver should
// bind, and whether the connection must be closed.
type Result struct {
	Replies     [][]byte
	VMID        string // non-empty when this event identifies the VM
	Close       bool
	CloseReason string
}

// Handler decides replies and session-state updates for telnet option
// events, implementing the sub-protocol in spec.md §4.2.
type Handler struct {
	URI    string
	Random RandomSecret
}

// New returns a Handler configured with the VSPC URI required to accept
// DO-PROXY requests.
func New(uri string) *Handler {
	return &Handler{URI: uri, Random: defaultRandomSecret}
}

// HandleOption processes a single option event from the telnet codec and
// returns the reply/bind/close decision. A non-nil error always implies a
// protocol violation: the caller must close the connection regardless of
// Result.Close.
func (h *Handler) HandleOption(ev telnetcodec.Event) (Result, error) {
	switch ev.Kind {
	case telnetcodec.EventOption:
		return h.handleBaseNegotiation(ev)
	case telnetcodec.EventSubNegotiation:
		return h.handleSubNegotiation(ev)
	default:
		return Result{}, nil
	}
}

func (h *Handler) handleBaseNegotiation(ev telnetcodec.Event) (Result, error) {
	opt := OptionCode(ev.Opt)
	switch ev.Cmd {
	case telnetcodec.DO:
		if opt == OptBinary || opt == OptSGA {
			logging.Debug("<< DO %d, >> WILL", ev.Opt)
			return Result{Replies: [][]byte{telnetcodec.EncodeOption(telnetcodec.WILL, ev.Opt)}}, nil
		}
		logging.Debug("<< DO %d, >> WONT", ev.Opt)
		return Result{Replies: [][]byte{telnetcodec.EncodeOption(telnetcodec.WONT, ev.Opt)}}, nil

	case telnetcodec.WILL:
		if opt == OptBinary || opt == OptSGA || opt == OptVMwareExt {
			logging.Debug("<< WILL %d, >> DO", ev.Opt)
			return Result{Replies: [][]byte{telnetcodec.EncodeOption(telnetcodec.DO, ev.Opt)}}, nil
		}
		logging.Debug("<< WILL %d, >> DONT", ev.Opt)
		return Result{Replies: [][]byte{telnetcodec.EncodeOption(telnetcodec.DONT, ev.Opt)}}, nil

	case telnetcodec.DONT, telnetcodec.WONT:
		// Accepted silently per spec.md §4.2.
		return Result{}, nil
	}
	return Result{}, nil
}

func (h *Handler) handleSubNegotiation(ev telnetcodec.Event) (Result, error) {
	if len(ev.Data) < 2 || OptionCode(ev.Data[0]) != OptVMwareExt {
		// Not a vendor sub-negotiation; nothing in this spec to do with it.
		return Result{}, nil
	}
	subcmd := ev.Data[1]
	payload := ev.Data[2:]

	switch subcmd {
	case SubKnownSuboptions1:
		logging.Debug("<< KNOWN-SUBOPTIONS-1 %v", payload)
		advert := append([]byte{byte(OptVMwareExt), SubKnownSuboptions2}, supportedSubOptions...)
		getUUID := []byte{byte(OptVMwareExt), SubGetVMVCUUID}
		return Result{Replies: [][]byte{
			telnetcodec.EncodeSubNegotiation(advert),
			telnetcodec.EncodeSubNegotiation(getUUID),
		}}, nil

	case SubDoProxy:
		if len(payload) < 1 {
			return Result{Close: true, CloseReason: "DO-PROXY: missing direction byte"},
				fmt.Errorf("vmwext: DO-PROXY payload too short")
		}
		dir := payload[0]
		uri := string(payload[1:])
		logging.Debug("<< DO-PROXY %c %s", dir, uri)
		if dir == 'S' && uri == h.URI {
			logging.Debug(">> WILL-PROXY")
			reply := []byte{byte(OptVMwareExt), SubWillProxy}
			return Result{Replies: [][]byte{telnetcodec.EncodeSubNegotiation(reply)}}, nil
		}
		logging.Debug(">> WONT-PROXY (direction=%c uri=%q, want %q)", dir, uri, h.URI)
		reply := []byte{byte(OptVMwareExt), SubWontProxy}
		return Result{
			Replies:     [][]byte{telnetcodec.EncodeSubNegotiation(reply)},
			Close:       true,
			CloseReason: "DO-PROXY mismatch",
		}, nil

	case SubVMotionBegin:
		secret, err := h.Random()
		if err != nil {
			return Result{}, fmt.Errorf("vmwext: VMOTION-BEGIN: generate secret: %w", err)
		}
		logging.Debug("<< VMOTION-BEGIN %v", payload)
		body := append([]byte{byte(OptVMwareExt), SubVMotionGoAhead}, payload...)
		body = append(body, secret[:]...)
		return Result{Replies: [][]byte{telnetcodec.EncodeSubNegotiation(body)}}, nil

	case SubVMotionPeer:
		logging.Debug("<< VMOTION-PEER %v", payload)
		body := append([]byte{byte(OptVMwareExt), SubVMotionPeerOK}, payload...)
		return Result{Replies: [][]byte{telnetcodec.EncodeSubNegotiation(body)}}, nil

	case SubVMotionComplete:
		logging.Debug("<< VMOTION-COMPLETE %v", payload)
		return Result{}, nil

	case SubVMotionAbort:
		logging.Debug("<< VMOTION-ABORT %v", payload)
		return Result{}, nil

	case SubVMVCUUID:
		id, err := vmid.NormalizeAndValidate(string(payload))
		if err != nil {
			return Result{Close: true, CloseReason: "invalid VM-VC-UUID"},
				fmt.Errorf("vmwext: VM-VC-UUID: %w", err)
		}
		logging.Debug("<< VM-VC-UUID %s", id)
		return Result{VMID: id}, nil

	case SubKnownSuboptions2, SubVMotionGoAhead, SubVMotionNotNow, SubVMotionPeerOK,
		SubGetVMVCUUID, SubVMName, SubGetVMName, SubWillProxy, SubWontProxy:
		// Advertised by this server, never expected inbound; tolerate silently.
		logging.Debug("<< unexpected advertised-only sub-command %d, ignoring", subcmd)
		return Result{}, nil

	default:
		return Result{Close: true, CloseReason: "unknown vendor sub-command"},
			fmt.Errorf("vmwext: unknown vendor sub-command %d", subcmd)
	}
}
