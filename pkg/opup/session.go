// Package opup implements the OPUP framing and session layer: request
// frame construction, synchronous request/response correlation, CRC and
// SOF validation, and the command surface built on top of it.
package opup

import (
	"encoding/hex"
	"sync"

	"github.com/librescoot/opup-flasher/pkg/crc"
)

// Transport is the byte-duplex link a Session drives. *transport.Port
// satisfies it; tests substitute a fake.
type Transport interface {
	Write(data []byte) error
	ReadExact(n int) ([]byte, error)
}

// TraceFunc receives the raw bytes of a transmitted or received frame,
// tagged "TX" or "RX", when verbose tracing is enabled.
type TraceFunc func(dir string, frame []byte)

// Session is a transport plus a sequence counter plus a CRC table: one
// per serial port, lifetime from open to close. Transact serializes
// access so only one transaction is ever outstanding on the link.
type Session struct {
	transport Transport
	table     *crc.Table

	mu        sync.Mutex
	seq       byte
	trace     TraceFunc
	publisher EventPublisher
}

// NewSession wraps an already-open transport. The CRC table is built
// once per session, as §5 requires.
func NewSession(t Transport) *Session {
	return &Session{
		transport: t,
		table:     crc.NewTable(),
		publisher: noopPublisher{},
	}
}

// SetTrace installs a hook invoked with the raw bytes of every request
// frame this session sends and of every response frame that passes the
// SOF and CRC checks; rejected responses are not traced. Pass nil to
// disable tracing.
func (s *Session) SetTrace(fn TraceFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trace = fn
}

// SetEventPublisher attaches an optional observer of transaction
// outcomes. Pass nil to detach.
func (s *Session) SetEventPublisher(p EventPublisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p == nil {
		p = noopPublisher{}
	}
	s.publisher = p
}

// Transact sends one OPUP request and returns the decoded success
// payload, or a typed error. Exactly one transaction is in flight on the
// link at a time; Transact holds the session lock for its duration.
func (s *Session) Transact(opcode Opcode, payload []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++ // byte arithmetic: wraps modulo 256
	req := encodeRequest(s.table, s.seq, opcode, payload)
	s.traceLocked("TX", req)

	if err := s.transport.Write(req); err != nil {
		e := newErr(KindTransportUnavailable, "write request", err)
		s.publisher.PublishTransaction(opcode, e)
		return nil, e
	}

	result, err := s.readResponseLocked()
	s.publisher.PublishTransaction(opcode, err)
	return result, err
}

func (s *Session) readResponseLocked() ([]byte, error) {
	header, err := s.transport.ReadExact(headerLen)
	if err != nil || len(header) < headerLen {
		return nil, newErr(KindTimeout, "reading response header", err)
	}
	if header[0] != SOF {
		return nil, newErr(KindBadFraming, "unexpected first octet", nil)
	}

	length := decodeLength(header)
	var payload []byte
	if length > 0 {
		payload, err = s.transport.ReadExact(length)
		if err != nil || len(payload) < length {
			return nil, newErr(KindTimeout, "reading response payload", err)
		}
	}

	tail, err := s.transport.ReadExact(4)
	if err != nil || len(tail) < 4 {
		return nil, newErr(KindTimeout, "reading response crc", err)
	}

	check := make([]byte, 0, headerLen+len(payload))
	check = append(check, header...)
	check = append(check, payload...)
	if s.table.Sum(check) != decodeCRC(tail) {
		return nil, newErr(KindBadCrc, "crc mismatch", nil)
	}

	full := append(append([]byte{}, header...), payload...)
	full = append(full, tail...)
	s.traceLocked("RX", full)

	flags := header[3]
	if flags&FlagError != 0 {
		return nil, newDeviceError(payload)
	}
	return payload, nil
}

func (s *Session) traceLocked(dir string, frame []byte) {
	if s.trace == nil {
		return
	}
	cp := append([]byte{}, frame...)
	s.trace(dir, cp)
}

// HexTrace is a ready-made TraceFunc for CLI verbose mode, mirroring the
// original CLI's "TX: <hex>" / "RX: <hex>" console tracing.
func HexTrace(log func(format string, args ...interface{})) TraceFunc {
	return func(dir string, frame []byte) {
		log("%s: %s", dir, hex.EncodeToString(frame))
	}
}
