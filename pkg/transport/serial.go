// Package transport wraps the serial link the OPUP session runs over: a
// byte-oriented duplex channel with a bounded read timeout.
package transport

import (
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
)

// Config describes how to attach to the programmer appliance.
type Config struct {
	Port    string
	Baud    int
	Timeout time.Duration
}

// resetDelay is how long the transport waits for the device to finish
// resetting before the input buffer is flushed, per §4.2.
const resetDelay = 500 * time.Millisecond

// Port is an open serial connection, exclusively owned by one Session.
type Port struct {
	port serial.Port

	mu     sync.Mutex
	closed bool
}

// Open attaches to the serial port, waits for device reset, and flushes
// whatever arrived on the input buffer in the meantime.
func Open(cfg Config) (*Port, error) {
	mode := &serial.Mode{
		BaudRate: cfg.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	p, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Port, err)
	}

	if err := p.SetReadTimeout(cfg.Timeout); err != nil {
		p.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", cfg.Port, err)
	}

	time.Sleep(resetDelay)

	if err := p.ResetInputBuffer(); err != nil {
		p.Close()
		return nil, fmt.Errorf("flush input buffer on %s: %w", cfg.Port, err)
	}

	return &Port{port: p}, nil
}

// Write emits the given bytes in a single call.
func (p *Port) Write(data []byte) error {
	_, err := p.port.Write(data)
	return err
}

// ReadExact reads up to n octets, blocking until either n octets have
// arrived or a single underlying read returns nothing within the
// configured timeout. The returned slice is shorter than n iff the
// timeout elapsed — the caller (the framing layer) treats that as fatal.
func (p *Port) ReadExact(n int) ([]byte, error) {
	buf := make([]byte, n)
	got := 0
	for got < n {
		m, err := p.port.Read(buf[got:])
		if err != nil {
			return buf[:got], err
		}
		if m == 0 {
			return buf[:got], nil
		}
		got += m
	}
	return buf, nil
}

// FlushInput discards whatever is currently buffered for reading.
func (p *Port) FlushInput() error {
	return p.port.ResetInputBuffer()
}

// Close releases the serial port. Idempotent.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.port.Close()
}
