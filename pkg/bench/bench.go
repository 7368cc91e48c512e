// Package bench is the benchmark driver: it erases, writes, and reads a
// region in each supported QSPI mode and reports per-mode throughput and
// verify results (§4.5.11).
package bench

import (
	"time"

	"github.com/librescoot/opup-flasher/pkg/flash"
	"github.com/librescoot/opup-flasher/pkg/opup"
)

// ModeSpec is one read configuration exercised by the benchmark: a lane
// mode together with the command and dummy-cycle count that mode's read
// uses.
type ModeSpec struct {
	Name   string
	Mode   flash.Mode
	Cmd    byte
	Dummy  byte
}

// Modes is the fixed set from §4.5.11.
var Modes = []ModeSpec{
	{"standard-1-1-1", flash.ModeStandard, 0x03, 0},
	{"fast-read-1-1-1", flash.ModeStandard, 0x0B, 8},
	{"dual-output-1-1-2", flash.ModeDualOutput, 0x3B, 8},
	{"dual-io-1-2-2", flash.ModeDualIO, 0xBB, 4},
	{"quad-output-1-1-4", flash.ModeQuadOutput, 0x6B, 8},
	{"quad-io-1-4-4", flash.ModeQuadIO, 0xEB, 6},
}

// ModeResult is one mode's benchmark outcome. Err is non-nil when the
// mode's reads failed; per §7 this is a non-fatal data point, recorded
// and not propagated.
type ModeResult struct {
	Spec       ModeSpec
	BytesRead  int
	Elapsed    time.Duration
	Verified   bool
	Err        error
}

// Driver composes a flash.Engine to run the benchmark.
type Driver struct {
	engine  *flash.Engine
	session *opup.Session
}

// New returns a benchmark driver over the given session.
func New(session *opup.Session) *Driver {
	return &Driver{engine: flash.New(session), session: session}
}

// Run erases the region at addr, writes sizeKB KiB of a known pattern
// using standard-mode page program regardless of the read mode under
// test (only reads are exercised across modes, §9), then for each mode
// in Modes reads the region back in 256-byte chunks, reassembles it,
// measures wall time, and verifies it against the pattern.
func (d *Driver) Run(addr uint32, sizeKB int) ([]ModeResult, error) {
	size := sizeKB * 1024
	pattern := make([]byte, size)
	for i := range pattern {
		pattern[i] = byte(i)
	}

	granularity := flash.Sector
	for a := addr; a < addr+uint32(size); a += 4096 {
		if err := d.engine.Erase(granularity, a); err != nil {
			return nil, err
		}
	}
	if _, err := d.engine.Write(addr, pattern); err != nil {
		return nil, err
	}

	results := make([]ModeResult, 0, len(Modes))
	for _, spec := range Modes {
		results = append(results, d.runMode(spec, addr, pattern))
	}
	return results, nil
}

func (d *Driver) runMode(spec ModeSpec, addr uint32, pattern []byte) ModeResult {
	result := ModeResult{Spec: spec}

	if _, err := opup.QSPISetMode(d.session, byte(spec.Mode)); err != nil {
		result.Err = err
		return result
	}

	pageCount := len(pattern) / flash.PageSize
	read := make([]byte, 0, len(pattern))

	start := time.Now()
	for i := 0; i < pageCount; i++ {
		data, err := opup.QSPIRead(d.session, spec.Cmd, addr+uint32(i*flash.PageSize), 3, spec.Dummy, flash.PageSize)
		if err != nil {
			result.Err = err
			result.Elapsed = time.Since(start)
			return result
		}
		read = append(read, data...)
	}
	result.Elapsed = time.Since(start)
	result.BytesRead = len(read)

	result.Verified = bytesEqual(read, pattern)
	return result
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
