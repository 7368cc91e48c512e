package flash

import (
	"fmt"
	"time"

	"github.com/librescoot/opup-flasher/pkg/opup"
)

// Mode is the SPI-lane mode enumeration of §3: the three numerals denote
// command/address/data lane counts.
type Mode byte

const (
	ModeStandard   Mode = 0 // 1-1-1
	ModeDualOutput Mode = 1 // 1-1-2
	ModeDualIO     Mode = 2 // 1-2-2
	ModeQuadOutput Mode = 3 // 1-1-4
	ModeQuadIO     Mode = 4 // 1-4-4
	ModeQPI        Mode = 5 // 4-4-4
)

// Engine is the QSPI flash programming engine, expressed entirely in
// terms of a *opup.Session.
type Engine struct {
	session *opup.Session
}

// New returns a flash engine driving the given session.
func New(session *opup.Session) *Engine {
	return &Engine{session: session}
}

func opErr(format string, args ...interface{}) error {
	return &opup.Error{Kind: opup.KindOperationFailed, Msg: fmt.Sprintf(format, args...)}
}

// ReadSR1 reads the BUSY/WEL status register (SR1).
func (e *Engine) ReadSR1() (byte, error) {
	data, err := opup.QSPICmd(e.session, 0x05, []byte{0})
	if err != nil {
		return 0, err
	}
	if len(data) < 1 {
		return 0, opErr("SR1 read returned no data")
	}
	return data[0], nil
}

// ReadSR2 reads the vendor Quad-Enable status register (SR2).
func (e *Engine) ReadSR2() (byte, error) {
	data, err := opup.QSPICmd(e.session, 0x35, []byte{0})
	if err != nil {
		return 0, err
	}
	if len(data) < 1 {
		return 0, opErr("SR2 read returned no data")
	}
	return data[0], nil
}

const (
	sr1Busy = 1 << 0
	sr1WEL  = 1 << 1
	sr1QE   = 1 << 6 // Macronix
	sr2QE   = 1 << 1 // Winbond / GigaDevice
)

// WriteEnable issues the write-enable command and confirms the WEL bit
// latched, failing with KindOperationFailed otherwise.
func (e *Engine) WriteEnable() error {
	if _, err := opup.QSPICmd(e.session, 0x06, nil); err != nil {
		return err
	}
	sr1, err := e.ReadSR1()
	if err != nil {
		return err
	}
	if sr1&sr1WEL == 0 {
		return opErr("WEL did not latch after write-enable")
	}
	return nil
}

// Default busy-wait timeouts per §4.5.4.
const (
	TimeoutPageProgram  = 5 * time.Second
	TimeoutSectorErase  = 10 * time.Second
	TimeoutBlock64Erase = 30 * time.Second
	TimeoutChipErase    = 5 * time.Minute

	busyPollInterval = time.Millisecond
)

// BusyWait polls SR1 at ~1ms intervals until BUSY clears or timeout
// elapses.
func (e *Engine) BusyWait(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		sr1, err := e.ReadSR1()
		if err != nil {
			return err
		}
		if sr1&sr1Busy == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return opErr("BUSY did not clear within %s", timeout)
		}
		time.Sleep(busyPollInterval)
	}
}
