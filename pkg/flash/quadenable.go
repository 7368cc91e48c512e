package flash

import (
	"time"

	"github.com/librescoot/opup-flasher/pkg/opup"
)

// vendor is the tagged variant the Quad-Enable sequence dispatches on,
// per the design note in spec.md §9: a tagged variant over manufacturer
// ID with a default branch, not ad-hoc conditionals. A new vendor is a
// new case, nothing else changes.
type vendor int

const (
	vendorWinbond vendor = iota
	vendorGigaDevice
	vendorMacronix
	vendorOther
)

func classifyVendor(manufacturer byte) vendor {
	switch manufacturer {
	case 0xEF:
		return vendorWinbond
	case 0xC8:
		return vendorGigaDevice
	case 0xC2:
		return vendorMacronix
	default:
		return vendorOther
	}
}

const qeSettleDelay = 100 * time.Millisecond

// QuadEnable sets the vendor-appropriate QE bit so the chip accepts
// 4-lane I/O. A chip that already reports QE set is left untouched and
// reported as success (§8 property 8: QE idempotence).
func (e *Engine) QuadEnable(manufacturer byte) error {
	switch classifyVendor(manufacturer) {
	case vendorMacronix:
		return e.quadEnableMacronix()
	case vendorWinbond, vendorGigaDevice, vendorOther:
		return e.quadEnableSR2Bit1()
	default:
		return e.quadEnableSR2Bit1()
	}
}

// quadEnableMacronix sets SR1.bit6 via write-status (0x01).
func (e *Engine) quadEnableMacronix() error {
	sr1, err := e.ReadSR1()
	if err != nil {
		return err
	}
	if sr1&sr1QE != 0 {
		return nil
	}
	if err := e.WriteEnable(); err != nil {
		return err
	}
	if _, err := opup.QSPICmd(e.session, 0x01, []byte{sr1 | sr1QE}); err != nil {
		return err
	}
	time.Sleep(qeSettleDelay)
	after, err := e.ReadSR1()
	if err != nil {
		return err
	}
	if after&sr1QE == 0 {
		return opErr("QE bit did not set on Macronix part (SR1=0x%02x)", after)
	}
	return nil
}

// quadEnableSR2Bit1 sets SR2.bit1 via command 0x31 — the Winbond/
// GigaDevice sequence, also used as the fallback for unknown vendors.
func (e *Engine) quadEnableSR2Bit1() error {
	sr2, err := e.ReadSR2()
	if err != nil {
		return err
	}
	if sr2&sr2QE != 0 {
		return nil
	}
	if err := e.WriteEnable(); err != nil {
		return err
	}
	if _, err := opup.QSPICmd(e.session, 0x31, []byte{0x02}); err != nil {
		return err
	}
	time.Sleep(qeSettleDelay)
	after, err := e.ReadSR2()
	if err != nil {
		return err
	}
	if after&sr2QE == 0 {
		return opErr("QE bit did not set (SR2=0x%02x)", after)
	}
	return nil
}
