package flash

import (
	"time"

	"github.com/librescoot/opup-flasher/pkg/opup"
)

// Granularity is an erase granularity: sector, 32 KiB block, 64 KiB
// block, or whole chip.
type Granularity int

const (
	Sector Granularity = iota
	Block32
	Block64
	Chip
)

func (g Granularity) opcode() byte {
	switch g {
	case Sector:
		return 0x20
	case Block32:
		return 0x52
	case Block64:
		return 0xD8
	case Chip:
		return 0xC7
	default:
		return 0
	}
}

func (g Granularity) mask() uint32 {
	switch g {
	case Sector:
		return 0xFFF000
	case Block32:
		return 0xFF8000
	case Block64:
		return 0xFF0000
	default:
		return 0xFFFFFFFF
	}
}

func (g Granularity) timeout() time.Duration {
	switch g {
	case Sector:
		return TimeoutSectorErase
	case Block32, Block64:
		return TimeoutBlock64Erase
	case Chip:
		return TimeoutChipErase
	default:
		return TimeoutSectorErase
	}
}

// AlignAddress masks addr down to g's alignment boundary.
func (g Granularity) AlignAddress(addr uint32) uint32 {
	return addr & g.mask()
}

// Erase aligns addr to g's granularity, asserts write-enable, issues the
// granularity's erase command with a 3-octet most-significant-octet-first
// address (chip erase carries no address), and busy-waits with the
// granularity's default timeout.
//
// Note the asymmetry flagged in spec.md §4.5.6/§9: this address encoding
// is MSB-first, the flash convention — the opposite direction from
// QSPIRead/QSPIWrite's little-endian, framing-convention addresses. The
// two are never shared through one "address encoder" function.
func (e *Engine) Erase(g Granularity, addr uint32) error {
	aligned := g.AlignAddress(addr)

	if err := e.WriteEnable(); err != nil {
		return err
	}

	var tx []byte
	if g != Chip {
		tx = []byte{byte(aligned >> 16), byte(aligned >> 8), byte(aligned)}
	}
	if _, err := opup.QSPICmd(e.session, g.opcode(), tx); err != nil {
		return err
	}

	return e.BusyWait(g.timeout())
}
