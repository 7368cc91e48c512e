package flash

import "github.com/librescoot/opup-flasher/pkg/opup"

// PageSize is the write unit: 256 octets, aligned on a 256-octet
// boundary within flash.
const PageSize = 256

// ProgramPage writes up to PageSize bytes at addr. addr need not be
// page-aligned, but the caller must ensure the write does not cross a
// page boundary; data longer than PageSize is truncated.
func (e *Engine) ProgramPage(addr uint32, data []byte) error {
	if len(data) > PageSize {
		data = data[:PageSize]
	}
	if err := e.WriteEnable(); err != nil {
		return err
	}
	if err := opup.QSPIWrite(e.session, 0x02, addr, 3, data); err != nil {
		return err
	}
	return e.BusyWait(TimeoutPageProgram)
}

// Write decomposes (addr, data) into page-aligned chunks and programs
// each in turn, stopping on the first failure. The partially-written
// region is left as-is; there is no rollback (§4.5.8). It returns the
// number of bytes successfully programmed.
func (e *Engine) Write(addr uint32, data []byte) (int, error) {
	written := 0
	for len(data) > 0 {
		offset := addr & 0xFF
		chunk := PageSize - int(offset)
		if chunk > len(data) {
			chunk = len(data)
		}

		if err := e.ProgramPage(addr, data[:chunk]); err != nil {
			return written, err
		}

		written += chunk
		addr += uint32(chunk)
		data = data[chunk:]
	}
	return written, nil
}
