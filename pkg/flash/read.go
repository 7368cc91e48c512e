package flash

import "github.com/librescoot/opup-flasher/pkg/opup"

// MaxQSPIReadLen is the largest single QSPI-read the protocol's 16-bit
// length field and typical response buffer comfortably support in one
// transaction; larger reads are split by the caller (Engine.ReadRange).
const MaxQSPIReadLen = 4096

// Read selects Standard mode and reads length octets from addr with
// cmd=0x03, addrLen=3, dummy=0.
func (e *Engine) Read(addr uint32, length uint16) ([]byte, error) {
	if _, err := opup.QSPISetMode(e.session, byte(ModeStandard)); err != nil {
		return nil, err
	}
	return opup.QSPIRead(e.session, 0x03, addr, 3, 0, length)
}

// ReadRange reads an arbitrary-length region, splitting into
// MaxQSPIReadLen chunks as needed.
func (e *Engine) ReadRange(addr uint32, length int) ([]byte, error) {
	out := make([]byte, 0, length)
	for length > 0 {
		chunk := length
		if chunk > MaxQSPIReadLen {
			chunk = MaxQSPIReadLen
		}
		data, err := e.Read(addr, uint16(chunk))
		if err != nil {
			return out, err
		}
		out = append(out, data...)
		addr += uint32(chunk)
		length -= chunk
	}
	return out, nil
}
