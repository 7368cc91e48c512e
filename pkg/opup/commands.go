package opup

import "fmt"

// The functions in this file are the complete, authoritative command
// surface of §4.4: one operation per opcode, each encoding and decoding
// exactly one payload schema. No function here retries; a single failed
// Transact surfaces directly to the caller.

func protocolViolation(format string, args ...interface{}) error {
	return newErr(KindProtocolViolation, fmt.Sprintf(format, args...), nil)
}

// Ping issues the empty Ping request and checks the fixed success
// payload 0xCA 0xFE.
func Ping(s *Session) error {
	payload, err := s.Transact(OpPing, nil)
	if err != nil {
		return err
	}
	if len(payload) < 2 || payload[0] != 0xCA || payload[1] != 0xFE {
		return protocolViolation("ping payload %x is not CA FE", payload)
	}
	return nil
}

// StatusReport is the decoded Get-status success payload.
type StatusReport struct {
	Status   byte
	UptimeMs uint32
	FreeRAM  uint32
}

// GetStatus issues the empty Get-status request.
func GetStatus(s *Session) (StatusReport, error) {
	payload, err := s.Transact(OpGetStatus, nil)
	if err != nil {
		return StatusReport{}, err
	}
	if len(payload) < 9 {
		return StatusReport{}, protocolViolation("status payload too short: %d bytes", len(payload))
	}
	return StatusReport{
		Status:   payload[0],
		UptimeMs: le32(payload[1:5]),
		FreeRAM:  le32(payload[5:9]),
	}, nil
}

// GPIOState is the decoded GPIO-test success payload.
type GPIOState struct {
	CS, SCK, MOSI, MISO, IO2, IO3 bool
}

// GPIOTest issues the empty GPIO-test request.
func GPIOTest(s *Session) (GPIOState, error) {
	payload, err := s.Transact(OpGPIOTest, nil)
	if err != nil {
		return GPIOState{}, err
	}
	if len(payload) < 6 {
		return GPIOState{}, protocolViolation("gpio-test payload too short: %d bytes", len(payload))
	}
	return GPIOState{
		CS:   payload[0] != 0,
		SCK:  payload[1] != 0,
		MOSI: payload[2] != 0,
		MISO: payload[3] != 0,
		IO2:  payload[4] != 0,
		IO3:  payload[5] != 0,
	}, nil
}

// I2CScan issues the empty I²C-scan request and returns the 7-bit
// addresses that answered.
func I2CScan(s *Session) ([]byte, error) {
	payload, err := s.Transact(OpI2CScan, nil)
	if err != nil {
		return nil, err
	}
	if len(payload) < 1 {
		return nil, protocolViolation("i2c-scan payload empty")
	}
	count := int(payload[0])
	if len(payload) < 1+count {
		return nil, protocolViolation("i2c-scan declares %d addresses but only has %d bytes", count, len(payload)-1)
	}
	return payload[1 : 1+count], nil
}

// SPIScanResult is the decoded SPI-scan success payload.
type SPIScanResult struct {
	Found                                bool
	Manufacturer, DeviceHigh, DeviceLow byte
}

// SPIScan issues the empty SPI-scan request.
func SPIScan(s *Session) (SPIScanResult, error) {
	payload, err := s.Transact(OpSPIScan, nil)
	if err != nil {
		return SPIScanResult{}, err
	}
	if len(payload) < 1 {
		return SPIScanResult{}, protocolViolation("spi-scan payload empty")
	}
	if payload[0] == 0 {
		return SPIScanResult{}, nil
	}
	if len(payload) < 4 {
		return SPIScanResult{}, protocolViolation("spi-scan payload too short: %d bytes", len(payload))
	}
	return SPIScanResult{Found: true, Manufacturer: payload[1], DeviceHigh: payload[2], DeviceLow: payload[3]}, nil
}

// SPIXfer clocks tx out over standard SPI and returns what was clocked
// in; the response is always the same length as tx.
func SPIXfer(s *Session, tx []byte) ([]byte, error) {
	payload, err := s.Transact(OpSPIXfer, tx)
	if err != nil {
		return nil, err
	}
	if len(payload) != len(tx) {
		return nil, protocolViolation("spi-xfer returned %d bytes for %d-byte request", len(payload), len(tx))
	}
	return payload, nil
}

// QSPISetMode switches the lane mode and returns the mode now in force.
func QSPISetMode(s *Session, mode byte) (byte, error) {
	payload, err := s.Transact(OpQSPISetMode, []byte{mode})
	if err != nil {
		return 0, err
	}
	if len(payload) < 1 {
		return 0, protocolViolation("qspi-set-mode payload empty")
	}
	return payload[0], nil
}

// QSPIRead issues a QSPI-read with the given command, little-endian
// address of addrLen octets, dummy-cycle count, and requested length.
func QSPIRead(s *Session, cmd byte, addr uint32, addrLen byte, dummy byte, readLen uint16) ([]byte, error) {
	req := make([]byte, 0, 2+int(addrLen)+3)
	req = append(req, cmd, addrLen)
	req = append(req, leBytes(addr, int(addrLen))...)
	req = append(req, dummy, byte(readLen), byte(readLen>>8))

	payload, err := s.Transact(OpQSPIRead, req)
	if err != nil {
		return nil, err
	}
	if len(payload) != int(readLen) {
		return nil, protocolViolation("qspi-read returned %d bytes, expected %d", len(payload), readLen)
	}
	return payload, nil
}

// QSPIFastRead reads pageCount 256-octet pages starting at a 3-octet
// little-endian address, using whichever lane mode is currently in
// force.
func QSPIFastRead(s *Session, addr uint32, pageCount byte) ([]byte, error) {
	req := append(leBytes(addr, 3), pageCount)
	payload, err := s.Transact(OpQSPIFastRead, req)
	if err != nil {
		return nil, err
	}
	want := 256 * int(pageCount)
	if len(payload) != want {
		return nil, protocolViolation("qspi-fast-read returned %d bytes, expected %d", len(payload), want)
	}
	return payload, nil
}

// QSPIWrite issues a QSPI-write with the given command, little-endian
// address of addrLen octets, and data. The success payload is ignored.
func QSPIWrite(s *Session, cmd byte, addr uint32, addrLen byte, data []byte) error {
	req := make([]byte, 0, 2+int(addrLen)+len(data))
	req = append(req, cmd, addrLen)
	req = append(req, leBytes(addr, int(addrLen))...)
	req = append(req, data...)
	_, err := s.Transact(OpQSPIWrite, req)
	return err
}

// QSPICmd executes a raw QSPI command: tx is clocked out (with the
// caller's own address bytes, if any, already folded in), and whatever
// was clocked in during the tail of the transaction is returned.
func QSPICmd(s *Session, cmd byte, tx []byte) ([]byte, error) {
	req := make([]byte, 0, 2+len(tx))
	req = append(req, cmd, byte(len(tx)))
	req = append(req, tx...)
	return s.Transact(OpQSPICmd, req)
}

// ISPEnter enters AVR ISP programming mode.
func ISPEnter(s *Session) (bool, error) {
	payload, err := s.Transact(OpISPEnter, nil)
	if err != nil {
		return false, err
	}
	return len(payload) >= 1 && payload[0] == 1, nil
}

// ISPXfer executes a single 4-byte ISP command/shift-register transfer.
func ISPXfer(s *Session, req [4]byte) ([4]byte, error) {
	payload, err := s.Transact(OpISPXfer, req[:])
	if err != nil {
		return [4]byte{}, err
	}
	if len(payload) < 4 {
		return [4]byte{}, protocolViolation("isp-xfer payload too short: %d bytes", len(payload))
	}
	var resp [4]byte
	copy(resp[:], payload[:4])
	return resp, nil
}

// ISPExit leaves AVR ISP programming mode.
func ISPExit(s *Session) error {
	_, err := s.Transact(OpISPExit, nil)
	return err
}

// GetCaps and Reset are thin pass-throughs for the reserved system
// opcodes the original protocol declares (0x02, 0x04) but never
// specifies a payload schema for beyond "exists" — see SPEC_FULL.md.

// GetCaps returns the raw capability payload, uninterpreted.
func GetCaps(s *Session) ([]byte, error) {
	return s.Transact(OpGetCaps, nil)
}

// Reset asks the device to reset. Success payload, if any, is ignored.
func Reset(s *Session) error {
	_, err := s.Transact(OpReset, nil)
	return err
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// leBytes returns addr encoded little-endian in n octets. This is the
// framing convention used by QSPI-read/QSPI-write/QSPI-fast-read — it
// must never be reused for the flash-erase convention, which is
// most-significant-octet-first (see pkg/flash).
func leBytes(addr uint32, n int) []byte {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = byte(addr >> (8 * i))
	}
	return out
}
