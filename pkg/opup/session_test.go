package opup

import (
	"testing"

	"github.com/librescoot/opup-flasher/pkg/crc"
	"github.com/stretchr/testify/require"
)

// fakeTransport is an in-memory Transport double: Write buffers what was
// sent, ReadExact serves from a queue of canned reads (each canned read
// may be a short read or an error, to exercise timeout handling).
type fakeTransport struct {
	sent  [][]byte
	reads [][]byte
	errs  []error
	idx   int
}

func (f *fakeTransport) Write(data []byte) error {
	f.sent = append(f.sent, append([]byte{}, data...))
	return nil
}

func (f *fakeTransport) ReadExact(n int) ([]byte, error) {
	if f.idx >= len(f.reads) {
		return nil, nil
	}
	data := f.reads[f.idx]
	var err error
	if f.idx < len(f.errs) {
		err = f.errs[f.idx]
	}
	f.idx++
	if len(data) > n {
		data = data[:n]
	}
	return data, err
}

// buildResponse encodes a valid response frame for use as canned reads.
func buildResponse(t *testing.T, seq, opcode, flags byte, payload []byte) (header, body, tail []byte) {
	t.Helper()
	table := crc.NewTable()
	frame := []byte{SOF, seq, opcode, flags, byte(len(payload)), byte(len(payload) >> 8)}
	frame = append(frame, payload...)
	sum := table.Sum(frame)
	tail = []byte{byte(sum), byte(sum >> 8), byte(sum >> 16), byte(sum >> 24)}
	return frame[:6], payload, tail
}

func TestTransactSuccessRoundTrip(t *testing.T) {
	header, body, tail := buildResponse(t, 1, byte(OpPing), FlagResponse, []byte{0xCA, 0xFE})
	ft := &fakeTransport{reads: [][]byte{header, body, tail}}
	s := NewSession(ft)

	payload, err := s.Transact(OpPing, nil)
	require.NoError(t, err)
	require.Equal(t, []byte{0xCA, 0xFE}, payload)

	// Request frame shape per the literal scenario in spec.md §8.
	require.Len(t, ft.sent, 1)
	require.Equal(t, byte(SOF), ft.sent[0][0])
	require.Equal(t, byte(1), ft.sent[0][1]) // first SEQ is 1
	require.Equal(t, byte(OpPing), ft.sent[0][2])
}

func TestTransactSequenceMonotonic(t *testing.T) {
	h1, b1, c1 := buildResponse(t, 1, byte(OpPing), FlagResponse, []byte{0xCA, 0xFE})
	h2, b2, c2 := buildResponse(t, 2, byte(OpPing), FlagResponse, []byte{0xCA, 0xFE})
	ft := &fakeTransport{reads: [][]byte{h1, b1, c1, h2, b2, c2}}
	s := NewSession(ft)

	_, err := s.Transact(OpPing, nil)
	require.NoError(t, err)
	_, err = s.Transact(OpPing, nil)
	require.NoError(t, err)

	require.Equal(t, byte(1), ft.sent[0][1])
	require.Equal(t, byte(2), ft.sent[1][1])
}

func TestTransactSequenceWrapsModulo256(t *testing.T) {
	header, body, tail := buildResponse(t, 0, byte(OpPing), FlagResponse, []byte{0xCA, 0xFE})
	ft := &fakeTransport{reads: [][]byte{header, body, tail}}
	s := NewSession(ft)
	s.seq = 255

	_, err := s.Transact(OpPing, nil)
	require.NoError(t, err)
	require.Equal(t, byte(0), ft.sent[0][1])
}

func TestTransactShortHeaderIsTimeout(t *testing.T) {
	ft := &fakeTransport{reads: [][]byte{{0xA5, 0x01, 0x01}}} // only 3 of 6 header bytes
	s := NewSession(ft)

	_, err := s.Transact(OpPing, nil)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestTransactBadSOFIsBadFraming(t *testing.T) {
	ft := &fakeTransport{reads: [][]byte{{0x00, 0x01, 0x01, 0x01, 0x00, 0x00}}}
	s := NewSession(ft)

	_, err := s.Transact(OpPing, nil)
	require.ErrorIs(t, err, ErrBadFraming)
}

func TestTransactBadCrcIsDetected(t *testing.T) {
	header, body, _ := buildResponse(t, 1, byte(OpPing), FlagResponse, []byte{0xCA, 0xFE})
	ft := &fakeTransport{reads: [][]byte{header, body, {0, 0, 0, 0}}}
	s := NewSession(ft)

	_, err := s.Transact(OpPing, nil)
	require.ErrorIs(t, err, ErrBadCrc)
}

func TestTransactDeviceErrorCarriesPayload(t *testing.T) {
	header, body, tail := buildResponse(t, 1, byte(OpPing), FlagResponse|FlagError, []byte{0xDE, 0xAD})
	ft := &fakeTransport{reads: [][]byte{header, body, tail}}
	s := NewSession(ft)

	_, err := s.Transact(OpPing, nil)
	require.ErrorIs(t, err, ErrDeviceError)
	var e *Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, []byte{0xDE, 0xAD}, e.Payload)
}

func TestPingRejectsWrongPayload(t *testing.T) {
	header, body, tail := buildResponse(t, 1, byte(OpPing), FlagResponse, []byte{0x00, 0x00})
	ft := &fakeTransport{reads: [][]byte{header, body, tail}}
	s := NewSession(ft)

	err := Ping(s)
	require.ErrorIs(t, err, ErrProtocolViolation)
}

func TestGetStatusDecodesFields(t *testing.T) {
	payload := []byte{1, 0x01, 0x02, 0x03, 0x04, 0xAA, 0xBB, 0xCC, 0xDD}
	header, body, tail := buildResponse(t, 1, byte(OpGetStatus), FlagResponse, payload)
	ft := &fakeTransport{reads: [][]byte{header, body, tail}}
	s := NewSession(ft)

	status, err := GetStatus(s)
	require.NoError(t, err)
	require.Equal(t, byte(1), status.Status)
	require.Equal(t, uint32(0x04030201), status.UptimeMs)
	require.Equal(t, uint32(0xDDCCBBAA), status.FreeRAM)
}

func TestSPIScanDecodesW25Q128(t *testing.T) {
	payload := []byte{0x03, 0xEF, 0x40, 0x18}
	header, body, tail := buildResponse(t, 1, byte(OpSPIScan), FlagResponse, payload)
	ft := &fakeTransport{reads: [][]byte{header, body, tail}}
	s := NewSession(ft)

	result, err := SPIScan(s)
	require.NoError(t, err)
	require.True(t, result.Found)
	require.Equal(t, byte(0xEF), result.Manufacturer)
	require.Equal(t, uint16(0x4018), uint16(result.DeviceHigh)<<8|uint16(result.DeviceLow))
}

func TestQSPIReadBuildsLittleEndianAddress(t *testing.T) {
	want := make([]byte, 16)
	header, body, tail := buildResponse(t, 1, byte(OpQSPIRead), FlagResponse, want)
	ft := &fakeTransport{reads: [][]byte{header, body, tail}}
	s := NewSession(ft)

	_, err := QSPIRead(s, 0x03, 0x001000, 3, 0, 16)
	require.NoError(t, err)

	// request payload = 03 03 00 10 00 00 10 00, per spec.md §8.
	sent := ft.sent[0]
	reqPayload := sent[6 : len(sent)-4]
	require.Equal(t, []byte{0x03, 0x03, 0x00, 0x10, 0x00, 0x00, 0x10, 0x00}, reqPayload)
}

func TestEventPublisherObservesOutcome(t *testing.T) {
	header, body, tail := buildResponse(t, 1, byte(OpPing), FlagResponse, []byte{0xCA, 0xFE})
	ft := &fakeTransport{reads: [][]byte{header, body, tail}}
	s := NewSession(ft)

	var gotOpcode Opcode
	var gotErr error
	seen := false
	s.SetEventPublisher(publisherFunc(func(opcode Opcode, err error) {
		gotOpcode, gotErr, seen = opcode, err, true
	}))

	_, err := s.Transact(OpPing, nil)
	require.NoError(t, err)
	require.True(t, seen)
	require.Equal(t, OpPing, gotOpcode)
	require.NoError(t, gotErr)
}

type publisherFunc func(Opcode, error)

func (f publisherFunc) PublishTransaction(opcode Opcode, err error) { f(opcode, err) }
