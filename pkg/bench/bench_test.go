package bench

import (
	"testing"

	"github.com/librescoot/opup-flasher/pkg/crc"
	"github.com/librescoot/opup-flasher/pkg/opup"
	"github.com/stretchr/testify/require"
)

// loopbackDevice answers every OPUP request with a payload synthesized
// from flash package state it doesn't model at all: it tracks a single
// in-memory byte region and serves QSPI-read/write/erase/cmd against it,
// enough to drive the benchmark end to end.
type loopbackDevice struct {
	table  *crc.Table
	region map[uint32]byte
	tx     []byte
	pending [][]byte
}

func newLoopbackDevice() *loopbackDevice {
	return &loopbackDevice{table: crc.NewTable(), region: map[uint32]byte{}}
}

func (d *loopbackDevice) Write(data []byte) error {
	d.tx = append(d.tx, data...)
	return nil
}

func (d *loopbackDevice) ReadExact(n int) ([]byte, error) {
	if len(d.pending) == 0 {
		if len(d.tx) == 0 {
			return nil, nil
		}
		d.consume()
	}
	buf := d.pending[0]
	if len(buf) <= n {
		d.pending = d.pending[1:]
		return buf, nil
	}
	d.pending[0] = buf[n:]
	return buf[:n], nil
}

func (d *loopbackDevice) consume() {
	frame := d.tx
	length := int(frame[4]) | int(frame[5])<<8
	total := 6 + length + 4
	req := frame[:total]
	d.tx = d.tx[total:]

	opcode := req[2]
	payload := req[6 : 6+length]
	resp := d.handle(opcode, payload)

	out := []byte{opup.SOF, req[1], opcode, opup.FlagResponse, byte(len(resp)), byte(len(resp) >> 8)}
	out = append(out, resp...)
	sum := d.table.Sum(out)
	out = append(out, byte(sum), byte(sum>>8), byte(sum>>16), byte(sum>>24))
	d.pending = append(d.pending, out)
}

func (d *loopbackDevice) handle(opcode byte, payload []byte) []byte {
	switch opcode {
	case byte(opup.OpQSPISetMode):
		return []byte{payload[0]}
	case byte(opup.OpQSPICmd):
		cmd := payload[0]
		switch cmd {
		case 0x9F:
			return []byte{0xEF, 0x40, 0x18}
		case 0x05:
			return []byte{0x02} // never busy, WEL always reads latched
		case 0x35:
			return []byte{0} // QE state irrelevant to the read benchmark
		case 0x06, 0x01, 0x31, 0x20, 0x52, 0xD8, 0xC7:
			return nil
		default:
			return nil
		}
	case byte(opup.OpQSPIWrite):
		addrLen := int(payload[1])
		addr := le(payload[2 : 2+addrLen])
		data := payload[2+addrLen:]
		for i, b := range data {
			d.region[addr+uint32(i)] = b
		}
		return nil
	case byte(opup.OpQSPIRead):
		addrLen := int(payload[1])
		addr := le(payload[2 : 2+addrLen])
		readLen := int(payload[len(payload)-2]) | int(payload[len(payload)-1])<<8
		out := make([]byte, readLen)
		for i := range out {
			out[i] = d.region[addr+uint32(i)]
		}
		return out
	default:
		return nil
	}
}

func le(b []byte) uint32 {
	var v uint32
	for i, x := range b {
		v |= uint32(x) << (8 * i)
	}
	return v
}

func TestDriverRunVerifiesEveryMode(t *testing.T) {
	dev := newLoopbackDevice()
	session := opup.NewSession(dev)
	driver := New(session)

	results, err := driver.Run(0x001000, 1)
	require.NoError(t, err)
	require.Len(t, results, len(Modes))
	for _, r := range results {
		require.NoError(t, r.Err)
		require.True(t, r.Verified, "mode %s did not verify", r.Spec.Name)
		require.Equal(t, 1024, r.BytesRead)
	}
}

func TestEncodeReportProducesCBOR(t *testing.T) {
	results := []ModeResult{{Spec: ModeSpec{Name: "standard-1-1-1"}, BytesRead: 256, Verified: true}}
	data, err := EncodeReport(results)
	require.NoError(t, err)
	require.NotEmpty(t, data)
}
