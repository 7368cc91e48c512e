package opup

import "github.com/librescoot/opup-flasher/pkg/crc"

// SOF is the start-of-frame octet every request and response begins with.
const SOF = 0xA5

// Response FLAGS bits.
const (
	FlagResponse = 0x01
	FlagError    = 0x02
)

const headerLen = 6

// encodeRequest builds a complete OPUP request frame: SOF, SEQ, OPCODE,
// FLAGS(0), LEN (little-endian), PAYLOAD, CRC-32 (little-endian) over
// everything before it.
func encodeRequest(table *crc.Table, seq byte, opcode Opcode, payload []byte) []byte {
	frame := make([]byte, 0, headerLen+len(payload)+4)
	frame = append(frame, SOF, seq, byte(opcode), 0x00, byte(len(payload)), byte(len(payload)>>8))
	frame = append(frame, payload...)

	sum := table.Sum(frame)
	frame = append(frame, byte(sum), byte(sum>>8), byte(sum>>16), byte(sum>>24))
	return frame
}

func decodeLength(header []byte) int {
	return int(header[4]) | int(header[5])<<8
}

func decodeCRC(tail []byte) uint32 {
	return uint32(tail[0]) | uint32(tail[1])<<8 | uint32(tail[2])<<16 | uint32(tail[3])<<24
}
