// Package hexdump is the pretty-printing / hex-dump collaborator the CLI
// uses to render raw bytes. Out of scope per spec.md §1: specified here
// only at interface level, as a thin formatter the CLI calls into.
package hexdump

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Hex renders data as lowercase hex octets run together with no
// separator between them.
func Hex(data []byte) string {
	return hex.EncodeToString(data)
}

// Dump renders data as a classic 16-octets-per-line hex dump with an
// offset column and an ASCII gutter.
func Dump(data []byte) string {
	var b strings.Builder
	for offset := 0; offset < len(data); offset += 16 {
		end := offset + 16
		if end > len(data) {
			end = len(data)
		}
		line := data[offset:end]

		fmt.Fprintf(&b, "%08x  ", offset)
		for i := 0; i < 16; i++ {
			if i < len(line) {
				fmt.Fprintf(&b, "%02x ", line[i])
			} else {
				b.WriteString("   ")
			}
			if i == 7 {
				b.WriteByte(' ')
			}
		}
		b.WriteString(" |")
		for _, c := range line {
			if c >= 0x20 && c < 0x7f {
				b.WriteByte(c)
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteString("|\n")
	}
	return b.String()
}
