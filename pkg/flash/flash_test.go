package flash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEraseAlignment(t *testing.T) {
	cases := []struct {
		g       Granularity
		addr    uint32
		aligned uint32
	}{
		{Sector, 0x100123, 0x100000},
		{Block32, 0x100123, 0x100000},
		{Block32, 0x108123, 0x108000},
		{Block64, 0x11FFFF, 0x110000},
	}
	for _, c := range cases {
		require.Equal(t, c.aligned, c.g.AlignAddress(c.addr))
	}
}

func TestGranularityOpcodes(t *testing.T) {
	require.Equal(t, byte(0x20), Sector.opcode())
	require.Equal(t, byte(0x52), Block32.opcode())
	require.Equal(t, byte(0xD8), Block64.opcode())
	require.Equal(t, byte(0xC7), Chip.opcode())
}

func TestMultiPageWriteSplitPlan(t *testing.T) {
	// write 300 bytes at 0x100080: first chunk 128B at 0x100080,
	// second chunk 172B at 0x100100 (spec.md §8 literal scenario).
	addr := uint32(0x100080)
	data := make([]byte, 300)

	var chunks []struct {
		addr uint32
		n    int
	}
	for len(data) > 0 {
		offset := addr & 0xFF
		chunk := PageSize - int(offset)
		if chunk > len(data) {
			chunk = len(data)
		}
		chunks = append(chunks, struct {
			addr uint32
			n    int
		}{addr, chunk})
		addr += uint32(chunk)
		data = data[chunk:]
	}

	require.Len(t, chunks, 2)
	require.Equal(t, uint32(0x100080), chunks[0].addr)
	require.Equal(t, 128, chunks[0].n)
	require.Equal(t, uint32(0x100100), chunks[1].addr)
	require.Equal(t, 172, chunks[1].n)
}

func TestIdentityPresent(t *testing.T) {
	require.True(t, Identity{Manufacturer: 0xEF}.Present())
	require.False(t, Identity{Manufacturer: 0x00}.Present())
	require.False(t, Identity{Manufacturer: 0xFF}.Present())
}

func TestIdentityDeviceID(t *testing.T) {
	id := Identity{Manufacturer: 0xEF, DeviceHigh: 0x40, DeviceLow: 0x18}
	require.Equal(t, uint16(0x4018), id.DeviceID())
}

func TestClassifyVendor(t *testing.T) {
	require.Equal(t, vendorWinbond, classifyVendor(0xEF))
	require.Equal(t, vendorGigaDevice, classifyVendor(0xC8))
	require.Equal(t, vendorMacronix, classifyVendor(0xC2))
	require.Equal(t, vendorOther, classifyVendor(0x01))
}
