// Package flash implements the QSPI flash programming engine: JEDEC
// identification, mode negotiation and Quad-Enable, status-register
// polling, erase, page-oriented program, multi-page write planning, read,
// and the verify/benchmark test routines. Every operation here is
// expressed entirely in terms of the OPUP command surface (§4.5).
package flash

import (
	"fmt"

	"github.com/librescoot/opup-flasher/pkg/opup"
)

// Identity is the JEDEC (manufacturer, device-high, device-low) triple.
type Identity struct {
	Manufacturer, DeviceHigh, DeviceLow byte
}

// DeviceID combines the high/low device octets.
func (id Identity) DeviceID() uint16 {
	return uint16(id.DeviceHigh)<<8 | uint16(id.DeviceLow)
}

// Present reports whether a chip answered at all: a manufacturer octet
// of 0x00 or 0xFF means no device on the bus.
func (id Identity) Present() bool {
	return id.Manufacturer != 0x00 && id.Manufacturer != 0xFF
}

func (id Identity) String() string {
	return fmt.Sprintf("mfg=0x%02x dev=0x%04x", id.Manufacturer, id.DeviceID())
}

// Identify selects Standard mode and reads the JEDEC ID with command
// 0x9F, three zero tx octets.
func (e *Engine) Identify() (Identity, error) {
	if _, err := opup.QSPISetMode(e.session, byte(ModeStandard)); err != nil {
		return Identity{}, err
	}
	data, err := opup.QSPICmd(e.session, 0x9F, []byte{0, 0, 0})
	if err != nil {
		return Identity{}, err
	}
	if len(data) < 3 {
		return Identity{}, opErr("jedec id response too short: %d bytes", len(data))
	}
	return Identity{Manufacturer: data[0], DeviceHigh: data[1], DeviceLow: data[2]}, nil
}

// ProbeAllModes reads the JEDEC ID in each lane mode from Standard
// through Quad-IO (modes 0-4; QPI is not probed) and reports a pass/fail
// per mode, mirroring the original CLI's qspi_test_all_modes.
// Unlike the §4.5.11 throughput benchmark, this is an identification-only
// diagnostic: no data region is read or compared. The mode is reset to
// Standard before returning, matching the original's reset-on-exit.
func (e *Engine) ProbeAllModes() ([]ModeProbe, error) {
	modes := []Mode{ModeStandard, ModeDualOutput, ModeDualIO, ModeQuadOutput, ModeQuadIO}
	results := make([]ModeProbe, 0, len(modes))

	for _, mode := range modes {
		probe := ModeProbe{Mode: mode}
		if _, err := opup.QSPISetMode(e.session, byte(mode)); err != nil {
			probe.Err = err
			results = append(results, probe)
			continue
		}
		data, err := opup.QSPICmd(e.session, 0x9F, []byte{0, 0, 0})
		if err != nil {
			probe.Err = err
			results = append(results, probe)
			continue
		}
		if len(data) >= 3 {
			probe.Identity = Identity{Manufacturer: data[0], DeviceHigh: data[1], DeviceLow: data[2]}
		}
		results = append(results, probe)
	}

	if _, err := opup.QSPISetMode(e.session, byte(ModeStandard)); err != nil {
		return results, err
	}
	return results, nil
}

// ModeProbe is one ProbeAllModes result.
type ModeProbe struct {
	Mode     Mode
	Identity Identity
	Err      error
}

// OK reports whether a chip answered in this mode.
func (p ModeProbe) OK() bool {
	return p.Err == nil && p.Identity.Present()
}
