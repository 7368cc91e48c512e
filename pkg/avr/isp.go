// Package avr implements the AVR in-system programming sequencer: enter
// ISP mode, issue 4-byte command transfers, read the device signature,
// and exit ISP mode unconditionally (§4.6).
package avr

import "github.com/librescoot/opup-flasher/pkg/opup"

// Signature is the AVR device signature, three bytes read via the
// shift-register echo of the ISP-xfer command.
type Signature [3]byte

// ReadSignature enters ISP mode, issues the three 4-byte transfers
// 0x30 0x00 i 0x00 for i in {0,1,2}, taking octet 3 of each response as
// the signature byte, then exits ISP mode unconditionally — even if a
// middle transfer failed, the device must not be left in ISP mode (§8
// property 9).
func ReadSignature(s *opup.Session) (Signature, error) {
	var sig Signature

	entered, err := opup.ISPEnter(s)
	if err != nil {
		return sig, err
	}
	if !entered {
		return sig, &opup.Error{Kind: opup.KindOperationFailed, Msg: "device did not acknowledge ISP-enter"}
	}

	var firstErr error
	for i := 0; i < 3; i++ {
		resp, err := opup.ISPXfer(s, [4]byte{0x30, 0x00, byte(i), 0x00})
		if err != nil {
			firstErr = err
			break
		}
		sig[i] = resp[3]
	}

	if exitErr := opup.ISPExit(s); exitErr != nil && firstErr == nil {
		firstErr = exitErr
	}

	return sig, firstErr
}
