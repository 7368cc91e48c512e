package opup

// Opcode is the 8-bit identifier from the closed, family-partitioned
// enumeration the device accepts. The set the core emits is a subset of
// this list.
type Opcode byte

const (
	OpPing      Opcode = 0x01
	OpGetCaps   Opcode = 0x02
	OpGetStatus Opcode = 0x03
	OpReset     Opcode = 0x04
	OpGPIOTest  Opcode = 0x05

	OpI2CScan  Opcode = 0x10
	OpI2CRead  Opcode = 0x11
	OpI2CWrite Opcode = 0x12

	OpSPIScan   Opcode = 0x20
	OpSPIConfig Opcode = 0x21
	OpSPIXfer   Opcode = 0x22

	OpQSPISetMode  Opcode = 0x25
	OpQSPIRead     Opcode = 0x26
	OpQSPIWrite    Opcode = 0x27
	OpQSPIFastRead Opcode = 0x28
	OpQSPICmd      Opcode = 0x29

	OpISPEnter Opcode = 0x30
	OpISPXfer  Opcode = 0x31
	OpISPExit  Opcode = 0x32

	// Reserved family members with no implemented command-surface
	// schema; see SPEC_FULL.md "Supplemented features" / DESIGN.md.
	OpSWDInit  Opcode = 0x40
	OpSWDRead  Opcode = 0x41
	OpSWDWrite Opcode = 0x42
)
