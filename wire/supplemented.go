package wire

import "github.com/ardnew/scsibot"

// PreventAllowMediumRemovalCommand is SCSI opcode 0x1E: no data phase,
// byte 4 bit 0 carries the prevent flag.
type PreventAllowMediumRemovalCommand struct {
	LUN     uint8
	Prevent bool
}

// BuildCBW encodes the command into a CommandBlockWrapper.
func (c *PreventAllowMediumRemovalCommand) BuildCBW(tag uint32) CommandBlockWrapper {
	cbw := NewCBW(tag, c.LUN)
	cbw.CBLength = 6
	cbw.CB[0] = scsibot.OpPreventAllowRemoval
	if c.Prevent {
		cbw.CB[4] = 0x01
	}
	return cbw
}

// ParsePreventAllowMediumRemovalCommand validates and decodes the command.
func ParsePreventAllowMediumRemovalCommand(cbw *CommandBlockWrapper) (*PreventAllowMediumRemovalCommand, error) {
	if cbw.CBLength != 6 || cbw.DataTransferLength != 0 {
		return nil, &scsibot.ParseError{Reason: "malformed PREVENT ALLOW MEDIUM REMOVAL"}
	}
	return &PreventAllowMediumRemovalCommand{
		LUN:     cbw.LUN,
		Prevent: cbw.CB[4]&0x01 != 0,
	}, nil
}

// StartStopUnitCommand is SCSI opcode 0x1B: no data phase, byte 4 bit 0
// is start, bit 1 is loej (load/eject).
type StartStopUnitCommand struct {
	LUN   uint8
	Start bool
	LoEj  bool
}

// BuildCBW encodes the command into a CommandBlockWrapper.
func (c *StartStopUnitCommand) BuildCBW(tag uint32) CommandBlockWrapper {
	cbw := NewCBW(tag, c.LUN)
	cbw.CBLength = 6
	cbw.CB[0] = scsibot.OpStartStopUnit
	var b uint8
	if c.Start {
		b |= 0x01
	}
	if c.LoEj {
		b |= 0x02
	}
	cbw.CB[4] = b
	return cbw
}

// ParseStartStopUnitCommand validates and decodes the command.
func ParseStartStopUnitCommand(cbw *CommandBlockWrapper) (*StartStopUnitCommand, error) {
	if cbw.CBLength != 6 || cbw.DataTransferLength != 0 {
		return nil, &scsibot.ParseError{Reason: "malformed START STOP UNIT"}
	}
	return &StartStopUnitCommand{
		LUN:   cbw.LUN,
		Start: cbw.CB[4]&0x01 != 0,
		LoEj:  cbw.CB[4]&0x02 != 0,
	}, nil
}

// SynchronizeCache10Command is SCSI opcode 0x35: no data phase.
type SynchronizeCache10Command struct {
	LUN uint8
}

// BuildCBW encodes the command into a CommandBlockWrapper.
func (c *SynchronizeCache10Command) BuildCBW(tag uint32) CommandBlockWrapper {
	cbw := NewCBW(tag, c.LUN)
	cbw.CBLength = 10
	cbw.CB[0] = scsibot.OpSynchronizeCache10
	return cbw
}

// ParseSynchronizeCache10Command validates and decodes the command.
func ParseSynchronizeCache10Command(cbw *CommandBlockWrapper) (*SynchronizeCache10Command, error) {
	if cbw.CBLength != 10 || cbw.DataTransferLength != 0 {
		return nil, &scsibot.ParseError{Reason: "malformed SYNCHRONIZE CACHE(10)"}
	}
	return &SynchronizeCache10Command{LUN: cbw.LUN}, nil
}

// Verify10Command is SCSI opcode 0x2F: no data phase (BYTCHK=0 only).
// CB[2:6] carries a big-endian block address, CB[7:9] a big-endian
// verification length.
type Verify10Command struct {
	LUN                uint8
	BlockAddress       uint32
	VerificationLength uint16
}

// BuildCBW encodes the command into a CommandBlockWrapper.
func (c *Verify10Command) BuildCBW(tag uint32) CommandBlockWrapper {
	cbw := NewCBW(tag, c.LUN)
	cbw.CBLength = 10
	cbw.CB[0] = scsibot.OpVerify10
	putU32BE(cbw.CB[:], 2, c.BlockAddress)
	putU16BE(cbw.CB[:], 7, c.VerificationLength)
	return cbw
}

// ParseVerify10Command validates and decodes the command.
func ParseVerify10Command(cbw *CommandBlockWrapper) (*Verify10Command, error) {
	if cbw.CBLength != 10 || cbw.DataTransferLength != 0 {
		return nil, &scsibot.ParseError{Reason: "malformed VERIFY(10)"}
	}
	return &Verify10Command{
		LUN:                cbw.LUN,
		BlockAddress:       getU32BE(cbw.CB[:], 2),
		VerificationLength: getU16BE(cbw.CB[:], 7),
	}, nil
}
