// Package wire implements bit-exact serialization and deserialization of
// Bulk-Only Transport framing (CBW, CSW) and every SCSI command/response
// this library supports.
//
// The CBW, CSW and response types expose a MarshalTo(buf) (int, error)
// encoder and a matching ParseXxx(data, out) decoder; each command type
// exposes BuildCBW, which encodes it into a CommandBlockWrapper, and a
// matching ParseXxxCommand(cbw) decoder. Encode/decode is an identity on
// the region a value occupies. CBW/CSW header fields are little-endian; command-area
// operands follow SCSI's big-endian convention — this mixed endianness is
// a standards artifact and must not be normalized away.
package wire

import (
	"encoding/binary"

	"github.com/ardnew/scsibot"
)

// CommandBlockWrapper is the 31-byte envelope carrying a SCSI command
// descriptor block from host to device.
type CommandBlockWrapper struct {
	Signature          uint32
	Tag                uint32
	DataTransferLength uint32
	Flags              uint8
	LUN                uint8
	CBLength           uint8
	CB                 [16]byte
}

// CBW flag bits.
const (
	cbwFlagDataIn = 0x80
)

// Direction returns the data phase direction encoded by Flags and
// DataTransferLength: DirNone when DataTransferLength is zero, otherwise
// DirIn or DirOut per bit 7 of Flags.
func (c *CommandBlockWrapper) Direction() scsibot.Direction {
	if c.DataTransferLength == 0 {
		return scsibot.DirNone
	}
	if c.Flags&cbwFlagDataIn != 0 {
		return scsibot.DirIn
	}
	return scsibot.DirOut
}

// Opcode returns the SCSI operation code at CB[0].
func (c *CommandBlockWrapper) Opcode() uint8 {
	return c.CB[0]
}

// MarshalTo writes the CBW to buf in wire format, returning
// [scsibot.CBWSize] on success.
func (c *CommandBlockWrapper) MarshalTo(buf []byte) (int, error) {
	if len(buf) < scsibot.CBWSize {
		return 0, &scsibot.BufferTooSmallError{Expected: scsibot.CBWSize, Actual: len(buf)}
	}
	binary.LittleEndian.PutUint32(buf[0:4], c.Signature)
	binary.LittleEndian.PutUint32(buf[4:8], c.Tag)
	binary.LittleEndian.PutUint32(buf[8:12], c.DataTransferLength)
	buf[12] = c.Flags
	buf[13] = c.LUN & 0x0F
	buf[14] = c.CBLength
	copy(buf[15:31], c.CB[:])
	return scsibot.CBWSize, nil
}

// ParseCBW decodes a CommandBlockWrapper from data.
func ParseCBW(data []byte, out *CommandBlockWrapper) error {
	if len(data) < scsibot.CBWSize {
		return &scsibot.BufferTooSmallError{Expected: scsibot.CBWSize, Actual: len(data)}
	}

	sig := binary.LittleEndian.Uint32(data[0:4])
	if sig != scsibot.CBWSignature {
		return &scsibot.FlagError{Flags: sig}
	}

	out.Signature = sig
	out.Tag = binary.LittleEndian.Uint32(data[4:8])
	out.DataTransferLength = binary.LittleEndian.Uint32(data[8:12])
	out.Flags = data[12]
	out.LUN = data[13] & 0x0F
	out.CBLength = data[14]
	copy(out.CB[:], data[15:31])
	return nil
}

// NewCBW builds a CommandBlockWrapper with the signature field already
// set, ready for its CB/CBLength/DataTransferLength/Flags to be filled in
// by a command-specific constructor.
func NewCBW(tag uint32, lun uint8) CommandBlockWrapper {
	return CommandBlockWrapper{
		Signature: scsibot.CBWSignature,
		Tag:       tag,
		LUN:       lun,
	}
}

// CommandStatusWrapper is the 13-byte envelope the device returns after a
// command.
type CommandStatusWrapper struct {
	Signature   uint32
	Tag         uint32
	DataResidue uint32
	Status      uint8
}

// MarshalTo writes the CSW to buf in wire format, returning
// [scsibot.CSWSize] on success.
func (s *CommandStatusWrapper) MarshalTo(buf []byte) (int, error) {
	if len(buf) < scsibot.CSWSize {
		return 0, &scsibot.BufferTooSmallError{Expected: scsibot.CSWSize, Actual: len(buf)}
	}
	binary.LittleEndian.PutUint32(buf[0:4], s.Signature)
	binary.LittleEndian.PutUint32(buf[4:8], s.Tag)
	binary.LittleEndian.PutUint32(buf[8:12], s.DataResidue)
	buf[12] = s.Status
	return scsibot.CSWSize, nil
}

// ParseCSW decodes a CommandStatusWrapper from data.
func ParseCSW(data []byte, out *CommandStatusWrapper) error {
	if len(data) < scsibot.CSWSize {
		return &scsibot.BufferTooSmallError{Expected: scsibot.CSWSize, Actual: len(data)}
	}

	sig := binary.LittleEndian.Uint32(data[0:4])
	if sig != scsibot.CSWSignature {
		return &scsibot.ParseError{Reason: "bad CSW signature"}
	}

	out.Signature = sig
	out.Tag = binary.LittleEndian.Uint32(data[4:8])
	out.DataResidue = binary.LittleEndian.Uint32(data[8:12])
	out.Status = data[12]
	return nil
}

// NewCSW creates a CommandStatusWrapper with the given tag, residue, and
// status, signature already set.
func NewCSW(tag uint32, residue uint32, status uint8) CommandStatusWrapper {
	return CommandStatusWrapper{
		Signature:   scsibot.CSWSignature,
		Tag:         tag,
		DataResidue: residue,
		Status:      status,
	}
}
