package wire

import (
	"github.com/ardnew/scsibot"
)

// TestUnitReadyCommand is SCSI opcode 0x00: no operands, no data phase.
type TestUnitReadyCommand struct {
	LUN uint8
}

// BuildCBW encodes the command into a CommandBlockWrapper.
func (c *TestUnitReadyCommand) BuildCBW(tag uint32) CommandBlockWrapper {
	cbw := NewCBW(tag, c.LUN)
	cbw.CBLength = 6
	cbw.CB[0] = scsibot.OpTestUnitReady
	return cbw
}

// ParseTestUnitReadyCommand validates a decoded CBW against TEST UNIT
// READY's contract: cb_length 6, no data phase.
func ParseTestUnitReadyCommand(cbw *CommandBlockWrapper) (*TestUnitReadyCommand, error) {
	if cbw.CBLength != 6 || cbw.DataTransferLength != 0 {
		return nil, &scsibot.ParseError{Reason: "malformed TEST UNIT READY"}
	}
	return &TestUnitReadyCommand{LUN: cbw.LUN}, nil
}

// InquiryCommand is SCSI opcode 0x12.
type InquiryCommand struct {
	LUN              uint8
	AllocationLength uint8
}

// BuildCBW encodes the command into a CommandBlockWrapper.
func (c *InquiryCommand) BuildCBW(tag uint32) CommandBlockWrapper {
	cbw := NewCBW(tag, c.LUN)
	cbw.CBLength = 6
	cbw.DataTransferLength = uint32(c.AllocationLength)
	cbw.Flags = cbwFlagDataIn
	cbw.CB[0] = scsibot.OpInquiry
	cbw.CB[4] = c.AllocationLength
	return cbw
}

// ParseInquiryCommand validates a decoded CBW against INQUIRY's contract.
func ParseInquiryCommand(cbw *CommandBlockWrapper) (*InquiryCommand, error) {
	if cbw.CBLength != 6 {
		return nil, &scsibot.ParseError{Reason: "malformed INQUIRY"}
	}
	if cbw.DataTransferLength != 0 && cbw.Direction() != scsibot.DirIn {
		return nil, &scsibot.ParseError{Reason: "malformed INQUIRY: direction"}
	}
	return &InquiryCommand{LUN: cbw.LUN, AllocationLength: cbw.CB[4]}, nil
}

// InquiryResponse is the standard INQUIRY response data (spec §3): device
// qualifier/type packed into byte 0, removable flags in byte 1, SPC
// version in byte 2, response format in byte 3.
type InquiryResponse struct {
	DeviceQualifier uint8 // upper 3 bits of byte 0
	DeviceType      uint8 // low 5 bits of byte 0
	RemovableMedia  bool  // bit 7 of byte 1
	Version         uint8
	ResponseFormat  uint8
}

// MarshalTo writes the 4-byte fixed header this library models; a real
// INQUIRY response continues with vendor/product/revision strings, which
// are outside this library's codec scope beyond placing them verbatim by
// the caller.
func (r *InquiryResponse) MarshalTo(buf []byte) (int, error) {
	if len(buf) < 4 {
		return 0, &scsibot.BufferTooSmallError{Expected: 4, Actual: len(buf)}
	}
	buf[0] = (r.DeviceQualifier&0x07)<<5 | (r.DeviceType & 0x1F)
	buf[1] = 0
	if r.RemovableMedia {
		buf[1] = 0x80
	}
	buf[2] = r.Version
	buf[3] = r.ResponseFormat
	return 4, nil
}

// ParseInquiryResponse decodes the 4-byte fixed INQUIRY response header.
func ParseInquiryResponse(data []byte, out *InquiryResponse) error {
	if len(data) < 4 {
		return &scsibot.BufferTooSmallError{Expected: 4, Actual: len(data)}
	}
	out.DeviceQualifier = data[0] >> 5
	out.DeviceType = data[0] & 0x1F
	out.RemovableMedia = data[1]&0x80 != 0
	out.Version = data[2]
	out.ResponseFormat = data[3]
	return nil
}

// RequestSenseCommand is SCSI opcode 0x03.
type RequestSenseCommand struct {
	LUN              uint8
	AllocationLength uint8
}

// BuildCBW encodes the command into a CommandBlockWrapper.
func (c *RequestSenseCommand) BuildCBW(tag uint32) CommandBlockWrapper {
	cbw := NewCBW(tag, c.LUN)
	cbw.CBLength = 6
	cbw.DataTransferLength = uint32(c.AllocationLength)
	cbw.Flags = cbwFlagDataIn
	cbw.CB[0] = scsibot.OpRequestSense
	cbw.CB[4] = c.AllocationLength
	return cbw
}

// ParseRequestSenseCommand validates a decoded CBW against REQUEST
// SENSE's contract.
func ParseRequestSenseCommand(cbw *CommandBlockWrapper) (*RequestSenseCommand, error) {
	if cbw.CBLength != 6 {
		return nil, &scsibot.ParseError{Reason: "malformed REQUEST SENSE"}
	}
	return &RequestSenseCommand{LUN: cbw.LUN, AllocationLength: cbw.CB[4]}, nil
}

// ReadCapacity10Command is SCSI opcode 0x25.
type ReadCapacity10Command struct {
	LUN uint8
}

// BuildCBW encodes the command into a CommandBlockWrapper. The source
// documents cb_length 16 for this opcode even though only the opcode byte
// is meaningful; this library preserves that width for wire fidelity.
func (c *ReadCapacity10Command) BuildCBW(tag uint32) CommandBlockWrapper {
	cbw := NewCBW(tag, c.LUN)
	cbw.CBLength = 16
	cbw.DataTransferLength = 8
	cbw.Flags = cbwFlagDataIn
	cbw.CB[0] = scsibot.OpReadCapacity10
	return cbw
}

// ParseReadCapacity10Command validates a decoded CBW against READ
// CAPACITY(10)'s contract.
func ParseReadCapacity10Command(cbw *CommandBlockWrapper) (*ReadCapacity10Command, error) {
	if cbw.DataTransferLength != 8 || cbw.Direction() != scsibot.DirIn {
		return nil, &scsibot.ParseError{Reason: "malformed READ CAPACITY(10)"}
	}
	return &ReadCapacity10Command{LUN: cbw.LUN}, nil
}

// ReadCapacity10Response is the 8-byte READ CAPACITY(10) response: the
// last valid logical block address, then the block length in bytes, both
// big-endian.
type ReadCapacity10Response struct {
	LogicalBlockAddress uint32
	BlockLength         uint32
}

// MarshalTo writes the response to buf, returning 8 on success.
func (r *ReadCapacity10Response) MarshalTo(buf []byte) (int, error) {
	if len(buf) < 8 {
		return 0, &scsibot.BufferTooSmallError{Expected: 8, Actual: len(buf)}
	}
	putU32BE(buf, 0, r.LogicalBlockAddress)
	putU32BE(buf, 4, r.BlockLength)
	return 8, nil
}

// ParseReadCapacity10Response decodes the 8-byte response.
func ParseReadCapacity10Response(data []byte, out *ReadCapacity10Response) error {
	if len(data) < 8 {
		return &scsibot.BufferTooSmallError{Expected: 8, Actual: len(data)}
	}
	out.LogicalBlockAddress = getU32BE(data, 0)
	out.BlockLength = getU32BE(data, 4)
	return nil
}

// Read10Command is SCSI opcode 0x28.
type Read10Command struct {
	LUN            uint8
	BlockAddress   uint32
	TransferBlocks uint16
}

// BuildCBW encodes the command into a CommandBlockWrapper, computing
// DataTransferLength from TransferBlocks*blockSize.
func (c *Read10Command) BuildCBW(tag uint32, blockSize uint32) CommandBlockWrapper {
	cbw := NewCBW(tag, c.LUN)
	cbw.CBLength = 10
	cbw.DataTransferLength = uint32(c.TransferBlocks) * blockSize
	cbw.Flags = cbwFlagDataIn
	cbw.CB[0] = scsibot.OpRead10
	putU32BE(cbw.CB[:], 2, c.BlockAddress)
	putU16BE(cbw.CB[:], 7, c.TransferBlocks)
	return cbw
}

// ParseRead10Command validates a decoded CBW against READ(10)'s contract:
// cb_length 10, direction IN, data_transfer_length = transfer_blocks *
// block_size.
func ParseRead10Command(cbw *CommandBlockWrapper, blockSize uint32) (*Read10Command, error) {
	if cbw.CBLength != 10 {
		return nil, &scsibot.ParseError{Reason: "malformed READ(10): cb_length"}
	}
	transferBlocks := getU16BE(cbw.CB[:], 7)
	if cbw.DataTransferLength != uint32(transferBlocks)*blockSize {
		return nil, &scsibot.ParseError{Reason: "malformed READ(10): data_transfer_length"}
	}
	if transferBlocks != 0 && cbw.Direction() != scsibot.DirIn {
		return nil, &scsibot.ParseError{Reason: "malformed READ(10): direction"}
	}
	return &Read10Command{
		LUN:            cbw.LUN,
		BlockAddress:   getU32BE(cbw.CB[:], 2),
		TransferBlocks: transferBlocks,
	}, nil
}

// Write10Command is SCSI opcode 0x2A; same shape as Read10Command but
// host-to-device.
type Write10Command struct {
	LUN            uint8
	BlockAddress   uint32
	TransferBlocks uint16
}

// BuildCBW encodes the command into a CommandBlockWrapper.
func (c *Write10Command) BuildCBW(tag uint32, blockSize uint32) CommandBlockWrapper {
	cbw := NewCBW(tag, c.LUN)
	cbw.CBLength = 10
	cbw.DataTransferLength = uint32(c.TransferBlocks) * blockSize
	cbw.CB[0] = scsibot.OpWrite10
	putU32BE(cbw.CB[:], 2, c.BlockAddress)
	putU16BE(cbw.CB[:], 7, c.TransferBlocks)
	return cbw
}

// ParseWrite10Command validates a decoded CBW against WRITE(10)'s
// contract.
func ParseWrite10Command(cbw *CommandBlockWrapper, blockSize uint32) (*Write10Command, error) {
	if cbw.CBLength != 10 {
		return nil, &scsibot.ParseError{Reason: "malformed WRITE(10): cb_length"}
	}
	transferBlocks := getU16BE(cbw.CB[:], 7)
	if cbw.DataTransferLength != uint32(transferBlocks)*blockSize {
		return nil, &scsibot.ParseError{Reason: "malformed WRITE(10): data_transfer_length"}
	}
	if transferBlocks != 0 && cbw.Direction() != scsibot.DirOut {
		return nil, &scsibot.ParseError{Reason: "malformed WRITE(10): direction"}
	}
	return &Write10Command{
		LUN:            cbw.LUN,
		BlockAddress:   getU32BE(cbw.CB[:], 2),
		TransferBlocks: transferBlocks,
	}, nil
}
