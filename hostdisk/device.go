// Package hostdisk drives a USB Mass Storage (BOT) peripheral as a
// random-access block device over a [channel.Channel]. It owns its channel
// exclusively, blocks synchronously on every transfer, and performs no
// internal buffering beyond the fixed scratch regions a command needs.
package hostdisk

import (
	"context"
	"fmt"

	"github.com/ardnew/scsibot"
	"github.com/ardnew/scsibot/channel"
	"github.com/ardnew/scsibot/scsibotlog"
	"github.com/ardnew/scsibot/wire"
)

// inquiryAllocationLength is the allocation length this library requests
// during construction: min(scratch_len, 36) where scratch_len is the
// 31-byte CBW/CSW scratch region this library reuses for the response,
// so the target's reply fills the full requested length on the wire
// rather than leaving the data phase short of what was asked for.
const inquiryAllocationLength = scsibot.CBWSize

// Device is a host-side handle to a single-LUN direct-access block device
// reached over a BOT channel.
type Device struct {
	ch        channel.Channel
	lun       uint8
	blockSize uint32
	blockLBA  uint32 // last valid logical block address, from READ CAPACITY(10)

	prevTag uint32 // tag of the most recently completed command

	metrics *Metrics
}

// New performs the construction handshake (INQUIRY, TEST UNIT READY, READ
// CAPACITY(10)) against ch and returns a ready Device, or the first error
// encountered. lun identifies the logical unit to address; pass 0 for the
// common single-LUN case.
func New(ctx context.Context, ch channel.Channel, lun uint8, opts ...Option) (*Device, error) {
	d := &Device{ch: ch, lun: lun}
	for _, opt := range opts {
		opt(d)
	}

	// Construction uses its own tag sequence; the source hardcodes
	// prev_csw.tag = 2 once READ CAPACITY completes, independent of what
	// tags the handshake itself used, so the first user-visible CBW tag
	// is always 3.
	if err := d.screenDevice(ctx, 0); err != nil {
		return nil, err
	}
	if err := d.waitReady(ctx, 1); err != nil {
		return nil, err
	}
	if err := d.discoverCapacity(ctx, 2); err != nil {
		return nil, err
	}
	d.prevTag = 2

	scsibotlog.Info(scsibotlog.ComponentHost, "block device ready",
		"lun", d.lun, "block_size", d.blockSize, "blocks", d.blockLBA+1)
	return d, nil
}

// Option configures a Device at construction.
type Option func(*Device)

// WithMetrics attaches m to the device, which updates it on every command.
func WithMetrics(m *Metrics) Option {
	return func(d *Device) { d.metrics = m }
}

// BlockSize returns the device's fundamental addressable unit, discovered
// during construction.
func (d *Device) BlockSize() uint32 {
	return d.blockSize
}

// Stats returns the device's current command/byte counters, or a zero
// Metrics if none was attached via WithMetrics.
func (d *Device) Stats() Metrics {
	if d.metrics == nil {
		return Metrics{}
	}
	return *d.metrics
}

func (d *Device) nextTag() uint32 {
	d.prevTag++
	return d.prevTag
}

func (d *Device) screenDevice(ctx context.Context, tag uint32) error {
	cmd := &wire.InquiryCommand{LUN: d.lun, AllocationLength: inquiryAllocationLength}
	cbw := cmd.BuildCBW(tag)

	var respBuf [inquiryAllocationLength]byte
	n, csw, err := d.transferIn(ctx, &cbw, respBuf[:])
	if err != nil {
		return err
	}
	if n < 4 {
		return &scsibot.BufferTooSmallError{Expected: 4, Actual: n}
	}

	var resp wire.InquiryResponse
	if err := wire.ParseInquiryResponse(respBuf[:n], &resp); err != nil {
		return err
	}
	if resp.DeviceQualifier != 0 || resp.DeviceType != 0 {
		return scsibot.ErrInvalidDevice
	}

	scsibotlog.CSWStatus(scsibotlog.ComponentHost, "INQUIRY ok", csw.Tag, csw.Status)
	return nil
}

func (d *Device) waitReady(ctx context.Context, tag uint32) error {
	cmd := &wire.TestUnitReadyCommand{LUN: d.lun}
	cbw := cmd.BuildCBW(tag)
	_, err := d.transferNoData(ctx, &cbw)
	return err
}

func (d *Device) discoverCapacity(ctx context.Context, tag uint32) error {
	cmd := &wire.ReadCapacity10Command{LUN: d.lun}
	cbw := cmd.BuildCBW(tag)

	var respBuf [8]byte
	n, _, err := d.transferIn(ctx, &cbw, respBuf[:])
	if err != nil {
		return err
	}
	if n < 8 {
		return &scsibot.BufferTooSmallError{Expected: 8, Actual: n}
	}

	var resp wire.ReadCapacity10Response
	if err := wire.ParseReadCapacity10Response(respBuf[:n], &resp); err != nil {
		return err
	}
	d.blockLBA = resp.LogicalBlockAddress
	d.blockSize = resp.BlockLength
	return nil
}

// Read reads len(dest) bytes starting at the byte offset into dest. offset
// and len(dest) must both be multiples of BlockSize(); a zero-length dest
// returns immediately without touching the channel.
func (d *Device) Read(ctx context.Context, offset uint64, dest []byte) (int, error) {
	if len(dest) == 0 {
		return 0, nil
	}
	if err := d.checkAlignment(offset, len(dest)); err != nil {
		return 0, err
	}

	blockAddress := uint32(offset / uint64(d.blockSize))
	transferBlocks := uint16(len(dest) / int(d.blockSize))

	cmd := &wire.Read10Command{
		LUN:            d.lun,
		BlockAddress:   blockAddress,
		TransferBlocks: transferBlocks,
	}
	cbw := cmd.BuildCBW(d.nextTag(), d.blockSize)

	scsibotlog.Command(scsibotlog.ComponentHost, "READ(10)", cbw.Tag, cbw.Opcode(), "lba", blockAddress, "blocks", transferBlocks)
	n, _, err := d.transferIn(ctx, &cbw, dest)
	if err != nil {
		scsibotlog.Warn(scsibotlog.ComponentHost, "READ(10) failed", "error", err)
	}
	d.observe("read10", err)
	d.observeBytes("read10", "in", n)
	return n, err
}

// Write writes src to the byte offset on the device. offset and len(src)
// must both be multiples of BlockSize(); a zero-length src returns
// immediately without touching the channel.
func (d *Device) Write(ctx context.Context, offset uint64, src []byte) (int, error) {
	if len(src) == 0 {
		return 0, nil
	}
	if err := d.checkAlignment(offset, len(src)); err != nil {
		return 0, err
	}

	blockAddress := uint32(offset / uint64(d.blockSize))
	transferBlocks := uint16(len(src) / int(d.blockSize))

	cmd := &wire.Write10Command{
		LUN:            d.lun,
		BlockAddress:   blockAddress,
		TransferBlocks: transferBlocks,
	}
	cbw := cmd.BuildCBW(d.nextTag(), d.blockSize)

	scsibotlog.Command(scsibotlog.ComponentHost, "WRITE(10)", cbw.Tag, cbw.Opcode(), "lba", blockAddress, "blocks", transferBlocks)
	n, err := d.transferOut(ctx, &cbw, src)
	if err != nil {
		scsibotlog.Warn(scsibotlog.ComponentHost, "WRITE(10) failed", "error", err)
	}
	d.observe("write10", err)
	d.observeBytes("write10", "out", n)
	return n, err
}

// SynchronizeCache issues SYNCHRONIZE CACHE(10), flushing any write cache
// on the device side.
func (d *Device) SynchronizeCache(ctx context.Context) error {
	cmd := &wire.SynchronizeCache10Command{LUN: d.lun}
	cbw := cmd.BuildCBW(d.nextTag())
	scsibotlog.Command(scsibotlog.ComponentHost, "SYNCHRONIZE CACHE(10)", cbw.Tag, cbw.Opcode())
	_, err := d.transferNoData(ctx, &cbw)
	if err != nil {
		scsibotlog.Warn(scsibotlog.ComponentHost, "SYNCHRONIZE CACHE(10) failed", "error", err)
	}
	d.observe("synchronize_cache10", err)
	return err
}

// PreventMediumRemoval issues PREVENT ALLOW MEDIUM REMOVAL with the given
// prevent flag.
func (d *Device) PreventMediumRemoval(ctx context.Context, prevent bool) error {
	cmd := &wire.PreventAllowMediumRemovalCommand{LUN: d.lun, Prevent: prevent}
	cbw := cmd.BuildCBW(d.nextTag())
	scsibotlog.Command(scsibotlog.ComponentHost, "PREVENT/ALLOW MEDIUM REMOVAL", cbw.Tag, cbw.Opcode(), "prevent", prevent)
	_, err := d.transferNoData(ctx, &cbw)
	if err != nil {
		scsibotlog.Warn(scsibotlog.ComponentHost, "PREVENT/ALLOW MEDIUM REMOVAL failed", "error", err)
	}
	d.observe("prevent_allow_removal", err)
	return err
}

// StartStopUnit issues START STOP UNIT with the given start/load-eject
// flags.
func (d *Device) StartStopUnit(ctx context.Context, start, loEj bool) error {
	cmd := &wire.StartStopUnitCommand{LUN: d.lun, Start: start, LoEj: loEj}
	cbw := cmd.BuildCBW(d.nextTag())
	scsibotlog.Command(scsibotlog.ComponentHost, "START/STOP UNIT", cbw.Tag, cbw.Opcode(), "start", start, "loej", loEj)
	_, err := d.transferNoData(ctx, &cbw)
	if err != nil {
		scsibotlog.Warn(scsibotlog.ComponentHost, "START/STOP UNIT failed", "error", err)
	}
	d.observe("start_stop_unit", err)
	return err
}

func (d *Device) checkAlignment(offset uint64, length int) error {
	if offset%uint64(d.blockSize) != 0 {
		return &scsibot.NonBlocksizeMultipleLengthError{Actual: offset, BlockSize: d.blockSize}
	}
	if uint64(length)%uint64(d.blockSize) != 0 {
		return &scsibot.NonBlocksizeMultipleLengthError{Actual: uint64(length), BlockSize: d.blockSize}
	}
	return nil
}

func (d *Device) observe(op string, err error) {
	if d.metrics == nil {
		return
	}
	d.metrics.observe(op, err)
}

func (d *Device) observeBytes(op, direction string, n int) {
	if d.metrics == nil {
		return
	}
	d.metrics.observeBytes(op, direction, n)
}

// pushCommand serializes cbw into a 31-byte scratch buffer and ships it,
// failing with UsbTransferError{Out} if fewer than scsibot.CBWSize bytes
// were accepted.
func (d *Device) pushCommand(ctx context.Context, cbw *wire.CommandBlockWrapper) error {
	var buf [scsibot.CBWSize]byte
	if _, err := cbw.MarshalTo(buf[:]); err != nil {
		return err
	}
	n, err := d.ch.OutTransfer(ctx, buf[:])
	if err != nil {
		return &scsibot.UsbTransferError{Direction: scsibot.TransferOut, Err: err}
	}
	if n != scsibot.CBWSize {
		return &scsibot.UsbTransferError{Direction: scsibot.TransferOut}
	}
	return nil
}

// readCSW reads the 13-byte Command Status Wrapper and reconciles it
// against cbw: tag mismatch is a ParseError, a non-passed status is a
// FlagError carrying the raw status byte.
func (d *Device) readCSW(ctx context.Context, cbw *wire.CommandBlockWrapper) (wire.CommandStatusWrapper, error) {
	var buf [scsibot.CSWSize]byte
	n, err := d.ch.InTransfer(ctx, buf[:])
	if err != nil {
		return wire.CommandStatusWrapper{}, &scsibot.UsbTransferError{Direction: scsibot.TransferIn, Err: err}
	}
	if n != scsibot.CSWSize {
		return wire.CommandStatusWrapper{}, &scsibot.UsbTransferError{Direction: scsibot.TransferIn}
	}

	var csw wire.CommandStatusWrapper
	if err := wire.ParseCSW(buf[:n], &csw); err != nil {
		return wire.CommandStatusWrapper{}, err
	}
	if csw.Tag != cbw.Tag {
		return wire.CommandStatusWrapper{}, &scsibot.ParseError{
			Reason: fmt.Sprintf("CSW tag %#x does not match CBW tag %#x", csw.Tag, cbw.Tag),
		}
	}
	if csw.Status != scsibot.StatusPassed {
		return wire.CommandStatusWrapper{}, &scsibot.FlagError{Flags: uint32(csw.Status)}
	}
	return csw, nil
}

// transferNoData executes a command with no data phase.
func (d *Device) transferNoData(ctx context.Context, cbw *wire.CommandBlockWrapper) (wire.CommandStatusWrapper, error) {
	if err := d.pushCommand(ctx, cbw); err != nil {
		return wire.CommandStatusWrapper{}, err
	}
	return d.readCSW(ctx, cbw)
}

// transferIn executes an IN-directional command, accumulating data into
// buf across as many InTransfer calls as the channel requires.
func (d *Device) transferIn(ctx context.Context, cbw *wire.CommandBlockWrapper, buf []byte) (int, wire.CommandStatusWrapper, error) {
	if err := d.pushCommand(ctx, cbw); err != nil {
		return 0, wire.CommandStatusWrapper{}, err
	}

	want := int(cbw.DataTransferLength)
	if want > len(buf) {
		want = len(buf)
	}

	if want > 0 {
		if cbw.Direction() != scsibot.DirIn {
			return 0, wire.CommandStatusWrapper{}, scsibot.ErrUnsupportedOperation
		}
		got := 0
		for got < want {
			n, err := d.ch.InTransfer(ctx, buf[got:want])
			if err != nil {
				return got, wire.CommandStatusWrapper{}, &scsibot.UsbTransferError{Direction: scsibot.TransferIn, Err: err}
			}
			if n == 0 {
				return got, wire.CommandStatusWrapper{}, &scsibot.UsbTransferError{Direction: scsibot.TransferIn}
			}
			got += n
		}
		want = got
	}

	csw, err := d.readCSW(ctx, cbw)
	return want, csw, err
}

// transferOut executes an OUT-directional command, draining buf across as
// many OutTransfer calls as the channel requires.
func (d *Device) transferOut(ctx context.Context, cbw *wire.CommandBlockWrapper, buf []byte) (int, error) {
	if err := d.pushCommand(ctx, cbw); err != nil {
		return 0, err
	}

	want := int(cbw.DataTransferLength)
	if want > 0 {
		if cbw.Direction() != scsibot.DirOut {
			return 0, scsibot.ErrUnsupportedOperation
		}
		sent := 0
		for sent < want {
			n, err := d.ch.OutTransfer(ctx, buf[sent:want])
			if err != nil {
				return sent, &scsibot.UsbTransferError{Direction: scsibot.TransferOut, Err: err}
			}
			if n == 0 {
				return sent, &scsibot.UsbTransferError{Direction: scsibot.TransferOut}
			}
			sent += n
		}
		want = sent
	}

	if _, err := d.readCSW(ctx, cbw); err != nil {
		return want, err
	}
	return want, nil
}
