package wire

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ardnew/scsibot"
)

func TestInquiryEncode(t *testing.T) {
	cmd := &InquiryCommand{LUN: 0, AllocationLength: 0x05}
	cbw := cmd.BuildCBW(0)

	buf := make([]byte, scsibot.CBWSize)
	n, err := cbw.MarshalTo(buf)
	if err != nil {
		t.Fatalf("MarshalTo: %v", err)
	}
	if n != scsibot.CBWSize {
		t.Fatalf("MarshalTo returned %d, want %d", n, scsibot.CBWSize)
	}

	want := []byte{
		0x55, 0x53, 0x42, 0x43, 0x00, 0x00, 0x00, 0x00,
		0x05, 0x00, 0x00, 0x00, 0x80, 0x00, 0x06, 0x12,
		0x00, 0x00, 0x00, 0x05,
	}
	if !bytes.Equal(buf[:20], want) {
		t.Fatalf("encoded bytes = % x, want % x", buf[:20], want)
	}
	for i := 20; i < scsibot.CBWSize; i++ {
		if buf[i] != 0 {
			t.Fatalf("byte %d = %#x, want 0", i, buf[i])
		}
	}

	var decoded CommandBlockWrapper
	if err := ParseCBW(buf, &decoded); err != nil {
		t.Fatalf("ParseCBW: %v", err)
	}
	got, err := ParseInquiryCommand(&decoded)
	if err != nil {
		t.Fatalf("ParseInquiryCommand: %v", err)
	}
	if *got != *cmd {
		t.Fatalf("round-trip = %+v, want %+v", got, cmd)
	}
}

func TestCSWRoundTrip(t *testing.T) {
	csw := NewCSW(0x12EFCDAB, 0x90785634, 0x80)

	buf := make([]byte, scsibot.CSWSize)
	n, err := csw.MarshalTo(buf)
	if err != nil {
		t.Fatalf("MarshalTo: %v", err)
	}
	if n != scsibot.CSWSize {
		t.Fatalf("MarshalTo returned %d, want %d", n, scsibot.CSWSize)
	}

	want := []byte{0x55, 0x53, 0x42, 0x53, 0xAB, 0xCD, 0xEF, 0x12, 0x34, 0x56, 0x78, 0x90, 0x80}
	if !bytes.Equal(buf, want) {
		t.Fatalf("encoded bytes = % x, want % x", buf, want)
	}

	var decoded CommandStatusWrapper
	if err := ParseCSW(buf, &decoded); err != nil {
		t.Fatalf("ParseCSW: %v", err)
	}
	if decoded != csw {
		t.Fatalf("round-trip = %+v, want %+v", decoded, csw)
	}
}

func TestRead10Encode(t *testing.T) {
	const blockSize = 512
	offset := uint32(4096)
	cmd := &Read10Command{
		BlockAddress:   offset / blockSize,
		TransferBlocks: 512 / blockSize,
	}
	cbw := cmd.BuildCBW(0, blockSize)

	buf := make([]byte, scsibot.CBWSize)
	if _, err := cbw.MarshalTo(buf); err != nil {
		t.Fatalf("MarshalTo: %v", err)
	}

	want := []byte{
		0x55, 0x53, 0x42, 0x43, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x02, 0x00, 0x00, 0x80, 0x00, 0x0A, 0x28,
		0x00, 0x00, 0x00, 0x00, 0x08, 0x00, 0x00, 0x01, 0x00,
	}
	if !bytes.Equal(buf[:25], want) {
		t.Fatalf("encoded bytes = % x, want % x", buf[:25], want)
	}

	var decoded CommandBlockWrapper
	if err := ParseCBW(buf, &decoded); err != nil {
		t.Fatalf("ParseCBW: %v", err)
	}
	got, err := ParseRead10Command(&decoded, blockSize)
	if err != nil {
		t.Fatalf("ParseRead10Command: %v", err)
	}
	if got.BlockAddress != 8 || got.TransferBlocks != 1 {
		t.Fatalf("decoded = %+v, want block=8 blocks=1", got)
	}
}

func TestWrite10Encode(t *testing.T) {
	const blockSize = 512
	offset := uint32(4096)
	cmd := &Write10Command{
		BlockAddress:   offset / blockSize,
		TransferBlocks: 512 / blockSize,
	}
	cbw := cmd.BuildCBW(0, blockSize)

	buf := make([]byte, scsibot.CBWSize)
	if _, err := cbw.MarshalTo(buf); err != nil {
		t.Fatalf("MarshalTo: %v", err)
	}

	want := []byte{
		0x55, 0x53, 0x42, 0x43, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x02, 0x00, 0x00, 0x00, 0x00, 0x0A, 0x2A,
		0x00, 0x00, 0x00, 0x00, 0x08, 0x00, 0x00, 0x01, 0x00,
	}
	if !bytes.Equal(buf[:25], want) {
		t.Fatalf("encoded bytes = % x, want % x", buf[:25], want)
	}

	var decoded CommandBlockWrapper
	if err := ParseCBW(buf, &decoded); err != nil {
		t.Fatalf("ParseCBW: %v", err)
	}
	if _, err := ParseWrite10Command(&decoded, blockSize); err != nil {
		t.Fatalf("ParseWrite10Command: %v", err)
	}
}

func TestReadCapacityEncodeAndResponse(t *testing.T) {
	cmd := &ReadCapacity10Command{}
	cbw := cmd.BuildCBW(0)

	buf := make([]byte, scsibot.CBWSize)
	if _, err := cbw.MarshalTo(buf); err != nil {
		t.Fatalf("MarshalTo: %v", err)
	}

	want := []byte{
		0x55, 0x53, 0x42, 0x43, 0x00, 0x00, 0x00, 0x00,
		0x08, 0x00, 0x00, 0x00, 0x80, 0x00, 0x10, 0x25,
	}
	if !bytes.Equal(buf[:16], want) {
		t.Fatalf("encoded bytes = % x, want % x", buf[:16], want)
	}

	resp := ReadCapacity10Response{LogicalBlockAddress: 0xABCDEF12, BlockLength: 0x23456789}
	respBuf := make([]byte, 8)
	if _, err := resp.MarshalTo(respBuf); err != nil {
		t.Fatalf("MarshalTo: %v", err)
	}
	wantResp := []byte{0xAB, 0xCD, 0xEF, 0x12, 0x23, 0x45, 0x67, 0x89}
	if !bytes.Equal(respBuf, wantResp) {
		t.Fatalf("response bytes = % x, want % x", respBuf, wantResp)
	}

	var decoded ReadCapacity10Response
	if err := ParseReadCapacity10Response(respBuf, &decoded); err != nil {
		t.Fatalf("ParseReadCapacity10Response: %v", err)
	}
	if decoded != resp {
		t.Fatalf("round-trip = %+v, want %+v", decoded, resp)
	}
}

func TestParseCBWSignatureMismatch(t *testing.T) {
	data := make([]byte, scsibot.CBWSize)
	data[0], data[1], data[2], data[3] = 0xDE, 0xAD, 0xBE, 0xEF

	var cbw CommandBlockWrapper
	err := ParseCBW(data, &cbw)
	if err == nil {
		t.Fatal("expected error on signature mismatch")
	}
	var flagErr *scsibot.FlagError
	if !errors.As(err, &flagErr) {
		t.Fatalf("expected *scsibot.FlagError, got %T: %v", err, err)
	}
	if flagErr.Flags != 0xEFBEADDE {
		t.Fatalf("Flags = %#x, want 0xEFBEADDE", flagErr.Flags)
	}
}

func TestParseCSWSignatureMismatch(t *testing.T) {
	data := make([]byte, scsibot.CSWSize)
	data[0], data[1], data[2], data[3] = 0xDE, 0xAD, 0xBE, 0xEF

	var csw CommandStatusWrapper
	err := ParseCSW(data, &csw)
	if err == nil {
		t.Fatal("expected error on signature mismatch")
	}
	var parseErr *scsibot.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *scsibot.ParseError, got %T: %v", err, err)
	}
}
