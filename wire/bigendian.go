package wire

import "encoding/binary"

// Big-endian operand helpers over a CDB's fixed 16-byte command area.
// SCSI operands are big-endian by convention even though the CBW header
// that wraps them is little-endian; these helpers are lifted from the
// teacher's parseU16BE/parseU32BE pattern and kept free of bounds panics
// since CB is always exactly 16 bytes.

func getU16BE(cb []byte, offset int) uint16 {
	if offset+2 > len(cb) {
		return 0
	}
	return binary.BigEndian.Uint16(cb[offset:])
}

func putU16BE(cb []byte, offset int, v uint16) {
	binary.BigEndian.PutUint16(cb[offset:offset+2], v)
}

func getU32BE(cb []byte, offset int) uint32 {
	if offset+4 > len(cb) {
		return 0
	}
	return binary.BigEndian.Uint32(cb[offset:])
}

func putU32BE(cb []byte, offset int, v uint32) {
	binary.BigEndian.PutUint32(cb[offset:offset+4], v)
}
