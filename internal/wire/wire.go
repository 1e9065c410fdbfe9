// Package wire implements the hand-rolled protobuf subset spoken by the
// translation worker. Field numbers and types are fixed per message; there is
// no schema. The layout is externally dictated, so the encoder emits several
// constant-valued fields byte-for-byte.
package wire

// Protobuf wire types.
const (
	wireVarint          = 0
	wire64Bit           = 1
	wireLengthDelimited = 2
	wire32Bit           = 5
)

func appendTag(buf []byte, fieldNumber, wireType int) []byte {
	return appendRawVarint(buf, uint32(fieldNumber)<<3|uint32(wireType))
}

// appendRawVarint writes an unsigned 32-bit varint with little-endian
// continuation encoding.
func appendRawVarint(buf []byte, v uint32) []byte {
	for v > 0x7F {
		buf = append(buf, byte(v&0x7F|0x80))
		v >>= 7
	}
	return append(buf, byte(v))
}

// readVarint reads an unsigned 32-bit varint at pos.
// Returns the value and the position after it.
func readVarint(data []byte, pos int) (uint32, int) {
	var result uint32
	var shift uint
	for pos < len(data) {
		b := data[pos]
		pos++
		result |= uint32(b&0x7F) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
	}
	return result, pos
}

// skipField advances past a field of the given wire type. An unknown wire
// type skips to the end of the buffer; decoding is best-effort and callers
// tolerate partially-parsed results.
func skipField(data []byte, pos, wireType int) int {
	switch wireType {
	case wireVarint:
		for pos < len(data) && data[pos]&0x80 != 0 {
			pos++
		}
		return pos + 1
	case wire64Bit:
		return pos + 8
	case wireLengthDelimited:
		length, next := readVarint(data, pos)
		return next + int(length)
	case wire32Bit:
		return pos + 4
	default:
		return len(data)
	}
}
