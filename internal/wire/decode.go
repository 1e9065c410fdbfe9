package wire

import (
	"encoding/binary"
	"math"
)

// SessionResponse is a decoded session-create response.
type SessionResponse struct {
	SecretKey string
	Expires   int
}

// TranslationResponse is a decoded translation response. No field is
// required; a missing field keeps its zero value, except RemainingTime which
// defaults to -1 so "not reported" is distinguishable from zero.
type TranslationResponse struct {
	URL           string
	Duration      float64
	Status        int
	RemainingTime int
	TranslationID string
	Language      string
	Message       string
}

// DecodeSessionResponse decodes { secretKey = 1 (string), expires = 2 (int32) }.
func DecodeSessionResponse(data []byte) SessionResponse {
	var resp SessionResponse
	pos := 0
	for pos < len(data) {
		tag, next := readVarint(data, pos)
		pos = next
		fieldNumber := int(tag >> 3)
		wireType := int(tag & 0x7)
		switch {
		case fieldNumber == 1 && wireType == wireLengthDelimited:
			value, next, ok := readString(data, pos)
			if !ok {
				return resp
			}
			resp.SecretKey = value
			pos = next
		case fieldNumber == 2 && wireType == wireVarint:
			value, next := readVarint(data, pos)
			resp.Expires = int(value)
			pos = next
		default:
			pos = skipField(data, pos, wireType)
		}
	}
	return resp
}

// DecodeTranslationResponse decodes a translation response:
// url = 1 (string), duration = 2 (double), status = 4 (int32),
// remainingTime = 5 (int32), translationId = 7 (string),
// language = 8 (string), message = 9 (string).
func DecodeTranslationResponse(data []byte) TranslationResponse {
	resp := TranslationResponse{RemainingTime: -1}
	pos := 0
	for pos < len(data) {
		tag, next := readVarint(data, pos)
		pos = next
		fieldNumber := int(tag >> 3)
		wireType := int(tag & 0x7)
		switch {
		case fieldNumber == 1 && wireType == wireLengthDelimited:
			value, next, ok := readString(data, pos)
			if !ok {
				return resp
			}
			resp.URL = value
			pos = next
		case fieldNumber == 2 && wireType == wire64Bit:
			if pos+8 > len(data) {
				return resp
			}
			resp.Duration = math.Float64frombits(binary.LittleEndian.Uint64(data[pos : pos+8]))
			pos += 8
		case fieldNumber == 4 && wireType == wireVarint:
			value, next := readVarint(data, pos)
			resp.Status = int(value)
			pos = next
		case fieldNumber == 5 && wireType == wireVarint:
			value, next := readVarint(data, pos)
			resp.RemainingTime = int(value)
			pos = next
		case fieldNumber == 7 && wireType == wireLengthDelimited:
			value, next, ok := readString(data, pos)
			if !ok {
				return resp
			}
			resp.TranslationID = value
			pos = next
		case fieldNumber == 8 && wireType == wireLengthDelimited:
			value, next, ok := readString(data, pos)
			if !ok {
				return resp
			}
			resp.Language = value
			pos = next
		case fieldNumber == 9 && wireType == wireLengthDelimited:
			value, next, ok := readString(data, pos)
			if !ok {
				return resp
			}
			resp.Message = value
			pos = next
		default:
			pos = skipField(data, pos, wireType)
		}
	}
	return resp
}

// readString reads a length-delimited string at pos. ok is false when the
// declared length overruns the buffer; the caller stops parsing and keeps
// what it has.
func readString(data []byte, pos int) (string, int, bool) {
	length, next := readVarint(data, pos)
	end := next + int(length)
	if end > len(data) || end < next {
		return "", pos, false
	}
	return string(data[next:end]), end, true
}
