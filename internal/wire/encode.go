package wire

import (
	"encoding/binary"
	"math"
)

// audioSentinel is the fixed fileId the worker expects inside an empty-audio
// report. Found by reverse engineering; must not change.
const audioSentinel = "web_api_get_all_generating_urls_data_from_iframe"

// TranslationRequest carries the fields of a translation request.
// Constant-valued fields of the wire message are not represented here; the
// encoder emits them directly.
type TranslationRequest struct {
	URL              string
	FirstRequest     bool
	Duration         float64
	Language         string
	ResponseLanguage string
	VideoTitle       string
	UseLiveVoices    bool
}

// EncodeSessionRequest encodes a session-create request:
// uuid = 1 (string), module = 2 (string).
func EncodeSessionRequest(uuid, module string) []byte {
	buf := make([]byte, 0, len(uuid)+len(module)+8)
	buf = appendString(buf, 1, uuid)
	buf = appendString(buf, 2, module)
	return buf
}

// EncodeTranslationRequest encodes a translation request.
// Field numbers:
//
//	url = 3 (string)
//	firstRequest = 5 (bool)
//	duration = 6 (double)
//	unknown0 = 7 (int32, always 1)
//	language = 8 (string)
//	forceSourceLang = 9 (bool, always false)
//	unknown1 = 10 (int32, always 0)
//	responseLanguage = 14 (string)
//	unknown2 = 15 (int32, always 1)
//	unknown3 = 16 (int32, always 2)
//	useLivelyVoice = 18 (bool)
//	videoTitle = 19 (string, omitted when empty)
//
// Fields 7, 10, 15 and 16 have no known client-side meaning; the server
// expects these exact values.
func EncodeTranslationRequest(req TranslationRequest) []byte {
	buf := make([]byte, 0, 64+len(req.URL)+len(req.Language)+len(req.ResponseLanguage)+len(req.VideoTitle))
	buf = appendString(buf, 3, req.URL)
	buf = appendBool(buf, 5, req.FirstRequest)
	buf = appendDouble(buf, 6, req.Duration)
	buf = appendInt32(buf, 7, 1)
	buf = appendString(buf, 8, req.Language)
	buf = appendBool(buf, 9, false)
	buf = appendInt32(buf, 10, 0)
	buf = appendString(buf, 14, req.ResponseLanguage)
	buf = appendInt32(buf, 15, 1)
	buf = appendInt32(buf, 16, 2)
	buf = appendBool(buf, 18, req.UseLiveVoices)
	if req.VideoTitle != "" {
		buf = appendString(buf, 19, req.VideoTitle)
	}
	return buf
}

// EncodeEmptyAudioRequest encodes an audio report with empty audio:
// translationId = 1 (string), url = 2 (string), audioInfo = 6 (message)
// where audioInfo is { fileId = 1 (string), audioFile = 2 (bytes, omitted) }.
func EncodeEmptyAudioRequest(translationID, url string) []byte {
	audioInfo := appendString(nil, 1, audioSentinel)

	buf := make([]byte, 0, len(translationID)+len(url)+len(audioInfo)+12)
	buf = appendString(buf, 1, translationID)
	buf = appendString(buf, 2, url)
	buf = appendBytes(buf, 6, audioInfo)
	return buf
}

func appendString(buf []byte, fieldNumber int, value string) []byte {
	buf = appendTag(buf, fieldNumber, wireLengthDelimited)
	buf = appendRawVarint(buf, uint32(len(value)))
	return append(buf, value...)
}

func appendBytes(buf []byte, fieldNumber int, value []byte) []byte {
	buf = appendTag(buf, fieldNumber, wireLengthDelimited)
	buf = appendRawVarint(buf, uint32(len(value)))
	return append(buf, value...)
}

func appendInt32(buf []byte, fieldNumber int, value int32) []byte {
	buf = appendTag(buf, fieldNumber, wireVarint)
	return appendRawVarint(buf, uint32(value))
}

func appendBool(buf []byte, fieldNumber int, value bool) []byte {
	buf = appendTag(buf, fieldNumber, wireVarint)
	if value {
		return append(buf, 1)
	}
	return append(buf, 0)
}

func appendDouble(buf []byte, fieldNumber int, value float64) []byte {
	buf = appendTag(buf, fieldNumber, wire64Bit)
	var raw [8]byte
	binary.LittleEndian.PutUint64(raw[:], math.Float64bits(value))
	return append(buf, raw[:]...)
}
