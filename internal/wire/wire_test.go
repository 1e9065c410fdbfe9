package wire

import (
	"bytes"
	"math"
	"testing"
)

func TestEncodeSessionRequestLayout(t *testing.T) {
	got := EncodeSessionRequest("ABCD", "video-translation")

	want := appendString(nil, 1, "ABCD")
	want = appendString(want, 2, "video-translation")
	if !bytes.Equal(got, want) {
		t.Fatalf("session request bytes = %x, want %x", got, want)
	}
}

func TestEncodeTranslationRequestConstants(t *testing.T) {
	got := EncodeTranslationRequest(TranslationRequest{
		URL:              "https://youtu.be/jNQXAC9IVRw",
		FirstRequest:     true,
		Duration:         19.0,
		Language:         "",
		ResponseLanguage: "en",
		VideoTitle:       "Me at the zoo",
		UseLiveVoices:    false,
	})

	// The protocol constants at fields 7, 10, 15 and 16 must be emitted
	// byte-for-byte regardless of input.
	want := appendString(nil, 3, "https://youtu.be/jNQXAC9IVRw")
	want = appendBool(want, 5, true)
	want = appendDouble(want, 6, 19.0)
	want = appendInt32(want, 7, 1)
	want = appendString(want, 8, "")
	want = appendBool(want, 9, false)
	want = appendInt32(want, 10, 0)
	want = appendString(want, 14, "en")
	want = appendInt32(want, 15, 1)
	want = appendInt32(want, 16, 2)
	want = appendBool(want, 18, false)
	want = appendString(want, 19, "Me at the zoo")
	if !bytes.Equal(got, want) {
		t.Fatalf("translation request bytes = %x, want %x", got, want)
	}
}

func TestEncodeTranslationRequestOmitsEmptyTitle(t *testing.T) {
	withTitle := EncodeTranslationRequest(TranslationRequest{URL: "u", VideoTitle: "t"})
	withoutTitle := EncodeTranslationRequest(TranslationRequest{URL: "u"})
	if len(withoutTitle) >= len(withTitle) {
		t.Fatalf("empty title should shrink the message: with=%d without=%d", len(withTitle), len(withoutTitle))
	}
	// Field 19 tag is 0x9a 0x01; it must not appear for an empty title.
	if bytes.Contains(withoutTitle, []byte{0x9a, 0x01}) {
		t.Fatalf("field 19 present despite empty title: %x", withoutTitle)
	}
}

func TestEncodeEmptyAudioRequestSentinel(t *testing.T) {
	got := EncodeEmptyAudioRequest("tr-123", "https://youtu.be/abc")

	audioInfo := appendString(nil, 1, audioSentinel)
	want := appendString(nil, 1, "tr-123")
	want = appendString(want, 2, "https://youtu.be/abc")
	want = appendBytes(want, 6, audioInfo)
	if !bytes.Equal(got, want) {
		t.Fatalf("empty audio request bytes = %x, want %x", got, want)
	}
}

func TestDecodeSessionResponseRoundTrip(t *testing.T) {
	data := appendString(nil, 1, "secret-key-value")
	data = appendInt32(data, 2, 3600)

	resp := DecodeSessionResponse(data)
	if resp.SecretKey != "secret-key-value" {
		t.Errorf("SecretKey = %q, want %q", resp.SecretKey, "secret-key-value")
	}
	if resp.Expires != 3600 {
		t.Errorf("Expires = %d, want 3600", resp.Expires)
	}
}

func TestDecodeTranslationResponseRoundTrip(t *testing.T) {
	data := appendString(nil, 1, "https://cdn.example/audio.mp3")
	data = appendDouble(data, 2, 123.5)
	data = appendInt32(data, 4, 1)
	data = appendInt32(data, 5, 42)
	data = appendString(data, 7, "tr-777")
	data = appendString(data, 8, "en")
	data = appendString(data, 9, "ok")

	resp := DecodeTranslationResponse(data)
	if resp.URL != "https://cdn.example/audio.mp3" {
		t.Errorf("URL = %q", resp.URL)
	}
	if resp.Duration != 123.5 {
		t.Errorf("Duration = %v, want 123.5", resp.Duration)
	}
	if resp.Status != 1 {
		t.Errorf("Status = %d, want 1", resp.Status)
	}
	if resp.RemainingTime != 42 {
		t.Errorf("RemainingTime = %d, want 42", resp.RemainingTime)
	}
	if resp.TranslationID != "tr-777" {
		t.Errorf("TranslationID = %q, want tr-777", resp.TranslationID)
	}
	if resp.Language != "en" {
		t.Errorf("Language = %q, want en", resp.Language)
	}
	if resp.Message != "ok" {
		t.Errorf("Message = %q, want ok", resp.Message)
	}
}

func TestDecodeTranslationResponseDefaults(t *testing.T) {
	resp := DecodeTranslationResponse(nil)
	if resp.RemainingTime != -1 {
		t.Errorf("RemainingTime default = %d, want -1", resp.RemainingTime)
	}
	if resp.URL != "" || resp.Status != 0 {
		t.Errorf("zero-value defaults expected, got %+v", resp)
	}
}

func TestDecodeSkipsUnknownFields(t *testing.T) {
	data := appendInt32(nil, 12, 99)                 // unknown varint field
	data = appendDouble(data, 13, 1.0)               // unknown 64-bit field
	data = appendString(data, 20, "ignored")         // unknown length-delimited field
	data = appendString(data, 1, "https://kept.url") // known field after unknowns

	resp := DecodeTranslationResponse(data)
	if resp.URL != "https://kept.url" {
		t.Fatalf("URL = %q, want https://kept.url", resp.URL)
	}
}

func TestDecodeUnknownWireTypeAbortsToEnd(t *testing.T) {
	data := appendTag(nil, 21, 3) // deprecated group wire type
	data = append(data, 0xFF)
	data = appendString(data, 1, "never reached")

	resp := DecodeTranslationResponse(data)
	if resp.URL != "" {
		t.Fatalf("URL = %q, want empty after unknown wire type abort", resp.URL)
	}
}

func TestDecodeTruncatedStringKeepsPartialResult(t *testing.T) {
	data := appendInt32(nil, 4, 2) // status parsed first
	data = appendTag(data, 1, wireLengthDelimited)
	data = appendRawVarint(data, 100) // declared length overruns the buffer
	data = append(data, 'x')

	resp := DecodeTranslationResponse(data)
	if resp.Status != 2 {
		t.Errorf("Status = %d, want 2 from the parsed prefix", resp.Status)
	}
	if resp.URL != "" {
		t.Errorf("URL = %q, want empty for truncated field", resp.URL)
	}
}

func TestVarintUnsigned32Bit(t *testing.T) {
	buf := appendRawVarint(nil, math.MaxUint32)
	value, pos := readVarint(buf, 0)
	if value != math.MaxUint32 {
		t.Fatalf("round-trip of MaxUint32 = %d", value)
	}
	if pos != len(buf) {
		t.Fatalf("consumed %d of %d bytes", pos, len(buf))
	}
}
