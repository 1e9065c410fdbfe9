package client

import (
	"errors"

	"github.com/famomatic/vot/internal/orchestrator"
)

var (
	// ErrInvalidInput indicates malformed input (not a video ID/url).
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoVideo indicates no video has been started yet.
	ErrNoVideo = errors.New("no video to translate")
	// ErrLiveNotSupported indicates live content, which cannot be translated.
	ErrLiveNotSupported = errors.New("live content cannot be translated")
	// ErrVideoTooLong indicates the video exceeds the translatable length.
	ErrVideoTooLong = errors.New("video too long to translate")
	// ErrSameLanguage indicates source and target language are identical.
	ErrSameLanguage = errors.New("source and target language are the same")
)

func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, orchestrator.ErrLiveNotSupported):
		return ErrLiveNotSupported
	case errors.Is(err, orchestrator.ErrVideoTooLong):
		return ErrVideoTooLong
	case errors.Is(err, orchestrator.ErrSameLanguage):
		return ErrSameLanguage
	}
	return err
}
