package orchestrator

import "errors"

var (
	// ErrLiveNotSupported indicates live content, which is never translatable.
	ErrLiveNotSupported = errors.New("live content cannot be translated")
	// ErrVideoTooLong indicates the video exceeds the 4 hour translation cap.
	ErrVideoTooLong = errors.New("video too long to translate")
	// ErrSameLanguage indicates source and target language are identical.
	ErrSameLanguage = errors.New("source and target language are the same")
	// ErrAlreadyTranslating indicates a state-machine run is already in flight.
	ErrAlreadyTranslating = errors.New("translation already in progress")
)
