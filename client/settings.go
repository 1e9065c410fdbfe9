package client

import "sync"

// Settings supplies user preferences. SetUseLiveVoices must persist: the
// engine downgrades the preference after a live-voice failure and the retry
// reads it back.
type Settings interface {
	Enabled() bool
	SourceLanguage() string
	TargetLanguage() string
	UseLiveVoices() bool
	SetUseLiveVoices(enabled bool)
	AudioProxyEnabled() bool
	TranslationVolumePercent() int
	OriginalVolumePercent() int
}

// MemorySettings is a process-local Settings implementation.
type MemorySettings struct {
	mu                sync.RWMutex
	enabled           bool
	sourceLanguage    string
	targetLanguage    string
	useLiveVoices     bool
	audioProxy        bool
	translationVolume int
	originalVolume    int
}

// NewMemorySettings returns MemorySettings with translation enabled,
// automatic source-language detection, English target, translation audio at
// full volume and original audio ducked to 30%.
func NewMemorySettings() *MemorySettings {
	return &MemorySettings{
		enabled:           true,
		sourceLanguage:    "auto",
		targetLanguage:    "en",
		translationVolume: 100,
		originalVolume:    30,
	}
}

func (s *MemorySettings) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

func (s *MemorySettings) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

func (s *MemorySettings) SourceLanguage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sourceLanguage
}

func (s *MemorySettings) SetSourceLanguage(lang string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sourceLanguage = lang
}

func (s *MemorySettings) TargetLanguage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.targetLanguage
}

func (s *MemorySettings) SetTargetLanguage(lang string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targetLanguage = lang
}

func (s *MemorySettings) UseLiveVoices() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.useLiveVoices
}

func (s *MemorySettings) SetUseLiveVoices(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.useLiveVoices = enabled
}

func (s *MemorySettings) AudioProxyEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.audioProxy
}

func (s *MemorySettings) SetAudioProxyEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audioProxy = enabled
}

func (s *MemorySettings) TranslationVolumePercent() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.translationVolume
}

func (s *MemorySettings) SetTranslationVolumePercent(percent int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.translationVolume = percent
}

func (s *MemorySettings) OriginalVolumePercent() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.originalVolume
}

func (s *MemorySettings) SetOriginalVolumePercent(percent int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.originalVolume = percent
}
