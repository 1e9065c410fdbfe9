package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"sync"
	"testing"
	"time"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func protoResponse(body []byte) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewReader(body)),
		Header:     make(http.Header),
	}
}

func sessionResponseBytes(secretKey string, expires int) []byte {
	var out []byte
	out = append(out, 0x0A, byte(len(secretKey)))
	out = append(out, secretKey...)
	out = append(out, 0x10, byte(expires&0x7F)|0x80, byte(expires>>7))
	return out
}

func finishedResponseBytes(audioURL string) []byte {
	var out []byte
	out = append(out, 0x0A, byte(len(audioURL)))
	out = append(out, audioURL...)
	out = append(out, 0x20, 0x01) // status FINISHED
	return out
}

// fakeWorkerTransport answers session-create and translate requests the way
// the worker relay does.
func fakeWorkerTransport(t *testing.T, audioURL string) http.RoundTripper {
	t.Helper()
	return roundTripFunc(func(req *http.Request) (*http.Response, error) {
		var env struct {
			Headers map[string]string `json:"headers"`
			Body    json.RawMessage   `json:"body"`
		}
		if err := json.NewDecoder(req.Body).Decode(&env); err != nil {
			t.Errorf("bad envelope: %v", err)
		}
		switch req.URL.Path {
		case "/session/create":
			return protoResponse(sessionResponseBytes("secret", 3600)), nil
		case "/video-translation/translate":
			return protoResponse(finishedResponseBytes(audioURL)), nil
		default:
			t.Errorf("unexpected path %s", req.URL.Path)
			return protoResponse(nil), nil
		}
	})
}

type stubPlayer struct {
	mu       sync.Mutex
	playing  bool
	released bool
	volume   float64
	seeks    []time.Duration
}

func (p *stubPlayer) Prepare(context.Context) error { return nil }

func (p *stubPlayer) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = true
	return nil
}

func (p *stubPlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
	return nil
}

func (p *stubPlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
	return nil
}

func (p *stubPlayer) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released = true
}

func (p *stubPlayer) SeekTo(pos time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seeks = append(p.seeks, pos)
	return nil
}

func (p *stubPlayer) Position() (time.Duration, error) { return 0, nil }

func (p *stubPlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *stubPlayer) SetVolume(volume float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = volume
	return nil
}

func (p *stubPlayer) SetSpeed(float64) error { return nil }

type stubFactory struct {
	mu      sync.Mutex
	players []*stubPlayer
	urls    []string
}

func (f *stubFactory) FromURL(url string) (Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, url)
	p := &stubPlayer{}
	f.players = append(f.players, p)
	return p, nil
}

func (f *stubFactory) FromFile(string) (Player, error) { return f.FromURL("file") }

func (f *stubFactory) last() *stubPlayer {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.players) == 0 {
		return nil
	}
	return f.players[len(f.players)-1]
}

type stubHost struct {
	mu      sync.Mutex
	videoID string
	playing bool
	volume  float64
	volSets []float64
}

func (h *stubHost) CurrentVideoID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.videoID
}

func (h *stubHost) VideoTime() time.Duration { return 0 }
func (h *stubHost) PlaybackSpeed() float64   { return 1.0 }

func (h *stubHost) Playing() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.playing
}

func (h *stubHost) Volume() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.volume
}

func (h *stubHost) SetVolume(volume float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.volSets = append(h.volSets, volume)
}

func (h *stubHost) volumeSets() []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]float64(nil), h.volSets...)
}

type stubNotifier struct {
	mu       sync.Mutex
	started  int
	stopped  int
	failed   int
	waiting  int
	notReady int
	liveGone int
}

func (n *stubNotifier) TranslationStarted()              { n.mu.Lock(); n.started++; n.mu.Unlock() }
func (n *stubNotifier) TranslationStopped()              { n.mu.Lock(); n.stopped++; n.mu.Unlock() }
func (n *stubNotifier) TranslationWaiting(time.Duration) { n.mu.Lock(); n.waiting++; n.mu.Unlock() }
func (n *stubNotifier) TranslationFailed()               { n.mu.Lock(); n.failed++; n.mu.Unlock() }
func (n *stubNotifier) TranslationNotReady()             { n.mu.Lock(); n.notReady++; n.mu.Unlock() }
func (n *stubNotifier) LiveVoicesUnavailable()           { n.mu.Lock(); n.liveGone++; n.mu.Unlock() }

func (n *stubNotifier) counts() (started, stopped, failed int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.started, n.stopped, n.failed
}

type testClient struct {
	client   *Client
	factory  *stubFactory
	host     *stubHost
	notifier *stubNotifier
	settings *MemorySettings
}

func newTestClient(t *testing.T, transport http.RoundTripper) *testClient {
	t.Helper()
	tc := &testClient{
		factory:  &stubFactory{},
		host:     &stubHost{videoID: "dQw4w9WgXcQ", playing: true, volume: 1.0},
		notifier: &stubNotifier{},
		settings: NewMemorySettings(),
	}
	if transport == nil {
		transport = fakeWorkerTransport(t, "https://cdn.test/audio.mp3")
	}
	c, err := New(Config{
		HTTPClient:    &http.Client{Transport: transport},
		Settings:      tc.settings,
		PlayerFactory: tc.factory,
		Host:          tc.host,
		Notifier:      tc.notifier,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(c.Close)
	tc.client = c
	return tc
}

func (tc *testClient) startVideo() {
	tc.client.NewVideoStarted(VideoMeta{
		VideoID:  "dQw4w9WgXcQ",
		Title:    "Never Gonna Give You Up",
		Duration: 3*time.Minute + 33*time.Second,
	})
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("New() must reject a config without collaborators")
	}
}

func TestToggleTranslationStartsPlayback(t *testing.T) {
	tc := newTestClient(t, nil)
	tc.startVideo()

	if err := tc.client.ToggleTranslation(); err != nil {
		t.Fatalf("ToggleTranslation() error = %v", err)
	}
	waitFor(t, "playback", func() bool {
		p := tc.factory.last()
		return p != nil && p.IsPlaying()
	})

	if !tc.client.IsTranslationActive() {
		t.Error("translation must be active")
	}
	tc.factory.mu.Lock()
	url := tc.factory.urls[0]
	tc.factory.mu.Unlock()
	if url != "https://cdn.test/audio.mp3" {
		t.Errorf("player URL = %q, want the resolved audio URL", url)
	}
	started, _, failed := tc.notifier.counts()
	if started != 1 || failed != 0 {
		t.Errorf("notifications started=%d failed=%d, want 1/0", started, failed)
	}
}

func TestToggleTranslationStopsActivePlayback(t *testing.T) {
	tc := newTestClient(t, nil)
	tc.startVideo()
	if err := tc.client.ToggleTranslation(); err != nil {
		t.Fatalf("ToggleTranslation() error = %v", err)
	}
	waitFor(t, "playback", func() bool {
		p := tc.factory.last()
		return p != nil && p.IsPlaying()
	})

	if err := tc.client.ToggleTranslation(); err != nil {
		t.Fatalf("second ToggleTranslation() error = %v", err)
	}
	if tc.client.IsTranslationActive() {
		t.Error("translation must be inactive after toggle off")
	}
	p := tc.factory.last()
	p.mu.Lock()
	released := p.released
	p.mu.Unlock()
	if !released {
		t.Error("player must be released on stop")
	}
	_, stopped, _ := tc.notifier.counts()
	if stopped != 1 {
		t.Errorf("stopped notifications = %d, want 1", stopped)
	}
}

func TestToggleTranslationPreflight(t *testing.T) {
	cases := []struct {
		name    string
		meta    VideoMeta
		source  string
		target  string
		wantErr error
	}{
		{
			name:    "no video",
			meta:    VideoMeta{},
			wantErr: ErrNoVideo,
		},
		{
			name:    "live content",
			meta:    VideoMeta{VideoID: "dQw4w9WgXcQ", IsLive: true},
			wantErr: ErrLiveNotSupported,
		},
		{
			name:    "over four hours",
			meta:    VideoMeta{VideoID: "dQw4w9WgXcQ", Duration: 5 * time.Hour},
			wantErr: ErrVideoTooLong,
		},
		{
			name:    "same language",
			meta:    VideoMeta{VideoID: "dQw4w9WgXcQ", Duration: time.Minute},
			source:  "en",
			target:  "en",
			wantErr: ErrSameLanguage,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestClient(t, nil)
			if tc.source != "" {
				env.settings.SetSourceLanguage(tc.source)
				env.settings.SetTargetLanguage(tc.target)
			}
			if tc.meta.VideoID != "" {
				env.client.NewVideoStarted(tc.meta)
			}
			if err := env.client.ToggleTranslation(); !errors.Is(err, tc.wantErr) {
				t.Fatalf("ToggleTranslation() error = %v, want %v", err, tc.wantErr)
			}
			env.factory.mu.Lock()
			defer env.factory.mu.Unlock()
			if len(env.factory.players) != 0 {
				t.Error("no player must be created on pre-flight failure")
			}
		})
	}
}

func TestNewVideoStartedStopsOtherVideosTranslation(t *testing.T) {
	tc := newTestClient(t, nil)
	tc.startVideo()
	if err := tc.client.ToggleTranslation(); err != nil {
		t.Fatalf("ToggleTranslation() error = %v", err)
	}
	waitFor(t, "playback", func() bool {
		p := tc.factory.last()
		return p != nil && p.IsPlaying()
	})

	tc.client.NewVideoStarted(VideoMeta{VideoID: "AAAAAAAAAAA", Duration: time.Minute})
	if tc.client.IsTranslationActive() {
		t.Error("translation must stop when another video starts")
	}

	tc.startVideo() // same video again keeps nothing running either way
	if tc.client.IsTranslationActive() {
		t.Error("translation must stay stopped")
	}
}

func TestDuckingWhileStartingAndActive(t *testing.T) {
	tc := newTestClient(t, nil)
	tc.settings.SetOriginalVolumePercent(30)
	tc.startVideo()

	if got := tc.client.DuckFactor(1.0); got != 1.0 {
		t.Errorf("DuckFactor before start = %v, want passthrough", got)
	}
	if err := tc.client.ToggleTranslation(); err != nil {
		t.Fatalf("ToggleTranslation() error = %v", err)
	}
	if got := tc.client.DuckFactor(1.0); math.Abs(got-0.3) > 1e-9 {
		t.Errorf("DuckFactor after start = %v, want 0.3", got)
	}
	if sets := tc.host.volumeSets(); len(sets) != 2 {
		t.Errorf("volume nudge sets = %v, want nudge + restore", sets)
	}
}

func TestOnTranslationStateChange(t *testing.T) {
	tc := newTestClient(t, nil)
	var mu sync.Mutex
	var states []bool
	tc.client.OnTranslationStateChange(func(active bool) {
		mu.Lock()
		states = append(states, active)
		mu.Unlock()
	})

	tc.startVideo()
	if err := tc.client.ToggleTranslation(); err != nil {
		t.Fatalf("ToggleTranslation() error = %v", err)
	}
	waitFor(t, "active state", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(states) == 1 && states[0]
	})

	if err := tc.client.ToggleTranslation(); err != nil {
		t.Fatalf("ToggleTranslation() error = %v", err)
	}
	waitFor(t, "inactive state", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(states) == 2 && !states[1]
	})
}

func TestExtractVideoID(t *testing.T) {
	cases := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"", "", true},
		{"not a video", "", true},
	}
	for _, tc := range cases {
		got, err := ExtractVideoID(tc.input)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("ExtractVideoID(%q) error = %v, want ErrInvalidInput", tc.input, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ExtractVideoID(%q) = %q, %v; want %q", tc.input, got, err, tc.want)
		}
	}
}

func TestFormatWait(t *testing.T) {
	if got := FormatWait(45 * time.Second); got != "45s" {
		t.Errorf("FormatWait(45s) = %q", got)
	}
	if got := FormatWait(150 * time.Second); got != "3m" {
		t.Errorf("FormatWait(150s) = %q, want rounded minutes", got)
	}
}
