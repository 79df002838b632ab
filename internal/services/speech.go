package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"farrelnajib/ai-hiring/internal/config"
)

// Synthesizer converts question text to playable audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// AudioSink plays synthesized audio. Play blocks until playback ends or the
// context is cancelled; the session never records while a Play call is in
// flight.
type AudioSink interface {
	Play(ctx context.Context, audio []byte) error
}

// TranscriptEvent is one increment of captured speech. Partial events carry
// the transcript so far for the current utterance; a final event closes the
// utterance.
type TranscriptEvent struct {
	Text  string
	Final bool
}

// CaptureSource is a live speech-to-text stream. Start returns a channel of
// transcript events which is closed by Stop. Stop is idempotent.
type CaptureSource interface {
	Start(ctx context.Context) (<-chan TranscriptEvent, error)
	Stop()
}

// MediaStream is an acquired camera+microphone handle. Stop is idempotent.
type MediaStream interface {
	Stop()
}

// MediaDevices grants access to the candidate's camera and microphone. A
// denial is an ordinary error; the session degrades instead of aborting.
type MediaDevices interface {
	Acquire(ctx context.Context) (MediaStream, error)
}

const elevenLabsBaseURL = "https://api.elevenlabs.io/v1/text-to-speech"

type elevenLabsSynthesizer struct {
	apiKey     string
	voiceID    string
	httpClient *http.Client
}

func NewElevenLabsSynthesizer(cfg config.SpeechConfig) Synthesizer {
	return &elevenLabsSynthesizer{
		apiKey:  cfg.ElevenLabsAPIKey,
		voiceID: cfg.VoiceID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type elevenLabsRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

func (s *elevenLabsSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("elevenlabs api key not configured")
	}

	payload := elevenLabsRequest{
		Text:    text,
		ModelID: "eleven_monolingual_v1",
		VoiceSettings: elevenLabsVoiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tts request: %w", err)
	}

	url := fmt.Sprintf("%s/%s", elevenLabsBaseURL, s.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create tts request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tts request failed with status %d: %s", resp.StatusCode, string(snippet))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read tts audio: %w", err)
	}

	if len(audio) == 0 {
		return nil, fmt.Errorf("tts returned empty audio")
	}

	return audio, nil
}

// RemoteAudioSink hands audio to a remote player (the candidate's browser)
// and blocks until the player reports playback finished. TakeAudio is polled
// by the transport layer; PlaybackDone is invoked when the remote side
// reports the clip ended.
type RemoteAudioSink struct {
	mu      sync.Mutex
	pending []byte
	doneCh  chan struct{}
}

func NewRemoteAudioSink() *RemoteAudioSink {
	return &RemoteAudioSink{}
}

func (s *RemoteAudioSink) Play(ctx context.Context, audio []byte) error {
	s.mu.Lock()
	s.pending = audio
	done := make(chan struct{})
	s.doneCh = done
	s.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.mu.Lock()
		s.pending = nil
		s.doneCh = nil
		s.mu.Unlock()
		return ctx.Err()
	}
}

// TakeAudio returns the clip awaiting delivery, or nil. The clip is consumed;
// a second call returns nil until the next Play.
func (s *RemoteAudioSink) TakeAudio() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	audio := s.pending
	s.pending = nil
	return audio
}

// PlaybackDone unblocks the in-flight Play call, if any.
func (s *RemoteAudioSink) PlaybackDone() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doneCh != nil {
		close(s.doneCh)
		s.doneCh = nil
	}
	s.pending = nil
}

// PushCaptureSource is a CaptureSource fed by an external transport: the
// client posts transcript events and Push forwards them onto the stream.
// Events arriving while capture is not hot are dropped, matching a
// microphone that is simply not being listened to.
type PushCaptureSource struct {
	mu     sync.Mutex
	events chan TranscriptEvent
}

func NewPushCaptureSource() *PushCaptureSource {
	return &PushCaptureSource{}
}

func (c *PushCaptureSource) Start(ctx context.Context) (<-chan TranscriptEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.events != nil {
		return nil, fmt.Errorf("capture already started")
	}

	c.events = make(chan TranscriptEvent, 16)
	return c.events, nil
}

func (c *PushCaptureSource) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.events != nil {
		close(c.events)
		c.events = nil
	}
}

// Push feeds one transcript event into the active capture stream. Returns
// false if capture is not running or the stream buffer is full.
func (c *PushCaptureSource) Push(event TranscriptEvent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.events == nil {
		return false
	}

	select {
	case c.events <- event:
		return true
	default:
		return false
	}
}

// StaticMediaDevices reflects the grant decision the client made when it
// requested camera+microphone access on its side.
type StaticMediaDevices struct {
	Granted bool
}

type staticMediaStream struct{}

func (staticMediaStream) Stop() {}

func (d StaticMediaDevices) Acquire(ctx context.Context) (MediaStream, error) {
	if !d.Granted {
		return nil, fmt.Errorf("camera and microphone access denied")
	}
	return staticMediaStream{}, nil
}
