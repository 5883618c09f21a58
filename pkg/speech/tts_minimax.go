package speech

import (
	"bytes"
	"context"
	"strings"

	"github.com/edvora/minerva/pkg/audio/pcm"
	"github.com/edvora/minerva/pkg/minimax"
)

// MinimaxTTS synthesizes clips with the MiniMax t2a API. Voice names look
// like "minimax/<voice-id>"; a bare "minimax" uses the configured default
// voice.
type MinimaxTTS struct {
	client  *minimax.Client
	model   string
	voiceID string
	speed   float64
	vol     float64
	pitch   int
	emotion string
	format  pcm.Format
}

var _ Synthesizer = (*MinimaxTTS)(nil)

// MinimaxTTSOption configures MinimaxTTS.
type MinimaxTTSOption func(*MinimaxTTS)

// WithMinimaxModel sets the speech model.
func WithMinimaxModel(model string) MinimaxTTSOption {
	return func(h *MinimaxTTS) { h.model = model }
}

// WithMinimaxVoice sets the default voice ID.
func WithMinimaxVoice(voiceID string) MinimaxTTSOption {
	return func(h *MinimaxTTS) { h.voiceID = voiceID }
}

// WithMinimaxSpeed sets speech speed, 0.5 to 2.0.
func WithMinimaxSpeed(speed float64) MinimaxTTSOption {
	return func(h *MinimaxTTS) { h.speed = speed }
}

// WithMinimaxVolume sets volume, 0 to 10.
func WithMinimaxVolume(vol float64) MinimaxTTSOption {
	return func(h *MinimaxTTS) { h.vol = vol }
}

// WithMinimaxPitch sets pitch, -12 to 12.
func WithMinimaxPitch(pitch int) MinimaxTTSOption {
	return func(h *MinimaxTTS) { h.pitch = pitch }
}

// WithMinimaxEmotion sets the emotion.
func WithMinimaxEmotion(emotion string) MinimaxTTSOption {
	return func(h *MinimaxTTS) { h.emotion = emotion }
}

// WithMinimaxFormat sets the PCM output format.
func WithMinimaxFormat(format pcm.Format) MinimaxTTSOption {
	return func(h *MinimaxTTS) { h.format = format }
}

// NewMinimaxTTS creates a MiniMax synthesizer.
func NewMinimaxTTS(client *minimax.Client, opts ...MinimaxTTSOption) *MinimaxTTS {
	h := &MinimaxTTS{
		client:  client,
		model:   minimax.ModelSpeech02Turbo,
		voiceID: minimax.VoiceFriendlyPerson,
		speed:   1.0,
		vol:     1.0,
		format:  pcm.L16Mono32K,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Synthesize renders one sentence as a PCM clip.
func (h *MinimaxTTS) Synthesize(ctx context.Context, voice string, text string) (*Clip, error) {
	voiceID := h.voiceID
	if _, v, ok := strings.Cut(voice, "/"); ok && v != "" {
		voiceID = v
	}

	req := &minimax.SpeechRequest{
		Model: h.model,
		Text:  text,
		VoiceSetting: &minimax.VoiceSetting{
			VoiceID: voiceID,
			Speed:   h.speed,
			Vol:     h.vol,
			Pitch:   h.pitch,
			Emotion: h.emotion,
		},
		AudioSetting: &minimax.AudioSetting{
			SampleRate: h.format.SampleRate(),
			Format:     minimax.FormatPCM,
			Channel:    h.format.Channels(),
		},
	}

	var audio bytes.Buffer
	for chunk, err := range h.client.Speech.SynthesizeStream(ctx, req) {
		if err != nil {
			return nil, err
		}
		if chunk.Audio != nil {
			audio.Write(chunk.Audio)
		}
	}
	return &Clip{
		Text:   text,
		Audio:  audio.Bytes(),
		Format: h.format,
	}, nil
}
