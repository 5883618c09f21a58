// Package speech turns sentences of tutoring responses into audio clips.
// Synthesizers register on a voice-name mux ("minimax/Friendly_Person",
// "openai/nova"), and a streaming sentence segmenter cuts model output into
// clip-sized pieces as it arrives.
package speech

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/edvora/minerva/pkg/audio/pcm"
	"github.com/edvora/minerva/pkg/trie"
)

// Clip is one synthesized sentence.
type Clip struct {
	// Text is the sentence that was spoken.
	Text string

	// Audio is 16-bit little-endian mono PCM in Format.
	Audio []byte

	Format pcm.Format
}

// Duration returns the clip's play time.
func (c *Clip) Duration() time.Duration {
	return c.Format.Duration(int64(len(c.Audio)))
}

// Synthesizer renders one sentence of text as audio. The voice name is the
// full mux path, so a handler registered under a wildcard can read the
// concrete voice out of it.
type Synthesizer interface {
	Synthesize(ctx context.Context, voice string, text string) (*Clip, error)
}

// SynthesizeFunc implements Synthesizer.
type SynthesizeFunc func(ctx context.Context, voice string, text string) (*Clip, error)

func (f SynthesizeFunc) Synthesize(ctx context.Context, voice string, text string) (*Clip, error) {
	return f(ctx, voice, text)
}

// TTS is a multiplexer of synthesizers keyed by voice name.
type TTS struct {
	mux *trie.Trie[Synthesizer]
}

var _ Synthesizer = (*TTS)(nil)

// NewTTSMux creates an empty TTS multiplexer.
func NewTTSMux() *TTS {
	return &TTS{mux: trie.New[Synthesizer]()}
}

// Handle registers a synthesizer under a voice name pattern. Registering the
// same pattern again replaces the previous synthesizer.
func (r *TTS) Handle(pattern string, synthesizer Synthesizer) error {
	replaced, err := r.mux.Put(pattern, synthesizer)
	if err != nil {
		return fmt.Errorf("tts: handle %s: %w", pattern, err)
	}
	if replaced {
		slog.Warn("tts: synthesizer already registered", "name", pattern)
	}
	return nil
}

// HandleFunc registers a synthesizer function under a voice name pattern.
func (r *TTS) HandleFunc(pattern string, f SynthesizeFunc) error {
	return r.Handle(pattern, f)
}

// Synthesize renders text with the synthesizer registered for voice.
func (r *TTS) Synthesize(ctx context.Context, voice string, text string) (*Clip, error) {
	syn, ok := r.mux.Get(voice)
	if !ok || syn == nil {
		return nil, fmt.Errorf("tts: synthesizer not found for %s", voice)
	}
	return syn.Synthesize(ctx, voice, text)
}

// TTSMux is the default multiplexer.
var TTSMux = NewTTSMux()

// HandleTTS registers a synthesizer on the default mux.
func HandleTTS(pattern string, synthesizer Synthesizer) error {
	return TTSMux.Handle(pattern, synthesizer)
}

// HandleTTSFunc registers a synthesizer function on the default mux.
func HandleTTSFunc(pattern string, f SynthesizeFunc) error {
	return TTSMux.HandleFunc(pattern, f)
}

// Synthesize renders text via the default mux.
func Synthesize(ctx context.Context, voice string, text string) (*Clip, error) {
	return TTSMux.Synthesize(ctx, voice, text)
}
