package tutor

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/edvora/minerva/pkg/audio/pcm"
	"github.com/edvora/minerva/pkg/audio/resampler"
	"github.com/edvora/minerva/pkg/speech"
)

// DeliveryFormat is what clients receive regardless of provider output.
const DeliveryFormat = pcm.L16Mono16K

const (
	defaultSynthWorkers = 4
	fallbackBatchSize   = 6
)

type synthUnit struct {
	index int
	text  string
	done  chan struct{}
	audio []byte // nil when synthesis failed
}

// Pipeline synthesizes sentence units concurrently and emits them in
// submission order. One pipeline serves one turn.
type Pipeline struct {
	tts   speech.Synthesizer
	voice string
	sem   chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	units []*synthUnit
}

// NewPipeline creates a pipeline for one turn's audio. Synthesis stops when
// ctx is canceled or Abandon is called.
func NewPipeline(ctx context.Context, tts speech.Synthesizer, voice string, workers int) *Pipeline {
	if workers <= 0 {
		workers = defaultSynthWorkers
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Pipeline{
		tts:    tts,
		voice:  voice,
		sem:    make(chan struct{}, workers),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Submit queues one sentence and starts synthesizing it. Oversized text is
// split into bounded chunks, each its own unit.
func (p *Pipeline) Submit(text string) {
	for _, chunk := range splitChunks(text, speech.DefaultMaxSentenceRunes) {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		p.mu.Lock()
		u := &synthUnit{index: len(p.units), text: chunk, done: make(chan struct{})}
		p.units = append(p.units, u)
		p.mu.Unlock()
		go p.synthesize(u)
	}
}

func (p *Pipeline) synthesize(u *synthUnit) {
	defer close(u.done)
	select {
	case p.sem <- struct{}{}:
		defer func() { <-p.sem }()
	case <-p.ctx.Done():
		return
	}
	audio, err := synthesizeUnit(p.ctx, p.tts, p.voice, u.text)
	if err != nil {
		slog.Warn("synthesis: unit failed", "index", u.index, "err", err)
		return
	}
	u.audio = audio
}

// synthesizeUnit runs one provider call and converts the clip to the
// delivery format.
func synthesizeUnit(ctx context.Context, tts speech.Synthesizer, voice, text string) ([]byte, error) {
	clip, err := tts.Synthesize(ctx, voice, text)
	if err != nil {
		return nil, err
	}
	audio := clip.Audio
	if clip.Format != DeliveryFormat {
		audio, err = resampler.Resample(audio, clip.Format, DeliveryFormat)
		if err != nil {
			return nil, err
		}
	}
	return audio, nil
}

// Flush emits one audio event per unit in strict index order, waiting for
// each slot. A failed unit goes out with a nil payload; the turn keeps
// going.
func (p *Pipeline) Flush(emit func(Event) bool) int {
	for i := 0; ; i++ {
		p.mu.Lock()
		if i >= len(p.units) {
			p.mu.Unlock()
			return i
		}
		u := p.units[i]
		p.mu.Unlock()
		<-u.done
		emit(audioEvent(u.index, u.audio, u.text))
	}
}

// SynthesizeAll is the no-streaming path: fixed batches of concurrent
// calls, each batch emitted in order before the next starts.
func (p *Pipeline) SynthesizeAll(texts []string, emit func(Event) bool) int {
	clean := texts[:0:0]
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			clean = append(clean, t)
		}
	}

	emitted := 0
	for start := 0; start < len(clean); start += fallbackBatchSize {
		end := min(start+fallbackBatchSize, len(clean))
		batch := make([]*synthUnit, 0, end-start)
		p.mu.Lock()
		for i := start; i < end; i++ {
			u := &synthUnit{index: i, text: clean[i], done: make(chan struct{})}
			p.units = append(p.units, u)
			batch = append(batch, u)
		}
		p.mu.Unlock()

		var wg sync.WaitGroup
		for _, u := range batch {
			wg.Add(1)
			go func(u *synthUnit) {
				defer wg.Done()
				defer close(u.done)
				audio, err := synthesizeUnit(p.ctx, p.tts, p.voice, u.text)
				if err != nil {
					slog.Warn("synthesis: unit failed", "index", u.index, "err", err)
					return
				}
				u.audio = audio
			}(u)
		}
		wg.Wait()

		for _, u := range batch {
			emit(audioEvent(u.index, u.audio, u.text))
			emitted++
		}
	}
	return emitted
}

// Abandon cancels in-flight synthesis and discards submitted units.
func (p *Pipeline) Abandon() {
	p.cancel()
	p.mu.Lock()
	p.units = nil
	p.mu.Unlock()
}

// Close releases the pipeline's context. Units stay readable.
func (p *Pipeline) Close() {
	p.cancel()
}

// Clips returns the units in emission order with their synthesized audio.
// Call after Flush or SynthesizeAll.
func (p *Pipeline) Clips() []TurnAudio {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]TurnAudio, 0, len(p.units))
	for _, u := range p.units {
		out = append(out, TurnAudio{Text: u.text, Audio: u.audio})
	}
	return out
}

// splitChunks bounds text to max runes per chunk, breaking at a space when
// one is close enough.
func splitChunks(text string, max int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= max {
		return []string{text}
	}
	var out []string
	for utf8.RuneCountInString(text) > max {
		cut := runeIndex(text, max)
		if sp := strings.LastIndexByte(text[:cut], ' '); sp > 0 {
			cut = sp + 1
		}
		out = append(out, text[:cut])
		text = text[cut:]
	}
	if strings.TrimSpace(text) != "" {
		out = append(out, text)
	}
	return out
}

// runeIndex returns the byte offset of rune number n, or len(s).
func runeIndex(s string, n int) int {
	count := 0
	for i := range s {
		if count == n {
			return i
		}
		count++
	}
	return len(s)
}
