// Package resampler converts finished PCM clips between sample rates with a
// pure Go polyphase resampler. Synthesized sentences arrive at whatever rate
// the vendor produced and leave at the rate the session asked for.
package resampler

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"

	"github.com/edvora/minerva/pkg/audio/pcm"
)

// tailPad is fed through after the clip to flush the filter's latency.
const tailPad = 512

// Resample converts a 16-bit little-endian mono clip from src to dst. The
// result always spans exactly the clip's duration at the destination rate:
// round(samples * dstRate / srcRate) frames.
func Resample(clip []byte, src, dst pcm.Format) ([]byte, error) {
	if len(clip)%2 != 0 {
		return nil, fmt.Errorf("resampler: clip length %d is not sample aligned", len(clip))
	}
	if src == dst || len(clip) == 0 {
		return clip, nil
	}

	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(src.SampleRate()),
		OutputRate: float64(dst.SampleRate()),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("resampler: %w", err)
	}

	frames := len(clip) / 2
	input := make([]float64, frames+tailPad)
	for i := 0; i < frames; i++ {
		s := int16(clip[i*2]) | int16(clip[i*2+1])<<8
		input[i] = float64(s) / 32768.0
	}

	output, err := rs.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resampler: process: %w", err)
	}

	want := int(int64(frames) * int64(dst.SampleRate()) / int64(src.SampleRate()))
	out := make([]byte, want*2)
	for i := 0; i < want && i < len(output); i++ {
		s := output[i]
		var sample int16
		switch {
		case s >= 1.0:
			sample = 32767
		case s <= -1.0:
			sample = -32768
		default:
			sample = int16(s * 32767.0)
		}
		out[i*2] = byte(sample)
		out[i*2+1] = byte(sample >> 8)
	}
	return out, nil
}
