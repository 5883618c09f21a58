// Package audio provides audio processing utilities.
//
// This package serves as an umbrella for audio-related sub-packages:
//
//   - pcm: PCM (Pulse Code Modulation) audio format handling
//   - resampler: sample rate conversion between PCM formats
//
// Example usage:
//
//	import "github.com/edvora/minerva/pkg/audio/pcm"
//
//	// Work with PCM format
//	format := pcm.L16Mono16K
//	chunk := format.DataChunk(audioData)
package audio
