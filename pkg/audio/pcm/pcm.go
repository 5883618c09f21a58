// Package pcm describes the linear PCM formats flowing through the audio
// pipeline. Everything is 16-bit little-endian mono; formats differ only in
// sample rate.
package pcm

import "time"

const (
	// L16Mono16K is audio/L16; rate=16000; channels=1
	L16Mono16K Format = iota
	// L16Mono22K05 is audio/L16; rate=22050; channels=1
	L16Mono22K05
	// L16Mono24K is audio/L16; rate=24000; channels=1
	L16Mono24K
	// L16Mono32K is audio/L16; rate=32000; channels=1
	L16Mono32K
	// L16Mono44K1 is audio/L16; rate=44100; channels=1
	L16Mono44K1
	// L16Mono48K is audio/L16; rate=48000; channels=1
	L16Mono48K
)

// Format is a linear PCM format.
type Format int

// ForRate returns the format with the given sample rate.
func ForRate(hz int) (Format, bool) {
	switch hz {
	case 16000:
		return L16Mono16K, true
	case 22050:
		return L16Mono22K05, true
	case 24000:
		return L16Mono24K, true
	case 32000:
		return L16Mono32K, true
	case 44100:
		return L16Mono44K1, true
	case 48000:
		return L16Mono48K, true
	}
	return 0, false
}

// SampleRate returns the sample rate in Hz.
func (f Format) SampleRate() int {
	switch f {
	case L16Mono16K:
		return 16000
	case L16Mono22K05:
		return 22050
	case L16Mono24K:
		return 24000
	case L16Mono32K:
		return 32000
	case L16Mono44K1:
		return 44100
	case L16Mono48K:
		return 48000
	}
	panic("pcm: invalid format")
}

// Channels returns the number of channels.
func (f Format) Channels() int { return 1 }

// Depth returns the bit depth.
func (f Format) Depth() int { return 16 }

// BytesRate returns the byte rate of audio in this format.
func (f Format) BytesRate() int {
	return f.SampleRate() * f.Channels() * f.Depth() / 8
}

// Samples returns the number of samples in the given number of bytes.
func (f Format) Samples(bytes int64) int64 {
	return bytes * 8 / int64(f.Channels()) / int64(f.Depth())
}

// BytesInDuration returns the number of bytes spanning d.
func (f Format) BytesInDuration(d time.Duration) int64 {
	samples := int64(time.Duration(f.SampleRate()) * d / time.Second)
	return samples * int64(f.Channels()) * int64(f.Depth()) / 8
}

// Duration returns the play time of the given number of bytes.
func (f Format) Duration(bytes int64) time.Duration {
	return time.Duration(f.Samples(bytes)) * time.Second / time.Duration(f.SampleRate())
}

// String returns the MIME-style description of the format.
func (f Format) String() string {
	switch f {
	case L16Mono16K:
		return "audio/L16; rate=16000; channels=1"
	case L16Mono22K05:
		return "audio/L16; rate=22050; channels=1"
	case L16Mono24K:
		return "audio/L16; rate=24000; channels=1"
	case L16Mono32K:
		return "audio/L16; rate=32000; channels=1"
	case L16Mono44K1:
		return "audio/L16; rate=44100; channels=1"
	case L16Mono48K:
		return "audio/L16; rate=48000; channels=1"
	}
	panic("pcm: invalid format")
}
