package minimax

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"
)

// Audio formats accepted in AudioSetting.Format.
const (
	FormatMP3  = "mp3"
	FormatPCM  = "pcm"
	FormatFLAC = "flac"
	FormatWAV  = "wav"
)

// Speech models.
const (
	ModelSpeech02HD    = "speech-02-hd"
	ModelSpeech02Turbo = "speech-02-turbo"
)

// System voice IDs.
const (
	VoiceWiseWoman      = "Wise_Woman"
	VoiceFriendlyPerson = "Friendly_Person"
	VoicePatientMan     = "Patient_Man"
	VoiceCalmWoman      = "Calm_Woman"
	VoiceLivelyGirl     = "Lively_Girl"
)

// SpeechService provides speech synthesis operations.
type SpeechService struct {
	client *Client
}

// SpeechRequest is the request for speech synthesis. Text is limited to
// 10,000 characters by the API.
type SpeechRequest struct {
	Model string `json:"model" yaml:"model"`
	Text  string `json:"text" yaml:"text"`

	VoiceSetting *VoiceSetting `json:"voice_setting,omitempty" yaml:"voice_setting,omitempty"`
	AudioSetting *AudioSetting `json:"audio_setting,omitempty" yaml:"audio_setting,omitempty"`

	// LanguageBoost enhances pronunciation for a specific language.
	LanguageBoost string `json:"language_boost,omitempty" yaml:"language_boost,omitempty"`

	SubtitleEnable bool `json:"subtitle_enable,omitempty" yaml:"subtitle_enable,omitempty"`
}

// VoiceSetting selects and shapes the voice.
type VoiceSetting struct {
	VoiceID string `json:"voice_id" yaml:"voice_id"`

	// Speed is the speech speed, 0.5 to 2.0, default 1.0.
	Speed float64 `json:"speed,omitempty" yaml:"speed,omitempty"`

	// Vol is the volume, 0 to 10, default 1.0.
	Vol float64 `json:"vol,omitempty" yaml:"vol,omitempty"`

	// Pitch is the pitch adjustment, -12 to 12, default 0.
	Pitch int `json:"pitch,omitempty" yaml:"pitch,omitempty"`

	// Emotion is one of happy, sad, angry, fearful, disgusted, surprised,
	// neutral.
	Emotion string `json:"emotion,omitempty" yaml:"emotion,omitempty"`
}

// AudioSetting shapes the audio encoding.
type AudioSetting struct {
	// SampleRate is one of 8000, 16000, 22050, 24000, 32000, 44100.
	SampleRate int `json:"sample_rate,omitempty" yaml:"sample_rate,omitempty"`

	// Bitrate is one of 32000, 64000, 128000, 256000.
	Bitrate int `json:"bitrate,omitempty" yaml:"bitrate,omitempty"`

	Format string `json:"format,omitempty" yaml:"format,omitempty"`

	// Channel is 1 or 2.
	Channel int `json:"channel,omitempty" yaml:"channel,omitempty"`
}

// AudioInfo is audio metadata attached to responses.
type AudioInfo struct {
	// AudioLength is the duration in milliseconds.
	AudioLength int `json:"audio_length"`

	AudioSampleRate int    `json:"audio_sample_rate"`
	AudioSize       int    `json:"audio_size"`
	Bitrate         int    `json:"bitrate"`
	WordCount       int    `json:"word_count"`
	UsageCharacters int    `json:"usage_characters"`
	AudioFormat     string `json:"audio_format"`
	AudioChannel    int    `json:"audio_channel"`
}

// SubtitleSegment is one timed caption span.
type SubtitleSegment struct {
	StartTime int    `json:"start_time"` // milliseconds
	EndTime   int    `json:"end_time"`   // milliseconds
	Text      string `json:"text"`
}

// SpeechResponse is the response from synchronous synthesis.
type SpeechResponse struct {
	// Audio is the decoded audio clip.
	Audio []byte

	ExtraInfo *AudioInfo
	TraceID   string
}

// SpeechChunk is one increment of streaming synthesis.
type SpeechChunk struct {
	// Audio is the decoded audio data, nil on metadata-only chunks.
	Audio []byte

	// Status is 1 while generating, 2 on the final summary chunk.
	Status int

	Subtitle  *SubtitleSegment
	ExtraInfo *AudioInfo
	TraceID   string
}

type speechData struct {
	Audio  string `json:"audio"` // hex encoded
	Status int    `json:"status"`
}

type speechResponse struct {
	Data      speechData       `json:"data"`
	ExtraInfo *AudioInfo       `json:"extra_info,omitempty"`
	Subtitle  *SubtitleSegment `json:"subtitle,omitempty"`
	TraceID   string           `json:"trace_id,omitempty"`
	BaseResp  *baseResp        `json:"base_resp,omitempty"`
}

// Synthesize renders req.Text to a single audio clip.
func (s *SpeechService) Synthesize(ctx context.Context, req *SpeechRequest) (*SpeechResponse, error) {
	var apiResp speechResponse
	if err := s.client.http.request(ctx, "POST", "/v1/t2a_v2", req, &apiResp); err != nil {
		return nil, err
	}
	resp := &SpeechResponse{
		ExtraInfo: apiResp.ExtraInfo,
		TraceID:   apiResp.TraceID,
	}
	if apiResp.Data.Audio != "" {
		audio, err := decodeHexAudio(apiResp.Data.Audio)
		if err != nil {
			return nil, fmt.Errorf("minimax: decode audio: %w", err)
		}
		resp.Audio = audio
	}
	return resp, nil
}

// SynthesizeStream renders req.Text as a stream of audio chunks. The
// connection closes when iteration completes or breaks.
func (s *SpeechService) SynthesizeStream(ctx context.Context, req *SpeechRequest) iter.Seq2[*SpeechChunk, error] {
	return func(yield func(*SpeechChunk, error) bool) {
		streamReq := struct {
			*SpeechRequest
			Stream bool `json:"stream"`
		}{SpeechRequest: req, Stream: true}

		resp, err := s.client.http.requestStream(ctx, "POST", "/v1/t2a_v2", streamReq)
		if err != nil {
			yield(nil, err)
			return
		}

		// Some proxies answer the stream flag with a plain JSON body.
		if !strings.Contains(resp.Header.Get("Content-Type"), "event-stream") {
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				yield(nil, fmt.Errorf("minimax: read response: %w", err))
				return
			}
			var jsonResp speechResponse
			if err := json.Unmarshal(body, &jsonResp); err != nil {
				yield(nil, fmt.Errorf("minimax: unmarshal response: %w", err))
				return
			}
			if jsonResp.BaseResp != nil && jsonResp.BaseResp.StatusCode != 0 {
				yield(nil, &Error{
					StatusCode: jsonResp.BaseResp.StatusCode,
					StatusMsg:  jsonResp.BaseResp.StatusMsg,
					TraceID:    jsonResp.TraceID,
				})
				return
			}
			if jsonResp.Data.Audio != "" {
				audio, err := decodeHexAudio(jsonResp.Data.Audio)
				if err != nil {
					yield(nil, fmt.Errorf("minimax: decode audio: %w", err))
					return
				}
				yield(&SpeechChunk{
					Audio:     audio,
					ExtraInfo: jsonResp.ExtraInfo,
					TraceID:   jsonResp.TraceID,
				}, nil)
			}
			return
		}

		reader := newSSEReader(resp)
		defer reader.close()

		events := 0
		for {
			data, done, err := reader.readEvent()
			if err != nil {
				yield(nil, err)
				return
			}
			if done {
				slog.Debug("minimax: speech stream done", "events", events)
				return
			}
			events++

			var streamResp speechResponse
			if err := json.Unmarshal(data, &streamResp); err != nil {
				yield(nil, fmt.Errorf("minimax: unmarshal event: %w", err))
				return
			}
			if streamResp.BaseResp != nil && streamResp.BaseResp.StatusCode != 0 {
				yield(nil, &Error{
					StatusCode: streamResp.BaseResp.StatusCode,
					StatusMsg:  streamResp.BaseResp.StatusMsg,
					TraceID:    streamResp.TraceID,
				})
				return
			}

			chunk := &SpeechChunk{
				Status:    streamResp.Data.Status,
				Subtitle:  streamResp.Subtitle,
				ExtraInfo: streamResp.ExtraInfo,
				TraceID:   streamResp.TraceID,
			}
			// The status=2 chunk repeats the whole clip; skip its audio to
			// avoid doubling the output.
			if streamResp.Data.Audio != "" && streamResp.Data.Status != 2 {
				audio, err := decodeHexAudio(streamResp.Data.Audio)
				if err != nil {
					yield(nil, fmt.Errorf("minimax: decode audio: %w", err))
					return
				}
				chunk.Audio = audio
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}
