package tutor

import (
	"bytes"
	"context"
	"io"
	"path"
	"strings"
)

// TurnAudio is one synthesized unit kept for archival.
type TurnAudio struct {
	Text  string
	Audio []byte
}

// FileStore persists turn artifacts. Implementations stream the reader.
type FileStore interface {
	Put(ctx context.Context, key string, r io.Reader) error
}

// Archiver uploads a turn's audio and transcript off the hot path.
type Archiver struct {
	files FileStore
	bg    *Background
}

func NewArchiver(files FileStore, bg *Background) *Archiver {
	return &Archiver{files: files, bg: bg}
}

// Archive queues one turn's artifacts for upload. A nil file store makes
// this a no-op.
func (a *Archiver) Archive(sessionID, turnID string, clips []TurnAudio) {
	if a == nil || a.files == nil || len(clips) == 0 {
		return
	}
	a.bg.Submit("archive", func(ctx context.Context) error {
		prefix := path.Join("sessions", sessionID, "turns", turnID)

		var audio bytes.Buffer
		var transcript strings.Builder
		for _, c := range clips {
			audio.Write(c.Audio)
			transcript.WriteString(c.Text)
			transcript.WriteString("\n")
		}
		if audio.Len() > 0 {
			if err := a.files.Put(ctx, path.Join(prefix, "audio.pcm"), &audio); err != nil {
				return err
			}
		}
		return a.files.Put(ctx, path.Join(prefix, "transcript.txt"), strings.NewReader(transcript.String()))
	})
}
