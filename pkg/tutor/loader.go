package tutor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/edvora/minerva/pkg/kv"
	"github.com/edvora/minerva/pkg/mastery"
	"github.com/edvora/minerva/pkg/store"
)

// TurnContext is everything a turn needs from storage, loaded up front.
type TurnContext struct {
	Session    *store.Session
	Profile    *store.Profile           // nil when absent
	Lesson     *store.Lesson            // nil when absent
	Mastery    *mastery.Report          // nil when unavailable
	Correction *store.PendingCorrection // nil when none pending
}

// Loader fetches turn context. The session is required; everything else
// degrades to nil with a log line.
type Loader struct {
	store    *store.Store
	recorder *mastery.Recorder
}

func NewLoader(st *store.Store, rec *mastery.Recorder) *Loader {
	return &Loader{store: st, recorder: rec}
}

func (l *Loader) Load(ctx context.Context, req TurnRequest) (*TurnContext, error) {
	session, err := l.store.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("tutor: load session: %w", err)
	}
	lessonID := session.LessonID
	if lessonID == "" {
		lessonID = req.LessonID
	}

	tctx := &TurnContext{Session: session}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := l.store.GetProfile(gctx, req.UserID)
		if err != nil {
			if !errors.Is(err, kv.ErrNotFound) {
				slog.Warn("tutor: load profile", "user", req.UserID, "err", err)
			}
			return nil
		}
		tctx.Profile = p
		return nil
	})
	g.Go(func() error {
		if lessonID == "" {
			return nil
		}
		lesson, err := l.store.GetLesson(gctx, lessonID)
		if err != nil {
			if !errors.Is(err, kv.ErrNotFound) {
				slog.Warn("tutor: load lesson", "lesson", lessonID, "err", err)
			}
			return nil
		}
		tctx.Lesson = lesson
		return nil
	})
	g.Go(func() error {
		if l.recorder == nil || lessonID == "" {
			return nil
		}
		rep, err := l.recorder.Report(gctx, req.UserID, lessonID)
		if err != nil {
			slog.Warn("tutor: load mastery", "user", req.UserID, "err", err)
			return nil
		}
		tctx.Mastery = rep
		return nil
	})
	g.Go(func() error {
		c, err := l.store.NextPending(gctx, req.SessionID)
		if err != nil {
			slog.Warn("tutor: load pending correction", "session", req.SessionID, "err", err)
			return nil
		}
		tctx.Correction = c
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("tutor: load context: %w", err)
	}
	return tctx, nil
}
