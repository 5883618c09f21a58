package commands

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/edvora/minerva/cmd/minerva/internal/config"
	"github.com/edvora/minerva/pkg/kv"
	"github.com/edvora/minerva/pkg/storage"
	"github.com/edvora/minerva/pkg/store"
)

func writeLessonFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadLessons(t *testing.T) {
	dir := t.TempDir()
	writeLessonFile(t, dir, "multiplication-01.yaml", `
title: Meet Multiplication
subject: math
opening_message: Welcome back!
sections:
  - title: Groups
    content: Multiplication is repeated addition.
    practice: What is 3 groups of 4?
`)
	writeLessonFile(t, dir, "fractions.json", `{"id": "fractions-custom", "title": "Fractions"}`)
	writeLessonFile(t, dir, "notes.txt", "not a lesson")

	st := store.New(kv.NewMemory())
	ctx := context.Background()

	n, err := loadLessons(ctx, st, dir)
	if err != nil {
		t.Fatalf("loadLessons: %v", err)
	}
	if n != 2 {
		t.Fatalf("seeded %d lessons, want 2", n)
	}

	// The filename stem becomes the id when the file has none.
	lesson, err := st.GetLesson(ctx, "multiplication-01")
	if err != nil {
		t.Fatalf("GetLesson: %v", err)
	}
	if lesson.Title != "Meet Multiplication" {
		t.Errorf("Title = %q", lesson.Title)
	}
	if lesson.OpeningMessage != "Welcome back!" {
		t.Errorf("OpeningMessage = %q", lesson.OpeningMessage)
	}
	if len(lesson.Sections) != 1 || lesson.Sections[0].Practice == "" {
		t.Errorf("Sections = %+v", lesson.Sections)
	}

	// An explicit id wins over the filename.
	custom, err := st.GetLesson(ctx, "fractions-custom")
	if err != nil {
		t.Fatalf("GetLesson custom id: %v", err)
	}
	if custom.Title != "Fractions" {
		t.Errorf("Title = %q", custom.Title)
	}
}

func TestLoadLessonsMissingTitle(t *testing.T) {
	dir := t.TempDir()
	writeLessonFile(t, dir, "bad.yaml", "subject: math\n")

	st := store.New(kv.NewMemory())
	_, err := loadLessons(context.Background(), st, dir)
	if err == nil {
		t.Fatal("expected error for lesson without a title")
	}
	if !strings.Contains(err.Error(), "title") {
		t.Errorf("err = %v, want mention of title", err)
	}
}

func TestLoadLessonsBadDir(t *testing.T) {
	st := store.New(kv.NewMemory())
	if _, err := loadLessons(context.Background(), st, "/no/such/dir"); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestArchiveStore(t *testing.T) {
	fs, err := archiveStore(config.Archive{})
	if err != nil {
		t.Fatalf("archiveStore off: %v", err)
	}
	if fs != nil {
		t.Fatalf("fs = %v, want nil when archiving is off", fs)
	}

	fs, err = archiveStore(config.Archive{Dir: filepath.Join(t.TempDir(), "archive")})
	if err != nil {
		t.Fatalf("archiveStore dir: %v", err)
	}
	if _, ok := fs.(*storage.Local); !ok {
		t.Fatalf("fs = %T, want *storage.Local", fs)
	}

	if _, err := archiveStore(config.Archive{S3: &config.S3{}}); err == nil {
		t.Fatal("expected error for s3 target without a bucket")
	}

	fs, err = archiveStore(config.Archive{S3: &config.S3{
		Bucket:    "tutor-archive",
		Endpoint:  "http://localhost:9000",
		AccessKey: "minio",
		SecretKey: "minio123",
	}})
	if err != nil {
		t.Fatalf("archiveStore s3: %v", err)
	}
	if _, ok := fs.(*storage.S3); !ok {
		t.Fatalf("fs = %T, want *storage.S3", fs)
	}
}

func TestApplyServeFlags(t *testing.T) {
	cfg := &config.Config{
		Listen:  ":8080",
		Data:    "memory://",
		Archive: config.Archive{S3: &config.S3{Bucket: "b"}},
	}

	flagListen = ":9999"
	flagArchiveDir = "/tmp/archive"
	defer func() {
		flagListen = ""
		flagArchiveDir = ""
	}()

	applyServeFlags(cfg)

	if cfg.Listen != ":9999" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.Data != "memory://" {
		t.Errorf("Data = %q, untouched fields keep config values", cfg.Data)
	}
	if cfg.Archive.S3 != nil {
		t.Error("archive-dir flag should replace the s3 target")
	}
	if cfg.Archive.Dir != "/tmp/archive" {
		t.Errorf("Archive.Dir = %q", cfg.Archive.Dir)
	}
}

func TestBuildRegistryDefaults(t *testing.T) {
	registry, err := buildRegistry("")
	if err != nil {
		t.Fatalf("buildRegistry: %v", err)
	}
	if registry.Len() == 0 {
		t.Fatal("default roster is empty")
	}
}

func TestBuildRegistryMissingFile(t *testing.T) {
	if _, err := buildRegistry("/no/such/personas.yaml"); err == nil {
		t.Fatal("expected error for missing personas file")
	}
}
