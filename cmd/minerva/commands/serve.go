package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/edvora/minerva/cmd/minerva/internal/config"
	"github.com/edvora/minerva/pkg/agents"
	"github.com/edvora/minerva/pkg/cli"
	"github.com/edvora/minerva/pkg/gateway"
	"github.com/edvora/minerva/pkg/kv"
	"github.com/edvora/minerva/pkg/llm"
	"github.com/edvora/minerva/pkg/storage"
	"github.com/edvora/minerva/pkg/store"
	"github.com/edvora/minerva/pkg/tutor"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the tutoring gateway",
	Long: `Run the tutoring gateway.

Serves the turn API (SSE and WebSocket), session and lesson management,
and mastery reports. Providers come from the config file or from the
OPENAI_API_KEY, GEMINI_API_KEY and MINIMAX_API_KEY environment variables.

Examples:
  minerva serve
  minerva serve --listen :9000 --data memory://
  minerva serve --personas personas.yaml --lessons ./lessons
  minerva serve --archive-dir /var/lib/minerva/archive`,
	RunE: runServe,
}

var (
	flagListen         string
	flagData           string
	flagPersonas       string
	flagRules          string
	flagLessons        string
	flagArchiveDir     string
	flagRouterModel    string
	flagValidatorModel string
)

func init() {
	serveCmd.Flags().StringVar(&flagListen, "listen", "", "bind address (default :8080)")
	serveCmd.Flags().StringVar(&flagData, "data", "", "kv store URL: badger://<dir> or memory://")
	serveCmd.Flags().StringVar(&flagPersonas, "personas", "", "personas YAML file (default: built-in roster)")
	serveCmd.Flags().StringVar(&flagRules, "rules", "", "directive rules YAML file")
	serveCmd.Flags().StringVar(&flagLessons, "lessons", "", "directory of lesson files seeded at startup")
	serveCmd.Flags().StringVar(&flagArchiveDir, "archive-dir", "", "archive turn artifacts to a local directory")
	serveCmd.Flags().StringVar(&flagRouterModel, "router-model", "", "model for routing decisions")
	serveCmd.Flags().StringVar(&flagValidatorModel, "validator-model", "", "model for answer verification")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if IsVerbose() {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	applyServeFlags(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("serve: shutting down")
		cancel()
	}()

	names, err := cfg.Register(ctx)
	if err != nil {
		return fmt.Errorf("register providers: %w", err)
	}
	if len(names) == 0 {
		slog.Warn("serve: no generation models configured; turns will fail until a provider key is set")
	} else {
		slog.Info("serve: models registered", "models", names)
	}

	db, err := kv.Open(cfg.Data)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()
	st := store.New(db)

	registry, err := buildRegistry(cfg.Personas)
	if err != nil {
		return err
	}
	slog.Info("serve: agents ready", "agents", registry.Names())

	opts, err := engineOptions(cfg)
	if err != nil {
		return err
	}
	engine := tutor.NewEngine(st, registry, opts...)
	defer engine.Close()

	if cfg.Lessons != "" {
		n, err := loadLessons(ctx, st, cfg.Lessons)
		if err != nil {
			return fmt.Errorf("seed lessons: %w", err)
		}
		slog.Info("serve: lessons seeded", "count", n, "dir", cfg.Lessons)
	}

	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: gateway.NewServer(engine, st, nil).Handler(),
	}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			slog.Error("serve: shutdown", "err", err)
		}
	}()

	slog.Info("serve: listening", "addr", cfg.Listen, "data", cfg.Data)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve: %w", err)
	}
	slog.Info("serve: stopped")
	return nil
}

// applyServeFlags lets command flags win over the config file.
func applyServeFlags(cfg *config.Config) {
	if flagListen != "" {
		cfg.Listen = flagListen
	}
	if flagData != "" {
		cfg.Data = flagData
	}
	if flagPersonas != "" {
		cfg.Personas = flagPersonas
	}
	if flagRules != "" {
		cfg.Rules = flagRules
	}
	if flagLessons != "" {
		cfg.Lessons = flagLessons
	}
	if flagArchiveDir != "" {
		cfg.Archive = config.Archive{Dir: flagArchiveDir}
	}
	if flagRouterModel != "" {
		cfg.RouterModel = flagRouterModel
	}
	if flagValidatorModel != "" {
		cfg.ValidatorModel = flagValidatorModel
	}
}

func buildRegistry(path string) (*agents.Registry, error) {
	personas := agents.DefaultPersonas()
	if path != "" {
		var err error
		personas, err = agents.LoadPersonas(path)
		if err != nil {
			return nil, fmt.Errorf("load personas: %w", err)
		}
	}
	registry, err := agents.FromPersonas(personas, llm.DefaultMux)
	if err != nil {
		return nil, fmt.Errorf("build agents: %w", err)
	}
	return registry, nil
}

func engineOptions(cfg *config.Config) ([]tutor.EngineOption, error) {
	rules := tutor.DefaultRules()
	if cfg.Rules != "" {
		var err error
		rules, err = tutor.LoadRules(cfg.Rules)
		if err != nil {
			return nil, fmt.Errorf("load rules: %w", err)
		}
	}
	opts := []tutor.EngineOption{tutor.WithRules(rules)}

	if cfg.RouterModel != "" {
		opts = append(opts, tutor.WithRouterModel(cfg.RouterModel))
	}
	if cfg.ValidatorModel != "" {
		opts = append(opts, tutor.WithValidatorModel(cfg.ValidatorModel))
	}

	files, err := archiveStore(cfg.Archive)
	if err != nil {
		return nil, err
	}
	if files != nil {
		opts = append(opts, tutor.WithArchive(files))
	}
	return opts, nil
}

// archiveStore builds the turn artifact store. S3 wins over Dir when
// both are set; neither means archiving stays off.
func archiveStore(cfg config.Archive) (tutor.FileStore, error) {
	if cfg.S3 != nil {
		if cfg.S3.Bucket == "" {
			return nil, fmt.Errorf("archive: s3 bucket is required")
		}
		return storage.NewS3(newS3Client(cfg.S3), cfg.S3.Bucket, cfg.S3.Prefix), nil
	}
	if cfg.Dir != "" {
		return storage.NewLocal(cfg.Dir)
	}
	return nil, nil
}

// newS3Client builds a client from static file credentials. There is no
// shared aws config chain here: keys come from the archive section, and
// a keyless target gets unsigned requests.
func newS3Client(cfg *config.S3) *s3.Client {
	opts := s3.Options{Region: cfg.Region}
	if opts.Region == "" {
		opts.Region = "us-east-1"
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}
	if cfg.AccessKey != "" {
		key, secret := cfg.AccessKey, cfg.SecretKey
		opts.Credentials = aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{AccessKeyID: key, SecretAccessKey: secret}, nil
		})
	} else {
		opts.Credentials = aws.AnonymousCredentials{}
	}
	return s3.New(opts)
}

// loadLessons seeds the lesson store from every YAML or JSON file in dir.
// A file without an id takes its filename stem.
func loadLessons(ctx context.Context, st *store.Store, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read lessons dir: %w", err)
	}

	n := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" && ext != ".json" {
			continue
		}

		var lesson store.Lesson
		if err := cli.LoadFile(filepath.Join(dir, e.Name()), &lesson); err != nil {
			return n, fmt.Errorf("lesson %s: %w", e.Name(), err)
		}
		if lesson.ID == "" {
			lesson.ID = strings.TrimSuffix(e.Name(), ext)
		}
		if lesson.Title == "" {
			return n, fmt.Errorf("lesson %s: title is required", e.Name())
		}
		if err := st.PutLesson(ctx, &lesson); err != nil {
			return n, fmt.Errorf("lesson %s: %w", e.Name(), err)
		}
		n++
	}
	return n, nil
}
