// Package config loads the minerva configuration file and wires the
// configured providers into the default generation and synthesis muxes.
//
// Configuration is a single YAML file, ~/.minerva.yaml by default:
//
//	listen: :8080
//	data: badger:///var/lib/minerva/data
//	personas: /etc/minerva/personas.yaml
//	rules: /etc/minerva/rules.yaml
//	lessons: /etc/minerva/lessons
//	archive:
//	  s3:
//	    bucket: minerva-archive
//	    endpoint: http://localhost:9000
//	    access_key: $MINIO_ACCESS_KEY
//	    secret_key: $MINIO_SECRET_KEY
//	providers:
//	  openai:
//	    api_key: $OPENAI_API_KEY
//	  minimax:
//	    api_key: $MINIMAX_API_KEY
//
// Credential values starting with $ are expanded from the environment.
// A provider section left out entirely is still materialized when its
// conventional environment variable (OPENAI_API_KEY, GEMINI_API_KEY,
// MINIMAX_API_KEY) is set, so a bare `minerva serve` works with nothing
// but keys in the environment.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"google.golang.org/genai"

	"github.com/edvora/minerva/pkg/llm"
	"github.com/edvora/minerva/pkg/minimax"
	"github.com/edvora/minerva/pkg/speech"
)

// Config is the root configuration schema.
type Config struct {
	// Listen is the gateway bind address.
	Listen string `yaml:"listen"`

	// Data is the kv store URL (badger://<dir> or memory://).
	Data string `yaml:"data"`

	// Personas is an optional personas YAML file. Empty means the
	// built-in roster.
	Personas string `yaml:"personas"`

	// Rules is an optional directive rules YAML file.
	Rules string `yaml:"rules"`

	// Lessons is an optional directory of lesson files seeded at startup.
	Lessons string `yaml:"lessons"`

	// RouterModel and ValidatorModel override the engine defaults.
	RouterModel    string `yaml:"router_model"`
	ValidatorModel string `yaml:"validator_model"`

	Archive   Archive   `yaml:"archive"`
	Providers Providers `yaml:"providers"`
}

// Archive selects where turn artifacts go. S3 wins over Dir when both
// are set; neither disables archiving.
type Archive struct {
	Dir string `yaml:"dir"`
	S3  *S3    `yaml:"s3"`
}

// S3 is an S3-compatible archive target.
type S3 struct {
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// Providers holds per-provider credentials and model listings.
type Providers struct {
	OpenAI  *OpenAIProvider  `yaml:"openai"`
	Gemini  *GeminiProvider  `yaml:"gemini"`
	MiniMax *MiniMaxProvider `yaml:"minimax"`
}

// OpenAIProvider configures OpenAI-compatible chat models and TTS.
type OpenAIProvider struct {
	APIKey  string  `yaml:"api_key"`
	BaseURL string  `yaml:"base_url"`
	Models  []Model `yaml:"models"`
}

// GeminiProvider configures Gemini chat models.
type GeminiProvider struct {
	APIKey string  `yaml:"api_key"`
	Models []Model `yaml:"models"`
}

// MiniMaxProvider configures MiniMax speech synthesis.
type MiniMaxProvider struct {
	APIKey string `yaml:"api_key"`
}

// Model maps a mux name to a provider model id.
type Model struct {
	// Name is the mux registration name, e.g. "openai/gpt-4o-mini".
	Name string `yaml:"name"`

	// Model is the provider's model id, e.g. "gpt-4o-mini".
	Model string `yaml:"model"`

	// Tools and JSON gate the structured-output paths. Both default to
	// true; set false for models that lack the capability.
	Tools *bool `yaml:"tools"`
	JSON  *bool `yaml:"json"`
}

func (m Model) tools() bool { return m.Tools == nil || *m.Tools }
func (m Model) json() bool  { return m.JSON == nil || *m.JSON }

// DefaultPath returns ~/.minerva.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".minerva.yaml"), nil
}

// Load reads the configuration from path, or from ~/.minerva.yaml when
// path is empty. A missing default file yields the built-in defaults; a
// missing explicit file is an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			cfg := &Config{}
			cfg.defaults()
			return cfg, nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			cfg := &Config{}
			cfg.defaults()
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML document and fills defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.defaults()
	return &cfg, nil
}

// defaults resolves credentials from the environment and fills every
// field a bare config leaves empty.
func (c *Config) defaults() {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.Data == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.Data = "badger://" + filepath.Join(home, ".minerva", "data")
		} else {
			c.Data = "memory://"
		}
	}

	if c.Providers.OpenAI == nil && os.Getenv("OPENAI_API_KEY") != "" {
		c.Providers.OpenAI = &OpenAIProvider{}
	}
	if p := c.Providers.OpenAI; p != nil {
		p.APIKey = resolveKey(p.APIKey, "OPENAI_API_KEY")
		p.BaseURL = expandEnv(p.BaseURL)
		if len(p.Models) == 0 {
			p.Models = []Model{
				{Name: "openai/gpt-4o", Model: "gpt-4o"},
				{Name: "openai/gpt-4o-mini", Model: "gpt-4o-mini"},
			}
		}
	}

	if c.Providers.Gemini == nil && os.Getenv("GEMINI_API_KEY") != "" {
		c.Providers.Gemini = &GeminiProvider{}
	}
	if p := c.Providers.Gemini; p != nil {
		p.APIKey = resolveKey(p.APIKey, "GEMINI_API_KEY")
		if len(p.Models) == 0 {
			p.Models = []Model{
				{Name: "gemini/gemini-2.5-flash", Model: "gemini-2.5-flash"},
				{Name: "gemini/gemini-2.5-pro", Model: "gemini-2.5-pro"},
			}
		}
	}

	if c.Providers.MiniMax == nil && os.Getenv("MINIMAX_API_KEY") != "" {
		c.Providers.MiniMax = &MiniMaxProvider{}
	}
	if p := c.Providers.MiniMax; p != nil {
		p.APIKey = resolveKey(p.APIKey, "MINIMAX_API_KEY")
	}

	if s3 := c.Archive.S3; s3 != nil {
		s3.AccessKey = expandEnv(s3.AccessKey)
		s3.SecretKey = expandEnv(s3.SecretKey)
	}
}

// expandEnv expands $VAR and ${VAR} references. Plain values pass
// through untouched; a reference to an unset variable becomes empty.
func expandEnv(s string) string {
	if strings.HasPrefix(s, "$") {
		return os.ExpandEnv(s)
	}
	return s
}

// resolveKey expands the configured value and falls back to the named
// environment variable when it comes out empty.
func resolveKey(configured, envVar string) string {
	if v := expandEnv(configured); v != "" {
		return v
	}
	return os.Getenv(envVar)
}

// Register builds clients for every configured provider and mounts their
// models on the default generation and synthesis muxes. It returns the
// registered generation model names.
func (c *Config) Register(ctx context.Context) ([]string, error) {
	return c.register(ctx, llm.DefaultMux, speech.TTSMux)
}

func (c *Config) register(ctx context.Context, gen *llm.Mux, tts *speech.TTS) ([]string, error) {
	var names []string

	if p := c.Providers.OpenAI; p != nil && p.APIKey != "" {
		opts := []option.RequestOption{option.WithAPIKey(p.APIKey)}
		if p.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(p.BaseURL))
		}
		client := openai.NewClient(opts...)
		for _, m := range p.Models {
			if m.Name == "" || m.Model == "" {
				return nil, fmt.Errorf("config: openai model entry missing name or model")
			}
			err := gen.Handle(m.Name, &llm.OpenAI{
				Client:        &client,
				Model:         m.Model,
				SupportsJSON:  m.json(),
				SupportsTools: m.tools(),
			})
			if err != nil {
				return nil, fmt.Errorf("config: register %s: %w", m.Name, err)
			}
			names = append(names, m.Name)
		}
		if err := tts.Handle("openai/#", speech.NewOpenAITTS(&client)); err != nil {
			return nil, fmt.Errorf("config: register openai tts: %w", err)
		}
	}

	if p := c.Providers.Gemini; p != nil && p.APIKey != "" {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: p.APIKey})
		if err != nil {
			return nil, fmt.Errorf("config: gemini client: %w", err)
		}
		for _, m := range p.Models {
			if m.Name == "" || m.Model == "" {
				return nil, fmt.Errorf("config: gemini model entry missing name or model")
			}
			if err := gen.Handle(m.Name, &llm.Gemini{Client: client, Model: m.Model}); err != nil {
				return nil, fmt.Errorf("config: register %s: %w", m.Name, err)
			}
			names = append(names, m.Name)
		}
	}

	if p := c.Providers.MiniMax; p != nil && p.APIKey != "" {
		client := minimax.NewClient(p.APIKey)
		if err := tts.Handle("minimax/#", speech.NewMinimaxTTS(client)); err != nil {
			return nil, fmt.Errorf("config: register minimax tts: %w", err)
		}
	}

	return names, nil
}
