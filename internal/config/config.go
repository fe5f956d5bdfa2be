package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ofeng1/datathon/internal/embed"
	"github.com/ofeng1/datathon/internal/engine"
	"github.com/ofeng1/datathon/internal/logging"
)

// DefaultFile is read when no config path is given and it exists.
const DefaultFile = "edrisk.yaml"

// #region config
// Config is the full service configuration.
type Config struct {
	Engine    engine.Config `yaml:"engine"`
	Embed     embed.Config  `yaml:"embed"`
	DBPath    string        `yaml:"db_path"`
	Addr      string        `yaml:"addr"`
	GRPCAddr  string        `yaml:"grpc_addr"` // empty disables the gRPC endpoint
	LogLevel  string        `yaml:"log_level"`
	LogFormat string        `yaml:"log_format"`

	// SessionIdleTTL drops sessions idle this long from memory; 0 keeps them.
	SessionIdleTTL time.Duration `yaml:"session_idle_ttl"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Engine:    engine.DefaultConfig(),
		Embed:     embed.DefaultConfig(),
		DBPath:    "edrisk.db",
		Addr:      ":8000",
		LogLevel:  "info",
		LogFormat: "text",

		SessionIdleTTL: 30 * time.Minute,
	}
}

// #endregion config

// #region load
// Load builds the configuration from defaults, then the YAML file at path,
// then a .env file, then environment variables. Later sources win. An
// explicit path must exist; the default file and .env are optional.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := loadFile(cfg, path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays the environment variables that are set.
func applyEnv(cfg *Config) {
	overrides := []struct {
		key string
		dst *string
	}{
		{"ARTIFACT_DIR", &cfg.Engine.ArtifactDir},
		{"EDRISK_DB", &cfg.DBPath},
		{"EDRISK_ADDR", &cfg.Addr},
		{"EDRISK_GRPC_ADDR", &cfg.GRPCAddr},
		{"EMBEDDER_BACKEND", &cfg.Embed.Backend},
		{"EMBEDDING_SERVICE_URL", &cfg.Embed.URL},
		{"EMBEDDING_MODEL", &cfg.Embed.Model},
		{"CODEC_ADDR", &cfg.Embed.GRPCAddr},
		{"EMBEDDING_CACHE_DIR", &cfg.Embed.CacheDir},
		{"LOG_LEVEL", &cfg.LogLevel},
		{"LOG_FORMAT", &cfg.LogFormat},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.key); ok && v != "" {
			*o.dst = v
		}
	}
}

// #endregion load

// #region validate
// Validate checks values that would otherwise fail later at first use.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Engine.Tasks) == 0 {
		errs = append(errs, errors.New("engine.tasks: at least one task is required"))
	}
	for i, t := range c.Engine.Tasks {
		if t.Name == "" || t.File == "" {
			errs = append(errs, fmt.Errorf("engine.tasks[%d]: name and file are required", i))
		}
	}
	r := c.Engine.Retrieval
	if r.TopK <= 0 {
		errs = append(errs, fmt.Errorf("engine.retrieval.top_k: %d must be positive", r.TopK))
	}
	for name, v := range map[string]float64{"ask_threshold": r.AskThreshold, "recommend_threshold": r.RecommendThreshold} {
		if v < 0 || v >= 1 {
			errs = append(errs, fmt.Errorf("engine.retrieval.%s: %v must be in [0,1)", name, v))
		}
	}
	if r.AskExcerptChars <= 0 || r.RecommendExcerptChars <= 0 {
		errs = append(errs, errors.New("engine.retrieval: excerpt limits must be positive"))
	}
	switch c.Embed.Backend {
	case embed.BackendOllama, embed.BackendGRPC, embed.BackendNone:
	default:
		errs = append(errs, fmt.Errorf("embed.backend: unknown backend %q", c.Embed.Backend))
	}
	if c.Embed.Backend == embed.BackendGRPC && c.Embed.GRPCAddr == "" {
		errs = append(errs, errors.New("embed.grpc_addr: required for the grpc backend"))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log_format: unknown format %q", c.LogFormat))
	}
	if c.SessionIdleTTL < 0 {
		errs = append(errs, fmt.Errorf("session_idle_ttl: %v must not be negative", c.SessionIdleTTL))
	}
	return errors.Join(errs...)
}

// #endregion validate
