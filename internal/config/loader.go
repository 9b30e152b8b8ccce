package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path, applies environment
// variable overrides, and returns a validated [Config]. Fields absent from
// the file keep their [Default] values.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies environment variable
// overrides, and validates the result. Useful in tests where configs are
// constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotenv populates the process environment from the .env file at path
// without overriding variables that are already set. A missing file is not
// an error; deployments without one simply rely on the YAML file and any
// exported variables.
func LoadDotenv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: load %q: %w", path, err)
	}
	return nil
}

// applyEnv overrides cfg fields from SCRIPTLIVE_-prefixed environment
// variables. Only variables that are set and non-empty take effect.
func applyEnv(cfg *Config) error {
	var errs []error

	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setCheckcode := func(key string, dst *Checkcode) {
		v := os.Getenv(key)
		if v == "" {
			return
		}
		c, err := ParseCheckcode(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = c
	}

	setString("SCRIPTLIVE_LISTEN_ADDR", &cfg.Server.ListenAddr)
	setString("SCRIPTLIVE_HTTP_ADDR", &cfg.Server.HTTPAddr)
	setCheckcode("SCRIPTLIVE_CHECKCODE", &cfg.Server.Checkcode)
	setCheckcode("SCRIPTLIVE_RESP_CHECKCODE", &cfg.Server.RespCheckcode)
	if v := os.Getenv("SCRIPTLIVE_LOG_LEVEL"); v != "" {
		cfg.Server.LogLevel = LogLevel(v)
	}

	setString("SCRIPTLIVE_REFERENCE_PATH", &cfg.Scoring.ReferencePath)

	if v := os.Getenv("SCRIPTLIVE_SINK_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("SCRIPTLIVE_SINK_ENABLED: %w", err))
		} else {
			cfg.Sink.Enabled = b
		}
	}
	setString("SCRIPTLIVE_SINK_ADDR", &cfg.Sink.Addr)
	setCheckcode("SCRIPTLIVE_SINK_CHECKCODE", &cfg.Sink.Checkcode)

	setString("SCRIPTLIVE_POSTGRES_DSN", &cfg.Reports.PostgresDSN)

	return errors.Join(errs...)
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.ListenAddr == "" {
		errs = append(errs, errors.New("server.listen_addr is required"))
	}
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Scoring.ReferencePath == "" {
		errs = append(errs, errors.New("scoring.reference_path is required"))
	}
	if cfg.Scoring.Threshold < 0 || cfg.Scoring.Threshold > 1 {
		errs = append(errs, fmt.Errorf("scoring.threshold %.2f is out of range [0, 1]", cfg.Scoring.Threshold))
	}
	if cfg.Scoring.Lookahead < 0 {
		errs = append(errs, fmt.Errorf("scoring.lookahead %d must not be negative", cfg.Scoring.Lookahead))
	}
	if cfg.Scoring.Strategy != "" && !cfg.Scoring.Strategy.IsValid() {
		errs = append(errs, fmt.Errorf("scoring.strategy %q is invalid; valid values: sequential, chunked", cfg.Scoring.Strategy))
	}
	if cfg.Scoring.TickInterval < 0 {
		errs = append(errs, fmt.Errorf("scoring.tick_interval %s must not be negative", cfg.Scoring.TickInterval.Std()))
	}

	if cfg.Sink.Enabled && cfg.Sink.Addr == "" {
		errs = append(errs, errors.New("sink.addr is required when sink.enabled is true"))
	}

	if cfg.Reports.Store != "" && !cfg.Reports.Store.IsValid() {
		errs = append(errs, fmt.Errorf("reports.store %q is invalid; valid values: memory, postgres", cfg.Reports.Store))
	}
	if cfg.Reports.Store == ReportStorePostgres && cfg.Reports.PostgresDSN == "" {
		errs = append(errs, errors.New("reports.postgres_dsn is required when reports.store is postgres"))
	}

	return errors.Join(errs...)
}
