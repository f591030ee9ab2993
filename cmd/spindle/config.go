package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/calebwray/spindle/internal/inference"
)

// Config represents the spindle configuration file
// (~/.config/spindle/config.yaml). Generation fields are pointers so we can
// distinguish "not set" from zero values.
type Config struct {
	// Generation defaults
	MaxNewTokens        *int     `yaml:"max_new_tokens"`
	MaxNewTokensCeiling *int     `yaml:"max_new_tokens_ceiling"`
	MaxPromptChars      *int     `yaml:"max_prompt_chars"`
	Temperature         *float64 `yaml:"temperature"`
	TopK                *int     `yaml:"top_k"`
	TopP                *float64 `yaml:"top_p"`
	NumBeams            *int     `yaml:"num_beams"`
	Seed                *int64   `yaml:"seed"`

	// Output
	StreamMode string `yaml:"stream_mode"`
	LogLevel   string `yaml:"log_level"`
	LogFormat  string `yaml:"log_format"`

	// Server
	ServerAddress  string   `yaml:"server_address"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	RateLimit      *float64 `yaml:"rate_limit"`
	RateBurst      *int     `yaml:"rate_burst"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "spindle", "config.yaml")
}

// LoadConfig reads the config file. Returns a zero Config if the file doesn't exist.
func LoadConfig() Config {
	path := configPath()
	if path == "" {
		return Config{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}

// engineDefaults folds config file values over the built-in limits.
func engineDefaults(cfg Config) inference.Defaults {
	d := inference.DefaultLimits
	if cfg.MaxNewTokens != nil {
		d.MaxNewTokens = *cfg.MaxNewTokens
	}
	if cfg.MaxNewTokensCeiling != nil {
		d.MaxNewTokensCeiling = *cfg.MaxNewTokensCeiling
	}
	if cfg.MaxPromptChars != nil {
		d.MaxPromptChars = *cfg.MaxPromptChars
	}
	if cfg.Temperature != nil {
		d.Temperature = *cfg.Temperature
	}
	if cfg.TopK != nil {
		d.TopK = *cfg.TopK
	}
	if cfg.TopP != nil {
		d.TopP = *cfg.TopP
	}
	if cfg.NumBeams != nil {
		d.NumBeams = *cfg.NumBeams
	}
	return d
}

// applyLoggingConfig applies config file defaults to the logging variables
// when the corresponding CLI flag was not explicitly set.
func applyLoggingConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyRunConfig applies config file defaults to run command variables.
func applyRunConfig(c *cli.Command, cfg Config,
	steps *int64, temp *float64, topK *int64, topP *float64,
	numBeams *int64, seed *int64, streamMode *string,
) {
	applyLoggingConfig(c, cfg)
	if cfg.MaxNewTokens != nil && !c.IsSet("steps") {
		*steps = int64(*cfg.MaxNewTokens)
	}
	if cfg.Temperature != nil && !c.IsSet("temp") && !c.IsSet("temperature") && !c.IsSet("t") {
		*temp = *cfg.Temperature
	}
	if cfg.TopK != nil && !c.IsSet("top-k") && !c.IsSet("top_k") && !c.IsSet("topk") {
		*topK = int64(*cfg.TopK)
	}
	if cfg.TopP != nil && !c.IsSet("top-p") && !c.IsSet("top_p") && !c.IsSet("topp") {
		*topP = *cfg.TopP
	}
	if cfg.NumBeams != nil && !c.IsSet("num-beams") && !c.IsSet("beams") {
		*numBeams = int64(*cfg.NumBeams)
	}
	if cfg.Seed != nil && !c.IsSet("seed") {
		*seed = *cfg.Seed
	}
	if cfg.StreamMode != "" && !c.IsSet("stream-mode") {
		*streamMode = cfg.StreamMode
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string, rateLimit *float64, rateBurst *int64) {
	applyLoggingConfig(c, cfg)
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
	if cfg.RateLimit != nil && !c.IsSet("rate-limit") {
		*rateLimit = *cfg.RateLimit
	}
	if cfg.RateBurst != nil && !c.IsSet("rate-burst") {
		*rateBurst = int64(*cfg.RateBurst)
	}
}
