package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

// ModelConfig describes one entry of the model registry.
type ModelConfig struct {
	Name        string  `yaml:"name"`
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// RetryConfig is the retry policy shared by all models.
type RetryConfig struct {
	MaxAttempts        int  `yaml:"max_attempts"`
	DelaySeconds       int  `yaml:"delay_seconds"`
	ExponentialBackoff bool `yaml:"exponential_backoff"`
	TimeoutSeconds     int  `yaml:"timeout_seconds"`
}

func (r RetryConfig) BaseDelay() time.Duration { return time.Duration(r.DelaySeconds) * time.Second }
func (r RetryConfig) Timeout() time.Duration   { return time.Duration(r.TimeoutSeconds) * time.Second }

type SegmentationConfig struct {
	MinSegmentLength int     `yaml:"min_segment_length"`
	MaxSegmentLength int     `yaml:"max_segment_length"`
	OverlapRatio     float64 `yaml:"overlap_ratio"`
}

type SummaryConfig struct {
	IncludeKeywords  bool `yaml:"include_keywords"`
	IncludeTopics    bool `yaml:"include_topics"`
	TopicSampleChars int  `yaml:"topic_sample_chars"` // prefix of the transcript fed to topic analysis
}

type SummarizationConfig struct {
	Segmentation SegmentationConfig `yaml:"segmentation"`
	Summary      SummaryConfig      `yaml:"summary"`
}

type ProgressConfig struct {
	Backend        string `yaml:"backend"` // file | sqlite
	SaveDirectory  string `yaml:"save_directory"`
	KeepCompleted  int    `yaml:"keep_completed_days"`
	CleanupEnabled bool   `yaml:"cleanup_enabled"`
}

type RedisConfig struct {
	URL      string `yaml:"url"` // empty disables the redis task lock
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type DeepAnalysisConfig struct {
	Enabled    bool   `yaml:"enabled"`
	PromptFile string `yaml:"prompt_file"`
}

type Config struct {
	Log           LogConfig              `yaml:"log"`
	Models        map[string]ModelConfig `yaml:"ai_models"`
	Retry         RetryConfig            `yaml:"retry"`
	Summarization SummarizationConfig    `yaml:"summarization"`
	Progress      ProgressConfig         `yaml:"progress"`
	Redis         RedisConfig            `yaml:"redis"`
	DeepAnalysis  DeepAnalysisConfig     `yaml:"deep_analysis"`
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.DelaySeconds <= 0 {
		c.Retry.DelaySeconds = 5
	}
	if c.Retry.TimeoutSeconds <= 0 {
		c.Retry.TimeoutSeconds = 60
	}
	if c.Summarization.Segmentation.MinSegmentLength <= 0 {
		c.Summarization.Segmentation.MinSegmentLength = 300
	}
	if c.Summarization.Segmentation.MaxSegmentLength <= 0 {
		c.Summarization.Segmentation.MaxSegmentLength = 1500
	}
	if c.Summarization.Segmentation.OverlapRatio < 0 {
		c.Summarization.Segmentation.OverlapRatio = 0
	}
	if c.Summarization.Summary.TopicSampleChars <= 0 {
		c.Summarization.Summary.TopicSampleChars = 2000
	}
	if c.Progress.Backend == "" {
		c.Progress.Backend = "file"
	}
	if c.Progress.SaveDirectory == "" {
		c.Progress.SaveDirectory = "progress"
	}
	if c.Progress.KeepCompleted <= 0 {
		c.Progress.KeepCompleted = 7
	}
}

func (c *Config) Validate() error {
	if len(c.Models) == 0 {
		return errors.New("ai_models: at least one model is required")
	}
	for key, m := range c.Models {
		if m.BaseURL == "" {
			return fmt.Errorf("ai_models.%s: base_url is required", key)
		}
		if m.Model == "" {
			return fmt.Errorf("ai_models.%s: model is required", key)
		}
	}
	switch c.Progress.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("progress.backend: unknown backend %q", c.Progress.Backend)
	}
	if c.Summarization.Segmentation.OverlapRatio >= 1 {
		return errors.New("summarization.segmentation.overlap_ratio must be < 1")
	}
	min := c.Summarization.Segmentation.MinSegmentLength
	max := c.Summarization.Segmentation.MaxSegmentLength
	if min > max {
		return fmt.Errorf("summarization.segmentation: min_segment_length %d > max_segment_length %d", min, max)
	}
	return nil
}

// AvailableModels returns the keys of models that have a credential configured,
// mapped to their display names.
func (c *Config) AvailableModels() map[string]string {
	out := make(map[string]string, len(c.Models))
	for key, m := range c.Models {
		if m.APIKey != "" {
			out[key] = m.Name
		}
	}
	return out
}
