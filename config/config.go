// Package config provides service configuration.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the service configuration. Values are read by viper from
// environment variables with sensible defaults.
type Config struct {
	// Server settings
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`

	// Generative-language provider
	GeminiAPIKey    string `mapstructure:"gemini_api_key"`
	GeminiModel     string `mapstructure:"gemini_model"`
	GeminiBaseURL   string `mapstructure:"gemini_base_url"`
	GeminiTimeoutMS int    `mapstructure:"gemini_timeout_ms"`

	// Classifier artifact
	ModelPath       string `mapstructure:"model_path"`
	ModelStaticDir  string `mapstructure:"model_static_dir"`
	OrtLibraryPath  string `mapstructure:"ort_library_path"`
	ModelInputName  string `mapstructure:"model_input_name"`
	ModelOutputName string `mapstructure:"model_output_name"`
	InputSize       int    `mapstructure:"input_size"`

	// Pipeline behavior
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
	MaxBatchImages      int     `mapstructure:"max_batch_images"`
	ExplainBaseURL      string  `mapstructure:"explain_base_url"`
	ExplainTimeoutMS    int     `mapstructure:"explain_timeout_ms"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("port", 8000)
	v.SetDefault("log_level", "info")
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("gemini_model", "gemini-1.5-flash")
	v.SetDefault("gemini_base_url", "")
	v.SetDefault("gemini_timeout_ms", 30000)
	v.SetDefault("model_path", "model/crop_disease.onnx")
	v.SetDefault("model_static_dir", "model")
	v.SetDefault("ort_library_path", "")
	v.SetDefault("model_input_name", "input")
	v.SetDefault("model_output_name", "output")
	v.SetDefault("input_size", 224)
	v.SetDefault("confidence_threshold", 0.6)
	v.SetDefault("max_batch_images", 4)
	v.SetDefault("explain_base_url", "http://localhost:8000")
	v.SetDefault("explain_timeout_ms", 60000)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GeminiTimeout returns the upstream generation timeout.
func (c *Config) GeminiTimeout() time.Duration {
	return time.Duration(c.GeminiTimeoutMS) * time.Millisecond
}

// ExplainTimeout returns the explanation-request timeout.
func (c *Config) ExplainTimeout() time.Duration {
	return time.Duration(c.ExplainTimeoutMS) * time.Millisecond
}
