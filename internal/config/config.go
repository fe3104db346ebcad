package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds the application configuration
type Config struct {
	Pipeline PipelineConfig `json:"pipeline"`
	Model    ModelConfig    `json:"model"`
	Caption  CaptionConfig  `json:"caption"`
}

// PipelineConfig holds defaults for the segment pipeline
type PipelineConfig struct {
	OutDir    string `json:"out_dir"`
	Margin    int    `json:"margin"`
	Threshold int    `json:"threshold"`
	WriteMask bool   `json:"write_mask"`
	Crop      bool   `json:"crop"`
}

// ModelConfig locates the segmentation model artifacts
type ModelConfig struct {
	Dir     string `json:"dir"`
	UseCUDA bool   `json:"use_cuda"`
}

// CaptionConfig configures the optional auto-caption backend
type CaptionConfig struct {
	Backend string `json:"backend"`
	URL     string `json:"url"`
	Model   string `json:"model"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			OutDir:    filepath.Join("dataset", "prepared"),
			Margin:    8,
			Threshold: 1,
			WriteMask: true,
			Crop:      true,
		},
		Model: ModelConfig{
			Dir: "models",
		},
		Caption: CaptionConfig{
			Backend: "ollama",
			URL:     "http://localhost:11434",
			Model:   "openbmb/minicpm-v4.5",
		},
	}
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Pipeline.OutDir == "" {
		return fmt.Errorf("pipeline.out_dir cannot be empty")
	}

	if c.Pipeline.Margin < 0 {
		return fmt.Errorf("pipeline.margin must not be negative")
	}

	if c.Pipeline.Threshold < 0 || c.Pipeline.Threshold > 255 {
		return fmt.Errorf("pipeline.threshold must be between 0 and 255")
	}

	if c.Model.Dir == "" {
		return fmt.Errorf("model.dir cannot be empty")
	}

	if c.Caption.Backend != "ollama" && c.Caption.Backend != "llamacpp" {
		return fmt.Errorf("caption.backend must be 'ollama' or 'llamacpp'")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "maskcrop", "config.json")
}
