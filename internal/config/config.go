package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type WatermarkKey string

const (
	WatermarkNone     WatermarkKey = "none"
	WatermarkStandard WatermarkKey = "standard"
	WatermarkHighRes  WatermarkKey = "highres"
)

// Profile describes one output rendition of a source image.
type Profile struct {
	Name      string       `yaml:"name"`
	MaxWidth  int          `yaml:"max_width"`
	MaxHeight int          `yaml:"max_height"`
	Crop      bool         `yaml:"crop"`
	Watermark WatermarkKey `yaml:"watermark"`
	Quality   float64      `yaml:"quality"`
}

// HasWatermark is false for profiles rendered without a watermark.
func (p Profile) HasWatermark() bool {
	return p.Watermark != "" && p.Watermark != WatermarkNone
}

type StorageConfig struct {
	Bucket        string `yaml:"bucket"`
	Endpoint      string `yaml:"endpoint"`
	Region        string `yaml:"region"`
	AccessKeyID   string `yaml:"-"`
	SecretKey     string `yaml:"-"`
	PublicBaseURL string `yaml:"public_base_url"`
}

// Enabled reports whether outputs go to object storage rather than disk.
func (s StorageConfig) Enabled() bool {
	return s.Bucket != ""
}

type Config struct {
	Type       string                  `yaml:"type"`
	Position   string                  `yaml:"position"`
	Padding    int                     `yaml:"padding"`
	Opacity    float64                 `yaml:"opacity"`
	Watermarks map[WatermarkKey]string `yaml:"watermarks"`
	Profiles   []Profile               `yaml:"profiles"`
	Storage    StorageConfig           `yaml:"storage"`
}

// Default returns the stock profile table.
func Default() *Config {
	return &Config{
		Type:     "image/jpeg",
		Position: "top-right",
		Padding:  25,
		Opacity:  0.8,
		Watermarks: map[WatermarkKey]string{
			WatermarkStandard: "img/watermark.png",
			WatermarkHighRes:  "img/watermark-high-res.png",
		},
		Profiles: []Profile{
			{Name: "large", MaxWidth: 1280, MaxHeight: 768, Crop: true, Watermark: WatermarkHighRes, Quality: 1},
			{Name: "standard", MaxWidth: 700, MaxHeight: 420, Crop: true, Watermark: WatermarkStandard, Quality: 0.8},
			{Name: "low", MaxWidth: 320, MaxHeight: 200, Crop: true, Watermark: WatermarkNone, Quality: 0.8},
			{Name: "thumbnail", MaxWidth: 128, MaxHeight: 80, Crop: true, Watermark: WatermarkNone, Quality: 0.8},
		},
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file keep
// their default values; a profiles list in the file replaces the default one.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads path when given, otherwise the defaults with environment
// overrides applied.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	cfg := Default()
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides settings from the environment.
func (c *Config) ApplyEnv() {
	c.Type = getEnv("OUTPUT_TYPE", c.Type)
	c.Position = getEnv("WATERMARK_POSITION", c.Position)
	c.Padding = getEnvInt("WATERMARK_PADDING", c.Padding)
	c.Opacity = getEnvFloat("WATERMARK_OPACITY", c.Opacity)

	c.Storage.Bucket = getEnv("S3_BUCKET", c.Storage.Bucket)
	c.Storage.Endpoint = getEnv("S3_ENDPOINT", c.Storage.Endpoint)
	c.Storage.Region = getEnv("S3_REGION", c.Storage.Region)
	c.Storage.PublicBaseURL = getEnv("S3_PUBLIC_BASE_URL", c.Storage.PublicBaseURL)
	c.Storage.AccessKeyID = getEnv("S3_ACCESS_KEY_ID", c.Storage.AccessKeyID)
	c.Storage.SecretKey = getEnv("S3_SECRET_ACCESS_KEY", c.Storage.SecretKey)
}

// Validate checks ranges and that every profile's watermark is configured.
func (c *Config) Validate() error {
	var errs []error

	if math.IsNaN(c.Opacity) || c.Opacity < 0 || c.Opacity > 1 {
		errs = append(errs, fmt.Errorf("opacity %v must be within [0,1]", c.Opacity))
	}
	if c.Padding < 0 {
		errs = append(errs, fmt.Errorf("padding %d must not be negative", c.Padding))
	}
	if len(c.Profiles) == 0 {
		errs = append(errs, errors.New("at least one profile is required"))
	}

	seen := make(map[string]bool, len(c.Profiles))
	for i, p := range c.Profiles {
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("profile %d has no name", i))
		} else if seen[p.Name] {
			errs = append(errs, fmt.Errorf("profile %s is defined more than once", p.Name))
		}
		seen[p.Name] = true

		if p.MaxWidth < 1 || p.MaxHeight < 1 {
			errs = append(errs, fmt.Errorf("profile %s: size %dx%d must be positive", p.Name, p.MaxWidth, p.MaxHeight))
		}
		if math.IsNaN(p.Quality) || p.Quality < 0 || p.Quality > 1 {
			errs = append(errs, fmt.Errorf("profile %s: quality %v must be within [0,1]", p.Name, p.Quality))
		}
		if p.HasWatermark() {
			if _, ok := c.Watermarks[p.Watermark]; !ok {
				errs = append(errs, fmt.Errorf("profile %s: watermark %q is not configured", p.Name, p.Watermark))
			}
		}
	}

	return errors.Join(errs...)
}

// UsedWatermarks returns the locations of the watermarks referenced by at
// least one profile, so unused variants are never loaded.
func (c *Config) UsedWatermarks() map[WatermarkKey]string {
	used := make(map[WatermarkKey]string)
	for _, p := range c.Profiles {
		if loc, ok := c.Watermarks[p.Watermark]; ok && p.HasWatermark() {
			used[p.Watermark] = loc
		}
	}
	return used
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
