package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration. It is loaded once at startup
// and passed explicitly to the components that need it.
type Config struct {
	Server   ServerConfig
	Bedrock  BedrockConfig
	Upload   UploadConfig
	Pipeline PipelineConfig
	Log      LogConfig
	CORS     CORSConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// BedrockConfig holds AWS Bedrock inference settings.
type BedrockConfig struct {
	Region      string  `mapstructure:"region"`
	ModelID     string  `mapstructure:"model_id"`
	AccessKey   string  `mapstructure:"access_key"`
	SecretKey   string  `mapstructure:"secret_key"`
	Endpoint    string  `mapstructure:"endpoint"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
	TimeoutSecs int     `mapstructure:"timeout_secs"`
}

// Timeout returns the per-request inference timeout.
func (b *BedrockConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSecs) * time.Second
}

// UploadConfig holds file upload and normalization settings.
type UploadConfig struct {
	MaxFileSizeMB int64  `mapstructure:"max_file_size_mb"`
	PDFDPI        int    `mapstructure:"pdf_dpi"`
	PDFMaxPages   int    `mapstructure:"pdf_max_pages"`
	MaxImageBytes int    `mapstructure:"max_image_bytes"`
	MaxDimension  int    `mapstructure:"max_dimension"`
	PdftoppmPath  string `mapstructure:"pdftoppm_path"`
}

// MaxFileBytes returns the upload size limit in bytes.
func (u *UploadConfig) MaxFileBytes() int64 {
	return u.MaxFileSizeMB * 1024 * 1024
}

// PipelineConfig holds extraction pipeline behavior settings.
// ValidationMode "combined" classifies and extracts in one model call per
// side; "standalone" runs a separate validation call first, matching the
// original two-pass flow.
type PipelineConfig struct {
	ValidationMode string `mapstructure:"validation_mode"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads configuration from environment variables with the CARDLENS_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CARDLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "180s")
	v.SetDefault("server.environment", "development")

	// Bedrock defaults (model parameters match the deterministic-extraction
	// settings the prompts were written for)
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-3-5-sonnet-20240620-v1:0")
	v.SetDefault("bedrock.access_key", "")
	v.SetDefault("bedrock.secret_key", "")
	v.SetDefault("bedrock.endpoint", "")
	v.SetDefault("bedrock.max_tokens", 4096)
	v.SetDefault("bedrock.temperature", 0.0)
	v.SetDefault("bedrock.timeout_secs", 120)

	// Upload defaults
	v.SetDefault("upload.max_file_size_mb", 20)
	v.SetDefault("upload.pdf_dpi", 300)
	v.SetDefault("upload.pdf_max_pages", 4)
	v.SetDefault("upload.max_image_bytes", 4*1024*1024)
	v.SetDefault("upload.max_dimension", 2048)
	v.SetDefault("upload.pdftoppm_path", "pdftoppm")

	// Pipeline defaults
	v.SetDefault("pipeline.validation_mode", "combined")

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":              "CARDLENS_SERVER_PORT",
		"server.read_timeout":      "CARDLENS_SERVER_READ_TIMEOUT",
		"server.write_timeout":     "CARDLENS_SERVER_WRITE_TIMEOUT",
		"server.environment":       "CARDLENS_SERVER_ENVIRONMENT",
		"bedrock.region":           "CARDLENS_BEDROCK_REGION",
		"bedrock.model_id":         "CARDLENS_BEDROCK_MODEL_ID",
		"bedrock.access_key":       "CARDLENS_BEDROCK_ACCESS_KEY",
		"bedrock.secret_key":       "CARDLENS_BEDROCK_SECRET_KEY",
		"bedrock.endpoint":         "CARDLENS_BEDROCK_ENDPOINT",
		"bedrock.max_tokens":       "CARDLENS_BEDROCK_MAX_TOKENS",
		"bedrock.temperature":      "CARDLENS_BEDROCK_TEMPERATURE",
		"bedrock.timeout_secs":     "CARDLENS_BEDROCK_TIMEOUT_SECS",
		"upload.max_file_size_mb":  "CARDLENS_UPLOAD_MAX_FILE_SIZE_MB",
		"upload.pdf_dpi":           "CARDLENS_UPLOAD_PDF_DPI",
		"upload.pdf_max_pages":     "CARDLENS_UPLOAD_PDF_MAX_PAGES",
		"upload.max_image_bytes":   "CARDLENS_UPLOAD_MAX_IMAGE_BYTES",
		"upload.max_dimension":     "CARDLENS_UPLOAD_MAX_DIMENSION",
		"upload.pdftoppm_path":     "CARDLENS_UPLOAD_PDFTOPPM_PATH",
		"pipeline.validation_mode": "CARDLENS_PIPELINE_VALIDATION_MODE",
		"log.level":                "CARDLENS_LOG_LEVEL",
		"log.format":               "CARDLENS_LOG_FORMAT",
		"cors.allowed_origins":     "CARDLENS_CORS_ALLOWED_ORIGINS",
	}
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding env %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Comma-separated origins come through as a single string
	if len(cfg.CORS.AllowedOrigins) == 1 && strings.Contains(cfg.CORS.AllowedOrigins[0], ",") {
		cfg.CORS.AllowedOrigins = strings.Split(cfg.CORS.AllowedOrigins[0], ",")
		for i := range cfg.CORS.AllowedOrigins {
			cfg.CORS.AllowedOrigins[i] = strings.TrimSpace(cfg.CORS.AllowedOrigins[i])
		}
	}

	if cfg.Bedrock.ModelID == "" {
		return nil, fmt.Errorf("bedrock.model_id must be set")
	}
	if cfg.Pipeline.ValidationMode != "combined" && cfg.Pipeline.ValidationMode != "standalone" {
		return nil, fmt.Errorf("pipeline.validation_mode must be \"combined\" or \"standalone\", got %q", cfg.Pipeline.ValidationMode)
	}

	return &cfg, nil
}
