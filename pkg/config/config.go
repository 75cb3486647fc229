package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	appErrors "github.com/noah-isme/simulacro-scoring/pkg/errors"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env string `validate:"required,oneof=development production test"`

	Log     LogConfig
	Scoring ScoringConfig
	Input   InputConfig
	Output  OutputConfig
	Metrics MetricsConfig
}

type LogConfig struct {
	Level  string
	Format string `validate:"omitempty,oneof=json console"`
	// File enables a rotating log file next to stdout when set.
	File       string
	MaxSizeMB  int `validate:"gte=0"`
	MaxBackups int `validate:"gte=0"`
	MaxAgeDays int `validate:"gte=0"`
}

// ScoringConfig tunes the batch runner.
type ScoringConfig struct {
	Workers int `validate:"gte=1,lte=256"`
	// TargetScore adds a per-student gap analysis toward this global score when positive.
	TargetScore int `validate:"gte=0,lte=500"`
}

// InputConfig locates student records on disk.
type InputConfig struct {
	Path      string
	SheetsDir string
}

// OutputConfig controls report artifacts.
type OutputConfig struct {
	Dir     string   `validate:"required"`
	Formats []string `validate:"dive,oneof=json csv pdf"`
	Title   string
	Prefix  string `validate:"required"`
}

// MetricsConfig controls the Prometheus textfile dump.
type MetricsConfig struct {
	Textfile string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}
	cfg.Env = v.GetString("ENV")

	cfg.Log = LogConfig{
		Level:      v.GetString("LOG_LEVEL"),
		Format:     v.GetString("LOG_FORMAT"),
		File:       v.GetString("LOG_FILE"),
		MaxSizeMB:  v.GetInt("LOG_MAX_SIZE_MB"),
		MaxBackups: v.GetInt("LOG_MAX_BACKUPS"),
		MaxAgeDays: v.GetInt("LOG_MAX_AGE_DAYS"),
	}

	cfg.Scoring = ScoringConfig{
		Workers:     v.GetInt("SCORING_WORKERS"),
		TargetScore: v.GetInt("TARGET_SCORE"),
	}

	cfg.Input = InputConfig{
		Path:      v.GetString("INPUT_PATH"),
		SheetsDir: v.GetString("SHEETS_DIR"),
	}

	cfg.Output = OutputConfig{
		Dir:     v.GetString("OUTPUT_DIR"),
		Formats: splitAndTrim(strings.ToLower(v.GetString("OUTPUT_FORMATS"))),
		Title:   v.GetString("REPORT_TITLE"),
		Prefix:  v.GetString("REPORT_PREFIX"),
	}

	cfg.Metrics = MetricsConfig{Textfile: v.GetString("METRICS_TEXTFILE")}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct constraints after flags or env overrides are applied.
// Failures carry the VALIDATION_ERROR code.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, "invalid config")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("LOG_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 5)
	v.SetDefault("LOG_MAX_AGE_DAYS", 30)

	v.SetDefault("SCORING_WORKERS", 1)
	v.SetDefault("TARGET_SCORE", 0)

	v.SetDefault("INPUT_PATH", "")
	v.SetDefault("SHEETS_DIR", "")

	v.SetDefault("OUTPUT_DIR", "./exports")
	v.SetDefault("OUTPUT_FORMATS", "json")
	v.SetDefault("REPORT_TITLE", "Resultados Simulacro")
	v.SetDefault("REPORT_PREFIX", "simulacro")

	v.SetDefault("METRICS_TEXTFILE", "")
}

// SplitAndTrim splits a comma separated list, dropping empty entries.
func SplitAndTrim(raw string) []string {
	return splitAndTrim(raw)
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
