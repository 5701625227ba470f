package common

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/cnis-extractor/constants"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Server     ServerConfig     `yaml:"server"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Log        LogConfig        `yaml:"log"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string        `yaml:"dsn"`
	MaxConns         int32         `yaml:"max_conns"`
	MinConns         int32         `yaml:"min_conns"`
	MaxConnLifetime  time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
	AutoMigrate      bool          `yaml:"auto_migrate"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string `yaml:"grpc_addr"`
}

// ExtractionConfig configures the text extractor and the external structured extractor.
type ExtractionConfig struct {
	Pdftotext          string        `yaml:"pdftotext"`
	ExternalExecutable string        `yaml:"external_executable"`
	ExternalScript     string        `yaml:"external_script"`
	ExternalTimeout    time.Duration `yaml:"external_timeout"`
	Capabilities       []string      `yaml:"capabilities"`
}

// PipelineConfig holds orchestration settings.
type PipelineConfig struct {
	DedupPolicy      string        `yaml:"dedup_policy"`
	Workers          int           `yaml:"workers"`
	QueueSize        int           `yaml:"queue_size"`
	ProcessTimeout   time.Duration `yaml:"process_timeout"`
	BatchConcurrency int           `yaml:"batch_concurrency"`
}

// LogConfig controls the slog handler and optional file rotation.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // "json" | "text"
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			MaxConns:        20,
			MinConns:        2,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
			AutoMigrate:     true,
		},
		Server: ServerConfig{GRPCAddr: ":8080"},
		Extraction: ExtractionConfig{
			Pdftotext:          "pdftotext",
			ExternalExecutable: "python3",
			ExternalTimeout:    2 * time.Minute,
			Capabilities:       []string{"pdfplumber", "fitz"},
		},
		Pipeline: PipelineConfig{
			DedupPolicy:      string(constants.DedupReplace),
			Workers:          4,
			QueueSize:        64,
			ProcessTimeout:   5 * time.Minute,
			BatchConcurrency: 4,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
	}
}

// LoadConfig builds the configuration in three layers: defaults, the YAML file named by CNIS_CONFIG
// (if any), then environment variables. A .env file in the working directory is loaded first.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, NewAppError("CONFIG_ERROR", "failed to load .env", err)
	}

	cfg := DefaultConfig()
	if path := os.Getenv("CNIS_CONFIG"); path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("read %s", path), err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("parse %s", path), err)
	}
	return nil
}

func (c *Config) applyEnv() {
	db := &c.Database
	db.DSN = getEnv("DB_URL", db.DSN)
	db.MaxConns = getEnvAsInt32("DB_MAX_CONNS", db.MaxConns)
	db.MinConns = getEnvAsInt32("DB_MIN_CONNS", db.MinConns)
	db.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", db.MaxConnLifetime)
	db.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", db.MaxConnIdleTime)
	db.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", db.DialTimeout)
	db.StatementTimeout = getEnvAsDuration("DB_STATEMENT_TIMEOUT", db.StatementTimeout)
	db.AutoMigrate = getEnvAsBool("DB_AUTO_MIGRATE", db.AutoMigrate)

	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)

	ex := &c.Extraction
	ex.Pdftotext = getEnv("PDFTOTEXT_BIN", ex.Pdftotext)
	ex.ExternalExecutable = getEnv("CNIS_EXTRACTOR_BIN", ex.ExternalExecutable)
	ex.ExternalScript = getEnv("CNIS_EXTRACTOR_SCRIPT", ex.ExternalScript)
	ex.ExternalTimeout = getEnvAsDuration("CNIS_EXTRACTOR_TIMEOUT", ex.ExternalTimeout)
	ex.Capabilities = getEnvAsList("CNIS_EXTRACTOR_CAPABILITIES", ex.Capabilities)

	p := &c.Pipeline
	p.DedupPolicy = getEnv("DEDUP_POLICY", p.DedupPolicy)
	p.Workers = getEnvAsInt("PIPELINE_WORKERS", p.Workers)
	p.QueueSize = getEnvAsInt("PIPELINE_QUEUE_SIZE", p.QueueSize)
	p.ProcessTimeout = getEnvAsDuration("PIPELINE_PROCESS_TIMEOUT", p.ProcessTimeout)
	p.BatchConcurrency = getEnvAsInt("BATCH_CONCURRENCY", p.BatchConcurrency)

	l := &c.Log
	l.Level = getEnv("LOG_LEVEL", l.Level)
	l.Format = getEnv("LOG_FORMAT", l.Format)
	l.File = getEnv("LOG_FILE", l.File)
	l.MaxSizeMB = getEnvAsInt("LOG_MAX_SIZE_MB", l.MaxSizeMB)
	l.MaxBackups = getEnvAsInt("LOG_MAX_BACKUPS", l.MaxBackups)
	l.MaxAgeDays = getEnvAsInt("LOG_MAX_AGE_DAYS", l.MaxAgeDays)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	out := []string{}
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if _, ok := constants.ParseDedupPolicy(c.Pipeline.DedupPolicy); !ok {
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown dedup policy %q", c.Pipeline.DedupPolicy), ErrInvalidInput)
	}
	if c.Pipeline.Workers <= 0 {
		return NewAppError("CONFIG_ERROR", "PIPELINE_WORKERS must be positive", ErrInvalidInput)
	}
	if c.Extraction.ExternalTimeout < 0 {
		return NewAppError("CONFIG_ERROR", "CNIS_EXTRACTOR_TIMEOUT must not be negative", ErrInvalidInput)
	}
	if c.Server.GRPCAddr == "" {
		return NewAppError("CONFIG_ERROR", "GRPC_ADDR is required", ErrInvalidInput)
	}
	return nil
}
