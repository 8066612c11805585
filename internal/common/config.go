package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Environment string            `toml:"environment" yaml:"environment"` // "development" or "production"
	Server      ServerConfig      `toml:"server" yaml:"server"`
	Logging     LoggingConfig     `toml:"logging" yaml:"logging"`
	Storage     StorageConfig     `toml:"storage" yaml:"storage"`
	Intake      IntakeConfig      `toml:"intake" yaml:"intake"`
	Queue       QueueConfig       `toml:"queue" yaml:"queue"`
	Blob        BlobConfig        `toml:"blob" yaml:"blob"`
	OCR         OCRConfig         `toml:"ocr" yaml:"ocr"`
	LLM         LLMConfig         `toml:"llm" yaml:"llm"`
	Registry    RegistryConfig    `toml:"registry" yaml:"registry"`
	Forensic    ForensicConfig    `toml:"forensic" yaml:"forensic"`
	Maintenance MaintenanceConfig `toml:"maintenance" yaml:"maintenance"`
}

type ServerConfig struct {
	Host        string   `toml:"host" yaml:"host"`
	Port        int      `toml:"port" yaml:"port"`
	CORSOrigins []string `toml:"cors_origins" yaml:"cors_origins"`
}

type LoggingConfig struct {
	Level      string   `toml:"level" yaml:"level"`             // "debug", "info", "warn", "error"
	Output     []string `toml:"output" yaml:"output"`           // "stdout", "file"
	File       string   `toml:"file" yaml:"file"`               // Log file path when "file" output is enabled
	MaxSizeMB  int      `toml:"max_size_mb" yaml:"max_size_mb"` // Rolling file size limit
	TimeFormat string   `toml:"time_format" yaml:"time_format"` // Time format for logs
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger" yaml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" yaml:"path"`                         // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup" yaml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type IntakeConfig struct {
	UploadDir     string `toml:"upload_dir" yaml:"upload_dir"`           // Staging directory for submitted blobs
	MaxUploadSize int64  `toml:"max_upload_size" yaml:"max_upload_size"` // Hard upload cap in bytes
	UseQueue      bool   `toml:"use_queue" yaml:"use_queue"`             // Route intake through the work queue instead of in-process dispatch
}

type QueueConfig struct {
	Backend           string `toml:"backend" yaml:"backend"`                       // "badger" or "sqs"
	Name              string `toml:"name" yaml:"name"`                             // Queue name prefix in Badger
	SQSQueueURL       string `toml:"sqs_queue_url" yaml:"sqs_queue_url"`           // SQS queue URL when backend is "sqs"
	Region            string `toml:"region" yaml:"region"`                         // AWS region for SQS
	PollWaitSeconds   int    `toml:"poll_wait_seconds" yaml:"poll_wait_seconds"`   // Long-poll wait
	VisibilitySeconds int    `toml:"visibility_seconds" yaml:"visibility_seconds"` // Message visibility timeout
	Workers           int    `toml:"workers" yaml:"workers"`                       // Concurrent dispatcher workers
	MaxReceive        int    `toml:"max_receive" yaml:"max_receive"`               // Max receives before a message is dropped
}

type BlobConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"` // Toggle durable archival
	Backend string `toml:"backend" yaml:"backend"` // "fs" or "s3"
	Dir     string `toml:"dir" yaml:"dir"`         // Root directory for the filesystem backend
	Bucket  string `toml:"bucket" yaml:"bucket"`
	Region  string `toml:"region" yaml:"region"`
}

type OCRConfig struct {
	Provider        string `toml:"provider" yaml:"provider"` // "textract" or "stub"
	Region          string `toml:"region" yaml:"region"`
	TimeoutSeconds  int    `toml:"timeout_seconds" yaml:"timeout_seconds"`
	PageConcurrency int    `toml:"page_concurrency" yaml:"page_concurrency"` // Bounded parallel page OCR calls
}

type LLMConfig struct {
	Enabled        bool   `toml:"enabled" yaml:"enabled"`
	Provider       string `toml:"provider" yaml:"provider"` // "claude" or "gemini"
	Model          string `toml:"model" yaml:"model"`
	APIKey         string `toml:"api_key" yaml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds" yaml:"timeout_seconds"`
}

type RegistryConfig struct {
	CompaniesHouse CompaniesHouseConfig `toml:"companies_house" yaml:"companies_house"`
	HMRC           HMRCConfig           `toml:"hmrc" yaml:"hmrc"`
}

type CompaniesHouseConfig struct {
	APIKey         string `toml:"api_key" yaml:"api_key"`
	BaseURL        string `toml:"base_url" yaml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds" yaml:"timeout_seconds"`
	RateLimit      int    `toml:"rate_limit" yaml:"rate_limit"` // Requests per second
}

type HMRCConfig struct {
	BaseURL        string `toml:"base_url" yaml:"base_url"`
	TokenURL       string `toml:"token_url" yaml:"token_url"`
	ClientID       string `toml:"client_id" yaml:"client_id"`
	ClientSecret   string `toml:"client_secret" yaml:"client_secret"`
	UseOAuth       bool   `toml:"use_oauth" yaml:"use_oauth"`
	ServerToken    string `toml:"server_token" yaml:"server_token"` // Static token when OAuth is disabled
	TimeoutSeconds int    `toml:"timeout_seconds" yaml:"timeout_seconds"`
}

type ForensicConfig struct {
	ScratchDir string `toml:"scratch_dir" yaml:"scratch_dir"` // Scratch area for re-encoded ELA images and rasterized pages
}

type MaintenanceConfig struct {
	StaleJobMinutes       int    `toml:"stale_job_minutes" yaml:"stale_job_minutes"`             // Age after which a PROCESSING job is flipped to failed
	SweepSchedule         string `toml:"sweep_schedule" yaml:"sweep_schedule"`                   // Cron schedule for the maintenance sweep
	ScratchRetentionHours int    `toml:"scratch_retention_hours" yaml:"scratch_retention_hours"` // Age after which scratch files are removed
}

// NewDefaultConfig returns the built-in defaults, overridden by files and env.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host:        "localhost",
			Port:        8190,
			CORSOrigins: []string{"*"},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/probo",
			},
		},
		Intake: IntakeConfig{
			UploadDir:     "./data/uploads",
			MaxUploadSize: 10 * 1024 * 1024,
			UseQueue:      true,
		},
		Queue: QueueConfig{
			Backend:           "badger",
			Name:              "verify",
			PollWaitSeconds:   20,
			VisibilitySeconds: 900,
			Workers:           2,
			MaxReceive:        3,
		},
		Blob: BlobConfig{
			Enabled: false,
			Backend: "fs",
			Dir:     "./data/archive",
		},
		OCR: OCRConfig{
			Provider:        "textract",
			Region:          "eu-west-2",
			TimeoutSeconds:  120,
			PageConcurrency: 4,
		},
		LLM: LLMConfig{
			Enabled:        true,
			Provider:       "claude",
			Model:          "claude-haiku-3-5-20241022",
			TimeoutSeconds: 120,
		},
		Registry: RegistryConfig{
			CompaniesHouse: CompaniesHouseConfig{
				BaseURL:        "https://api.company-information.service.gov.uk",
				TimeoutSeconds: 15,
				RateLimit:      5,
			},
			HMRC: HMRCConfig{
				BaseURL:        "https://api.service.hmrc.gov.uk",
				TokenURL:       "https://api.service.hmrc.gov.uk/oauth/token",
				UseOAuth:       true,
				TimeoutSeconds: 15,
			},
		},
		Forensic: ForensicConfig{
			ScratchDir: "./data/scratch",
		},
		Maintenance: MaintenanceConfig{
			StaleJobMinutes:       30,
			SweepSchedule:         "@every 5m",
			ScratchRetentionHours: 24,
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env. Later files override earlier
// files. Files ending in .yaml/.yml are parsed as YAML, otherwise TOML.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(data, config)
		default:
			err = toml.Unmarshal(data, config)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("PROBO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("PROBO_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("PROBO_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if origins := os.Getenv("PROBO_CORS_ORIGINS"); origins != "" {
		config.Server.CORSOrigins = splitAndTrim(origins)
	}

	if level := os.Getenv("PROBO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("PROBO_LOG_OUTPUT"); output != "" {
		config.Logging.Output = splitAndTrim(output)
	}

	if path := os.Getenv("PROBO_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}

	if dir := os.Getenv("PROBO_UPLOAD_DIR"); dir != "" {
		config.Intake.UploadDir = dir
	}
	if size := os.Getenv("PROBO_MAX_UPLOAD_SIZE"); size != "" {
		if s, err := strconv.ParseInt(size, 10, 64); err == nil {
			config.Intake.MaxUploadSize = s
		}
	}
	if useQueue := os.Getenv("PROBO_USE_QUEUE"); useQueue != "" {
		config.Intake.UseQueue = useQueue == "true" || useQueue == "1"
	}

	if backend := os.Getenv("PROBO_QUEUE_BACKEND"); backend != "" {
		config.Queue.Backend = backend
	}
	if url := os.Getenv("PROBO_SQS_QUEUE_URL"); url != "" {
		config.Queue.SQSQueueURL = url
	}
	if region := os.Getenv("AWS_REGION"); region != "" {
		if config.Queue.Region == "" {
			config.Queue.Region = region
		}
		if config.Blob.Region == "" {
			config.Blob.Region = region
		}
		if config.OCR.Region == "" {
			config.OCR.Region = region
		}
	}
	if workers := os.Getenv("PROBO_QUEUE_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 {
			config.Queue.Workers = w
		}
	}

	if enabled := os.Getenv("PROBO_BLOB_ENABLED"); enabled != "" {
		config.Blob.Enabled = enabled == "true" || enabled == "1"
	}
	if bucket := os.Getenv("PROBO_BLOB_BUCKET"); bucket != "" {
		config.Blob.Bucket = bucket
		config.Blob.Backend = "s3"
	}

	if provider := os.Getenv("PROBO_OCR_PROVIDER"); provider != "" {
		config.OCR.Provider = provider
	}

	if enabled := os.Getenv("PROBO_LLM_ENABLED"); enabled != "" {
		config.LLM.Enabled = enabled == "true" || enabled == "1"
	}
	if provider := os.Getenv("PROBO_LLM_PROVIDER"); provider != "" {
		config.LLM.Provider = provider
	}
	if model := os.Getenv("PROBO_LLM_MODEL"); model != "" {
		config.LLM.Model = model
	}
	if key := os.Getenv("PROBO_LLM_API_KEY"); key != "" {
		config.LLM.APIKey = key
	} else if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && config.LLM.APIKey == "" {
		config.LLM.APIKey = key
	}

	if key := os.Getenv("PROBO_COMPANIES_HOUSE_API_KEY"); key != "" {
		config.Registry.CompaniesHouse.APIKey = key
	}
	if id := os.Getenv("PROBO_HMRC_CLIENT_ID"); id != "" {
		config.Registry.HMRC.ClientID = id
	}
	if secret := os.Getenv("PROBO_HMRC_CLIENT_SECRET"); secret != "" {
		config.Registry.HMRC.ClientSecret = secret
	}
	if token := os.Getenv("PROBO_HMRC_SERVER_TOKEN"); token != "" {
		config.Registry.HMRC.ServerToken = token
		config.Registry.HMRC.UseOAuth = false
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// DeepCloneConfig returns an independent copy of the config.
func DeepCloneConfig(config *Config) *Config {
	if config == nil {
		return nil
	}
	clone := *config
	clone.Server.CORSOrigins = append([]string(nil), config.Server.CORSOrigins...)
	clone.Logging.Output = append([]string(nil), config.Logging.Output...)
	return &clone
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
