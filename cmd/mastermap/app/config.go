package app

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/mastermap/internal/config"
	"github.com/agentstation/mastermap/pkg/constants"
	"github.com/agentstation/mastermap/pkg/errors"
)

// Storage backends.
const (
	BackendS3     = "s3"
	BackendBolt   = "bolt"
	BackendDir    = "dir"
	BackendMemory = "memory"
)

// Config holds the application configuration loaded from config files,
// environment variables and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Storage
	Backend   string
	Namespace string
	S3        S3Config
	BoltPath  string
	DirRoot   string

	// Engine
	CanonicalTables  []string
	IdentifierLength int
	MaxIterations    int
	Workers          int

	// Pause webhook
	Pause PauseConfig

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// S3Config holds object store settings.
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	PathStyle bool
}

// PauseConfig holds the webhook notified when a run awaits resolution.
// An empty URL disables the notification.
type PauseConfig struct {
	URL    string
	Token  string
	Header string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables
// 3. .env files
// 4. Config file (~/.mastermap.yaml or ./.mastermap.yaml)
// 5. Defaults
func LoadConfig() (*Config, error) {
	loadEnvFiles()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	setDefaults()

	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".mastermap")
	}
	// A missing config file is fine.
	_ = viper.ReadInConfig()

	creds := config.ObjectStore()
	cfg := &Config{
		Verbose: viper.GetBool("verbose"),
		Quiet:   viper.GetBool("quiet"),
		NoColor: viper.GetBool("no-color"),
		Format:  viper.GetString("format"),

		ConfigFile: viper.ConfigFileUsed(),

		Backend:   viper.GetString("backend"),
		Namespace: viper.GetString("namespace"),
		S3: S3Config{
			Endpoint:  firstNonEmpty(viper.GetString("s3.endpoint"), creds.Endpoint),
			Region:    viper.GetString("s3.region"),
			Bucket:    firstNonEmpty(viper.GetString("s3.bucket"), creds.Bucket),
			AccessKey: firstNonEmpty(viper.GetString("s3.access_key"), creds.AccessKey),
			SecretKey: firstNonEmpty(viper.GetString("s3.secret_key"), creds.SecretKey),
			PathStyle: viper.GetBool("s3.path_style"),
		},
		BoltPath: viper.GetString("bolt.path"),
		DirRoot:  viper.GetString("dir.root"),

		CanonicalTables:  viper.GetStringSlice("canonical_tables"),
		IdentifierLength: viper.GetInt("identifier_length"),
		MaxIterations:    viper.GetInt("max_iterations"),
		Workers:          viper.GetInt("workers"),

		Pause: PauseConfig{
			URL:    viper.GetString("pause.url"),
			Token:  viper.GetString("pause.token"),
			Header: viper.GetString("pause.header"),
		},

		LogLevel:  os.Getenv("LOG_LEVEL"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("backend", BackendS3)
	viper.SetDefault("s3.region", "us-east-1")
	viper.SetDefault("s3.path_style", true)
	viper.SetDefault("bolt.path", "mastermap.db")
	viper.SetDefault("dir.root", ".")
	viper.SetDefault("canonical_tables", []string{constants.UnitBasicsTable, constants.SurveyUnitBasicsTable})
	viper.SetDefault("identifier_length", constants.IdentifierLength)
	viper.SetDefault("max_iterations", constants.MaxIterations)
	viper.SetDefault("workers", constants.DefaultWorkers)
}

// Validate checks the settings that do not depend on the chosen command.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendS3, BackendBolt, BackendDir, BackendMemory:
	default:
		return errors.NewConfigError("backend", "unknown backend "+c.Backend+" (want s3, bolt, dir or memory)", nil)
	}
	if c.MaxIterations <= 0 {
		return errors.NewConfigError("engine", "max_iterations must be positive", nil)
	}
	if c.Workers <= 0 || c.Workers > constants.MaxWorkers {
		return errors.NewConfigError("engine", "workers out of range", nil)
	}
	return nil
}

// UpdateFromFlags applies parsed global flags, which take precedence over
// config file and env values.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads .env then .env.local; values already set win.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
