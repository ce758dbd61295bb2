// Package config provides functionality for managing configuration options
// for the application using command-line flags, a JSON config file, a .env
// file and environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Options holds the configuration values for the application.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string `json:"port"`

	// DatabaseDSN holds the database connection string for the application.
	// postgres:// URLs select PostgreSQL, sqlite:// or file: select SQLite.
	DatabaseDSN string `json:"database_dsn"`

	// RedisURL selects the Redis session store; empty keeps sessions in memory.
	RedisURL string `json:"redis_url"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level"`

	// SessionTTL is how long an idle session survives.
	SessionTTL time.Duration `json:"-"`

	// SecureCookies marks session and CSRF cookies HTTPS-only.
	SecureCookies bool `json:"secure_cookies"`

	// CSRFKey is the 32-byte CSRF auth key; empty disables CSRF protection.
	CSRFKey string `json:"csrf_key"`

	// ResetTokenTTL is how long a password-reset link stays valid.
	ResetTokenTTL time.Duration `json:"-"`

	// RejectPastDatesOnEdit applies the "no past dates" rule to edits too.
	RejectPastDatesOnEdit bool `json:"reject_past_dates_on_edit"`

	// BaseURL prefixes links in outgoing mail.
	BaseURL string `json:"base_url"`

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `json:"tls_cert"`
	TLSKey  string `json:"tls_key"`

	// Config is the path to the Config file.
	Config string `json:"-"`

	// EnvFile is the path to an optional .env file.
	EnvFile string `json:"-"`
}

// fileDurations carries the duration settings of the JSON file as strings
// such as "24h".
type fileDurations struct {
	SessionTTL    string `json:"session_ttl"`
	ResetTokenTTL string `json:"reset_token_ttl"`
}

// Parse reads os.Args, the config file, .env and the environment.
// Later sources override earlier ones.
func Parse() (*Options, error) {
	return parse(os.Args[1:], os.LookupEnv)
}

func parse(args []string, lookupEnv func(string) (string, bool)) (*Options, error) {
	options := &Options{}

	flags := flag.NewFlagSet("studymate", flag.ContinueOnError)
	flags.StringVar(&options.Port, "a", "localhost:8080", "run on ip:port server")
	flags.StringVar(&options.DatabaseDSN, "d", "sqlite://studymate.db", "db address")
	flags.StringVar(&options.RedisURL, "r", "", "redis url for sessions")
	flags.StringVar(&options.LogLevel, "l", "info", "log level")
	flags.DurationVar(&options.SessionTTL, "session-ttl", 24*time.Hour, "idle session lifetime")
	flags.DurationVar(&options.ResetTokenTTL, "reset-ttl", time.Hour, "password reset link lifetime")
	flags.BoolVar(&options.SecureCookies, "secure-cookies", false, "send cookies over HTTPS only")
	flags.BoolVar(&options.RejectPastDatesOnEdit, "reject-past-edits", false, "reject past dates when editing events")
	flags.StringVar(&options.BaseURL, "base-url", "http://localhost:8080", "public base url")
	flags.StringVar(&options.Config, "config", "config.json", "path to config file")
	flags.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
	flags.StringVar(&options.EnvFile, "env", ".env", "path to .env file")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	dotenv := map[string]string{}
	if options.EnvFile != "" {
		values, err := godotenv.Read(options.EnvFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", options.EnvFile, err)
		}
		if values != nil {
			dotenv = values
		}
	}
	getenv := func(key string) (string, bool) {
		if v, ok := lookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}

	// Override flags with environment variables if set
	if configPath, ok := getenv("CONFIG"); ok && configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if err := loadFile(options); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(options, getenv); err != nil {
		return nil, err
	}
	return options, nil
}

func loadFile(options *Options) error {
	data, err := os.ReadFile(options.Config)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error while reading config file: %w", err)
	}
	if err := json.Unmarshal(data, options); err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}

	var d fileDurations
	if err := json.Unmarshal(data, &d); err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}
	if err := setDuration(&options.SessionTTL, "session_ttl", d.SessionTTL); err != nil {
		return err
	}
	return setDuration(&options.ResetTokenTTL, "reset_token_ttl", d.ResetTokenTTL)
}

func applyEnv(options *Options, getenv func(string) (string, bool)) error {
	strs := map[string]*string{
		"SERVER_ADDRESS": &options.Port,
		"DATABASE_DSN":   &options.DatabaseDSN,
		"REDIS_URL":      &options.RedisURL,
		"LOG_LEVEL":      &options.LogLevel,
		"CSRF_KEY":       &options.CSRFKey,
		"BASE_URL":       &options.BaseURL,
		"TLS_CERT":       &options.TLSCert,
		"TLS_KEY":        &options.TLSKey,
	}
	for key, dst := range strs {
		if v, ok := getenv(key); ok && v != "" {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"SECURE_COOKIES":            &options.SecureCookies,
		"REJECT_PAST_DATES_ON_EDIT": &options.RejectPastDatesOnEdit,
	}
	for key, dst := range bools {
		if v, ok := getenv(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = b
		}
	}

	durations := map[string]*time.Duration{
		"SESSION_TTL":     &options.SessionTTL,
		"RESET_TOKEN_TTL": &options.ResetTokenTTL,
	}
	for key, dst := range durations {
		if v, ok := getenv(key); ok {
			if err := setDuration(dst, key, v); err != nil {
				return err
			}
		}
	}

	if options.CSRFKey != "" && len(options.CSRFKey) != 32 {
		return fmt.Errorf("CSRF_KEY must be 32 bytes, got %d", len(options.CSRFKey))
	}
	return nil
}

func setDuration(dst *time.Duration, name, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive", name)
	}
	*dst = d
	return nil
}
