// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config resolves the runtime configuration from defaults,
// an optional YAML file, MAILSHEET_* environment variables, and
// command line flags, in rising precedence.
package config

import (
	"strings"
	"time"

	"github.com/matta/mailsheet/internal/paths"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to configuration keys to form environment
// variable names, e.g. spreadsheet_id becomes
// MAILSHEET_SPREADSHEET_ID.
const EnvPrefix = "MAILSHEET"

// State backend names accepted by the state_backend key.
const (
	BackendSheet  = "sheet"
	BackendSQLite = "sqlite"
	BackendFile   = "file"
)

// Config holds everything the commands need to run.
type Config struct {
	// SpreadsheetID names the spreadsheet rows are appended to.
	// Required.
	SpreadsheetID string `mapstructure:"spreadsheet_id"`
	EmailsTab     string `mapstructure:"emails_tab"`
	ProcessedTab  string `mapstructure:"processed_tab"`

	// Query is the mailbox search the sync starts from.
	Query string `mapstructure:"query"`

	// Include and Exclude are subject keywords; a message is kept
	// when its subject contains any include keyword and no
	// exclude keyword.
	Include []string `mapstructure:"include"`
	Exclude []string `mapstructure:"exclude"`

	CredentialsFile string `mapstructure:"credentials_file"`
	TokenFile       string `mapstructure:"token_file"`

	// StateBackend selects where delivered ids are kept: sheet,
	// sqlite, or file.
	StateBackend string `mapstructure:"state_backend"`
	StateDB      string `mapstructure:"state_db"`
	StateFile    string `mapstructure:"state_file"`

	// MaxMessages caps how many new messages one run takes on.
	// Zero means no cap.
	MaxMessages      int  `mapstructure:"max_messages"`
	FetchConcurrency int  `mapstructure:"fetch_concurrency"`
	DryRun           bool `mapstructure:"dry_run"`

	Retry RetryConfig `mapstructure:"retry"`

	LogLevel string `mapstructure:"log_level"`
	Trace    bool   `mapstructure:"trace"`
}

// RetryConfig bounds how remote call failures are retried.
type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
}

// flagKeys maps command line flag names to configuration keys.
var flagKeys = map[string]string{
	"spreadsheet-id":    "spreadsheet_id",
	"emails-tab":        "emails_tab",
	"processed-tab":     "processed_tab",
	"query":             "query",
	"include":           "include",
	"exclude":           "exclude",
	"credentials":       "credentials_file",
	"token":             "token_file",
	"state-backend":     "state_backend",
	"state-db":          "state_db",
	"state-file":        "state_file",
	"max-messages":      "max_messages",
	"fetch-concurrency": "fetch_concurrency",
	"dry-run":           "dry_run",
	"log-level":         "log_level",
	"trace":             "trace",
}

// Load resolves the configuration.  When cfgFile is empty the config
// directory is searched for a config.yaml, and it is fine for none
// to exist.  Flags, when non-nil, override everything else, but only
// the flags actually set on the command line.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config file %q", cfgFile)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(paths.ConfigDir())
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(err, "reading config file")
			}
		}
	}

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decoding configuration")
	}
	return &cfg, nil
}

// setDefaults also establishes every key so AutomaticEnv finds it
// during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("spreadsheet_id", "")
	v.SetDefault("emails_tab", "Emails")
	v.SetDefault("processed_tab", "Processed")
	v.SetDefault("query", "in:inbox is:unread")
	v.SetDefault("include", []string{"invoice", "receipt", "payment", "bill"})
	v.SetDefault("exclude", []string{})
	v.SetDefault("credentials_file", paths.CredentialsFile())
	v.SetDefault("token_file", paths.TokenFile())
	v.SetDefault("state_backend", BackendSheet)
	v.SetDefault("state_db", paths.StateDBFile())
	v.SetDefault("state_file", paths.StateFile())
	v.SetDefault("max_messages", 0)
	v.SetDefault("fetch_concurrency", 4)
	v.SetDefault("dry_run", false)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_interval", 500*time.Millisecond)
	v.SetDefault("retry.max_interval", time.Minute)
	v.SetDefault("log_level", "info")
	v.SetDefault("trace", false)
}

// bindFlags binds only the flags set on the command line, so flag
// defaults never shadow file or environment values.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var err error
	flags.Visit(func(fl *pflag.Flag) {
		key, ok := flagKeys[fl.Name]
		if !ok {
			return
		}
		if e := v.BindPFlag(key, fl); e != nil && err == nil {
			err = e
		}
	})
	return errors.Wrap(err, "binding flags")
}

// Validate reports values the sync cannot run with.
func (c *Config) Validate() error {
	if c.SpreadsheetID == "" {
		return errors.New("spreadsheet_id is required; pass --spreadsheet-id or set MAILSHEET_SPREADSHEET_ID")
	}
	if c.EmailsTab == "" || c.ProcessedTab == "" {
		return errors.New("emails_tab and processed_tab must not be empty")
	}
	switch c.StateBackend {
	case BackendSheet, BackendSQLite, BackendFile:
	default:
		return errors.Errorf("unknown state_backend %q; want %s, %s, or %s",
			c.StateBackend, BackendSheet, BackendSQLite, BackendFile)
	}
	if c.Retry.MaxAttempts < 1 {
		return errors.New("retry.max_attempts must be at least 1")
	}
	if c.FetchConcurrency < 1 {
		return errors.New("fetch_concurrency must be at least 1")
	}
	if c.MaxMessages < 0 {
		return errors.New("max_messages cannot be negative")
	}
	return nil
}
