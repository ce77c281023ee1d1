// Package config loads fieldsync settings from defaults, an optional config
// file and FIELDSYNC_ environment variables, in increasing precedence.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. FIELDSYNC_REDIS_ADDR.
const EnvPrefix = "FIELDSYNC"

type Config struct {
	Database   string
	ContextID  string
	Redis      RedisConfig
	API        APIConfig
	Bridge     BridgeConfig
	QuickBooks QuickBooksConfig
	Schedule   ScheduleConfig
	Twilio     TwilioConfig
}

// RedisConfig enables the cross-context change signal when Addr is set.
type RedisConfig struct {
	Addr    string
	Channel string
}

type APIConfig struct {
	Addr string
}

// BridgeConfig holds both the bridge listen address and the URL the
// accounting client posts to.
type BridgeConfig struct {
	Addr    string
	URL     string
	Timeout time.Duration
}

type QuickBooksConfig struct {
	ClientID    string
	AccessToken string
	RealmID     string
	BaseURL     string
}

// ScheduleConfig holds cron specs. An empty spec disables the job.
type ScheduleConfig struct {
	Resync    string
	Reminders string
}

// TwilioConfig enables SMS delivery when every field is set.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string
}

// Enabled reports whether SMS delivery is configured.
func (t TwilioConfig) Enabled() bool {
	return t.AccountSID != "" && t.AuthToken != "" && t.From != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database", "fieldsync.db")
	v.SetDefault("context_id", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.channel", "fieldsync:changes")
	v.SetDefault("api.addr", "127.0.0.1:8080")
	v.SetDefault("bridge.addr", "127.0.0.1:8090")
	v.SetDefault("bridge.url", "http://127.0.0.1:8090")
	v.SetDefault("bridge.timeout", "15s")
	v.SetDefault("quickbooks.client_id", "")
	v.SetDefault("quickbooks.access_token", "")
	v.SetDefault("quickbooks.realm_id", "")
	v.SetDefault("quickbooks.base_url", "")
	v.SetDefault("schedule.resync", "@every 15m")
	v.SetDefault("schedule.reminders", "0 9 * * *")
	v.SetDefault("twilio.account_sid", "")
	v.SetDefault("twilio.auth_token", "")
	v.SetDefault("twilio.from", "")
}

// Load reads the configuration. path may be empty; otherwise it names a
// file in any format viper reads, including .env files.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext == "env" || filepath.Base(path) == ".env" {
			v.SetConfigType("env")
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	timeout, err := time.ParseDuration(v.GetString("bridge.timeout"))
	if err != nil {
		return nil, fmt.Errorf("bridge.timeout: %w", err)
	}

	return &Config{
		Database:  v.GetString("database"),
		ContextID: v.GetString("context_id"),
		Redis: RedisConfig{
			Addr:    v.GetString("redis.addr"),
			Channel: v.GetString("redis.channel"),
		},
		API: APIConfig{Addr: v.GetString("api.addr")},
		Bridge: BridgeConfig{
			Addr:    v.GetString("bridge.addr"),
			URL:     v.GetString("bridge.url"),
			Timeout: timeout,
		},
		QuickBooks: QuickBooksConfig{
			ClientID:    v.GetString("quickbooks.client_id"),
			AccessToken: v.GetString("quickbooks.access_token"),
			RealmID:     v.GetString("quickbooks.realm_id"),
			BaseURL:     v.GetString("quickbooks.base_url"),
		},
		Schedule: ScheduleConfig{
			Resync:    v.GetString("schedule.resync"),
			Reminders: v.GetString("schedule.reminders"),
		},
		Twilio: TwilioConfig{
			AccountSID: v.GetString("twilio.account_sid"),
			AuthToken:  v.GetString("twilio.auth_token"),
			From:       v.GetString("twilio.from"),
		},
	}, nil
}
