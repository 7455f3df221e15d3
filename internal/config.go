package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultAPIURL     = "https://newcastle.urbanobservatory.ac.uk/api/v1.1"
	DefaultAPITimeout = 100 * time.Second
	DefaultLastNDays  = 1
	DefaultParallel   = 4
	DefaultDataDir    = "./data"
	DefaultCacheTTL   = 24 * time.Hour

	// EnvPrefix is the prefix of environment variables overriding config keys.
	EnvPrefix = "EDS_SENSORS"
)

// Config is the runtime configuration.
type Config struct {
	APIURL     string
	APITimeout time.Duration
	// LastNDays is the window of raw readings sampled to infer a schema.
	LastNDays int
	Parallel  int
	// Limit is the max number of sensor types converted when none are named, 0 for all.
	Limit    int
	DataDir  string
	CacheTTL time.Duration
	Verbose  bool
	Silent   bool
}

// SetConfigDefaults registers the default value of every config key.
func SetConfigDefaults(v *viper.Viper) {
	v.SetDefault("api.url", DefaultAPIURL)
	v.SetDefault("api.timeout", DefaultAPITimeout)
	v.SetDefault("sample.last_n_days", DefaultLastNDays)
	v.SetDefault("parallel", DefaultParallel)
	v.SetDefault("limit", 0)
	v.SetDefault("data-dir", DefaultDataDir)
	v.SetDefault("cache.ttl", DefaultCacheTTL)
	v.SetDefault("verbose", false)
	v.SetDefault("silent", false)
}

// NewViper returns a viper instance with defaults and environment overrides. If configFile is
// not empty it is read as well.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetConfigDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	}
	return v, nil
}

// LoadConfig reads the config from v and validates it.
func LoadConfig(v *viper.Viper) (*Config, error) {
	config := &Config{
		APIURL:     strings.TrimRight(v.GetString("api.url"), "/"),
		APITimeout: v.GetDuration("api.timeout"),
		LastNDays:  v.GetInt("sample.last_n_days"),
		Parallel:   v.GetInt("parallel"),
		Limit:      v.GetInt("limit"),
		DataDir:    v.GetString("data-dir"),
		CacheTTL:   v.GetDuration("cache.ttl"),
		Verbose:    v.GetBool("verbose"),
		Silent:     v.GetBool("silent"),
	}
	if config.APIURL == "" {
		return nil, fmt.Errorf("api.url is required")
	}
	if config.APITimeout <= 0 {
		return nil, fmt.Errorf("api.timeout must be positive, was %s", config.APITimeout)
	}
	if config.LastNDays <= 0 {
		return nil, fmt.Errorf("sample.last_n_days must be positive, was %d", config.LastNDays)
	}
	if config.Parallel <= 0 {
		config.Parallel = 1
	} else if config.Parallel > 99 {
		config.Parallel = 99
	}
	if config.Limit < 0 {
		config.Limit = 0
	}
	return config, nil
}
