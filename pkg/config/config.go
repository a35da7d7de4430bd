package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-go-golems/leadctl/pkg/jobclient"
	"github.com/go-go-golems/leadctl/pkg/state"
	"github.com/go-go-golems/leadctl/pkg/transport"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFilename = ".leadctl.yaml"
	EnvPrefix             = "LEADCTL"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Transport TransportConfig `mapstructure:"transport"`
	Run       RunConfig       `mapstructure:"run"`
	State     StateConfig     `mapstructure:"state"`
}

type ServerConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type TransportConfig struct {
	// URL overrides the feed endpoint derived from server.base_url.
	URL                  string        `mapstructure:"url"`
	Enabled              bool          `mapstructure:"enabled"`
	ReconnectDelay       time.Duration `mapstructure:"reconnect_delay"`
	MaxReconnectAttempts int           `mapstructure:"max_reconnect_attempts"`
	PingInterval         time.Duration `mapstructure:"ping_interval"`
}

// RunConfig holds the defaults the run form and `leadctl run` start from.
type RunConfig struct {
	Niche    string `mapstructure:"niche"`
	MaxSites int    `mapstructure:"max_sites"`
}

type StateConfig struct {
	Dir     string `mapstructure:"dir"`
	Persist bool   `mapstructure:"persist"`
}

func DefaultPath(dir string) string {
	return filepath.Join(dir, DefaultConfigFilename)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.base_url", jobclient.DefaultBaseURL)
	v.SetDefault("server.timeout", jobclient.DefaultTimeout)
	v.SetDefault("transport.url", "")
	v.SetDefault("transport.enabled", true)
	v.SetDefault("transport.reconnect_delay", transport.DefaultReconnectDelay)
	v.SetDefault("transport.max_reconnect_attempts", transport.DefaultMaxReconnectAttempts)
	v.SetDefault("transport.ping_interval", time.Duration(0))
	v.SetDefault("run.niche", "")
	v.SetDefault("run.max_sites", jobclient.DefaultMaxSites)
	v.SetDefault("state.dir", state.DefaultDir())
	v.SetDefault("state.persist", true)
}

// Default returns the configuration used when no file, env or flag is set.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Load reads, in increasing precedence: defaults, the config file, .env and
// LEADCTL_* environment variables, then any changed flags in flags. With an
// empty configPath, .leadctl.yaml is looked up in the working directory and
// the home directory.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Debug().Err(err).Msg("ignoring unreadable .env")
	}

	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(strings.TrimSuffix(DefaultConfigFilename, ".yaml"))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config file")
		}
	} else {
		log.Debug().Str("path", v.ConfigFileUsed()).Msg("loaded config file")
	}

	applyFlags(v, flags)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// flagKeys maps root command flags onto config keys.
var flagKeys = map[string]string{
	"server":     "server.base_url",
	"timeout":    "server.timeout",
	"state-dir":  "state.dir",
	"no-persist": "state.persist",
}

func applyFlags(v *viper.Viper, flags *pflag.FlagSet) {
	if flags == nil {
		return
	}
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if name == "no-persist" {
			v.Set(key, f.Value.String() != "true")
			continue
		}
		v.Set(key, f.Value.String())
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.BaseURL) == "" {
		return errors.New("server.base_url is required")
	}
	if c.Server.Timeout < 0 {
		return errors.Errorf("server.timeout must not be negative, got %s", c.Server.Timeout)
	}
	if c.Transport.MaxReconnectAttempts < 0 {
		return errors.Errorf("transport.max_reconnect_attempts must not be negative, got %d", c.Transport.MaxReconnectAttempts)
	}
	if c.Run.MaxSites < 0 || c.Run.MaxSites > jobclient.MaxMaxSites {
		return errors.Errorf("run.max_sites must be between 1 and %d, got %d", jobclient.MaxMaxSites, c.Run.MaxSites)
	}
	return nil
}

// FeedURL is transport.url when set, else the feed path under server.base_url.
func (c *Config) FeedURL() (string, error) {
	if c.Transport.URL != "" {
		return c.Transport.URL, nil
	}
	return transport.URLFromBase(c.Server.BaseURL)
}

func (c *Config) JobClientOptions() jobclient.Options {
	return jobclient.Options{
		BaseURL: c.Server.BaseURL,
		Timeout: c.Server.Timeout,
	}
}

func (c *Config) TransportOptions() (transport.Options, error) {
	url, err := c.FeedURL()
	if err != nil {
		return transport.Options{}, err
	}
	return transport.Options{
		URL:                  url,
		Enabled:              c.Transport.Enabled,
		ReconnectDelay:       c.Transport.ReconnectDelay,
		MaxReconnectAttempts: c.Transport.MaxReconnectAttempts,
		PingInterval:         c.Transport.PingInterval,
	}, nil
}

// WriteDefault writes a starter config file. It refuses to overwrite an
// existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return errors.Errorf("%s already exists", path)
		} else if !os.IsNotExist(err) {
			return errors.Wrap(err, "stat config")
		}
	}

	d := Default()
	doc := map[string]any{
		"server": map[string]any{
			"base_url": d.Server.BaseURL,
			"timeout":  d.Server.Timeout.String(),
		},
		"transport": map[string]any{
			"enabled":                d.Transport.Enabled,
			"reconnect_delay":        d.Transport.ReconnectDelay.String(),
			"max_reconnect_attempts": d.Transport.MaxReconnectAttempts,
			"ping_interval":          d.Transport.PingInterval.String(),
		},
		"run": map[string]any{
			"niche":     d.Run.Niche,
			"max_sites": d.Run.MaxSites,
		},
		"state": map[string]any{
			"persist": d.State.Persist,
		},
	}
	b, err := yaml.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "marshal config yaml")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "mkdir config dir")
		}
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return errors.Wrap(err, "write config")
	}
	return nil
}
