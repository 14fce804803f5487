package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPath names the environment variable that points at the profiles file.
const EnvPath = "QPROF_CONFIG"

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "profiles.yaml"

// Connector selects the driver used to reach the warehouse.
type Connector string

const (
	ConnectorSnowflake Connector = "snowflake"
	ConnectorPostgres  Connector = "postgres"
)

// Auth selects how the Snowflake connector authenticates.
type Auth string

const (
	AuthSSO      Auth = "sso"
	AuthPassword Auth = "password"
	AuthKeyPair  Auth = "keypair"
)

const (
	defaultPasswordEnv    = "SNOWFLAKE_PASSWORD"
	defaultPrivateKeyPath = "~/.ssh/id_rsa_snowflake_demo"
)

// Config is the contents of a profiles file.
type Config struct {
	CurrentProfile string             `yaml:"current-profile"`
	LogLevel       string             `yaml:"log-level"`
	Profiles       map[string]Profile `yaml:"profiles"`
}

// Profile describes one warehouse connection.
type Profile struct {
	Connector      Connector     `yaml:"connector"`
	Account        string        `yaml:"account"`
	User           string        `yaml:"user"`
	Role           string        `yaml:"role"`
	Warehouse      string        `yaml:"warehouse"`
	Database       string        `yaml:"database"`
	Schema         string        `yaml:"schema"`
	Auth           Auth          `yaml:"auth"`
	PasswordEnv    string        `yaml:"password-env"`
	PrivateKeyPath string        `yaml:"private-key-path"`
	DSN            string        `yaml:"dsn"`
	FullHistory    string        `yaml:"full-history"`
	FastHistory    string        `yaml:"fast-history"`
	Timeout        time.Duration `yaml:"timeout"`
}

var (
	mu     sync.RWMutex
	active = Default()
)

// Default returns the built-in configuration: a single Snowflake SSO profile whose connection
// settings come from the environment.
func Default() Config {
	return Config{
		CurrentProfile: "default",
		LogLevel:       "warn",
		Profiles: map[string]Profile{
			"default": {
				Connector: ConnectorSnowflake,
				Auth:      AuthSSO,
				Account:   os.Getenv("SNOWFLAKE_ACCOUNT"),
				User:      os.Getenv("SNOWFLAKE_USER"),
				Role:      os.Getenv("SNOWFLAKE_ROLE"),
				Warehouse: os.Getenv("SNOWFLAKE_WAREHOUSE"),
				Database:  os.Getenv("SNOWFLAKE_DATABASE"),
				Schema:    os.Getenv("SNOWFLAKE_SCHEMA"),
			},
		},
	}
}

// Active returns the currently applied configuration.
func Active() Config {
	mu.RLock()
	defer mu.RUnlock()
	return active
}

// Use replaces the active configuration.
func Use(cfg Config) {
	mu.Lock()
	active = cfg
	mu.Unlock()
}

// Apply loads configuration from the provided path (YAML). Empty path resets to default.
func Apply(path string) error {
	if path == "" {
		Use(Default())
		return nil
	}
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	Use(cfg)
	return nil
}

// Load reads a profiles file without applying it.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = map[string]Profile{}
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = Default().LogLevel
	}
	return cfg, nil
}

// Path picks the profiles file: the explicit flag, then $QPROF_CONFIG, then ./profiles.yaml when
// it exists. An empty result means built-in defaults.
func Path(flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv(EnvPath); env != "" {
		return env
	}
	if _, err := os.Stat(DefaultFile); err == nil {
		return DefaultFile
	}
	return ""
}

// ActiveProfile returns the profile named by override, or the current profile when override is
// empty.
func (c Config) ActiveProfile(override string) (Profile, error) {
	name := override
	if name == "" {
		name = c.CurrentProfile
	}
	if name == "" {
		name = "default"
	}
	p, ok := c.Profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("config: profile %q not found", name)
	}
	p = p.withDefaults()
	if err := p.Validate(); err != nil {
		return Profile{}, fmt.Errorf("config: profile %q: %w", name, err)
	}
	return p, nil
}

func (p Profile) withDefaults() Profile {
	if p.Connector == "" {
		p.Connector = ConnectorSnowflake
	}
	if p.Connector == ConnectorSnowflake && p.Auth == "" {
		p.Auth = AuthSSO
	}
	if p.PasswordEnv == "" {
		p.PasswordEnv = defaultPasswordEnv
	}
	if p.PrivateKeyPath == "" {
		p.PrivateKeyPath = defaultPrivateKeyPath
	}
	return p
}

// Validate checks that the profile names everything its connector needs.
func (p Profile) Validate() error {
	switch p.Connector {
	case ConnectorSnowflake:
		var missing []string
		if p.Account == "" {
			missing = append(missing, "account")
		}
		if p.User == "" {
			missing = append(missing, "user")
		}
		if len(missing) > 0 {
			return fmt.Errorf("missing %s", strings.Join(missing, ", "))
		}
		switch p.Auth {
		case AuthSSO, AuthPassword, AuthKeyPair:
		default:
			return fmt.Errorf("unknown auth %q (want sso, password or keypair)", p.Auth)
		}
	case ConnectorPostgres:
		if p.DSN == "" && os.Getenv("DATABASE_URL") == "" {
			return errors.New("missing dsn (or $DATABASE_URL)")
		}
	default:
		return fmt.Errorf("unknown connector %q (want snowflake or postgres)", p.Connector)
	}
	if p.Timeout < 0 {
		return fmt.Errorf("negative timeout %s", p.Timeout)
	}
	return nil
}

// ExpandHome resolves a leading ~/ against the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
