package clone

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
)

// Option configures a Codec.
type Option func(*Codec)

// WithMaxDepth bounds the nesting depth of arrays and objects on both
// serialize and deserialize. Values below 1 are ignored.
func WithMaxDepth(n int) Option {
	return func(c *Codec) {
		if n > 0 {
			c.maxDepth = n
		}
	}
}

// WithRegistry sets the realms a transfer must reach to neuter views.
func WithRegistry(r *RealmRegistry) Option {
	return func(c *Codec) {
		if r != nil {
			c.registry = r
		}
	}
}

// WithLogger sets the logger of a Codec. By default the package Logger is used.
func WithLogger(l *zap.Logger) Option {
	return func(c *Codec) {
		if l != nil {
			c.log = l
		}
	}
}

// Config is the file form of the codec options.
type Config struct {
	MaxDepth int      `toml:"max_depth"`
	Realms   []string `toml:"realms"`
	LogLevel string   `toml:"log_level"`
}

// DefaultConfig returns the configuration New uses when no option is given.
func DefaultConfig() Config {
	return Config{MaxDepth: DefaultMaxDepth, LogLevel: "info"}
}

// LoadConfig reads a TOML file. Keys that are absent keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	var raw Config
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load clone config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load clone config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("max_depth") {
		cfg.MaxDepth = raw.MaxDepth
	}
	if meta.IsDefined("realms") {
		cfg.Realms = normalizeNames(raw.Realms)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(raw.LogLevel))
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the ranges of the configuration.
func (c Config) Validate() error {
	if c.MaxDepth < 1 {
		return fmt.Errorf("invalid max_depth %d: must be positive", c.MaxDepth)
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return nil
}

// Options converts the configuration to codec options. Every listed realm is
// registered in a fresh registry.
func (c Config) Options() []Option {
	opts := []Option{WithMaxDepth(c.MaxDepth)}
	if len(c.Realms) > 0 {
		registry := NewRealmRegistry()
		for _, name := range c.Realms {
			registry.Register(NewRealm(name))
		}
		opts = append(opts, WithRegistry(registry))
	}
	return opts
}

func normalizeNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
