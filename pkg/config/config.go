// Package config loads graphwriter settings from a TOML file.
//
// Every key has a default, so a missing file is not an error:
//
//	cfg, path, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Listen.Address) // 127.0.0.1:14446
//
// Relative paths and a leading "~" in path settings are expanded by
// [Config.Normalize], which Load calls.
package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/graphwriter/pkg/errors"
)

const appName = "graphwriter"

// Graph engines.
const (
	EngineDot      = "dot"
	EngineEmbedded = "embedded"
)

// Cache backends.
const (
	CacheNone  = "none"
	CacheFile  = "file"
	CacheRedis = "redis"
)

// Config is the full configuration file.
type Config struct {
	Listen  Listen  `toml:"listen"`
	Queue   Queue   `toml:"queue"`
	Workers Workers `toml:"workers"`
	Render  Render  `toml:"render"`
	Cache   Cache   `toml:"cache"`
	Admin   Admin   `toml:"admin"`
	Client  Client  `toml:"client"`
	Logging Logging `toml:"logging"`
}

type Listen struct {
	Address     string   `toml:"address"`
	ReadTimeout Duration `toml:"read_timeout"`
}

type Queue struct {
	Capacity int `toml:"capacity"`
}

type Workers struct {
	// Count of zero sizes the pool from the CPU count.
	Count    int `toml:"count"`
	Reserved int `toml:"reserved"`
}

type Render struct {
	WorkDir    string     `toml:"work_dir"`
	Timeout    Duration   `toml:"timeout"`
	SyntaxTree SyntaxTree `toml:"syntax_tree"`
	Graph      Graph      `toml:"graph"`
}

type SyntaxTree struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
	Dir     string   `toml:"dir"`
}

type Graph struct {
	Engine  string `toml:"engine"`
	Command string `toml:"command"`
	Layout  string `toml:"layout"`
}

type Cache struct {
	Backend   string   `toml:"backend"`
	Dir       string   `toml:"dir"`
	RedisAddr string   `toml:"redis_addr"`
	TTL       Duration `toml:"ttl"`
}

type Admin struct {
	// Address of the HTTP admin server. Empty disables it.
	Address string `toml:"address"`
}

type Client struct {
	StartDelay  Duration `toml:"start_delay"`
	DialTimeout Duration `toml:"dial_timeout"`
}

type Logging struct {
	Level string `toml:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Listen: Listen{
			Address:     "127.0.0.1:14446",
			ReadTimeout: Duration(30 * time.Second),
		},
		Queue:   Queue{Capacity: 1024},
		Workers: Workers{Reserved: 2},
		Render: Render{
			SyntaxTree: SyntaxTree{
				Command: "php",
				Args:    []string{"graph.php"},
				Dir:     "~/GraphWriter-1.0/phpsyntaxtree",
			},
			Graph: Graph{Engine: EngineDot, Command: "dot"},
		},
		Cache: Cache{
			Backend: CacheNone,
			TTL:     Duration(24 * time.Hour),
		},
		Client: Client{
			StartDelay:  Duration(5 * time.Second),
			DialTimeout: Duration(2 * time.Second),
		},
		Logging: Logging{Level: "info"},
	}
}

// Load reads the file at path over the defaults. An empty path uses
// DefaultPath; a missing default file yields the defaults, while a missing
// explicit path is an error. It returns the path that was consulted.
func Load(path string) (Config, string, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			cfg := Default()
			return cfg, "", cfg.Normalize()
		}
		path = p
	}

	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if os.IsNotExist(err) && !explicit {
			cfg = Default()
			return cfg, path, cfg.Normalize()
		}
		return Config{}, path, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read %s", path)
	}
	if err := cfg.Normalize(); err != nil {
		return Config{}, path, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, path, err
	}
	return cfg, path, nil
}

// Decode reads TOML from r over the defaults.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode config")
	}
	return cfg, nil
}

// Encode writes cfg as TOML.
func Encode(w io.Writer, cfg Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}

// DefaultPath returns $XDG_CONFIG_HOME/graphwriter/config.toml, falling back
// to ~/.config/graphwriter/config.toml.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// DefaultCacheDir returns $XDG_CACHE_HOME/graphwriter, falling back to
// ~/.cache/graphwriter.
func DefaultCacheDir() (string, error) {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// Normalize expands "~" in path settings and fills the file cache directory.
func (c *Config) Normalize() error {
	var err error
	if c.Render.SyntaxTree.Dir, err = expandHome(c.Render.SyntaxTree.Dir); err != nil {
		return err
	}
	if c.Render.WorkDir, err = expandHome(c.Render.WorkDir); err != nil {
		return err
	}
	if c.Cache.Dir, err = expandHome(c.Cache.Dir); err != nil {
		return err
	}
	if c.Cache.Backend == CacheFile && c.Cache.Dir == "" {
		if c.Cache.Dir, err = DefaultCacheDir(); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "resolve cache directory")
		}
	}
	return nil
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidConfig, err, "expand %q", p)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}
