package config

import (
	"github.com/charmbracelet/log"

	"github.com/matzehuels/graphwriter/pkg/errors"
)

// Validate reports the first invalid setting as an INVALID_CONFIG error.
func (c Config) Validate() error {
	if err := errors.ValidateLoopbackAddr(c.Listen.Address); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "listen.address")
	}
	if c.Listen.ReadTimeout < 0 {
		return invalid("listen.read_timeout must not be negative")
	}
	if c.Queue.Capacity < 0 {
		return invalid("queue.capacity must not be negative")
	}
	if c.Workers.Count < 0 || c.Workers.Reserved < 0 {
		return invalid("workers.count and workers.reserved must not be negative")
	}
	if c.Render.Timeout < 0 {
		return invalid("render.timeout must not be negative")
	}
	if c.Render.SyntaxTree.Command == "" {
		return invalid("render.syntax_tree.command is required")
	}

	switch c.Render.Graph.Engine {
	case EngineDot:
		if c.Render.Graph.Command == "" {
			return invalid("render.graph.command is required for the dot engine")
		}
	case EngineEmbedded:
	default:
		return invalid("render.graph.engine must be %q or %q, got %q", EngineDot, EngineEmbedded, c.Render.Graph.Engine)
	}

	switch c.Cache.Backend {
	case "", CacheNone:
	case CacheFile:
		if c.Cache.Dir == "" {
			return invalid("cache.dir is required for the file cache")
		}
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return invalid("cache.redis_addr is required for the redis cache")
		}
	default:
		return invalid("cache.backend must be one of none, file, redis, got %q", c.Cache.Backend)
	}
	if c.Cache.TTL < 0 {
		return invalid("cache.ttl must not be negative")
	}

	if c.Admin.Address != "" {
		if err := errors.ValidateLoopbackAddr(c.Admin.Address); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "admin.address")
		}
	}
	if c.Client.StartDelay < 0 || c.Client.DialTimeout < 0 {
		return invalid("client durations must not be negative")
	}
	if _, err := log.ParseLevel(c.Logging.Level); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "logging.level")
	}
	return nil
}

// LogLevel returns the configured log level, defaulting to info.
func (c Config) LogLevel() log.Level {
	lvl, err := log.ParseLevel(c.Logging.Level)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

func invalid(format string, args ...any) error {
	return errors.New(errors.ErrCodeInvalidConfig, format, args...)
}
