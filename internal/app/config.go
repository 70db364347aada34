package app

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/datakit-backend/internal/pkg/logger"
	"github.com/yungbote/datakit-backend/internal/platform/envutil"
)

// Config is the process configuration. Environment variables are the source
// of truth; a YAML file named by CONFIG_FILE overrides them when present, so
// deployments can ship one file instead of a wall of env vars.
type Config struct {
	HTTPAddr       string   `yaml:"http_addr"`
	AllowOrigins   []string `yaml:"allow_origins"`
	PurgeBatchSize int      `yaml:"purge_batch_size"`
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		HTTPAddr:       envutil.GetEnv("HTTP_ADDR", ":8080", log),
		PurgeBatchSize: envutil.GetEnvAsInt("PURGE_BATCH_SIZE", 1000, log),
	}
	if origins := envutil.GetEnv("ALLOW_ORIGINS", "", log); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowOrigins = append(cfg.AllowOrigins, o)
			}
		}
	}

	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		return cfg
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Warn("Config file unreadable, using env values", "path", path, "error", err)
		return cfg
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		log.Warn("Config file invalid, using env values", "path", path, "error", err)
	}
	return cfg
}

func (c Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("http_addr is required")
	}
	if c.PurgeBatchSize < 1 {
		return fmt.Errorf("purge_batch_size must be positive, got %d", c.PurgeBatchSize)
	}
	return nil
}
