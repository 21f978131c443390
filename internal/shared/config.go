package shared

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/codewithboateng/riskrule/internal/analyzer"
)

type Config struct {
	Database struct {
		Driver string `yaml:"driver"` // "sqlite" (default)
		DSN    string `yaml:"dsn"`    // "./riskrule.db"
	} `yaml:"database"`

	Analysis analyzer.Config `yaml:"analysis"`

	Reporting struct {
		OutDir string `yaml:"out_dir"` // "./reports"
		Format string `yaml:"format"`  // "text"|"json"|"html"
	} `yaml:"reporting"`

	Server struct {
		Addr string `yaml:"addr"` // ":8080"
	} `yaml:"server"`

	Logging struct {
		Format string `yaml:"format"` // "json"|"text"
		Level  string `yaml:"level"`  // "info"|"debug"|"warn"|"error"
	} `yaml:"logging"`
}

func DefaultConfig() Config {
	var c Config
	c.Database.Driver = "sqlite"
	c.Database.DSN = "./riskrule.db"
	c.Analysis = analyzer.DefaultConfig()
	c.Reporting.OutDir = "./reports"
	c.Reporting.Format = "text"
	c.Server.Addr = ":8080"
	c.Logging.Format = "json"
	c.Logging.Level = "info"
	return c
}

func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	if path != "" {
		if b, err := os.ReadFile(path); err == nil {
			_ = yaml.Unmarshal(b, &c)
		}
	}
	// Env overrides (simple, explicit)
	if v := os.Getenv("RISKRULE_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("RISKRULE_MAX_EVALUATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Analysis.MaxEvaluations = n
		}
	}
	if v := os.Getenv("RISKRULE_MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Analysis.MaxDepth = n
		}
	}
	if v := os.Getenv("RISKRULE_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("RISKRULE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("RISKRULE_OUT_DIR"); v != "" {
		c.Reporting.OutDir = v
	}
	if v := os.Getenv("RISKRULE_ADDR"); v != "" {
		c.Server.Addr = v
	}
	return c, nil
}
