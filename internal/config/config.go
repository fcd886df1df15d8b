package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	ReportServer struct {
		Port int `yaml:"port"`
	} `yaml:"reportServer"`

	Analysis struct {
		Duration time.Duration `yaml:"duration"`
		Interval time.Duration `yaml:"interval"`
		Step     int           `yaml:"step"`
		Ceiling  int           `yaml:"ceiling"`
	} `yaml:"analysis"`

	Upload struct {
		Extensions []string `yaml:"extensions"`
		MaxBytes   int64    `yaml:"maxBytes"`
	} `yaml:"upload"`

	Sessions struct {
		TTL           time.Duration `yaml:"ttl"`
		SweepInterval time.Duration `yaml:"sweepInterval"`
		Max           int           `yaml:"max"`
	} `yaml:"sessions"`

	Report struct {
		ServiceURL string        `yaml:"serviceURL"`
		Timeout    time.Duration `yaml:"timeout"`
	} `yaml:"report"`

	CORS struct {
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"cors"`

	RateLimit struct {
		Capacity   int `yaml:"capacity"`
		RefillRate int `yaml:"refillRate"`
	} `yaml:"rateLimit"`

	Log struct {
		Level    string `yaml:"level"`
		Encoding string `yaml:"encoding"`
	} `yaml:"log"`
}

// Load reads the YAML config at path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.ReportServer.Port == 0 {
		c.ReportServer.Port = 3001
	}
	if c.Analysis.Duration == 0 {
		c.Analysis.Duration = 2 * time.Second
	}
	if c.Analysis.Interval == 0 {
		c.Analysis.Interval = 200 * time.Millisecond
	}
	if c.Analysis.Step == 0 {
		c.Analysis.Step = 10
	}
	if c.Analysis.Ceiling == 0 {
		c.Analysis.Ceiling = 90
	}
	if len(c.Upload.Extensions) == 0 {
		c.Upload.Extensions = []string{".sol", ".vy", ".txt"}
	}
	if c.Upload.MaxBytes == 0 {
		c.Upload.MaxBytes = 5 << 20
	}
	if c.Sessions.TTL == 0 {
		c.Sessions.TTL = 30 * time.Minute
	}
	if c.Sessions.SweepInterval == 0 {
		c.Sessions.SweepInterval = time.Minute
	}
	if c.Sessions.Max == 0 {
		c.Sessions.Max = 1000
	}
	if c.Report.ServiceURL == "" {
		c.Report.ServiceURL = fmt.Sprintf("http://localhost:%d", c.ReportServer.Port)
	}
	if c.Report.Timeout == 0 {
		c.Report.Timeout = 10 * time.Second
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	if c.RateLimit.Capacity == 0 {
		c.RateLimit.Capacity = 60
	}
	if c.RateLimit.RefillRate == 0 {
		c.RateLimit.RefillRate = 10
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Encoding == "" {
		c.Log.Encoding = "json"
	}
}

// Validate rejects values the services can't run with.
func (c *Config) Validate() error {
	if c.Analysis.Ceiling >= 100 || c.Analysis.Ceiling < 0 {
		return fmt.Errorf("analysis.ceiling must be in [0,100), got %d", c.Analysis.Ceiling)
	}
	if c.Analysis.Interval >= c.Analysis.Duration {
		return fmt.Errorf("analysis.interval (%s) must be shorter than analysis.duration (%s)",
			c.Analysis.Interval, c.Analysis.Duration)
	}
	if c.Server.Port == c.ReportServer.Port {
		return fmt.Errorf("server.port and reportServer.port must differ (%d)", c.Server.Port)
	}
	return nil
}
