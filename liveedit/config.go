package liveedit

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all liveedit configuration.
type Config struct {
	Addr         string          `yaml:"addr"`
	DBPath       string          `yaml:"db_path"`
	MaxBodyBytes int64           `yaml:"max_body_bytes"`
	HTTP3        HTTP3Config     `yaml:"http3"`
	Auth         AuthConfig      `yaml:"auth"`
	Summarize    SummarizeConfig `yaml:"summarize"`
	Session      SessionConfig   `yaml:"session"`
	Sanitize     SanitizeConfig  `yaml:"sanitize"`
	RateLimit    RateLimitConfig `yaml:"rate_limit"`
}

// HTTP3Config enables an additional HTTP/3 listener when Addr is set.
type HTTP3Config struct {
	Addr     string `yaml:"addr"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// AuthConfig protects /api with Basic Auth. Users maps a username to its
// bcrypt hash; an empty map leaves the API open.
type AuthConfig struct {
	Users map[string]string `yaml:"users"`
}

// SummarizeConfig points at the external summarization endpoint.
// AllowPrivate permits an endpoint on a loopback or private network.
type SummarizeConfig struct {
	URL          string        `yaml:"url"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	AllowPrivate bool          `yaml:"allow_private"`
}

// SessionConfig bounds in-memory sessions.
type SessionConfig struct {
	MaxHistory int           `yaml:"max_history"` // 0 = unbounded
	IdleTTL    time.Duration `yaml:"idle_ttl"`
}

// RateLimitConfig limits /api requests per client and window. MaxRequests 0
// disables the limiter.
type RateLimitConfig struct {
	MaxRequests int           `yaml:"max_requests"`
	Window      time.Duration `yaml:"window"`
}

// SanitizeConfig lists the CSS properties allowed in inserted markup.
type SanitizeConfig struct {
	AllowStyles []string `yaml:"allow_styles"`
}

func (c *Config) defaults() {
	if c.Addr == "" {
		c.Addr = ":8090"
	}
	if c.DBPath == "" {
		c.DBPath = "liveedit.db"
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 4 << 20
	}
	if c.Summarize.Timeout <= 0 {
		c.Summarize.Timeout = 15 * time.Second
	}
	if c.Summarize.MaxRetries <= 0 {
		c.Summarize.MaxRetries = 2
	}
	if c.RateLimit.Window <= 0 {
		c.RateLimit.Window = time.Minute
	}
	if c.Session.IdleTTL <= 0 {
		c.Session.IdleTTL = 2 * time.Hour
	}
}

// LoadConfigFile reads a YAML config file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
