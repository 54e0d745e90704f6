package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultUserAgent       = "LemmaSearchBot/1.0"
	DefaultReferrer        = "http://www.google.com"
	DefaultPolitenessDelay = 650 * time.Millisecond
	DefaultRequestTimeout  = 30 * time.Second
	DefaultMaxBodyBytes    = 10 * 1024 * 1024
	DefaultLanguage        = "english"
	DefaultAddr            = ":8080"
	DefaultDatabasePath    = "searchengine.db"
)

var ErrNoSites = errors.New("config: no sites configured")

type Config struct {
	Server     Server     `yaml:"server"`
	Database   Database   `yaml:"database"`
	Logging    Logging    `yaml:"logging"`
	Indexing   Indexing   `yaml:"indexing"`
	Morphology Morphology `yaml:"morphology"`
	Sites      []Site     `yaml:"sites"`
	Fields     []Field    `yaml:"fields"`
}

type Server struct {
	Addr string `yaml:"addr"`
}

type Database struct {
	Path string `yaml:"path"`
}

type Logging struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

type Indexing struct {
	UserAgent        string        `yaml:"user_agent"`
	Referrer         string        `yaml:"referrer"`
	PolitenessDelay  time.Duration `yaml:"politeness_delay"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	MaxBodyBytes     int64         `yaml:"max_body_bytes"`
	Workers          int           `yaml:"workers"`
	CrawlParallelism int           `yaml:"crawl_parallelism"`
	MaxPages         int           `yaml:"max_pages"`
	RespectRobots    *bool         `yaml:"respect_robots"`
	BrowserFallback  bool          `yaml:"browser_fallback"`

	// LemmaFrequencyPercent excludes lemmas present on more than this share of
	// pages from search consumers. 100 disables the filter.
	LemmaFrequencyPercent int `yaml:"lemma_frequency_percent"`
}

type Morphology struct {
	Language string `yaml:"language"`
}

type Site struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type Field struct {
	Name     string  `yaml:"name"`
	Selector string  `yaml:"selector"`
	Weight   float64 `yaml:"weight"`
}

// Load reads a YAML configuration file, fills defaults and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Database.Path == "" {
		c.Database.Path = DefaultDatabasePath
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	ix := &c.Indexing
	if ix.UserAgent == "" {
		ix.UserAgent = DefaultUserAgent
	}
	if ix.Referrer == "" {
		ix.Referrer = DefaultReferrer
	}
	if ix.PolitenessDelay == 0 {
		ix.PolitenessDelay = DefaultPolitenessDelay
	}
	if ix.RequestTimeout == 0 {
		ix.RequestTimeout = DefaultRequestTimeout
	}
	if ix.MaxBodyBytes == 0 {
		ix.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if ix.Workers <= 0 {
		ix.Workers = runtime.NumCPU()
	}
	if ix.CrawlParallelism <= 0 {
		ix.CrawlParallelism = runtime.NumCPU()
	}
	if ix.RespectRobots == nil {
		respect := true
		ix.RespectRobots = &respect
	}
	if ix.LemmaFrequencyPercent == 0 {
		ix.LemmaFrequencyPercent = 100
	}

	if c.Morphology.Language == "" {
		c.Morphology.Language = DefaultLanguage
	}
	if len(c.Fields) == 0 {
		c.Fields = []Field{
			{Name: "title", Selector: "title", Weight: 1.0},
			{Name: "body", Selector: "body", Weight: 0.8},
		}
	}

	for i := range c.Sites {
		c.Sites[i].URL = NormalizeSiteURL(c.Sites[i].URL)
		if c.Sites[i].Name == "" {
			if u, err := url.Parse(c.Sites[i].URL); err == nil {
				c.Sites[i].Name = u.Host
			}
		}
	}
}

func (c *Config) Validate() error {
	if len(c.Sites) == 0 {
		return ErrNoSites
	}
	seen := make(map[string]bool, len(c.Sites))
	for _, s := range c.Sites {
		u, err := url.Parse(s.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("config: invalid site url %q", s.URL)
		}
		if seen[s.URL] {
			return fmt.Errorf("config: duplicate site url %q", s.URL)
		}
		seen[s.URL] = true
	}
	names := make(map[string]bool, len(c.Fields))
	for _, f := range c.Fields {
		if f.Name == "" || f.Selector == "" {
			return fmt.Errorf("config: field needs a name and a selector")
		}
		if f.Weight <= 0 {
			return fmt.Errorf("config: field %q weight must be positive, got %v", f.Name, f.Weight)
		}
		if names[f.Name] {
			return fmt.Errorf("config: duplicate field %q", f.Name)
		}
		names[f.Name] = true
	}
	if c.Indexing.MaxPages < 0 {
		return fmt.Errorf("config: max_pages must not be negative")
	}
	if c.Indexing.LemmaFrequencyPercent < 0 {
		return fmt.Errorf("config: lemma_frequency_percent must not be negative")
	}
	return nil
}

// RespectsRobots reports whether robots.txt rules apply to fetches.
func (ix Indexing) RespectsRobots() bool {
	return ix.RespectRobots == nil || *ix.RespectRobots
}

// NormalizeSiteURL lowercases scheme and host and trims a trailing slash so
// that page URLs can be matched against the site by prefix.
func NormalizeSiteURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawQuery = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawPath = ""
	return u.String()
}
