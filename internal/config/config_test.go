package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/deidaraiorek/lemmasearch/internal/config"
)

func TestLoadFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "application.yaml")
	data := []byte(`
sites:
  - url: "HTTPS://Example.COM/"
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := cfg.Sites[0].URL; got != "https://example.com" {
		t.Errorf("site url = %q, want https://example.com", got)
	}
	if got := cfg.Sites[0].Name; got != "example.com" {
		t.Errorf("site name = %q, want example.com", got)
	}
	if cfg.Indexing.PolitenessDelay != config.DefaultPolitenessDelay {
		t.Errorf("politeness delay = %v", cfg.Indexing.PolitenessDelay)
	}
	if cfg.Indexing.Workers != runtime.NumCPU() {
		t.Errorf("workers = %d, want %d", cfg.Indexing.Workers, runtime.NumCPU())
	}
	if cfg.Indexing.LemmaFrequencyPercent != 100 {
		t.Errorf("percent = %d, want 100", cfg.Indexing.LemmaFrequencyPercent)
	}
	if !cfg.Indexing.RespectsRobots() {
		t.Error("robots.txt should be respected by default")
	}
	if len(cfg.Fields) != 2 || cfg.Fields[0].Name != "title" || cfg.Fields[1].Weight != 0.8 {
		t.Errorf("default fields = %+v", cfg.Fields)
	}
	if cfg.Morphology.Language != "english" {
		t.Errorf("language = %q", cfg.Morphology.Language)
	}
}

func TestParseDurationsAndOverrides(t *testing.T) {
	cfg, err := config.Parse([]byte(`
indexing:
  politeness_delay: 1500ms
  workers: 3
  respect_robots: false
  lemma_frequency_percent: 80
morphology:
  language: russian
sites:
  - url: https://lenta.ru
    name: Lenta
fields:
  - name: title
    selector: title
    weight: 1
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Indexing.PolitenessDelay != 1500*time.Millisecond {
		t.Errorf("delay = %v", cfg.Indexing.PolitenessDelay)
	}
	if cfg.Indexing.Workers != 3 {
		t.Errorf("workers = %d", cfg.Indexing.Workers)
	}
	if cfg.Indexing.RespectsRobots() {
		t.Error("respect_robots: false was ignored")
	}
	if cfg.Indexing.LemmaFrequencyPercent != 80 {
		t.Errorf("percent = %d", cfg.Indexing.LemmaFrequencyPercent)
	}
	if len(cfg.Fields) != 1 {
		t.Errorf("fields = %+v", cfg.Fields)
	}
}

func TestValidateRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"no sites":     `fields: []`,
		"bad scheme":   "sites:\n  - url: ftp://example.com\n",
		"duplicate":    "sites:\n  - url: https://a.com\n  - url: https://a.com/\n",
		"zero weight":  "sites:\n  - url: https://a.com\nfields:\n  - name: body\n    selector: body\n    weight: -1\n",
		"missing name": "sites:\n  - url: https://a.com\nfields:\n  - selector: body\n    weight: 1\n",
	}
	for name, doc := range cases {
		if _, err := config.Parse([]byte(doc)); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestNormalizeSiteURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://Example.com/", "https://example.com"},
		{" http://example.com/blog/ ", "http://example.com/blog"},
		{"https://example.com/#top", "https://example.com"},
		{"https://example.com?x=1", "https://example.com"},
	}
	for _, tc := range tests {
		if got := config.NormalizeSiteURL(tc.in); got != tc.want {
			t.Errorf("NormalizeSiteURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
