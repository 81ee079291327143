package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	QuestionBank struct {
		BaseURL  string `yaml:"base_url"`
		Timeout  string `yaml:"timeout"`
		CacheTTL string `yaml:"cache_ttl"`
	} `yaml:"question_bank"`
	Sandbox struct {
		// Mode selects the code execution transport: "http" posts to an
		// executor service, "queue" hands jobs to workers over Redis.
		Mode    string `yaml:"mode"`
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"sandbox"`
	Session struct {
		// WrapQuestions re-opens the question cycle at index 0 after the
		// last question until the tournament window closes.
		WrapQuestions *bool `yaml:"wrap_questions"`
		// ResolveStrategy is "first-created" or "soonest-ending".
		ResolveStrategy string `yaml:"resolve_strategy"`
	} `yaml:"session"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// WrapQuestions defaults to true, the behavior the front end expects.
func (c Config) WrapQuestions() bool {
	if c.Session.WrapQuestions == nil {
		return true
	}
	return *c.Session.WrapQuestions
}
