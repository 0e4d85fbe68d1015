package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config is the full server configuration. Values come from an optional
// YAML file overlaid by environment variables; the env names match what
// the hosting platform has always injected.
type Config struct {
	Port          int      `yaml:"port"`
	DataDir       string   `yaml:"data_dir"`
	FrontBase     string   `yaml:"front_base"`
	DefaultTenant string   `yaml:"default_tenant"`
	SMTP          SMTPConf `yaml:"smtp"`
}

// SMTPConf holds the mail transport credentials. Email is enabled only
// when every field is present.
type SMTPConf struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	User string `yaml:"user"`
	Pass string `yaml:"pass"`
	From string `yaml:"from"`
}

// Configured reports whether the transport is fully specified.
func (s SMTPConf) Configured() bool {
	return s.Host != "" && s.Port > 0 && s.User != "" && s.Pass != "" && s.From != ""
}

func defaults() *Config {
	return &Config{
		Port:          10000,
		DataDir:       "./data",
		FrontBase:     "https://www.safetytechsc.com.br/radar360",
		DefaultTenant: "empresa-demo-1",
	}
}

// applyEnv overlays environment variables onto cfg.
func applyEnv(cfg *Config) error {
	var err error
	if cfg.Port, err = envInt("PORT", cfg.Port); err != nil {
		return err
	}
	cfg.DataDir = envStr("RADAR_DATA_DIR", cfg.DataDir)
	cfg.FrontBase = envStr("RADAR_FRONT_BASE", cfg.FrontBase)
	cfg.DefaultTenant = envStr("EMPRESA_ID_PADRAO", cfg.DefaultTenant)

	cfg.SMTP.Host = envStr("SMTP_HOST", cfg.SMTP.Host)
	if cfg.SMTP.Port, err = envInt("SMTP_PORT", cfg.SMTP.Port); err != nil {
		return err
	}
	cfg.SMTP.User = envStr("SMTP_USER", cfg.SMTP.User)
	cfg.SMTP.Pass = envStr("SMTP_PASS", cfg.SMTP.Pass)
	cfg.SMTP.From = envStr("MAIL_FROM", cfg.SMTP.From)
	return nil
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
	return n, nil
}
