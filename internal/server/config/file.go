package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration accepts both "90s"-style strings and integer nanoseconds when
// read from JSON or YAML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	return d.set(v)
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var v any
	if err := node.Decode(&v); err != nil {
		return err
	}
	return d.set(v)
}

func (d *Duration) set(v any) error {
	switch val := v.(type) {
	case float64:
		d.Duration = time.Duration(val)
	case int:
		d.Duration = time.Duration(val)
	case string:
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return err
		}
		d.Duration = parsed
	default:
		return fmt.Errorf("invalid duration %v", v)
	}
	return nil
}

// FileConfig is the on-disk shape of the configuration. Only keys present in
// the file override the current values.
type FileConfig struct {
	HTTPAddr       string   `json:"http_addr" yaml:"http_addr"`
	GRPCHealthAddr string   `json:"grpc_health_addr" yaml:"grpc_health_addr"`
	DatabaseDSN    string   `json:"database_dsn" yaml:"database_dsn"`
	SecretKey      string   `json:"secret_key" yaml:"secret_key"`
	Issuer         string   `json:"issuer" yaml:"issuer"`
	SessionTTL     Duration `json:"session_ttl" yaml:"session_ttl"`
	CookieSecure   *bool    `json:"cookie_secure" yaml:"cookie_secure"`
	RedisAddr      string   `json:"redis_addr" yaml:"redis_addr"`
	ThrottleLimit  int      `json:"throttle_limit" yaml:"throttle_limit"`
	ThrottleWindow Duration `json:"throttle_window" yaml:"throttle_window"`
	SMTPAddr       string   `json:"smtp_addr" yaml:"smtp_addr"`
	SMTPUsername   string   `json:"smtp_username" yaml:"smtp_username"`
	SMTPPassword   string   `json:"smtp_password" yaml:"smtp_password"`
	MailFrom       string   `json:"mail_from" yaml:"mail_from"`
	MailTimeout    Duration `json:"mail_timeout" yaml:"mail_timeout"`
	LogLevel       string   `json:"log_level" yaml:"log_level"`
}

// parseFile overlays the JSON or YAML file at path onto config. The format is
// picked from the extension; anything that is not .yaml/.yml is read as JSON.
func parseFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	fc.apply(config)
	return nil
}

func (fc *FileConfig) apply(c *Config) {
	setString(&c.HTTPAddr, fc.HTTPAddr)
	setString(&c.GRPCHealthAddr, fc.GRPCHealthAddr)
	setString(&c.DatabaseDSN, fc.DatabaseDSN)
	setString(&c.SecretKey, fc.SecretKey)
	setString(&c.Issuer, fc.Issuer)
	setString(&c.RedisAddr, fc.RedisAddr)
	setString(&c.SMTPAddr, fc.SMTPAddr)
	setString(&c.SMTPUsername, fc.SMTPUsername)
	setString(&c.SMTPPassword, fc.SMTPPassword)
	setString(&c.MailFrom, fc.MailFrom)
	setString(&c.LogLevel, fc.LogLevel)

	if fc.SessionTTL.Duration > 0 {
		c.SessionTTL = fc.SessionTTL.Duration
	}
	if fc.ThrottleWindow.Duration > 0 {
		c.ThrottleWindow = fc.ThrottleWindow.Duration
	}
	if fc.MailTimeout.Duration > 0 {
		c.MailTimeout = fc.MailTimeout.Duration
	}
	if fc.ThrottleLimit > 0 {
		c.ThrottleLimit = fc.ThrottleLimit
	}
	if fc.CookieSecure != nil {
		c.CookieSecure = *fc.CookieSecure
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
