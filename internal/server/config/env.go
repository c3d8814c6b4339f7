package config

import (
	"fmt"
	"strconv"
	"time"
)

const envPrefix = "MINIMART_"

// parseEnv overlays MINIMART_* environment variables onto config. getenv is
// usually os.Getenv; tests pass a map lookup.
func parseEnv(config *Config, getenv func(string) string) error {
	if getenv == nil {
		return nil
	}
	get := func(key string) string { return getenv(envPrefix + key) }

	setString(&config.HTTPAddr, get("HTTP_ADDR"))
	setString(&config.GRPCHealthAddr, get("GRPC_HEALTH_ADDR"))
	setString(&config.DatabaseDSN, get("DATABASE_DSN"))
	setString(&config.SecretKey, get("SECRET_KEY"))
	setString(&config.Issuer, get("ISSUER"))
	setString(&config.RedisAddr, get("REDIS_ADDR"))
	setString(&config.SMTPAddr, get("SMTP_ADDR"))
	setString(&config.SMTPUsername, get("SMTP_USERNAME"))
	setString(&config.SMTPPassword, get("SMTP_PASSWORD"))
	setString(&config.MailFrom, get("MAIL_FROM"))
	setString(&config.LogLevel, get("LOG_LEVEL"))

	durations := map[string]*time.Duration{
		"SESSION_TTL":     &config.SessionTTL,
		"THROTTLE_WINDOW": &config.ThrottleWindow,
		"MAIL_TIMEOUT":    &config.MailTimeout,
	}
	for key, dst := range durations {
		if v := get(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("env %s%s: %w", envPrefix, key, err)
			}
			*dst = d
		}
	}

	if v := get("THROTTLE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("env %sTHROTTLE_LIMIT: %w", envPrefix, err)
		}
		config.ThrottleLimit = n
	}
	if v := get("COOKIE_SECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("env %sCOOKIE_SECURE: %w", envPrefix, err)
		}
		config.CookieSecure = b
	}
	return nil
}
