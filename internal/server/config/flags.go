package config

import (
	"flag"
	"io"
	"time"

	"github.com/minimart/storefront/internal/flagx"
)

var knownFlags = []string{"-a", "-g", "-d", "-s", "-t", "-r", "-l", "-m", "-f"}

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g. ":8080")
//	-g string   gRPC health bind address
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      session validity, minutes
//	-r string   Redis address for attempt throttling
//	-l string   log level
//	-m string   SMTP server address (host:port)
//	-f string   mail sender address
//
// Only the flags above are looked at; the rest of args is ignored so the same
// argv can carry -c/-config and flags owned by other components.
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "HTTP address and port")
	fs.StringVar(&config.GRPCHealthAddr, "g", config.GRPCHealthAddr, "gRPC health address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	sessionMinutes := fs.Int("t", int(config.SessionTTL.Minutes()), "session validity (in minutes)")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.SMTPAddr, "m", config.SMTPAddr, "SMTP address")
	fs.StringVar(&config.MailFrom, "f", config.MailFrom, "mail sender")

	if err := fs.Parse(flagx.FilterArgs(args, knownFlags)); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.SessionTTL = time.Duration(*sessionMinutes) * time.Minute
		}
	})
	return nil
}
