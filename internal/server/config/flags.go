package config

import (
	"flag"
	"os"
	"time"

	"github.com/dkazakov/seqtrack/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-k string   session JWT key (base64)
//	-j int      session JWT TTL, seconds
//	-i int      inactivity timeout, hours
//
// Only these flags are parsed (os.Args is pre-filtered via flagx.FilterArgs)
// so the config layer never collides with flags owned by other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-k", "-j", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SessionJWTKey, "k", config.SessionJWTKey, "session JWT key (base64)")

	jwtTTL := fs.Int("j", int(config.SessionJWTTTL.Seconds()), "session JWT TTL (in seconds)")
	inactivity := fs.Int("i", int(config.InactivityTimeout.Hours()), "session inactivity timeout (in hours)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SessionJWTTTL = time.Duration(*jwtTTL) * time.Second
	config.InactivityTimeout = time.Duration(*inactivity) * time.Hour
}
