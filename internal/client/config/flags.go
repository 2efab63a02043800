package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/storefront/internal/flagx"
)

var knownFlags = []string{
	"-r", "-s", "-f", "-k", "-i", "-d",
	"-redis-addr", "-redis-db", "-redis-prefix",
	"-log-level", "-log-format",
}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-r string   remote store DSN
//	-s string   local store backend: sqlite, redis or memory
//	-f string   local SQLite file
//	-k string   JWT signing secret
//	-i int      online check interval in seconds
//	-d duration identity event debounce window
//	-redis-addr, -redis-db, -redis-prefix
//	-log-level, -log-format
//
// Other arguments are filtered out with flagx.FilterArgs so the JSON layer's
// -c/-config does not interfere.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.RemoteDSN, "r", cfg.RemoteDSN, "remote store DSN")
	fs.StringVar(&cfg.LocalStore, "s", cfg.LocalStore, "local store backend (sqlite|redis|memory)")
	fs.StringVar(&cfg.LocalDSN, "f", cfg.LocalDSN, "local SQLite database file")
	fs.StringVar(&cfg.JWTSecret, "k", cfg.JWTSecret, "JWT signing secret")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.DurationVar(&cfg.DebounceWindow, "d", cfg.DebounceWindow, "identity event debounce window")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "redis address")
	fs.IntVar(&cfg.RedisDB, "redis-db", cfg.RedisDB, "redis database")
	fs.StringVar(&cfg.RedisPrefix, "redis-prefix", cfg.RedisPrefix, "redis key prefix")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug|info|warn|error)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (text|json)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}
