package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

// envBool accepts 1/0, true/false, yes/no and on/off in any case.  Other
// values keep the default.
func envBool(k string, d bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(k))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k)))
	if err != nil {
		return d
	}
	return n
}

func envDur(k string, d time.Duration) time.Duration {
	dur, err := time.ParseDuration(strings.TrimSpace(os.Getenv(k)))
	if err != nil {
		return d
	}
	return dur
}
