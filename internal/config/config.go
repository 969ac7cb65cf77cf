package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL        string
	ListenAddr         string
	GmailClientID      string
	GmailClientSecret  string
	LockTTLMinutes     int // per-user sync advisory lock TTL
	GhostAfterDays     int // inactivity window before an applied record is ghosted
	GhostSweepMinutes  int // ghost detector pass interval
	MaxRetries         int
	ShutdownTimeout    int // seconds
	MaxMessagesPerSync int // hard safety cap on a full scan
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error in production)
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	gmailClientID := os.Getenv("GMAIL_CLIENT_ID")
	gmailClientSecret := os.Getenv("GMAIL_CLIENT_SECRET")
	if gmailClientID == "" || gmailClientSecret == "" {
		fmt.Println("Warning: GMAIL_CLIENT_ID or GMAIL_CLIENT_SECRET not set, Gmail API will not work")
	}

	listenAddr := os.Getenv("LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":8090"
	}

	return &Config{
		DatabaseURL:        dbURL,
		ListenAddr:         listenAddr,
		GmailClientID:      gmailClientID,
		GmailClientSecret:  gmailClientSecret,
		LockTTLMinutes:     intEnv("SYNC_LOCK_TTL_MINUTES", 10),
		GhostAfterDays:     intEnv("GHOST_AFTER_DAYS", 21),
		GhostSweepMinutes:  intEnv("GHOST_SWEEP_MINUTES", 60),
		MaxRetries:         3,
		ShutdownTimeout:    30,
		MaxMessagesPerSync: intEnv("MAX_MESSAGES_PER_SYNC", 1200),
	}, nil
}

// intEnv reads an integer env var, falling back to def when unset or malformed.
func intEnv(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		fmt.Printf("Warning: %s=%q is not an integer, using default %d\n", key, raw, def)
		return def
	}
	return n
}
