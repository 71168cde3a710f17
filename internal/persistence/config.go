package persistence

import "os"

// Config holds the libSQL backend configuration.
type Config struct {
	URL            string
	AuthToken      string
	MaxOpenConns   int
	MaxIdleConns   int
	ConnMaxIdleSec int
	ConnMaxLifeSec int
}

// NewConfig creates a new Config from environment variables.
func NewConfig() *Config {
	url := os.Getenv("GRAPHRAG_DB_URL")
	if url == "" {
		url = "file:./graphrag.db"
	}

	authToken := os.Getenv("GRAPHRAG_AUTH_TOKEN")

	return &Config{
		URL:       url,
		AuthToken: authToken,
	}
}
