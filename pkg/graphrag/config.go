package graphrag

import (
	"os"
	"strconv"

	"github.com/patternforge/graphrag-go/internal/persistence"
	"github.com/patternforge/graphrag-go/internal/query"
)

// Config collects everything needed to open a Service.
type Config struct {
	DB        *persistence.Config
	CacheSize int
	// SubscriberBuffer sizes the channels handed out by Subscribe.
	SubscriberBuffer int
}

// NewConfig builds a config from the environment:
// GRAPHRAG_DB_URL, GRAPHRAG_AUTH_TOKEN, GRAPHRAG_CACHE_SIZE.
func NewConfig() *Config {
	cacheSize := query.DefaultCacheSize
	if raw := os.Getenv("GRAPHRAG_CACHE_SIZE"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			cacheSize = n
		}
	}
	return &Config{
		DB:               persistence.NewConfig(),
		CacheSize:        cacheSize,
		SubscriberBuffer: 16,
	}
}
