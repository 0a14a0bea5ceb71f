// internal/workers/asset-discovery/discover-case-assets/config.go
package discovercaseassets

import "time"

type Config struct {
	Timeout        time.Duration
	MaxConcurrency int
	CacheTTL       time.Duration
	Index          string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:        10 * time.Minute,
		MaxConcurrency: 3,
		CacheTTL:       time.Hour,
		Index:          "case-assets",
	}
}
