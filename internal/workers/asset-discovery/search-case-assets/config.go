// internal/workers/asset-discovery/search-case-assets/config.go
package searchcaseassets

import "time"

type Config struct {
	Timeout time.Duration
	Index   string
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
		Index:   "case-assets",
	}
}
