// internal/workers/asset-discovery/analyze-document/config.go
package analyzedocument

import "time"

type Config struct {
	Timeout          time.Duration
	MaxDocumentChars int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:          90 * time.Second,
		MaxDocumentChars: 15000,
	}
}
