// internal/workers/case/advance-case-phase/config.go
package advancecasephase

import "time"

type Config struct {
	Timeout    time.Duration
	SummaryTTL time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout:    15 * time.Second,
		SummaryTTL: 10 * time.Minute,
	}
}
