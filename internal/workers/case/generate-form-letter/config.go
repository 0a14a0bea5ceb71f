// internal/workers/case/generate-form-letter/config.go
package generateformletter

import "time"

type Config struct {
	Timeout      time.Duration
	RegistryPath string
	CacheTTL     time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout:      10 * time.Second,
		RegistryPath: "configs/letter-templates.json",
		CacheTTL:     15 * time.Minute,
	}
}
