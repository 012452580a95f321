package webhook

import (
	"fmt"
	"time"
)

type Config struct {
	Secret          string        `mapstructure:"secret"`
	SignatureHeader string        `mapstructure:"signature_header"`
	DomainHeader    string        `mapstructure:"domain_header"`
	SendTimeout     time.Duration `mapstructure:"send_timeout"`
}

func DefaultConfig() *Config {
	return &Config{
		SignatureHeader: "X-Shopify-Hmac-Sha256",
		DomainHeader:    "X-Shopify-Shop-Domain",
		SendTimeout:     15 * time.Second,
	}
}

func (c *Config) Validate() error {
	if c.Secret == "" {
		return fmt.Errorf("secret is required")
	}
	if c.SignatureHeader == "" {
		return fmt.Errorf("signature_header is required")
	}
	if c.SendTimeout <= 0 {
		return fmt.Errorf("send_timeout must be positive")
	}
	return nil
}
