package config

import (
	"fmt"
	"strings"

	"github.com/bitfsorg/libnftmarket-go/token"
)

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}

	if cfg.DefaultRoyaltyBps > token.BpsDenominator {
		return fmt.Errorf("%w: %d bps exceeds %d", ErrInvalidRoyalty, cfg.DefaultRoyaltyBps, token.BpsDenominator)
	}
	if cfg.DefaultRoyaltyBps > 0 {
		if cfg.DefaultRoyaltyReceiver == "" {
			return fmt.Errorf("%w: receiver required", ErrInvalidRoyalty)
		}
		if _, err := token.AddressFromHex(cfg.DefaultRoyaltyReceiver); err != nil {
			return fmt.Errorf("%w: receiver: %v", ErrInvalidRoyalty, err)
		}
	}

	return nil
}
