// Package config holds marketplace deployment configuration: storage
// location, logging, collection identity and the default royalty policy.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config is the marketplace configuration.
type Config struct {
	// DataDir is the directory holding the bbolt databases.
	DataDir string

	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string

	// CollectionName and CollectionSymbol identify the token collection.
	CollectionName   string
	CollectionSymbol string

	// DefaultRoyaltyBps is the fallback royalty share reported by the
	// single-recipient royalty shim for tokens without entries. Zero
	// disables the fallback.
	DefaultRoyaltyBps uint64

	// DefaultRoyaltyReceiver is the hex address receiving the default
	// royalty. Required when DefaultRoyaltyBps is non-zero.
	DefaultRoyaltyReceiver string
}

// DefaultConfig returns the configuration defaults.
func DefaultConfig() Config {
	return Config{
		DataDir:           "data",
		LogLevel:          "info",
		CollectionName:    "SimpleNFT",
		CollectionSymbol:  "SNFT",
		DefaultRoyaltyBps: 0,
	}
}

// ConfigPath returns the path of the config file inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config")
}

// LoadConfig reads a key=value configuration file. Blank lines and lines
// starting with '#' are ignored; unknown keys are skipped so configs from
// newer versions still load.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return cfg, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return cfg, fmt.Errorf("%w: line %d: %q", ErrInvalidConfigLine, lineNo, line)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "datadir":
			cfg.DataDir = value
		case "loglevel":
			cfg.LogLevel = value
		case "collection.name":
			cfg.CollectionName = value
		case "collection.symbol":
			cfg.CollectionSymbol = value
		case "royalty.default.bps":
			bps, err := strconv.ParseUint(value, 10, 64)
			if err != nil {
				return cfg, fmt.Errorf("%w: line %d: %q", ErrInvalidConfigLine, lineNo, line)
			}
			cfg.DefaultRoyaltyBps = bps
		case "royalty.default.receiver":
			cfg.DefaultRoyaltyReceiver = value
		}
	}
	if err := scanner.Err(); err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes cfg to path in key=value form, creating parent
// directories as needed.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("# NFT Marketplace Configuration\n\n")
	fmt.Fprintf(&b, "datadir = %s\n", cfg.DataDir)
	fmt.Fprintf(&b, "loglevel = %s\n", cfg.LogLevel)
	fmt.Fprintf(&b, "collection.name = %s\n", cfg.CollectionName)
	fmt.Fprintf(&b, "collection.symbol = %s\n", cfg.CollectionSymbol)
	fmt.Fprintf(&b, "royalty.default.bps = %d\n", cfg.DefaultRoyaltyBps)
	fmt.Fprintf(&b, "royalty.default.receiver = %s\n", cfg.DefaultRoyaltyReceiver)

	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
