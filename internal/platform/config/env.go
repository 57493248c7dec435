// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix namespaces every skillswap environment variable.
const EnvPrefix = "SKILLSWAP_"

// ParseEnv loads configuration from environment variables named by the
// target's env tags, prefixed with EnvPrefix.
func ParseEnv(target any) error {
	return ParseEnvWithPrefix(EnvPrefix, target)
}

// ParseEnvWithPrefix loads configuration using an explicit variable prefix.
// An empty prefix reads tag names verbatim.
func ParseEnvWithPrefix(prefix string, target any) error {
	if target == nil {
		return fmt.Errorf("parse env: target is required")
	}
	opts := env.Options{Prefix: strings.TrimSpace(prefix)}
	if err := env.ParseWithOptions(target, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
