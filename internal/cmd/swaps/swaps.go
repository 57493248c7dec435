// Package swaps parses swaps command flags and composes the service runtime.
package swaps

import (
	"context"
	"flag"
	"fmt"
	"time"

	entrypoint "github.com/louisbranch/skillswap/internal/platform/cmd"
	server "github.com/louisbranch/skillswap/internal/services/swaps/app"
)

// Config holds swaps command configuration.
type Config struct {
	HTTPAddr          string        `env:"SWAPS_HTTP_ADDR"     envDefault:":8090"`
	GRPCAddr          string        `env:"SWAPS_GRPC_ADDR"     envDefault:":8091"`
	DBDriver          string        `env:"SWAPS_DB_DRIVER"     envDefault:"sqlite"`
	DBDSN             string        `env:"SWAPS_DB_DSN"        envDefault:"data/swaps.db"`
	AccessTokenSecret string        `env:"ACCESS_TOKEN_SECRET"`
	AccessTokenTTL    time.Duration `env:"ACCESS_TOKEN_TTL"    envDefault:"15m"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "swaps HTTP listen address")
	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "swaps gRPC health listen address")
	fs.StringVar(&cfg.DBDriver, "db-driver", cfg.DBDriver, "database driver (sqlite or postgres)")
	fs.StringVar(&cfg.DBDSN, "db-dsn", cfg.DBDSN, "database path (sqlite) or connection string (postgres)")
	fs.DurationVar(&cfg.AccessTokenTTL, "access-token-ttl", cfg.AccessTokenTTL, "access token lifetime")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run builds the swaps app and serves it until ctx ends.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSwaps, func(ctx context.Context) error {
		if err := server.Run(ctx, server.Config{
			HTTPAddr:          cfg.HTTPAddr,
			GRPCAddr:          cfg.GRPCAddr,
			DBDriver:          cfg.DBDriver,
			DBDSN:             cfg.DBDSN,
			AccessTokenSecret: cfg.AccessTokenSecret,
			AccessTokenTTL:    cfg.AccessTokenTTL,
		}); err != nil {
			return fmt.Errorf("serve swaps: %w", err)
		}
		return nil
	})
}
