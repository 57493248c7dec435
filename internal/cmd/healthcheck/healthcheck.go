// Package healthcheck probes the swaps gRPC health endpoint for container
// and orchestrator checks.
package healthcheck

import (
	"context"
	"flag"
	"fmt"
	"time"

	entrypoint "github.com/louisbranch/skillswap/internal/platform/cmd"
	platformgrpc "github.com/louisbranch/skillswap/internal/platform/grpc"
	"github.com/louisbranch/skillswap/internal/platform/timeouts"
	server "github.com/louisbranch/skillswap/internal/services/swaps/app"
)

// Config holds healthcheck command configuration.
type Config struct {
	Addr    string `env:"SWAPS_GRPC_ADDR" envDefault:"localhost:8091"`
	Service string
	Timeout time.Duration
	Verbose bool
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "swaps gRPC address")
	fs.StringVar(&cfg.Service, "service", server.HealthServiceName, "health service name (empty checks the whole server)")
	fs.DurationVar(&cfg.Timeout, "timeout", timeouts.GRPCDial, "time to wait for SERVING")
	fs.BoolVar(&cfg.Verbose, "v", false, "log each probe attempt")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run returns nil once the service reports SERVING.
func Run(ctx context.Context, cfg Config, logf func(string, ...any)) error {
	if !cfg.Verbose {
		logf = nil
	}
	if err := platformgrpc.Probe(ctx, cfg.Addr, cfg.Service, cfg.Timeout, logf); err != nil {
		return fmt.Errorf("healthcheck %s: %w", cfg.Addr, err)
	}
	return nil
}
