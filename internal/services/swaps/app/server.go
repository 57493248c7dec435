// Package server wires the swaps runtime: HTTP API, WebSocket sessions and
// the gRPC health endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/louisbranch/skillswap/internal/platform/timeouts"
	"github.com/louisbranch/skillswap/internal/services/swaps/domain"
	"github.com/louisbranch/skillswap/internal/services/swaps/identity"
	"github.com/louisbranch/skillswap/internal/services/swaps/notify"
	"github.com/louisbranch/skillswap/internal/services/swaps/realtime"
	"github.com/louisbranch/skillswap/internal/services/swaps/storage/sqlstore"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServiceName is the gRPC health entry reported for the swaps API.
const HealthServiceName = "skillswap.swaps"

// Config defines the inputs for the swaps server.
type Config struct {
	HTTPAddr          string
	GRPCAddr          string
	DBDriver          string
	DBDSN             string
	AccessTokenSecret string
	AccessTokenTTL    time.Duration
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// Server hosts the swaps HTTP and gRPC listeners and owns the store.
type Server struct {
	httpAddr        string
	grpcAddr        string
	shutdownTimeout time.Duration
	httpServer      *http.Server
	grpcServer      *grpc.Server
	health          *health.Server
	store           *sqlstore.Store
	sessions        *realtime.Registry
	dispatcher      *notify.Dispatcher
	done            chan struct{}
	closeOnce       sync.Once
}

// NewServer opens the store and builds a server ready to serve.
func NewServer(ctx context.Context, config Config) (*Server, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	grpcAddr := strings.TrimSpace(config.GRPCAddr)
	if grpcAddr == "" {
		return nil, errors.New("grpc address is required")
	}
	if strings.TrimSpace(config.AccessTokenSecret) == "" {
		return nil, errors.New("access token secret is required")
	}
	if config.ReadHeaderTimeout <= 0 {
		config.ReadHeaderTimeout = timeouts.ReadHeader
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = timeouts.Shutdown
	}

	store, err := openStore(ctx, config.DBDriver, config.DBDSN)
	if err != nil {
		return nil, err
	}

	sessions := realtime.NewRegistry()
	dispatcher := notify.NewDispatcher(sessions, nil)
	verifier, err := identity.NewVerifier(identity.Config{
		Secret: []byte(config.AccessTokenSecret),
		TTL:    config.AccessTokenTTL,
	}, store)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("init access token verifier: %w", err)
	}

	done := make(chan struct{})
	handler := newHandler(handlerDeps{
		workflow:   domain.NewWorkflow(store, dispatcher, nil, nil),
		ratings:    domain.NewRatingGate(store, dispatcher, nil, nil),
		sessions:   sessions,
		dispatcher: dispatcher,
		verifier:   verifier,
		done:       done,
	})

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(HealthServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return &Server{
		httpAddr:        httpAddr,
		grpcAddr:        grpcAddr,
		shutdownTimeout: config.ShutdownTimeout,
		httpServer: &http.Server{
			Addr:              httpAddr,
			Handler:           handler,
			ReadHeaderTimeout: config.ReadHeaderTimeout,
		},
		grpcServer: grpcServer,
		health:     healthServer,
		store:      store,
		sessions:   sessions,
		dispatcher: dispatcher,
		done:       done,
	}, nil
}

// Run creates and serves a swaps server until the context ends.
func Run(ctx context.Context, config Config) error {
	server, err := NewServer(ctx, config)
	if err != nil {
		return fmt.Errorf("init swaps server: %w", err)
	}
	defer server.Close()

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve swaps: %w", err)
	}
	return nil
}

// ListenAndServe runs the HTTP and gRPC servers until the context ends or
// either of them fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("swaps server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	httpListener, err := net.Listen("tcp", s.httpAddr)
	if err != nil {
		return fmt.Errorf("listen http on %s: %w", s.httpAddr, err)
	}
	grpcListener, err := net.Listen("tcp", s.grpcAddr)
	if err != nil {
		_ = httpListener.Close()
		return fmt.Errorf("listen grpc on %s: %w", s.grpcAddr, err)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Printf("swaps http listening on %s", httpListener.Addr())
		if err := s.httpServer.Serve(httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		log.Printf("swaps grpc listening on %s", grpcListener.Addr())
		if err := s.grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve grpc: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		return s.shutdown()
	})
	return group.Wait()
}

func (s *Server) shutdown() error {
	s.health.Shutdown()
	s.closeSessions()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	err := s.httpServer.Shutdown(shutdownCtx)
	s.grpcServer.GracefulStop()
	if err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

// closeSessions tells every open WebSocket loop to hang up. Hijacked
// connections are not tracked by http.Server.Shutdown.
func (s *Server) closeSessions() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// Close releases server resources. Pending notification deliveries are
// drained before the store closes.
func (s *Server) Close() {
	if s == nil {
		return
	}
	s.closeSessions()
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.httpServer != nil {
		if err := s.httpServer.Close(); err != nil {
			log.Printf("close http server: %v", err)
		}
	}
	s.dispatcher.Wait()
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close swaps store: %v", err)
		}
	}
}

func openStore(ctx context.Context, driver string, dsn string) (*sqlstore.Store, error) {
	if isSQLiteDriver(driver) {
		dsn = strings.TrimSpace(dsn)
		if dsn == "" {
			dsn = filepath.Join("data", "swaps.db")
		}
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create storage dir: %w", err)
			}
		}
	}
	store, err := sqlstore.Open(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open swaps store: %w", err)
	}
	return store, nil
}

func isSQLiteDriver(driver string) bool {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", sqlstore.DriverSQLite:
		return true
	default:
		return false
	}
}
