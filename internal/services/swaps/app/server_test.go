package server

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestNewServerValidatesConfig(t *testing.T) {
	t.Parallel()

	dsn := filepath.Join(t.TempDir(), "swaps.db")
	tests := []struct {
		name   string
		config Config
	}{
		{name: "missing http addr", config: Config{GRPCAddr: "127.0.0.1:0", DBDSN: dsn, AccessTokenSecret: testSecret}},
		{name: "missing grpc addr", config: Config{HTTPAddr: "127.0.0.1:0", DBDSN: dsn, AccessTokenSecret: testSecret}},
		{name: "missing secret", config: Config{HTTPAddr: "127.0.0.1:0", GRPCAddr: "127.0.0.1:0", DBDSN: dsn}},
		{name: "unknown driver", config: Config{HTTPAddr: "127.0.0.1:0", GRPCAddr: "127.0.0.1:0", DBDriver: "mysql", DBDSN: dsn, AccessTokenSecret: testSecret}},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			server, err := NewServer(context.Background(), tc.config)
			if err == nil {
				server.Close()
				t.Fatal("expected config error")
			}
		})
	}
}

func TestNewServerCreatesSQLiteDir(t *testing.T) {
	t.Parallel()

	server, err := NewServer(context.Background(), Config{
		HTTPAddr:          "127.0.0.1:0",
		GRPCAddr:          "127.0.0.1:0",
		DBDSN:             filepath.Join(t.TempDir(), "nested", "swaps.db"),
		AccessTokenSecret: testSecret,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	server.Close()
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	t.Parallel()

	server, err := NewServer(context.Background(), Config{
		HTTPAddr:          "127.0.0.1:0",
		GRPCAddr:          "127.0.0.1:0",
		DBDSN:             filepath.Join(t.TempDir(), "swaps.db"),
		AccessTokenSecret: testSecret,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-serveErr:
		if err != nil {
			t.Fatalf("ListenAndServe = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ListenAndServe did not stop after cancel")
	}
}

func TestListenAndServeRejectsNilServer(t *testing.T) {
	t.Parallel()

	var server *Server
	if err := server.ListenAndServe(context.Background()); err == nil {
		t.Fatal("expected nil server error")
	}
	server.Close()
}
