// Package timeouts defines shared timeout constants used across services.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long servers wait for in-flight work during graceful
// shutdown, including pending notification deliveries.
const Shutdown = 5 * time.Second

// WebSocketWrite caps a single frame write to one live connection. A stalled
// peer is dropped from its session once the deadline passes.
const WebSocketWrite = 5 * time.Second

// StoreRequest caps one store round trip issued by an HTTP handler.
const StoreRequest = 5 * time.Second

// GRPCDial caps the wait for a gRPC peer to connect and report SERVING.
const GRPCDial = 2 * time.Second
