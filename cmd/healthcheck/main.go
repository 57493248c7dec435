// Package main exits zero when the swaps gRPC health endpoint reports
// SERVING, for use as a container health probe.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	healthcheckcmd "github.com/louisbranch/skillswap/internal/cmd/healthcheck"
)

func main() {
	cfg, err := healthcheckcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[HEALTHCHECK] ")

	if err := healthcheckcmd.Run(context.Background(), cfg, log.Printf); err != nil {
		log.Fatal(err)
	}
}
