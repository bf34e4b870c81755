// Command clipforged runs the clipforge pipeline daemon in the foreground.
// It is equivalent to `clipforge daemon run` and exists for service managers
// that want a dedicated binary.
package main

import (
	"context"
	"log"

	"clipforge/internal/config"
	"clipforge/internal/daemonrun"
)

func main() {
	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{
		LogLevel: cfg.Logging.Level,
	}); err != nil {
		log.Fatalf("daemon: %v", err)
	}
}
