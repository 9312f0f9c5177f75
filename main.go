package main

import (
	"context"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/example/quickchat/modules/api"
	"github.com/example/quickchat/modules/broadcast"
	"github.com/example/quickchat/modules/imagecache"
	"github.com/example/quickchat/modules/relay"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== QuickChat Relay ===")

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Shared state: one registry for sessions and rooms, one image store.
	registry := relay.NewRegistry()

	imagecacheModule, err := imagecache.NewModule(imagecache.DefaultConfig())
	if err != nil {
		log.Fatalf("Failed to create image cache: %v", err)
	}
	relayModule := relay.NewModule(registry, imagecacheModule.Store())
	broadcastModule := broadcast.NewModule(registry)
	apiModule := api.NewModule(relayModule, imagecacheModule.Store())

	// Inject broadcast hub into API module
	// (the hub is not exposed via ServiceContainer)
	apiModule.SetHub(broadcastModule.GetHub())

	// Register modules with the framework.
	// Order: independent modules first, then modules with dependencies
	app.Register(imagecacheModule) // TTL image store + sweeper
	app.Register(relayModule)      // registry + session dispatch, event emitter
	app.Register(broadcastModule)  // WebSocket hub, event consumer
	app.Register(apiModule)        // HTTP/WebSocket surface

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Println("")
	log.Println("QuickChat relay started!")
	log.Println("")
	log.Printf("WebSocket endpoint (ws://localhost:%s/ws):", port)
	log.Println("  Frame types: CHAT, JOIN, LEAVE, CREATE, image")
	log.Println("  Server synthesizes ONLINE_COUNT frames per room")
	log.Println("")
	log.Printf("HTTP endpoints (http://localhost:%s):", port)
	log.Println("  GET  /health              - Health check")
	log.Println("  POST /api/chat/upload     - Upload an image (3 minute TTL)")
	log.Println("  GET  /api/images/:id      - Fetch a cached image")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
