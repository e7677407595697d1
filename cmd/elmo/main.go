package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/navikt/elmo/internal/api"
	"github.com/navikt/elmo/internal/config"
	"github.com/navikt/elmo/internal/repository"
	"github.com/navikt/elmo/internal/service"
	"github.com/navikt/elmo/internal/web"
)

func main() {
	serverConfig := config.GetServerConfig()
	redisConfig := config.GetRedisConfig()

	// Initialize the store using the factory
	store, err := repository.NewStore(redisConfig)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}

	// Close the Redis connection properly on exit
	if closer, ok := store.(interface{ Close() error }); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				log.Printf("Error closing store: %v", err)
			}
		}()
	}

	// Initialize the service layer
	roomService := service.NewRoomService(store)

	// Set up API routes
	mux := api.SetupRoutes(roomService)

	// Set up the SSE endpoint for per-room snapshot streams
	sseManager := web.NewSSEManager(roomService)
	mux.Handle("/events/rooms/", sseManager)

	// Configure the HTTP server
	server := &http.Server{
		Addr:         ":" + serverConfig.Port,
		Handler:      web.HTTPProtocolMiddleware(mux),
		WriteTimeout: 0, // Disable write timeout for SSE connections
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	// Start the server in a goroutine
	go func() {
		log.Printf("Starting elmo server on port %s", serverConfig.Port)
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for an interrupt or terminate signal from the OS
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Fatalf("Error starting server: %v", err)

	case <-shutdown:
		log.Println("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
		defer cancel()

		// Doesn't block if there are no connections, but will otherwise
		// wait until the timeout deadline.
		if err := server.Shutdown(ctx); err != nil {
			server.Close()
			log.Fatalf("Error shutting down server: %v", err)
		}

		log.Println("Server gracefully stopped")
	}
}
