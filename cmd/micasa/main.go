package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/micasa-app/micasa/internal/database"
	"github.com/micasa-app/micasa/internal/logging"
	"github.com/micasa-app/micasa/internal/server"
)

func main() {
	port := os.Getenv("MICASA_PORT")
	if port == "" {
		port = "5000"
	}

	dbPath := os.Getenv("MICASA_DB_PATH")
	if dbPath == "" {
		dbPath = "micasa.db"
	}

	jwtSecret := os.Getenv("MICASA_JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("MICASA_JWT_SECRET must be set")
	}

	logger := logging.Setup(os.Getenv("MICASA_LOG_LEVEL"))

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	srv := server.New(db, []byte(jwtSecret), logger)
	defer srv.Close()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Periodic rate-limiter cleanup
	go func() {
		ticker := time.NewTicker(15 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			srv.RateLimiter().Cleanup()
		}
	}()

	go func() {
		fmt.Printf("Micasa running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
