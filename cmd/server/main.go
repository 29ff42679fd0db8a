package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-management-client/internal/backend"
	"github.com/yukikurage/task-management-client/internal/config"
	"github.com/yukikurage/task-management-client/internal/database"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	db, err := database.Open(cfg.DBDriver, cfg.DBDSN, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run migrations
	if err := backend.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	r := backend.NewRouter(db, backend.Options{
		JWTSecret: cfg.JWTSecret,
		JWTTTL:    cfg.JWTTTL,
	})

	// Start server
	log.Printf("Server starting on %s", cfg.ServerAddr)
	if err := r.Run(cfg.ServerAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
