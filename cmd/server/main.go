package main

import (
	"context"
	"log"
	"os"

	"github.com/agenthands/exoseek/internal/config"
	"github.com/agenthands/exoseek/internal/logger"
	"github.com/agenthands/exoseek/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults")
	}

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = config.DefaultPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		log.Fatal(err)
	}

	zl, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatal(err)
	}
	defer zl.Sync()

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	srv, err := server.NewFromConfig(cfg, zl)
	if err != nil {
		zl.Errorf(context.Background(), "startup: %v", err)
		os.Exit(1)
	}
	srv.CheckClassifier(context.Background())
	r := srv.SetupRouter()

	zl.Infof(context.Background(), "starting server on port %s, classifier at %s", cfg.Server.Port, cfg.Service.BaseURL)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		zl.Errorf(context.Background(), "server stopped: %v", err)
		os.Exit(1)
	}
}
