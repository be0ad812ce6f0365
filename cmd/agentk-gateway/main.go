package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/kwenamoloto/agentk/adapters/llm"
	"github.com/kwenamoloto/agentk/domain/repositories"
	"github.com/kwenamoloto/agentk/internal/auth"
	"github.com/kwenamoloto/agentk/internal/config"
	"github.com/kwenamoloto/agentk/internal/gateway"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.LoadGateway()

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Pick the assistant: Gemini when an API key is configured, mock
	// otherwise.
	var assistant repositories.Assistant
	geminiCfg := llm.NewGeminiConfigFromEnv()
	if geminiCfg.APIKey != "" {
		geminiAssistant, err := llm.NewGeminiAssistant(context.Background(), geminiCfg, logger)
		if err != nil {
			logger.Fatal("failed to create Gemini assistant", zap.Error(err))
		}
		assistant = geminiAssistant
		logger.Info("Using Gemini assistant")
	} else {
		assistant = llm.NewMockAssistant()
		logger.Info("GEMINI_API_KEY not set, using mock assistant")
	}

	issuer, err := auth.NewTokenIssuer(cfg.JWTSecret, 24*time.Hour)
	if err != nil {
		logger.Fatal("failed to create token issuer", zap.Error(err))
	}

	server := gateway.NewServer(assistant, issuer, logger)
	server.InitRoutes(e)

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Gateway started", zap.String("port", cfg.Port))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Gateway is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Gateway forced to shutdown", zap.Error(err))
	}

	logger.Info("Gateway exited")
}
