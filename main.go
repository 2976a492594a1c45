package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apicontrollers "github.com/midagedev/dochi/internal/api/controllers"
	apiwebsocket "github.com/midagedev/dochi/internal/api/websocket"
	"github.com/midagedev/dochi/internal/domain/interfaces"
	"github.com/midagedev/dochi/internal/domain/services"
	"github.com/midagedev/dochi/internal/impl/config"
	"github.com/midagedev/dochi/internal/impl/database"
	"github.com/midagedev/dochi/internal/impl/integrations"
	repositoriesJson "github.com/midagedev/dochi/internal/impl/repositories/json"
	repositoriesMongo "github.com/midagedev/dochi/internal/impl/repositories/mongo"
	"github.com/midagedev/dochi/internal/impl/tools"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

var (
	version = "unknown" // This should be set during build with -ldflags="-X main.version=1.0.0"
)

const defaultSystemPrompt = `You are Dochi, a helpful assistant. Keep answers concise.
Use the available tools when a question needs live data.`

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Println(version)
		os.Exit(0)
	}

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: dochi [--storage=type] [--listen=addr]\n")
		flag.PrintDefaults()
	}

	storage := flag.String("storage", "file", "Storage type: file or mongo")
	listen := flag.String("listen", ":8080", "Listen address")
	flag.Parse()

	if *storage != "file" && *storage != "mongo" {
		fmt.Fprintf(os.Stderr, "Invalid storage type: %s\n", *storage)
		flag.Usage()
		os.Exit(1)
	}

	logConfig := zap.NewDevelopmentConfig()
	logConfig.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	logger, err := logConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.InitConfig()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	var conversationRepo interfaces.ConversationRepository

	if *storage == "mongo" {
		db, err := database.NewMongoDB(cfg.MongoURI, "dochi", logger)
		if err != nil {
			logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		defer db.Disconnect(context.Background())

		conversationRepo = repositoriesMongo.NewMongoConversationRepository(db.Collection("conversations"))
	} else {
		conversationRepo, err = repositoriesJson.NewJSONConversationRepository(cfg.DataDir)
		if err != nil {
			logger.Fatal("Failed to initialize conversation repository", zap.Error(err))
		}
	}

	toolFactory, err := tools.NewToolFactory(logger)
	if err != nil {
		logger.Fatal("Failed to initialize tool factory", zap.Error(err))
	}

	apiKey, err := cfg.LLMAPIKey()
	if err != nil {
		logger.Fatal("Failed to resolve LLM API key", zap.Error(err))
	}

	llm, err := integrations.NewOpenAIIntegration(cfg.LLMBaseURL, apiKey, cfg.LLMModel, toolFactory, logger)
	if err != nil {
		logger.Fatal("Failed to initialize LLM integration", zap.Error(err))
	}

	var fallback interfaces.LLMIntegration
	if cfg.LLMFallbackModel != "" {
		fallback, err = integrations.NewOpenAIIntegration(cfg.LLMBaseURL, apiKey, cfg.LLMFallbackModel, toolFactory, logger)
		if err != nil {
			logger.Fatal("Failed to initialize fallback LLM integration", zap.Error(err))
		}
	}

	conversationService := services.NewConversationService(conversationRepo, logger)
	sessionService := services.NewSessionService(conversationService, llm, fallback, defaultSystemPrompt, logger)
	exportService := services.NewExportService(conversationService, logger)

	hub := apiwebsocket.NewStreamHub(logger)
	hub.Start()
	defer hub.Stop()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORS())

	controller := apicontrollers.NewConversationController(logger, conversationService, sessionService, exportService)
	controller.RegisterRoutes(e.Group("/api"))
	e.GET("/ws/:id", hub.HandleConnection)

	go func() {
		if err := e.Start(*listen); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
}
