// Axonote pipeline server - provides the upload/HTTP/WebSocket API and runs
// the stage worker pool that drives recordings through the processing pipeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/axonote/pipeline/pkg/api"
	"github.com/axonote/pipeline/pkg/cleanup"
	"github.com/axonote/pipeline/pkg/config"
	"github.com/axonote/pipeline/pkg/database"
	"github.com/axonote/pipeline/pkg/events"
	"github.com/axonote/pipeline/pkg/queue"
	"github.com/axonote/pipeline/pkg/recognizer"
	"github.com/axonote/pipeline/pkg/services"
	"github.com/axonote/pipeline/pkg/slack"
	"github.com/joho/godotenv"

	"github.com/gin-gonic/gin"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: Could not load %s file: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	ginMode := getEnv("GIN_MODE", "debug")
	gin.SetMode(ginMode)

	log.Printf("Starting axonote pipeline server")
	log.Printf("HTTP Port: %s", httpPort)
	log.Printf("Config Directory: %s", *configDir)

	ctx := context.Background()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("Failed to initialize configuration: %v", err)
	}

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("Failed to load database config: %v", err)
	}

	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			log.Printf("Error closing database client: %v", err)
		}
	}()
	log.Println("Connected to PostgreSQL database")

	sessionService := services.NewSessionService(dbClient.Client)
	eventService := services.NewEventService(dbClient.Client)
	services.NewSystemWarningsService()

	eventPublisher := events.NewEventPublisher(dbClient.DB())

	connString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		dbConfig.Host, dbConfig.Port, dbConfig.User, dbConfig.Password, dbConfig.Database, dbConfig.SSLMode,
	)
	connManager := events.NewConnectionManager(events.NewEventServiceAdapter(eventService), 5*time.Second)
	notifyListener := events.NewNotifyListener(connString, connManager)
	if err := notifyListener.Start(ctx); err != nil {
		log.Fatalf("Failed to start NOTIFY listener: %v", err)
	}
	connManager.SetListener(notifyListener)
	defer notifyListener.Stop()

	registry := recognizer.NewRegistry(
		newASRClient(),
		newDiarizerClient(),
		recognizer.NewLocalPostProcessor(recognizer.DefaultLexicon()),
		newLLMAnalyzerClient(),
		nil, // Researcher: wired once pkg/research is registered
	)
	presets := recognizer.NewPresetRegistry()

	slackService := slack.NewService(slack.ServiceConfig{
		Token:        os.Getenv(cfg.Slack.TokenEnv),
		Channel:      cfg.Slack.Channel,
		DashboardURL: cfg.DashboardURL,
	})

	stageExecutor := queue.NewStageExecutor(dbClient.Client, registry, presets, eventPublisher, nil)
	workerPool := queue.NewWorkerPool(getEnv("POD_ID", "pod-1"), dbClient.Client, cfg.Queue, stageExecutor, eventPublisher, slackService)
	if err := workerPool.Start(ctx); err != nil {
		log.Fatalf("Failed to start worker pool: %v", err)
	}
	defer workerPool.Stop()

	cleanupService := cleanup.NewService(cfg.Retention, sessionService, eventService)
	cleanupService.Start(ctx)
	defer cleanupService.Stop()

	log.Println("Services initialized")

	server := api.NewServer(cfg, dbClient, sessionService, workerPool, connManager)
	if dashboardDir := getEnv("DASHBOARD_DIR", ""); dashboardDir != "" {
		server.SetDashboardDir(dashboardDir)
	}

	log.Printf("HTTP server listening on :%s", httpPort)
	log.Printf("Health check available at: http://localhost:%s/health", httpPort)
	if err := server.Start(":" + httpPort); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// newASRClient dials the ASR recognizer service when ASR_SERVICE_ADDR is set,
// otherwise leaves the role unregistered (ASR stage jobs fail fast with
// ErrStageUnavailable instead of hanging).
func newASRClient() recognizer.ASR {
	addr := os.Getenv("ASR_SERVICE_ADDR")
	if addr == "" {
		return nil
	}
	client, err := recognizer.NewGRPCASRClient(addr)
	if err != nil {
		slog.Error("failed to dial ASR service", "addr", addr, "error", err)
		return nil
	}
	return client
}

func newDiarizerClient() recognizer.Diarizer {
	addr := os.Getenv("DIARIZER_SERVICE_ADDR")
	if addr == "" {
		return nil
	}
	client, err := recognizer.NewGRPCDiarizerClient(addr)
	if err != nil {
		slog.Error("failed to dial diarization service", "addr", addr, "error", err)
		return nil
	}
	return client
}

func newLLMAnalyzerClient() recognizer.LLMAnalyzer {
	addr := os.Getenv("LLM_ANALYZER_SERVICE_ADDR")
	if addr == "" {
		return nil
	}
	client, err := recognizer.NewGRPCLLMAnalyzerClient(addr)
	if err != nil {
		slog.Error("failed to dial LLM analyzer service", "addr", addr, "error", err)
		return nil
	}
	return client
}
