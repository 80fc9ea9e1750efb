package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/docchat/internal/api/handlers"
	"github.com/cloo-solutions/docchat/internal/cli"
	"github.com/cloo-solutions/docchat/internal/config"
	"github.com/cloo-solutions/docchat/internal/jobs"
	"github.com/cloo-solutions/docchat/internal/logging"
	"github.com/cloo-solutions/docchat/internal/openai"
	"github.com/cloo-solutions/docchat/internal/repository"
	"github.com/cloo-solutions/docchat/internal/server"
	"github.com/cloo-solutions/docchat/internal/service"
	"github.com/cloo-solutions/docchat/internal/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the docchat API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides DOCCHAT_PORT)")
	cmd.Flags().Bool("no-worker", false, "Do not start the background index worker")
	cli.BindEnv(cmd.Flags(), "port", "DOCCHAT_PORT")

	return cmd
}

// App holds the wired services behind the HTTP API.
type App struct {
	Router      http.Handler
	IndexWorker *jobs.Worker
}

// Build wires repositories, services and handlers from cfg. Without model
// credentials the server still starts and model-backed calls report that
// the service is unavailable.
func Build(cfg *config.Config, logger *zap.Logger) *App {
	var embedClient service.EmbeddingClient
	var chatClient service.ChatClient
	if cfg.HasOpenAI() {
		client := openai.NewClientWithConfig(cfg.OpenAIConfig())
		embedClient = client
		chatClient = client
	} else {
		logger.Warn("no model credentials configured; indexing and chat will be unavailable")
	}

	chunkIndex := repository.NewChunkIndexRepository()
	sessions := repository.NewSessionRepository()
	jobRepo := repository.NewIndexJobRepository()

	gateway := service.NewEmbeddingGateway(embedClient, cfg.EmbedBatchSize, logger.Named("embedding"))
	indexer := service.NewIndexerService(gateway, chunkIndex, cfg.ChunkConfig(), logger.Named("indexer"))
	retriever := service.NewRetrieverService(gateway, chunkIndex, cfg.RetrievalTopK, cfg.ContextMaxChars)
	composer := service.NewPromptComposer(cfg.HistoryWindow)
	streamer := service.NewCompletionStreamer(chatClient, logger.Named("completion"))
	chatSvc := service.NewChatService(retriever, composer, streamer, sessions, logger.Named("chat"))
	documentSvc := service.NewDocumentService(indexer, jobRepo)

	indexWorker := jobs.NewIndexWorker(jobRepo, indexer, logger.Named("index_worker"))

	router := server.NewRouter(server.RouterConfig{
		DocumentHandler: handlers.NewDocumentHandler(documentSvc, retriever),
		JobHandler:      handlers.NewJobHandler(documentSvc),
		ChatHandler:     handlers.NewChatHandler(chatSvc, logger.Named("http")),
		SessionHandler:  handlers.NewSessionHandler(chatSvc),
		Logger:          logger.Named("access"),
		MaxBodyBytes:    cfg.MaxBodyBytes,
	})

	return &App{
		Router:      router,
		IndexWorker: jobs.NewWorker(indexWorker, cfg.JobPollInterval, logger.Named("worker")),
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if portFlag, _ := cmd.Flags().GetString("port"); portFlag != "" {
		cfg.Port = portFlag
	}

	logger, err := logging.New(logging.Config{Debug: cfg.Debug, Format: cfg.LogFormat})
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.HasSentry() {
		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if cfg.Environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
			Logger:           logger,
		})
		if err != nil {
			logger.Warn("telemetry init failed, continuing without tracing", zap.Error(err))
		} else {
			defer shutdownTelemetry()
		}
	}

	app := Build(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	noWorker, _ := cmd.Flags().GetBool("no-worker")
	if !noWorker {
		go app.IndexWorker.Start(ctx)
		logger.Info("index worker started", zap.Duration("poll_interval", cfg.JobPollInterval))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	if !noWorker {
		app.IndexWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}
