package main

import (
	"collab-engine/audit"
	"collab-engine/auth"
	pb "collab-engine/infrastructure/grpc/collabv1"
	"collab-engine/infrastructure/grpc/server"
	"collab-engine/infrastructure/storage"
	"collab-engine/internal"
	"collab-engine/observability"
	"collab-engine/projection"
	"collab-engine/runtime"
	"collab-engine/runtime/workers"
	"collab-engine/services"
	"collab-engine/sink"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"google.golang.org/grpc"

	grpc3 "github.com/mama165/sdk-go/grpc"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Collaboration server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component and blocks until a signal or a fatal error.
// Returning instead of exiting lets the deferred closes run.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)
	ctx := context.Background()

	// 2. Storage (BadgerDB, Bluge, audit trail)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		logger.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	auditSink, closeAudit, err := openAuditSink(config, db, logger)
	if err != nil {
		return exitRuntime, err
	}
	defer func() { _ = closeAudit() }()

	// 3. Engine & Orchestration
	auditLog := audit.NewLog(auditSink, nil)
	metrics := observability.NewMetrics()
	pipeline := workers.NewPipeline(logger, config.BufferSize, config.EnqueueTimeout).WithDropRecorder(metrics)
	locks := runtime.NewLockManager(runtime.WithLockTTL(config.LockTTL))
	engine := runtime.NewEngine(logger, pipeline, locks, projection.NewHistory(nil), metrics,
		runtime.WithStore(storage.NewSessionRepository(db, logger)),
		runtime.WithAuditLog(auditLog),
		runtime.WithStoreTimeout(config.StoreTimeout),
	)
	if err := engine.Restore(ctx); err != nil {
		return exitRuntime, fmt.Errorf("restore failed: %w", err)
	}

	hub := sink.NewHub(logger)
	index := storage.NewEventIndex(blugeWriter, logger)
	supervisor := workers.NewSupervisor(logger).WithRestartDelay(config.RestartInterval)
	orchestrator := runtime.NewOrchestrator(logger, supervisor, engine, pipeline, hub, runtime.OrchestratorConfig{
		SinkTimeout:       config.SinkTimeout,
		JobTimeout:        config.JobTimeout,
		LockSweepInterval: config.LockSweepInterval,
		ReportInterval:    config.MetricInterval,
	})
	orchestrator.Add(index)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	orchestratorDone := make(chan struct{})
	go func() {
		defer close(orchestratorDone)
		orchestrator.Start(ctx)
	}()

	// 5. gRPC Server Setup
	listener, err := net.Listen("tcp", config.Address())
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", config.Address(), err)
	}

	verifier := auth.NewJWTVerifier(auth.DeriveSigningKey(config.AuthSecret, config.AuthSalt), config.AuthIssuer)
	interceptors := auth.NewInterceptors(verifier)
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpc3.UnaryLoggingInterceptor(logger),
			interceptors.Unary(),
		),
		grpc.ChainStreamInterceptor(interceptors.Stream()),
	)
	collabService := services.NewCollabService(logger, engine, locks, index, auditLog, hub)
	pb.RegisterCollaborationServiceServer(s, server.NewCollabServer(logger, collabService,
		config.ConnectionBufferSize, config.DeliveryTimeout))

	if config.DebugPort > 0 {
		endpoint := "/inspect"
		logger.Info("Debug Badger inspector available", "url", fmt.Sprintf("http://localhost:%d%s", config.DebugPort, endpoint))
		debugServer := internal.StartDebugServer(logger, db, config.DebugPort, endpoint, nil, func() map[string]any {
			m := engine.Metrics()
			return map[string]any{
				"sessions":     m.TotalSessions,
				"edits":        m.TotalEdits,
				"conflicts":    m.TotalConflicts,
				"audit_fails":  m.AuditFailures,
				"active_users": len(m.ActiveUsers),
			}
		})
		defer func() { _ = debugServer.Close() }()
	}

	go func() {
		logger.Info("Starting gRPC server", "address", config.Address(), "at", time.Now().UTC())
		for serviceName := range s.GetServiceInfo() {
			logger.Debug("gRPC exposed services", "name", serviceName)
		}
		if err := s.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	// 6. Wait for Stop or Error
	code := exitOK
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case runErr = <-errChan:
		code = exitRuntime
	}

	// 7. Graceful Shutdown
	// Streams end first, then the workers drain what the last calls queued.
	logger.Info("Shutting down gracefully...")
	s.GracefulStop()
	orchestrator.Stop()
	select {
	case <-orchestratorDone:
	case <-time.After(config.ShutdownTimeout):
		logger.Warn("Workers did not stop in time", "timeout", config.ShutdownTimeout)
	}
	logger.Info("Program stopped cleanly")

	return code, runErr
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG)
	} else {
		options = options.WithLoggingLevel(badger.INFO)
	}

	return options
}

// openAuditSink keeps the audit trail in a file when AUDIT_FILEPATH is set,
// in badger otherwise.
func openAuditSink(config internal.Config, db *badger.DB, logger *slog.Logger) (audit.Sink, func() error, error) {
	if config.AuditFilepath == "" {
		return storage.NewAuditRepository(db, logger), func() error { return nil }, nil
	}
	fileSink, err := audit.NewFileSink(config.AuditFilepath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open audit file: %w", err)
	}
	return fileSink, fileSink.Close, nil
}
