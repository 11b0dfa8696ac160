package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"series-canon/src/config"
	datasource "series-canon/src/data_source"
	pb "series-canon/src/grpc_control"
	"series-canon/src/logger"
	"series-canon/src/models"
	"series-canon/src/server"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

// -----------------------------------------------------------------------------

func NewServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Poll extract folders and serve the HTTP, websocket and gRPC APIs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewConfig(*configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

// -----------------------------------------------------------------------------

func serve(ctx context.Context, cfg *config.Config) error {
	appLogger := logger.NewLogger(cfg.MConfig, cfg.Name)

	db, err := setupDatabase(cfg.MConfig, appLogger)
	if err != nil {
		return err
	}
	defer db.Close()

	analyzer := setupAnalysis(cfg.MConfig, db)
	multiSource, err := setupSources(cfg, analyzer, appLogger)
	if err != nil {
		return err
	}

	srv := server.NewAPIServer(cfg.MConfig, db, logger.NewLogger(cfg.MConfig, "APIServer"))
	multiSource.SetExchanger(srv)

	// Seed the server state with what the store already holds
	aggs, err := db.ListAggregates(ctx, models.MAggregateFilter{})
	if err != nil {
		appLogger.Warning("Initial aggregate load failed: %v", err)
	}
	srv.UpdateAllDatas(models.MLatestData{
		Type:       "INITIAL",
		Reports:    map[string]models.MRunReport{},
		Aggregates: aggs,
		Timestamp:  time.Now().Unix(),
	})

	grpcServer, err := startServers(srv, multiSource, cfg, appLogger)
	if err != nil {
		return err
	}

	wg := &sync.WaitGroup{}
	interval := time.Duration(cfg.Engine.PollSeconds) * time.Second
	if err := multiSource.Start(ctx, interval, wg); err != nil {
		return err
	}

	<-ctx.Done()
	appLogger.Info("Shutting down...")
	multiSource.Stop()
	wg.Wait()
	grpcServer.GracefulStop()
	return srv.Stop()
}

// -----------------------------------------------------------------------------

// startServers orchestrates the startup of the API and gRPC servers
func startServers(
	srv *server.APIServer,
	multiSource *datasource.MultiSourceManager,
	cfg *config.Config,
	appLogger *logger.Logger,
) (*grpc.Server, error) {

	// 1. API Server
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}()

	// 2. gRPC Control Server
	port := cfg.GrpcPort
	if port == 0 {
		port = 50051 // Default fallback
	}
	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.GrpcHost, port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen for gRPC: %w", err)
	}
	grpcServer := grpc.NewServer()
	grpcLogger := logger.NewLogger(cfg.MConfig, "ControlService")
	pb.RegisterControlServer(grpcServer, pb.NewControlService(cfg, multiSource, grpcLogger))

	go func() {
		appLogger.Info("Starting gRPC Control Server on %s", lis.Addr())
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Error("failed to serve gRPC: %v", err)
		}
	}()

	return grpcServer, nil
}
