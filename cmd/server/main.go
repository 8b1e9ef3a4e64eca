package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/napolitain/rts-economy/internal/models"
	"github.com/napolitain/rts-economy/internal/rpc"
)

var (
	port       int
	tuningFile string
	debug      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "server",
		Short: "gRPC economy decision server",
		Long: `Serves economy.v1.EconomyService. Each match is a session with its own
economy manager; the host sends one Decide call per tick with the world
snapshot and receives worker orders and production plans.`,
		SilenceUsage: true,
		RunE:         serve,
	}
	rootCmd.Flags().IntVarP(&port, "port", "p", 50051, "The server port")
	rootCmd.Flags().StringVarP(&tuningFile, "tuning", "t", "", "Path to YAML tuning file")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "Debug logging")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(cmd *cobra.Command, args []string) error {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	tuning := models.DefaultTuning()
	if tuningFile != "" {
		t, err := models.LoadTuning(tuningFile)
		if err != nil {
			return fmt.Errorf("loading tuning: %w", err)
		}
		tuning = t
	}

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	s := newGRPCServer(tuning, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		logger.Info().Msg("shutting down")
		s.GracefulStop()
	}()

	logger.Info().Int("port", port).Str("civ", tuning.Civ).Msg("gRPC server listening")
	return s.Serve(lis)
}

// newGRPCServer builds a server with the economy service and request logging
func newGRPCServer(tuning models.Tuning, logger zerolog.Logger) *grpc.Server {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(logCalls(logger)))
	rpc.RegisterEconomyServer(s, rpc.NewServer(tuning, logger))
	return s
}

func logCalls(logger zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err != nil {
			logger.Warn().Err(err).Str("method", info.FullMethod).Msg("call failed")
		} else {
			logger.Debug().Str("method", info.FullMethod).Msg("call")
		}
		return resp, err
	}
}
