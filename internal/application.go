package application

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/minigames-backend/internal/challenge"
	"github.com/rocketscienceinc/minigames-backend/internal/config"
	"github.com/rocketscienceinc/minigames-backend/internal/repository"
	"github.com/rocketscienceinc/minigames-backend/internal/repository/storage"
	"github.com/rocketscienceinc/minigames-backend/internal/session"
	redistransport "github.com/rocketscienceinc/minigames-backend/internal/transport/redis"
	"github.com/rocketscienceinc/minigames-backend/transport/rest"
)

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	redisClient, err := storage.ConnectRedis(ctx, conf.Redis.GetRedisAddr())
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisClient.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	surface := redistransport.NewSurface(logger, redisClient)
	resultRepo := repository.NewResultRepository(redisClient)
	supervisor := session.NewSupervisor(logger, surface, conf.Timeouts.Move).WithRecorder(resultRepo)
	challenges := challenge.New(logger, surface, supervisor, challenge.Timeouts{
		Challenge:      conf.Timeouts.Challenge,
		GobbletCeiling: conf.Timeouts.GobbletCeiling,
	})

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := rest.Start(ctx, conf.HTTPPort, rest.NewHandler(logger, supervisor, resultRepo)); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run command listener
	listenerErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting command listener")
		listener := redistransport.NewListener(logger, redisClient, challenges, supervisor, surface)
		if listenErr := listener.Run(ctx); listenErr != nil {
			log.Error("Command listener error", "error", listenErr)
			listenerErrCh <- listenErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-listenerErrCh:
		return fmt.Errorf("command listener error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}
