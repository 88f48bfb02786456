package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rocketscienceinc/seabattle/internal/config"
	"github.com/rocketscienceinc/seabattle/internal/devserver"
	"github.com/rocketscienceinc/seabattle/internal/entity"
	"github.com/rocketscienceinc/seabattle/internal/metrics"
	"github.com/rocketscienceinc/seabattle/internal/reconnect"
	"github.com/rocketscienceinc/seabattle/internal/repository"
	"github.com/rocketscienceinc/seabattle/internal/repository/storage"
	"github.com/rocketscienceinc/seabattle/internal/transport/websocket"
	"github.com/rocketscienceinc/seabattle/internal/usecase"
	"github.com/rocketscienceinc/seabattle/internal/view/terminal"
	"github.com/rocketscienceinc/seabattle/pkg/handlers"
)

var (
	ErrAddrNotFound = errors.New("redis address string is empty")
	ErrNoUsername   = errors.New("player username is not configured")
)

// RunClient - runs the interactive client until the player quits or a signal arrives.
func RunClient(logger *slog.Logger, conf *config.Config, in io.Reader, out io.Writer) error {
	log := logger.With("component", "app")

	if conf.Player.Username == "" {
		return ErrNoUsername
	}

	ctx, cancel := signalContext(log)
	defer cancel()

	registry := prometheus.NewRegistry()
	collectors := metrics.NewClient(registry)

	if conf.Metrics.Addr != "" {
		go func() {
			if err := serveMetrics(ctx, log, conf.Metrics.Addr, registry); err != nil {
				log.Error("metrics server error", "error", err)
			}
		}()
	}

	view := terminal.New(logger, conf.Player.Username, in, out)
	client := usecase.NewClient(
		logger,
		entity.Player{Username: conf.Player.Username, Credential: conf.Player.UserHash},
		view.Cells(),
		websocket.NewManager(logger, conf.Server),
		reconnect.New(conf.Reconnect),
		collectors,
		view,
	)

	clientErrCh := make(chan error, 1)
	go func() {
		clientErrCh <- client.Run(ctx)
	}()

	err := view.Run(ctx, client)

	cancel()

	if clientErr := <-clientErrCh; clientErr != nil && !errors.Is(clientErr, context.Canceled) {
		log.Error("client stopped with error", "error", clientErr)
	}

	return err
}

// RunDevServer - runs the development room server.
func RunDevServer(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := signalContext(log)
	defer cancel()

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return ErrAddrNotFound
	}

	redisStorage, err := storage.New(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	registry := prometheus.NewRegistry()
	collectors := metrics.NewServer(registry)

	roomRepo := repository.NewRoomRepository(redisStorage, conf.DevServer.RoomTTL)
	rooms := devserver.NewRooms(logger, roomRepo, collectors)
	server := devserver.New(logger, rooms, devserver.NewAuthenticator(conf.DevServer.AuthSecret), collectors)

	log.Info("Starting dev server", "port", conf.DevServer.Port)

	return server.Start(ctx, conf.DevServer.Port, server.Router(registry))
}

// IssueUserHash - returns the user_hash the dev server accepts for username.
func IssueUserHash(conf *config.Config, username string) (string, error) {
	return devserver.NewAuthenticator(conf.DevServer.AuthSecret).Issue(username)
}

func signalContext(log *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigs)

		select {
		case sig := <-sigs:
			log.Info("Received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

func serveMetrics(ctx context.Context, log *slog.Logger, addr string, registry *prometheus.Registry) error {
	router := chi.NewRouter()
	router.Get("/ping", handlers.PingHandler)
	router.Method(http.MethodGet, "/metrics", metrics.Handler(registry))

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("could not shut down metrics server", "error", err)
		}
	}()

	log.Info("Starting metrics server", "addr", addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}

	return nil
}
