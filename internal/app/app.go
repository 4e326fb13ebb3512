package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cinesync/server/internal/controller"
	connInmemory "github.com/cinesync/server/internal/repository/connection/inmemory"
	roomDomain "github.com/cinesync/server/internal/repository/room"
	roomInmemory "github.com/cinesync/server/internal/repository/room/inmemory"
	sessionRedis "github.com/cinesync/server/internal/repository/session/redis"
	"github.com/cinesync/server/internal/service/room"
	"github.com/cinesync/server/pkg/ctxlogger"
	"github.com/cinesync/server/pkg/redisclient"
)

type AppConfig struct {
	Host              string  `json:"host"`
	Port              int     `json:"port"`
	LogLevel          string  `json:"log_level"`
	MembersLimit      int     `json:"members_limit"`
	QueueLimit        int     `json:"queue_limit"`
	ControlPolicy     string  `json:"control_policy"`
	HeartbeatInterval float64 `json:"heartbeat_interval_sec"`
	DriftTolerance    float64 `json:"drift_tolerance_sec"`
	SessionTTL        float64 `json:"session_ttl_sec"`
	RedisPort         int     `json:"redis_port"`
	RedisHost         string  `json:"redis_host"`
	RedisPassword     string  `json:"-"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.MembersLimit < 1 {
		return fmt.Errorf("members limit must be greater than 0")
	}
	if cfg.QueueLimit < 1 {
		return fmt.Errorf("queue limit must be greater than 0")
	}
	if cfg.DriftTolerance <= 0 {
		return fmt.Errorf("drift tolerance must be greater than 0")
	}
	if policy := roomDomain.ControlPolicy(cfg.ControlPolicy); !policy.Valid() {
		return fmt.Errorf("control policy must be host or anyone")
	}
	return nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		log.Fatal(err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	logger := slog.New(&h)

	rc, err := redisclient.NewRedisClient(&redisclient.Config{
		Port:     cfg.RedisPort,
		Host:     cfg.RedisHost,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer rc.Close()

	sessionRepo := sessionRedis.NewRepo(rc, time.Duration(cfg.SessionTTL*float64(time.Second)))
	roomRepo := roomInmemory.NewRepo()
	connRepo := connInmemory.NewRepo()
	roomService := room.NewService(roomRepo, connRepo, sessionRepo, logger, &room.Config{
		MembersLimit:         cfg.MembersLimit,
		QueueLimit:           cfg.QueueLimit,
		DefaultControlPolicy: roomDomain.ControlPolicy(cfg.ControlPolicy),
		HeartbeatInterval:    time.Duration(cfg.HeartbeatInterval * float64(time.Second)),
		DriftTolerance:       time.Duration(cfg.DriftTolerance * float64(time.Second)),
	})
	controller := controller.NewController(roomService, logger)
	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: controller.GetMux()}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}
