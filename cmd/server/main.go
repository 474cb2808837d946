package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notebot/internal/api"
	"notebot/internal/config"
	"notebot/internal/logging"
	"notebot/internal/mcp"
	"notebot/internal/middleware"
	"notebot/internal/quota"
	"notebot/internal/session"
	"notebot/internal/store"
	"notebot/internal/store/backend"
	"notebot/internal/telegram"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.NewViper()

	cmd := &cobra.Command{
		Use:           "notebot",
		Short:         "Telegram notes bot with a daily quota",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.BindFlags(v, cmd.Flags()); err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func run(ctx context.Context, cfg config.Config) error {
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	// Malformed persisted state stops startup here; nothing is discarded.
	st, err := backend.Open(cfg.DBDriver, cfg.DBConn)
	if err != nil {
		if errors.Is(err, store.ErrMalformedState) {
			log.Error("refusing to start with malformed persisted state", zap.Error(err))
		}
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	svc := session.NewService(st, quota.New(time.Now), log.Named("session"))

	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return fmt.Errorf("failed to connect to telegram: %w", err)
	}
	log.Info("bot started", zap.String("username", botAPI.Self.UserName), zap.String("storage", cfg.DBDriver))

	if cfg.HTTPAddr != "" {
		srv := newHTTPServer(cfg.HTTPAddr, svc, log.Named("http"))
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http server stopped", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		log.Info("http gateway listening", zap.String("addr", cfg.HTTPAddr))
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := botAPI.GetUpdatesChan(u)
	defer botAPI.StopReceivingUpdates()

	bot := telegram.NewBot(botAPI, svc, log.Named("telegram"), cfg.Workers)
	return bot.Run(ctx, updates)
}

func newHTTPServer(addr string, svc *session.Service, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	api.NewHandlers(svc, log).Routes(mux)
	mux.Handle("/mcp", mcp.NewMCPServer(svc).Handler())

	// Apply middleware: Logging -> UserID
	handler := middleware.Logging(log)(middleware.UserID(mux))

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
