// Package main запускает телеграм-бота учётной книги выплат.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/payout-bot/internal/bot"
	"github.com/mmeshcher/payout-bot/internal/config"
	"github.com/mmeshcher/payout-bot/internal/handler"
	"github.com/mmeshcher/payout-bot/internal/model"
	"github.com/mmeshcher/payout-bot/internal/service"
	"github.com/mmeshcher/payout-bot/internal/storage"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	var store service.Store
	if cfg.DatabaseURI != "" {
		store, err = storage.NewPostgresStore(cfg.DatabaseURI)
		if err != nil {
			sugar.Fatalw("database initialization error", "error", err.Error())
		}
	} else {
		store = storage.NewFileStore(cfg.StorageFile)
	}

	admin := model.UserID(cfg.AdminID)
	svc := service.NewService(store, admin, time.Duration(cfg.StoreTimeout)*time.Second)
	defer svc.Close()

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		sugar.Fatalw("bot initialization error", "error", err.Error())
	}

	h := bot.NewHandler(api, svc, admin, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Цикл получения обновлений Telegram
	g.Go(func() error {
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		updates := api.GetUpdatesChan(u)

		sugar.Infow("payout bot started", "account", api.Self.UserName)

		for {
			select {
			case <-ctx.Done():
				api.StopReceivingUpdates()
				return nil
			case upd := <-updates:
				h.HandleUpdate(ctx, upd)
			}
		}
	})

	// Служебный HTTP-сервер оператора (если настроен адрес)
	if cfg.RunAddress != "" {
		opsHandler := handler.NewHandler(svc, admin, logger)

		server := &http.Server{
			Addr:    cfg.RunAddress,
			Handler: opsHandler.SetupRouter(),
		}

		g.Go(func() error {
			sugar.Infow("starting operator server", "addr", cfg.RunAddress)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown error: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}

	sugar.Info("payout bot stopped gracefully")
}
