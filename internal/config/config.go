// Package config содержит логику чтения конфигурации бота выплат.
package config

import (
	"errors"
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации бота выплат.
type Config struct {
	BotToken     string `env:"BOT_TOKEN"`
	AdminID      int64  `env:"ADMIN_ID"`
	StorageFile  string `env:"STORAGE_FILE"`
	DatabaseURI  string `env:"DATABASE_URI"`
	RunAddress   string `env:"RUN_ADDRESS"`
	StoreTimeout int    `env:"STORE_TIMEOUT"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Значения из окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envBotToken := cfg.BotToken
	envAdminID := cfg.AdminID
	envStorageFile := cfg.StorageFile
	envDatabaseURI := cfg.DatabaseURI
	envRunAddress := cfg.RunAddress
	envStoreTimeout := cfg.StoreTimeout

	flag.StringVar(&cfg.BotToken, "t", "", "telegram bot token")
	flag.Int64Var(&cfg.AdminID, "i", 0, "administrator chat id")
	flag.StringVar(&cfg.StorageFile, "f", "data.json", "ledger document file path")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI (optional, overrides file storage)")
	flag.StringVar(&cfg.RunAddress, "a", "", "address for the operator HTTP server (optional)")
	flag.IntVar(&cfg.StoreTimeout, "s", 5, "storage operation timeout, seconds")

	flag.Parse()

	if envBotToken != "" {
		cfg.BotToken = envBotToken
	}
	if envAdminID != 0 {
		cfg.AdminID = envAdminID
	}
	if envStorageFile != "" {
		cfg.StorageFile = envStorageFile
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envStoreTimeout != 0 {
		cfg.StoreTimeout = envStoreTimeout
	}

	if cfg.BotToken == "" {
		return nil, errors.New("bot token is required (BOT_TOKEN)")
	}
	if cfg.AdminID == 0 {
		return nil, errors.New("administrator id is required (ADMIN_ID)")
	}
	if cfg.StorageFile == "" {
		cfg.StorageFile = "data.json"
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5
	}

	return cfg, nil
}
