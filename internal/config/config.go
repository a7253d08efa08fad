package config

import (
	"fmt"
	"os"
)

type Config struct {
	BotToken string
	DB       DBConfig
	WebPort  string
	SeedFile string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

func (d DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

func Load() (*Config, error) {
	cfg := &Config{
		BotToken: getEnv("BOT_TOKEN", ""),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "game"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "card_game"),
		},
		WebPort:  getEnv("WEB_PORT", "8080"),
		SeedFile: getEnv("SEED_FILE", "data/standard_images.json"),
	}

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN is required")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
