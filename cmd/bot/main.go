package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/bot"
	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/config"
	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/game"
	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/ingest"
	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/repository/postgres"
	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/telemetry"
	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/web"
)

func main() {
	// .env для локального запуска; в проде переменные заданы напрямую
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: .env file not loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry, err := telemetry.Setup(ctx)
	if err != nil {
		log.Printf("Warning: telemetry setup failed: %v", err)
	} else {
		defer func() {
			if err := shutdownTelemetry(context.Background()); err != nil {
				log.Printf("Error shutting down telemetry: %v", err)
			}
		}()
	}

	// Подключаемся к базе данных
	db, err := postgres.New(ctx, cfg.DB.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to database")

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	store := postgres.NewStore(db)

	// Стандартная коллекция загружается один раз из файла данных
	created, err := ingest.SeedStandard(ctx, store.Collections(), cfg.SeedFile)
	if err != nil {
		log.Printf("Warning: standard collection not seeded: %v", err)
	} else if created {
		log.Println("Standard collection seeded")
	}

	gameService := game.NewService(store, game.NewProcess(0))
	ingestor := ingest.NewIngestor(ingest.NewHTTPAlbumSource(), store.Collections())

	telegramBot, err := bot.New(cfg.BotToken, gameService, ingestor)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	webServer := web.NewServer(":"+cfg.WebPort, store, telegramBot.API())

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Received shutdown signal")
		cancel()
		webServer.Shutdown(context.Background())
	}()

	go func() {
		if err := webServer.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Web server error: %v", err)
		}
	}()

	if err := telegramBot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Bot error: %v", err)
	}

	log.Println("Application stopped")
}
