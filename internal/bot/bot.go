package bot

import (
	"context"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/game"
	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/ingest"
)

type Bot struct {
	api     *tgbotapi.BotAPI
	handler *Handler
}

func New(token string, svc *game.Service, ingestor *ingest.Ingestor) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log.Printf("Authorized on account %s", api.Self.UserName)

	handler := NewHandler(api, svc, ingestor, NewContinuations())

	return &Bot{
		api:     api,
		handler: handler,
	}, nil
}

// API отдаёт клиент Telegram — веб-сервер выдаёт через него картинки карточек.
func (b *Bot) API() *tgbotapi.BotAPI {
	return b.api
}

func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	log.Println("Bot started, waiting for updates...")

	for {
		select {
		case <-ctx.Done():
			log.Println("Bot stopping...")
			return ctx.Err()
		case update := <-updates:
			go b.handler.HandleUpdate(ctx, update)
		}
	}
}
