package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/domain"
	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/game"
	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/ingest"
)

const rulesText = `🎴 Как играть

Обычный режим: бот показывает пять карточек и загаданное слово.
Угадайте, на какой карточке оно спрятано — за верный ответ +3 очка.

Режим с ведущим: ведущий выбирает карточку из руки и загадывает по ней
слово. Остальные подбирают из своих рук карточки под это слово, а затем
голосуют, какая из выложенных — карточка ведущего. Очки получают и за
угаданную карточку ведущего, и за голоса, собранные своей. Побеждает
первый, кто наберёт 40 очков.`

// sender — то, что умеет отправлять сообщения. В проде это *tgbotapi.BotAPI.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Handler — диспетчер входящих сообщений: сперва отложенный обработчик,
// затем активная сессия, затем словарь команд меню.
type Handler struct {
	api      sender
	game     *game.Service
	ingestor *ingest.Ingestor
	cont     *Continuations
}

func NewHandler(api sender, svc *game.Service, ingestor *ingest.Ingestor, cont *Continuations) *Handler {
	return &Handler{
		api:      api,
		game:     svc,
		ingestor: ingestor,
		cont:     cont,
	}
}

func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	name := strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
	pl, err := h.game.Player(ctx, msg.Chat.ID, name)
	if err != nil {
		log.Printf("Error resolving player %d: %v", msg.Chat.ID, err)
		return
	}

	input := strings.TrimSpace(msg.Text)

	if fn := h.cont.Take(pl.ChatID); fn != nil {
		fn(ctx, pl, input)
		return
	}

	if pl.SessionID != 0 {
		h.routeSession(ctx, pl, input)
		return
	}
	h.routeMenu(ctx, pl, input)
}

func (h *Handler) routeSession(ctx context.Context, pl *domain.Player, input string) {
	switch strings.ToLower(input) {
	case strings.ToLower(game.BtnQuit):
		h.run(ctx, pl, "leave", h.game.Leave)
	case strings.ToLower(game.BtnResults):
		h.run(ctx, pl, "results", h.game.Results)
	case strings.ToLower(game.BtnStartGame):
		h.run(ctx, pl, "start multi", h.game.StartMulti)
	case strings.ToLower(game.BtnNextCircle):
		h.run(ctx, pl, "next circle", h.game.NextCircle)
	case strings.ToLower(game.BtnStandardCol):
		h.run(ctx, pl, "standard collection", h.game.ChooseStandardCollection)
	case strings.ToLower(game.BtnCustomCol):
		h.askAlbum(pl)
	default:
		h.stageInput(ctx, pl, input)
	}
}

// stageInput — свободный ввод внутри сессии: его смысл зависит от фазы круга.
func (h *Handler) stageInput(ctx context.Context, pl *domain.Player, input string) {
	replies, err := h.game.HandleSessionInput(ctx, pl, input)
	if err != nil {
		log.Printf("Error handling session input: %v", err)
		h.sendText(pl.ChatID, "Что-то пошло не так, попробуйте ещё раз.")
		return
	}
	h.send(replies)
}

func (h *Handler) routeMenu(ctx context.Context, pl *domain.Player, input string) {
	switch strings.ToLower(input) {
	case "/start", "start", "начать", "привет":
		h.sendWithKeyboard(pl.ChatID,
			fmt.Sprintf("Привет, %s! Это игра «Кто загадал карточку?». Выберите, во что сыграем:", pl.Name),
			game.MenuKeyboard())
	case strings.ToLower(game.BtnRules):
		h.sendWithKeyboard(pl.ChatID, rulesText, game.MenuKeyboard())
	case strings.ToLower(game.BtnSingleGame):
		h.runCreate(ctx, pl, true, false)
	case strings.ToLower(game.BtnCreateGame):
		h.runCreate(ctx, pl, false, false)
	case strings.ToLower(game.BtnCreateWithHost):
		h.runCreate(ctx, pl, false, true)
	case strings.ToLower(game.BtnJoinGame):
		h.sendText(pl.ChatID, "Пришлите код игры:")
		h.cont.Register(pl.ChatID, h.joinByCode)
	default:
		h.sendWithKeyboard(pl.ChatID, "Я вас не понял. Выберите действие на клавиатуре.", game.MenuKeyboard())
	}
}

func (h *Handler) runCreate(ctx context.Context, pl *domain.Player, single, withHost bool) {
	replies, err := h.game.CreateSession(ctx, pl, single, withHost)
	if err != nil {
		log.Printf("Error creating session: %v", err)
		h.sendText(pl.ChatID, "Не получилось создать игру, попробуйте ещё раз.")
		return
	}
	h.send(replies)
}

func (h *Handler) joinByCode(ctx context.Context, pl *domain.Player, input string) {
	replies, err := h.game.Join(ctx, pl, input)
	if err != nil {
		log.Printf("Error joining session: %v", err)
		h.sendText(pl.ChatID, "Не получилось присоединиться, попробуйте ещё раз.")
		return
	}
	h.send(replies)
}

func (h *Handler) askAlbum(pl *domain.Player) {
	h.sendText(pl.ChatID, "Пришлите ссылку на альбом с подписанными изображениями:")
	h.cont.Register(pl.ChatID, h.albumLink)
}

// albumLink — продолжение после «Своя коллекция»: загрузка альбома и привязка
// собранной коллекции к создаваемой сессии.
func (h *Handler) albumLink(ctx context.Context, pl *domain.Player, input string) {
	col, err := h.ingestor.FromAlbum(ctx, input, "Пользовательская")
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrTooFewImages):
			h.sendWithKeyboard(pl.ChatID,
				"В альбоме должно быть хотя бы шесть изображений с подписями.",
				game.CollectionKeyboard())
		case errors.Is(err, ingest.ErrEmptyLabel):
			h.sendWithKeyboard(pl.ChatID,
				"У каждого изображения должна быть подпись со словами.",
				game.CollectionKeyboard())
		default:
			log.Printf("Error ingesting album: %v", err)
			h.sendWithKeyboard(pl.ChatID,
				"Не получилось загрузить альбом. Проверьте ссылку и попробуйте ещё раз.",
				game.CollectionKeyboard())
		}
		return
	}

	replies, err := h.game.AttachCollection(ctx, pl, col.ID)
	if err != nil {
		log.Printf("Error attaching collection: %v", err)
		h.sendText(pl.ChatID, "Что-то пошло не так, попробуйте ещё раз.")
		return
	}
	h.send(replies)
}

// run — общий каркас для операций сервиса без дополнительных аргументов.
func (h *Handler) run(ctx context.Context, pl *domain.Player, op string, fn func(context.Context, *domain.Player) ([]game.Reply, error)) {
	replies, err := fn(ctx, pl)
	if err != nil {
		log.Printf("Error on %s: %v", op, err)
		h.sendText(pl.ChatID, "Что-то пошло не так, попробуйте ещё раз.")
		return
	}
	h.send(replies)
}

// send переводит ответы сервиса в сообщения Telegram: сперва вложения
// с нумерацией, затем текст с клавиатурой.
func (h *Handler) send(replies []game.Reply) {
	for _, r := range replies {
		for i, att := range r.Attachments {
			photo := tgbotapi.NewPhoto(r.ChatID, tgbotapi.FileID(att))
			photo.Caption = fmt.Sprintf("Карточка №%d", i+1)
			if _, err := h.api.Send(photo); err != nil {
				log.Printf("Error sending photo to %d: %v", r.ChatID, err)
			}
		}
		if r.Text == "" {
			continue
		}
		msg := tgbotapi.NewMessage(r.ChatID, r.Text)
		if r.Keyboard != nil {
			msg.ReplyMarkup = replyKeyboard(r.Keyboard)
		}
		if _, err := h.api.Send(msg); err != nil {
			log.Printf("Error sending message to %d: %v", r.ChatID, err)
		}
	}
}

func (h *Handler) sendText(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.api.Send(msg); err != nil {
		log.Printf("Error sending message to %d: %v", chatID, err)
	}
}

func (h *Handler) sendWithKeyboard(chatID int64, text string, kb game.Keyboard) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = replyKeyboard(kb)
	if _, err := h.api.Send(msg); err != nil {
		log.Printf("Error sending message to %d: %v", chatID, err)
	}
}
