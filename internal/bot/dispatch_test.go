package bot

import (
	"context"
	"fmt"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/domain"
	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/game"
	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/ingest"
	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/repository/memory"
)

// fakeSender копит отправленные сообщения вместо похода в Telegram.
type fakeSender struct {
	sent []tgbotapi.Chattable
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) texts() []string {
	var out []string
	for _, c := range f.sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, msg.Text)
		}
	}
	return out
}

func (f *fakeSender) lastText(t *testing.T) string {
	t.Helper()
	texts := f.texts()
	if len(texts) == 0 {
		t.Fatal("no text messages sent")
	}
	return texts[len(texts)-1]
}

type fakeAlbums struct {
	items []ingest.AlbumItem
	err   error
}

func (f *fakeAlbums) Fetch(ctx context.Context, albumRef string) ([]ingest.AlbumItem, error) {
	return f.items, f.err
}

func newHandler(t *testing.T) (*Handler, *fakeSender, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	svc := game.NewService(store, game.NewProcess(7))
	ingestor := ingest.NewIngestor(&fakeAlbums{}, store.Collections())
	api := &fakeSender{}
	return NewHandler(api, svc, ingestor, NewContinuations()), api, store
}

func update(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			Text: text,
			Chat: &tgbotapi.Chat{ID: chatID},
			From: &tgbotapi.User{FirstName: "Тестер"},
		},
	}
}

func TestGreetingOnStart(t *testing.T) {
	h, api, _ := newHandler(t)

	h.HandleUpdate(context.Background(), update(1, "/start"))

	got := api.lastText(t)
	if !strings.Contains(got, "Привет, Тестер") {
		t.Errorf("greeting must carry the player's name, got: %q", got)
	}
}

// Команды меню распознаются без учёта регистра.
func TestMenuCaseInsensitive(t *testing.T) {
	h, api, _ := newHandler(t)

	h.HandleUpdate(context.Background(), update(1, strings.ToUpper(game.BtnRules)))

	if !strings.Contains(api.lastText(t), "Как играть") {
		t.Errorf("rules expected, got: %q", api.lastText(t))
	}
}

func TestUnknownInputFallsBack(t *testing.T) {
	h, api, _ := newHandler(t)

	h.HandleUpdate(context.Background(), update(1, "абракадабра"))

	if !strings.Contains(api.lastText(t), "Я вас не понял") {
		t.Errorf("fallback expected, got: %q", api.lastText(t))
	}
}

// «Присоединиться» регистрирует продолжение: следующее сообщение трактуется
// как код игры, а не как команда меню.
func TestJoinContinuation(t *testing.T) {
	h, api, _ := newHandler(t)
	ctx := context.Background()

	h.HandleUpdate(ctx, update(1, game.BtnJoinGame))
	if !strings.Contains(api.lastText(t), "код игры") {
		t.Fatalf("join prompt expected, got: %q", api.lastText(t))
	}

	h.HandleUpdate(ctx, update(1, "прАвила"))
	got := api.lastText(t)
	if strings.Contains(got, "Как играть") {
		t.Fatal("continuation must intercept the next message before menu routing")
	}
	if !strings.Contains(got, "недоступна") {
		t.Errorf("bad code must be rejected, got: %q", got)
	}

	// Продолжение одноразовое: теперь команды меню снова работают.
	h.HandleUpdate(ctx, update(1, game.BtnRules))
	if !strings.Contains(api.lastText(t), "Как играть") {
		t.Errorf("menu routing must resume after the continuation is consumed")
	}
}

func seedStandard(t *testing.T, store *memory.Store) {
	t.Helper()
	images := make([]domain.Image, 6)
	for i := range images {
		images[i] = domain.Image{Attachment: fmt.Sprintf("photo_%d", i+1)}
	}
	images[0].Words = []string{"слово"}
	col := &domain.Collection{Name: "Стандартная", Standard: true}
	if err := store.Collections().Create(context.Background(), col, images); err != nil {
		t.Fatalf("seed collection: %v", err)
	}
}

// Полный путь одиночной игры через диспетчер: создание, выбор коллекции,
// раздача карточек с подписями.
func TestSingleGameDispatch(t *testing.T) {
	h, api, store := newHandler(t)
	ctx := context.Background()
	seedStandard(t, store)

	h.HandleUpdate(ctx, update(5, game.BtnSingleGame))
	if !strings.Contains(api.lastText(t), "Выберите коллекцию") {
		t.Fatalf("collection prompt expected, got: %q", api.lastText(t))
	}

	h.HandleUpdate(ctx, update(5, game.BtnStandardCol))

	var photos int
	for _, c := range api.sent {
		if _, ok := c.(tgbotapi.PhotoConfig); ok {
			photos++
		}
	}
	if photos != domain.CircleSize {
		t.Errorf("photos sent: got %d, want %d", photos, domain.CircleSize)
	}
	if !strings.Contains(api.lastText(t), "Загаданное слово") {
		t.Errorf("circle prompt expected, got: %q", api.lastText(t))
	}
}

// Сообщение без отправителя игнорируется молча.
func TestNilMessageIgnored(t *testing.T) {
	h, api, _ := newHandler(t)

	h.HandleUpdate(context.Background(), tgbotapi.Update{})

	if len(api.sent) != 0 {
		t.Errorf("nothing must be sent for an empty update, got %d messages", len(api.sent))
	}
}
