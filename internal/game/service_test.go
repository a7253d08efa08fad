package game_test

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/domain"
	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/game"
	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/repository/memory"
)

func newService(t *testing.T) (*game.Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	return game.NewService(store, game.NewProcess(42)), store
}

// seedStandard кладёт в хранилище стандартную коллекцию из заданных изображений.
func seedStandard(t *testing.T, store *memory.Store, images []domain.Image) {
	t.Helper()
	col := &domain.Collection{Name: "Стандартная", Standard: true}
	if err := store.Collections().Create(context.Background(), col, images); err != nil {
		t.Fatalf("seed collection: %v", err)
	}
}

// singleWordImages: одна карточка со словом, остальные без слов —
// круг детерминированно содержит носителя слова.
func singleWordImages(word string, total int) []domain.Image {
	images := make([]domain.Image, total)
	for i := range images {
		images[i] = domain.Image{Attachment: fmt.Sprintf("photo_%d", i+1)}
	}
	images[0].Words = []string{word}
	return images
}

// distinctWordImages: у каждой карточки своё слово.
func distinctWordImages(total int) []domain.Image {
	images := make([]domain.Image, total)
	for i := range images {
		images[i] = domain.Image{
			Attachment: fmt.Sprintf("photo_%d", i+1),
			Words:      []string{fmt.Sprintf("слово%d", i+1)},
		}
	}
	return images
}

func mustPlayer(t *testing.T, svc *game.Service, chatID int64, name string) *domain.Player {
	t.Helper()
	pl, err := svc.Player(context.Background(), chatID, name)
	if err != nil {
		t.Fatalf("create player: %v", err)
	}
	return pl
}

// mustReplies возвращает обёртку для вызовов операций сервиса:
// ошибка операции валит тест.
func mustReplies(t *testing.T) func([]game.Reply, error) []game.Reply {
	return func(replies []game.Reply, err error) []game.Reply {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return replies
	}
}

func repliesText(replies []game.Reply) string {
	var b strings.Builder
	for _, r := range replies {
		b.WriteString(r.Text)
		b.WriteString("\n")
	}
	return b.String()
}

func startSingle(t *testing.T, svc *game.Service, store *memory.Store, images []domain.Image) (*domain.Player, *domain.Session) {
	t.Helper()
	ctx := context.Background()
	must := mustReplies(t)
	seedStandard(t, store, images)

	pl := mustPlayer(t, svc, 100, "Один")
	must(svc.CreateSession(ctx, pl, true, false))
	must(svc.ChooseStandardCollection(ctx, pl))

	sess, err := store.Sessions().Get(ctx, pl.SessionID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if sess.Status != domain.StatusStarted {
		t.Fatalf("single session status: got %q, want %q", sess.Status, domain.StatusStarted)
	}
	return pl, sess
}

// Сценарий: одиночная игра, 6 карточек, слово на одной из них.
// Верный ответ даёт +3.
func TestSingleGameCorrectAnswer(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	must := mustReplies(t)
	pl, sess := startSingle(t, svc, store, singleWordImages("кот", 6))

	if sess.CurrentWord != "кот" {
		t.Fatalf("word: got %q, want %q", sess.CurrentWord, "кот")
	}
	if len(sess.CurrentOrder) != domain.CircleSize {
		t.Fatalf("circle size: got %d, want %d", len(sess.CurrentOrder), domain.CircleSize)
	}

	out := must(svc.SubmitAnswer(ctx, pl, strconv.Itoa(sess.CorrectSlot)))
	if !strings.Contains(repliesText(out), "Верно") {
		t.Errorf("expected a success reply, got: %q", repliesText(out))
	}

	fresh, err := store.Players().GetByChatID(ctx, pl.ChatID)
	if err != nil {
		t.Fatalf("reload player: %v", err)
	}
	if fresh.Score != game.CorrectGuessPoints {
		t.Errorf("score: got %d, want %d", fresh.Score, game.CorrectGuessPoints)
	}
}

// Сценарий: ответ «7» при пяти карточках отклоняется, флаг ответа не ставится,
// клавиатура с номерами выдаётся заново.
func TestOutOfRangeAnswerRejected(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	must := mustReplies(t)
	pl, _ := startSingle(t, svc, store, singleWordImages("кот", 6))

	out := must(svc.SubmitAnswer(ctx, pl, "7"))
	if len(out) != 1 {
		t.Fatalf("got %d replies, want 1", len(out))
	}
	if !strings.Contains(out[0].Text, "от 1 до 5") {
		t.Errorf("expected a re-prompt, got: %q", out[0].Text)
	}
	if out[0].Keyboard == nil {
		t.Error("re-prompt must carry the answers keyboard")
	}

	fresh, _ := store.Players().GetByChatID(ctx, pl.ChatID)
	if fresh.Answered {
		t.Error("rejected answer must not flip the answered flag")
	}
}

// Сценарий: карточек на следующий круг не хватает — сессия завершается,
// игрок отвязывается.
func TestSingleGameExhaustion(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	must := mustReplies(t)
	pl, sess := startSingle(t, svc, store, singleWordImages("кот", 6))

	must(svc.SubmitAnswer(ctx, pl, strconv.Itoa(sess.CorrectSlot)))
	out := must(svc.NextCircle(ctx, pl))
	if !strings.Contains(repliesText(out), "Карточки закончились") {
		t.Fatalf("expected exhaustion notice, got: %q", repliesText(out))
	}

	ended, _ := store.Sessions().Get(ctx, sess.ID)
	if ended.Status != domain.StatusFinished {
		t.Errorf("session status: got %q, want %q", ended.Status, domain.StatusFinished)
	}
	fresh, _ := store.Players().GetByChatID(ctx, pl.ChatID)
	if fresh.SessionID != 0 || fresh.Score != 0 {
		t.Errorf("player not cleared: session=%d score=%d", fresh.SessionID, fresh.Score)
	}
}

func TestJoinUnavailableSession(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	must := mustReplies(t)
	seedStandard(t, store, distinctWordImages(12))

	pl := mustPlayer(t, svc, 200, "Гость")

	out := must(svc.Join(ctx, pl, "нет-такого"))
	if !strings.Contains(repliesText(out), "недоступна") {
		t.Errorf("unknown code must be rejected, got: %q", repliesText(out))
	}
	if pl.SessionID != 0 {
		t.Error("player must not be attached to an unknown session")
	}
}

func startMulti(t *testing.T, svc *game.Service, store *memory.Store, withHost bool, chatIDs ...int64) []*domain.Player {
	t.Helper()
	ctx := context.Background()
	must := mustReplies(t)

	players := make([]*domain.Player, len(chatIDs))
	for i, id := range chatIDs {
		players[i] = mustPlayer(t, svc, id, fmt.Sprintf("Игрок%d", i+1))
	}

	creator := players[0]
	must(svc.CreateSession(ctx, creator, false, withHost))
	must(svc.ChooseStandardCollection(ctx, creator))

	sess, err := store.Sessions().Get(ctx, creator.SessionID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	for _, pl := range players[1:] {
		must(svc.Join(ctx, pl, sess.Code))
	}
	must(svc.StartMulti(ctx, creator))
	return players
}

// Гонка закрытия круга: два последних ответа приходят одновременно,
// подсчёт должен выполниться ровно один раз.
func TestConcurrentFinalAnswers(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	seedStandard(t, store, distinctWordImages(12))

	players := startMulti(t, svc, store, false, 300, 301)
	sess, _ := store.Sessions().Get(ctx, players[0].SessionID)

	correct := strconv.Itoa(sess.CorrectSlot)
	wrong := strconv.Itoa(sess.CorrectSlot%len(sess.CurrentOrder) + 1)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if _, err := svc.SubmitAnswer(ctx, players[0], correct); err != nil {
			t.Errorf("submit answer: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		if _, err := svc.SubmitAnswer(ctx, players[1], wrong); err != nil {
			t.Errorf("submit answer: %v", err)
		}
	}()
	wg.Wait()

	closed, _ := store.Sessions().Get(ctx, sess.ID)
	if closed.Stage != domain.StageDistribution {
		t.Fatalf("stage after closing: got %q, want %q", closed.Stage, domain.StageDistribution)
	}

	p1, _ := store.Players().GetByChatID(ctx, 300)
	p2, _ := store.Players().GetByChatID(ctx, 301)
	// Двойной подсчёт дал бы 6 очков.
	if p1.Score != game.CorrectGuessPoints {
		t.Errorf("correct player score: got %d, want %d", p1.Score, game.CorrectGuessPoints)
	}
	if p2.Score != 0 {
		t.Errorf("wrong player score: got %d, want 0", p2.Score)
	}
}

// Выход из сессии: при трёх игроках уходит один — остальные продолжают,
// при двух — сессия завершается.
func TestLeaveRules(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	must := mustReplies(t)
	seedStandard(t, store, distinctWordImages(20))

	players := startMulti(t, svc, store, false, 400, 401, 402)
	sessID := players[0].SessionID

	must(svc.Leave(ctx, players[2]))

	sess, _ := store.Sessions().Get(ctx, sessID)
	if sess.Status != domain.StatusStarted {
		t.Fatalf("session must survive a leave of one of three, got %q", sess.Status)
	}
	left, _ := store.Players().GetByChatID(ctx, 402)
	if left.SessionID != 0 {
		t.Error("leaver must be detached")
	}

	must(svc.Leave(ctx, players[1]))
	sess, _ = store.Sessions().Get(ctx, sessID)
	if sess.Status != domain.StatusFinished {
		t.Errorf("session must finish when one player remains, got %q", sess.Status)
	}
	last, _ := store.Players().GetByChatID(ctx, 400)
	if last.SessionID != 0 {
		t.Error("remaining player must be detached on session end")
	}
}

// Ушедший был последним, чьего ответа ждал круг — круг закрывается,
// оставшиеся получают подсчёт.
func TestLeaveLastPendingAnswerClosesCircle(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	must := mustReplies(t)
	seedStandard(t, store, distinctWordImages(20))

	players := startMulti(t, svc, store, false, 410, 411, 412)
	sessID := players[0].SessionID
	sess, _ := store.Sessions().Get(ctx, sessID)

	must(svc.SubmitAnswer(ctx, players[0], strconv.Itoa(sess.CorrectSlot)))
	must(svc.SubmitAnswer(ctx, players[1], strconv.Itoa(sess.CorrectSlot)))
	must(svc.Leave(ctx, players[2]))

	sess, _ = store.Sessions().Get(ctx, sessID)
	if sess.Stage != domain.StageDistribution {
		t.Fatalf("stage after leave: got %q, want %q", sess.Stage, domain.StageDistribution)
	}
	p1, _ := store.Players().GetByChatID(ctx, 410)
	if p1.Score != game.CorrectGuessPoints {
		t.Errorf("score after closing: got %d, want %d", p1.Score, game.CorrectGuessPoints)
	}
}

// Ушедший был последним, чью карточку ждал круг с ведущим — голосование
// открывается без него.
func TestLeaveLastPendingCardOpensVoting(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	must := mustReplies(t)
	seedStandard(t, store, distinctWordImages(25))

	players := startMulti(t, svc, store, true, 420, 421, 422, 423)
	sessID := players[0].SessionID

	fresh, _ := store.Players().BySession(ctx, sessID)
	var host *domain.Player
	var rest []*domain.Player
	for _, pl := range fresh {
		if pl.IsHost {
			host = pl
		} else {
			rest = append(rest, pl)
		}
	}

	must(svc.HostPickCard(ctx, host, "1"))
	must(svc.HostSetWord(ctx, host, "слово"))
	must(svc.SubmitCard(ctx, rest[0], "1"))
	must(svc.SubmitCard(ctx, rest[1], "1"))

	// Третий игрок уходит, не выложив карточку.
	out := must(svc.Leave(ctx, rest[2]))
	if !strings.Contains(repliesText(out), "голосование началось") {
		t.Fatalf("voting must open once the leaver's card is no longer awaited, got: %q", repliesText(out))
	}

	sess, _ := store.Sessions().Get(ctx, sessID)
	if sess.Stage != domain.StageGettingAnswers {
		t.Fatalf("stage after leave: got %q, want %q", sess.Stage, domain.StageGettingAnswers)
	}
	// В раскладке карточка ведущего и двух оставшихся игроков.
	if len(sess.CurrentOrder) != 3 {
		t.Fatalf("layout size: got %d, want 3", len(sess.CurrentOrder))
	}
	after, _ := store.Players().BySession(ctx, sessID)
	for _, pl := range after {
		if pl.CardSlot < 1 || pl.CardSlot > 3 {
			t.Errorf("player %d slot %d out of range", pl.ID, pl.CardSlot)
		}
	}
}

// Присоединение между кругами: раскладка уже устарела, новичок получает
// кнопку продолжения, а не карточки.
func TestJoinDuringDistribution(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	must := mustReplies(t)
	seedStandard(t, store, distinctWordImages(12))

	players := startMulti(t, svc, store, false, 430, 431)
	sess, _ := store.Sessions().Get(ctx, players[0].SessionID)

	answer := strconv.Itoa(sess.CorrectSlot)
	must(svc.SubmitAnswer(ctx, players[0], answer))
	must(svc.SubmitAnswer(ctx, players[1], answer))

	sess, _ = store.Sessions().Get(ctx, sess.ID)
	if sess.Stage != domain.StageDistribution {
		t.Fatalf("stage: got %q, want %q", sess.Stage, domain.StageDistribution)
	}

	joiner := mustPlayer(t, svc, 432, "Гость")
	out := must(svc.Join(ctx, joiner, sess.Code))

	last := out[len(out)-1]
	if len(last.Attachments) != 0 {
		t.Errorf("stale circle must not be shown, got %d attachments", len(last.Attachments))
	}
	if !strings.Contains(last.Text, game.BtnNextCircle) {
		t.Errorf("joiner must get the next-circle prompt, got: %q", last.Text)
	}
	if last.Keyboard == nil {
		t.Error("joiner prompt must carry the next-circle keyboard")
	}
}

// Полный круг с ведущим: выбор карточки, слово, карточки игроков, голосование.
// Все угадали карточку ведущего — каждому игроку +2, ведущему 0.
func TestHostModeRound(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	must := mustReplies(t)
	seedStandard(t, store, distinctWordImages(20))

	players := startMulti(t, svc, store, true, 500, 501, 502)
	sessID := players[0].SessionID

	fresh, _ := store.Players().BySession(ctx, sessID)
	var host *domain.Player
	for _, pl := range fresh {
		if pl.IsHost {
			host = pl
		}
	}
	if host == nil {
		t.Fatal("no host assigned after start")
	}

	sess, _ := store.Sessions().Get(ctx, sessID)
	if sess.Stage != domain.StageHostWritingWord {
		t.Fatalf("stage: got %q, want %q", sess.Stage, domain.StageHostWritingWord)
	}

	must(svc.HostPickCard(ctx, host, "1"))
	must(svc.HostSetWord(ctx, host, "Загадка"))

	sess, _ = store.Sessions().Get(ctx, sessID)
	if sess.CurrentWord != "загадка" {
		t.Fatalf("word must be lower-cased, got %q", sess.CurrentWord)
	}

	for _, pl := range fresh {
		if pl.ID == host.ID {
			continue
		}
		must(svc.SubmitCard(ctx, pl, "1"))
	}

	sess, _ = store.Sessions().Get(ctx, sessID)
	if sess.Stage != domain.StageGettingAnswers {
		t.Fatalf("voting must be open, stage %q", sess.Stage)
	}
	if len(sess.CurrentOrder) != 3 {
		t.Fatalf("layout size: got %d, want 3", len(sess.CurrentOrder))
	}
	if sess.CorrectSlot < 1 || sess.CorrectSlot > 3 {
		t.Fatalf("correct slot %d out of range", sess.CorrectSlot)
	}

	// Оба игрока голосуют за карточку ведущего.
	vote := strconv.Itoa(sess.CorrectSlot)
	for _, pl := range fresh {
		if pl.ID == host.ID {
			continue
		}
		must(svc.SubmitAnswer(ctx, pl, vote))
	}

	after, _ := store.Players().BySession(ctx, sessID)
	var nextHost *domain.Player
	for _, pl := range after {
		if pl.ID == host.ID {
			if pl.Score != 0 {
				t.Errorf("host score: got %d, want 0 (everybody guessed)", pl.Score)
			}
		} else {
			if pl.Score != game.HostRoundPoints {
				t.Errorf("player %d score: got %d, want %d", pl.ID, pl.Score, game.HostRoundPoints)
			}
		}
		if pl.IsHost {
			nextHost = pl
		}
		if pl.SentCard != "" || pl.Answered {
			t.Errorf("player %d round state not cleared", pl.ID)
		}
	}

	if nextHost == nil {
		t.Fatal("host must rotate to the next player")
	}
	if nextHost.ID == host.ID {
		t.Error("same host two rounds in a row")
	}

	sess, _ = store.Sessions().Get(ctx, sessID)
	if sess.Stage != domain.StageHostWritingWord {
		t.Errorf("next round stage: got %q, want %q", sess.Stage, domain.StageHostWritingWord)
	}

	// Руки добраны до исходного размера: 3 - выложенная + добор.
	for _, pl := range after {
		hand, _ := store.Players().Hand(ctx, pl.ID)
		if len(hand) != 3 {
			t.Errorf("player %d hand: got %d cards, want 3", pl.ID, len(hand))
		}
	}
}

// Достижение порога очков завершает игру с зафиксированным победителем.
func TestWinThresholdEndsSession(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	must := mustReplies(t)
	seedStandard(t, store, distinctWordImages(20))

	players := startMulti(t, svc, store, true, 600, 601, 602)
	sessID := players[0].SessionID

	fresh, _ := store.Players().BySession(ctx, sessID)
	var host *domain.Player
	for _, pl := range fresh {
		if pl.IsHost {
			host = pl
		}
	}

	must(svc.HostPickCard(ctx, host, "1"))
	must(svc.HostSetWord(ctx, host, "слово"))
	for _, pl := range fresh {
		if pl.ID != host.ID {
			must(svc.SubmitCard(ctx, pl, "1"))
		}
	}

	// Подводим одного игрока к порогу: следующий круг добавит ему +2.
	var lucky *domain.Player
	for _, pl := range fresh {
		if pl.ID != host.ID {
			lucky = pl
			break
		}
	}
	boosted, _ := store.Players().GetByChatID(ctx, lucky.ChatID)
	boosted.Score = game.WinThreshold - 1
	if err := store.Players().Update(ctx, boosted); err != nil {
		t.Fatalf("boost score: %v", err)
	}

	sess, _ := store.Sessions().Get(ctx, sessID)
	vote := strconv.Itoa(sess.CorrectSlot)
	var out []game.Reply
	for _, pl := range fresh {
		if pl.ID != host.ID {
			out = must(svc.SubmitAnswer(ctx, pl, vote))
		}
	}

	if !strings.Contains(repliesText(out), "Победил") {
		t.Errorf("expected a winner announcement, got: %q", repliesText(out))
	}
	sess, _ = store.Sessions().Get(ctx, sessID)
	if sess.Status != domain.StatusFinished {
		t.Errorf("session status: got %q, want %q", sess.Status, domain.StatusFinished)
	}
	if sess.WinnerID != lucky.ID {
		t.Errorf("winner: got %d, want %d", sess.WinnerID, lucky.ID)
	}
}

// После завершения сессии отставшие команды не оживляют её.
func TestNoActionsAfterFinish(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	must := mustReplies(t)
	seedStandard(t, store, distinctWordImages(12))

	players := startMulti(t, svc, store, false, 700, 701)
	sessID := players[0].SessionID
	sess, _ := store.Sessions().Get(ctx, sessID)

	must(svc.Leave(ctx, players[1])) // двое — сессия завершена

	out := must(svc.SubmitAnswer(ctx, players[0], strconv.Itoa(sess.CorrectSlot)))
	if !strings.Contains(repliesText(out), "не время") {
		t.Errorf("late answer must be turned away, got: %q", repliesText(out))
	}
	ended, _ := store.Sessions().Get(ctx, sessID)
	if ended.Status != domain.StatusFinished {
		t.Fatalf("session must stay finished, got %q", ended.Status)
	}
	p1, _ := store.Players().GetByChatID(ctx, 700)
	if p1.Score != 0 {
		t.Errorf("no scoring after finish, got %d", p1.Score)
	}
}
