package game

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/domain"
)

// Reply — исходящее сообщение для транспорта: текст, абстрактная клавиатура
// и ссылки на вложения. Сервис никогда не обращается к транспорту сам.
type Reply struct {
	ChatID      int64
	Text        string
	Keyboard    Keyboard
	Attachments []string
}

// Service — машина состояний игровых сессий. Все операции над одной сессией
// сериализуются её мьютексом; сессии друг друга не блокируют.
type Service struct {
	store  Store
	proc   *Process
	locks  *keyLocks
	tracer trace.Tracer
}

func NewService(store Store, proc *Process) *Service {
	return &Service{
		store:  store,
		proc:   proc,
		locks:  newKeyLocks(),
		tracer: otel.Tracer("game"),
	}
}

// Player лениво создаёт игрока при первом событии от него.
func (s *Service) Player(ctx context.Context, chatID int64, name string) (*domain.Player, error) {
	pl, err := s.store.Players().GetByChatID(ctx, chatID)
	if err == nil {
		return pl, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get player: %w", err)
	}
	return s.store.Players().Create(ctx, chatID, name)
}

// CreateSession создаёт сессию в статусе creating и спрашивает коллекцию.
func (s *Service) CreateSession(ctx context.Context, pl *domain.Player, single, withHost bool) ([]Reply, error) {
	if pl.SessionID != 0 {
		return replies(text(pl.ChatID, "Вы уже в игре. Сначала выйдите из неё.", SessionKeyboard())), nil
	}

	sess := &domain.Session{
		Code:      newCode(),
		Status:    domain.StatusCreating,
		Single:    single,
		WithHost:  withHost,
		CreatorID: pl.ID,
	}
	if err := s.store.Sessions().Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	pl.SessionID = sess.ID
	pl.ResetRoundState()
	if err := s.store.Players().Update(ctx, pl); err != nil {
		return nil, fmt.Errorf("attach creator: %w", err)
	}

	return replies(text(pl.ChatID, "Выберите коллекцию карточек:", CollectionKeyboard())), nil
}

// ChooseStandardCollection привязывает встроенную коллекцию к создаваемой сессии.
func (s *Service) ChooseStandardCollection(ctx context.Context, pl *domain.Player) ([]Reply, error) {
	col, err := s.store.Collections().Standard(ctx)
	if errors.Is(err, ErrNotFound) {
		return replies(text(pl.ChatID, "Стандартная коллекция ещё не загружена.", MenuKeyboard())), nil
	}
	if err != nil {
		return nil, fmt.Errorf("standard collection: %w", err)
	}
	return s.AttachCollection(ctx, pl, col.ID)
}

// AttachCollection завершает создание сессии: одиночная стартует сразу,
// многопользовательская переходит в ожидание игроков.
func (s *Service) AttachCollection(ctx context.Context, pl *domain.Player, collectionID int64) ([]Reply, error) {
	if pl.SessionID == 0 {
		return s.notInGame(pl), nil
	}
	unlock := s.locks.lock(pl.SessionID)
	defer unlock()

	sess, err := s.store.Sessions().Get(ctx, pl.SessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess.Status != domain.StatusCreating {
		return replies(text(pl.ChatID, "Коллекция уже выбрана.", SessionKeyboard())), nil
	}

	images, err := s.store.Collections().Images(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("collection images: %w", err)
	}
	if len(images) < domain.MinCollectionImages {
		return replies(text(pl.ChatID, "В коллекции слишком мало карточек для игры.", CollectionKeyboard())), nil
	}

	sess.CollectionID = collectionID

	if sess.Single {
		sess.Status = domain.StatusStarted
		if err := s.store.Sessions().Update(ctx, sess); err != nil {
			return nil, fmt.Errorf("start single session: %w", err)
		}
		return s.beginCircle(ctx, sess)
	}

	sess.Status = domain.StatusWaiting
	if err := s.store.Sessions().Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("wait session: %w", err)
	}

	msg := fmt.Sprintf("Игра создана! Код для присоединения: %s\n\n"+
		"Когда все соберутся, нажмите «%s».", sess.Code, BtnStartGame)
	return replies(text(pl.ChatID, msg, WaitingKeyboard())), nil
}

// Join присоединяет игрока к сессии по коду.
func (s *Service) Join(ctx context.Context, pl *domain.Player, code string) ([]Reply, error) {
	if pl.SessionID != 0 {
		return replies(text(pl.ChatID, "Сначала выйдите из текущей игры.", SessionKeyboard())), nil
	}

	sess, err := s.store.Sessions().GetByCode(ctx, strings.TrimSpace(code))
	if errors.Is(err, ErrNotFound) {
		return replies(text(pl.ChatID, "Игра с таким кодом больше недоступна.", MenuKeyboard())), nil
	}
	if err != nil {
		return nil, fmt.Errorf("session by code: %w", err)
	}

	unlock := s.locks.lock(sess.ID)
	defer unlock()

	// Перечитываем под блокировкой: статус мог измениться.
	sess, err = s.store.Sessions().Get(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	switch {
	case sess.Status == domain.StatusFinished || sess.Status == domain.StatusCreating || sess.Single:
		return replies(text(pl.ChatID, "Игра с таким кодом больше недоступна.", MenuKeyboard())), nil
	case sess.WithHost && sess.Status != domain.StatusWaiting:
		// В игре с ведущим руки уже розданы, посреди партии не войти.
		return replies(text(pl.ChatID, "Игра уже началась, присоединиться нельзя.", MenuKeyboard())), nil
	}

	others, err := s.store.Players().BySession(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("session players: %w", err)
	}

	pl.SessionID = sess.ID
	pl.Score = 0
	pl.ResetRoundState()
	if err := s.store.Players().Update(ctx, pl); err != nil {
		return nil, fmt.Errorf("join player: %w", err)
	}

	var out []Reply
	for _, other := range others {
		out = append(out, text(other.ChatID, fmt.Sprintf("%s присоединился к игре.", pl.Name), nil))
	}

	if sess.Status == domain.StatusWaiting {
		out = append(out, text(pl.ChatID, "Вы в игре! Ждём, пока создатель её запустит.", SessionKeyboard()))
		return out, nil
	}

	// Игра уже идёт — показываем текущий круг. Между кругами раскладка
	// устарела, и отвечать по ней нельзя: вместо неё кнопка продолжения.
	if sess.Stage == domain.StageGettingAnswers {
		circle := s.proc.CurrentCircle(sess)
		out = append(out, circleReplies(circle, []*domain.Player{pl})...)
		return out, nil
	}
	msg := fmt.Sprintf("Вы в игре! Круг завершён — нажмите «%s», когда будете готовы.", BtnNextCircle)
	out = append(out, text(pl.ChatID, msg, NextCircleKeyboard()))
	return out, nil
}

// StartMulti запускает ожидающую сессию по команде создателя.
func (s *Service) StartMulti(ctx context.Context, pl *domain.Player) ([]Reply, error) {
	if pl.SessionID == 0 {
		return s.notInGame(pl), nil
	}
	unlock := s.locks.lock(pl.SessionID)
	defer unlock()

	sess, err := s.store.Sessions().Get(ctx, pl.SessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess.Status != domain.StatusWaiting {
		return replies(text(pl.ChatID, "Игру сейчас нельзя запустить.", SessionKeyboard())), nil
	}
	if sess.CreatorID != pl.ID {
		return replies(text(pl.ChatID, "Запустить игру может только её создатель.", SessionKeyboard())), nil
	}

	players, err := s.store.Players().BySession(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("session players: %w", err)
	}
	if len(players) < 2 {
		return replies(text(pl.ChatID, "Нужен хотя бы ещё один игрок.", WaitingKeyboard())), nil
	}

	sess.Status = domain.StatusStarted
	if err := s.store.Sessions().Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}

	if sess.WithHost {
		return s.beginHostGame(ctx, sess, players)
	}
	return s.beginCircle(ctx, sess)
}

// Leave выводит игрока из сессии. Если остаётся меньше двух участников,
// сессия завершается.
func (s *Service) Leave(ctx context.Context, pl *domain.Player) ([]Reply, error) {
	if pl.SessionID == 0 {
		return s.notInGame(pl), nil
	}
	unlock := s.locks.lock(pl.SessionID)
	defer unlock()

	sess, err := s.store.Sessions().Get(ctx, pl.SessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	players, err := s.store.Players().BySession(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("session players: %w", err)
	}

	if len(players) <= 2 || sess.Status == domain.StatusFinished {
		out, err := s.endSession(ctx, sess, players, 0)
		if err != nil {
			return nil, err
		}
		return out, nil
	}

	// Ведущий уносит с собой загаданное слово — круг не доиграть.
	if pl.IsHost {
		out, err := s.endSession(ctx, sess, players, 0)
		if err != nil {
			return nil, err
		}
		return out, nil
	}

	pl.ClearSession()
	if err := s.store.Players().Update(ctx, pl); err != nil {
		return nil, fmt.Errorf("leave player: %w", err)
	}
	if err := s.store.Players().ClearHand(ctx, pl.ID); err != nil {
		return nil, fmt.Errorf("clear hand: %w", err)
	}

	out := replies(text(pl.ChatID, "Вы вышли из игры.", MenuKeyboard()))
	for _, other := range players {
		if other.ID == pl.ID {
			continue
		}
		out = append(out, text(other.ChatID, fmt.Sprintf("%s вышел из игры.", pl.Name), nil))
	}

	// Ушедший мог быть последним, кого ждал круг: без него голосование
	// может закрыться, а сбор карточек — завершиться. Обе проверки сами
	// смотрят на фазу, сработает максимум одна.
	closing, err := s.maybeCloseCircle(ctx, sess)
	if err != nil {
		return nil, err
	}
	out = append(out, closing...)

	opening, err := s.maybeOpenVoting(ctx, sess)
	if err != nil {
		return nil, err
	}
	return append(out, opening...), nil
}

// Results отдаёт таблицу счёта запросившему игроку.
func (s *Service) Results(ctx context.Context, pl *domain.Player) ([]Reply, error) {
	if pl.SessionID == 0 {
		return s.notInGame(pl), nil
	}
	players, err := s.store.Players().BySession(ctx, pl.SessionID)
	if err != nil {
		return nil, fmt.Errorf("session players: %w", err)
	}
	return replies(text(pl.ChatID, resultsTable(players, pl.ID), nil)), nil
}

// endSession переводит сессию в finished и отвязывает всех игроков.
// Вызывается под блокировкой сессии.
func (s *Service) endSession(ctx context.Context, sess *domain.Session, players []*domain.Player, winnerID int64) ([]Reply, error) {
	sess.Status = domain.StatusFinished
	sess.WinnerID = winnerID
	if err := s.store.Sessions().Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("finish session: %w", err)
	}

	table := resultsTable(players, 0)
	var winner *domain.Player
	for _, pl := range players {
		if pl.ID == winnerID {
			winner = pl
		}
	}

	var out []Reply
	for _, pl := range players {
		msg := "Игра окончена!\n\n" + table
		if winner != nil {
			msg = fmt.Sprintf("Игра окончена! Победил %s 🎉\n\n%s", winner.Name, table)
		}
		out = append(out, text(pl.ChatID, msg, MenuKeyboard()))

		pl.ClearSession()
		if err := s.store.Players().Update(ctx, pl); err != nil {
			return nil, fmt.Errorf("clear player: %w", err)
		}
		if err := s.store.Players().ClearHand(ctx, pl.ID); err != nil {
			return nil, fmt.Errorf("clear hand: %w", err)
		}
	}
	return out, nil
}

func (s *Service) notInGame(pl *domain.Player) []Reply {
	return replies(text(pl.ChatID, "Вы сейчас не в игре.", MenuKeyboard()))
}

// resultsTable строит таблицу счёта, отмечая стрелкой запросившего игрока.
func resultsTable(players []*domain.Player, forPlayerID int64) string {
	sorted := make([]*domain.Player, len(players))
	copy(sorted, players)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	var b strings.Builder
	b.WriteString("Общий счёт\n===============\n")
	for i, pl := range sorted {
		fmt.Fprintf(&b, "%d. %s. Счёт: %d", i+1, pl.Name, pl.Score)
		if pl.ID == forPlayerID {
			b.WriteString(" ⬅️")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func newCode() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}

func text(chatID int64, msg string, kb Keyboard) Reply {
	return Reply{ChatID: chatID, Text: msg, Keyboard: kb}
}

func replies(rs ...Reply) []Reply {
	return rs
}

// circleReplies — раскладка круга для списка игроков: карточки и слово.
func circleReplies(circle *Circle, players []*domain.Player) []Reply {
	var out []Reply
	for _, pl := range players {
		out = append(out, Reply{
			ChatID:      pl.ChatID,
			Text:        fmt.Sprintf("Загаданное слово: %s\n\nКакая карточка загадана? Выберите номер.", circle.Word),
			Keyboard:    AnswersKeyboard(len(circle.Attachments)),
			Attachments: circle.Attachments,
		})
	}
	return out
}

func spanAttrs(sess *domain.Session) trace.SpanStartOption {
	return trace.WithAttributes(
		attribute.Int64("session.id", sess.ID),
		attribute.String("session.status", string(sess.Status)),
		attribute.String("session.stage", string(sess.Stage)),
	)
}
