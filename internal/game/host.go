package game

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/domain"
)

// beginHostGame раздаёт руки и назначает первого ведущего.
// Вызывается под блокировкой сессии.
func (s *Service) beginHostGame(ctx context.Context, sess *domain.Session, players []*domain.Player) ([]Reply, error) {
	catalog, err := s.store.Collections().Images(ctx, sess.CollectionID)
	if err != nil {
		return nil, fmt.Errorf("collection images: %w", err)
	}
	used, err := s.store.Sessions().UsedImages(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("used images: %w", err)
	}

	hands, usedIDs := s.proc.InitHostDeal(players, catalog, used)
	if hands == nil {
		var out []Reply
		for _, pl := range players {
			out = append(out, text(pl.ChatID, "В коллекции не хватает карточек на всех игроков.", nil))
		}
		ending, err := s.endSession(ctx, sess, players, 0)
		if err != nil {
			return nil, err
		}
		return append(out, ending...), nil
	}

	if err := s.store.Sessions().AddUsedImages(ctx, sess.ID, usedIDs...); err != nil {
		return nil, fmt.Errorf("mark used: %w", err)
	}
	for _, pl := range players {
		ids := make([]int64, len(hands[pl.ID]))
		for i, img := range hands[pl.ID] {
			ids[i] = img.ID
		}
		if err := s.store.Players().AddToHand(ctx, pl.ID, ids...); err != nil {
			return nil, fmt.Errorf("deal hand: %w", err)
		}
	}

	// rotateHost мог сбросить флаги всем, поэтому сохраняем каждого.
	host := s.rotateHost(players)
	for _, pl := range players {
		if err := s.store.Players().Update(ctx, pl); err != nil {
			return nil, fmt.Errorf("assign host: %w", err)
		}
	}

	sess.Stage = domain.StageHostWritingWord
	if err := s.store.Sessions().Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("advance stage: %w", err)
	}

	var out []Reply
	for _, pl := range players {
		out = append(out, handReply(pl, hands[pl.ID]))
		if pl.ID == host.ID {
			out = append(out, Reply{
				ChatID:   pl.ChatID,
				Text:     "Вы ведущий! Выберите карточку и отправьте её номер.",
				Keyboard: AnswersKeyboard(len(hands[pl.ID])),
			})
		} else {
			out = append(out, text(pl.ChatID, fmt.Sprintf("Ведущий в этом круге — %s. Он выбирает карточку.", host.Name), nil))
		}
	}
	return out, nil
}

// HostPickCard — ведущий выбирает карточку из руки.
func (s *Service) HostPickCard(ctx context.Context, pl *domain.Player, input string) ([]Reply, error) {
	if pl.SessionID == 0 {
		return s.notInGame(pl), nil
	}
	unlock := s.locks.lock(pl.SessionID)
	defer unlock()

	sess, err := s.store.Sessions().Get(ctx, pl.SessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess.Status != domain.StatusStarted || sess.Stage != domain.StageHostWritingWord {
		return replies(text(pl.ChatID, "Сейчас не время выбирать карточку.", nil)), nil
	}

	players, err := s.store.Players().BySession(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("session players: %w", err)
	}
	me := findPlayer(players, pl.ID)
	if me == nil || !me.IsHost {
		return replies(text(pl.ChatID, "Сейчас карточку выбирает ведущий.", nil)), nil
	}

	hand, err := s.store.Players().Hand(ctx, me.ID)
	if err != nil {
		return nil, fmt.Errorf("player hand: %w", err)
	}
	n, convErr := strconv.Atoi(strings.TrimSpace(input))
	if convErr != nil || n < 1 || n > len(hand) {
		msg := fmt.Sprintf("Нужен номер карточки от 1 до %d.", len(hand))
		return replies(text(me.ChatID, msg, AnswersKeyboard(len(hand)))), nil
	}

	me.SentCard = hand[n-1].Attachment
	if err := s.store.Players().Update(ctx, me); err != nil {
		return nil, fmt.Errorf("save host card: %w", err)
	}

	sess.Stage = domain.StageSendingWord
	if err := s.store.Sessions().Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("advance stage: %w", err)
	}

	out := replies(text(me.ChatID, "Теперь напишите слово, которое описывает эту карточку.", nil))
	for _, other := range players {
		if other.ID == me.ID {
			continue
		}
		out = append(out, text(other.ChatID, "Ведущий загадывает слово...", nil))
	}
	return out, nil
}

// HostSetWord — ведущий объявляет слово, игроки подбирают карточки.
func (s *Service) HostSetWord(ctx context.Context, pl *domain.Player, input string) ([]Reply, error) {
	if pl.SessionID == 0 {
		return s.notInGame(pl), nil
	}
	unlock := s.locks.lock(pl.SessionID)
	defer unlock()

	sess, err := s.store.Sessions().Get(ctx, pl.SessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess.Status != domain.StatusStarted || sess.Stage != domain.StageSendingWord {
		return replies(text(pl.ChatID, "Сейчас не время загадывать слово.", nil)), nil
	}

	players, err := s.store.Players().BySession(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("session players: %w", err)
	}
	me := findPlayer(players, pl.ID)
	if me == nil || !me.IsHost {
		return replies(text(pl.ChatID, "Слово загадывает ведущий.", nil)), nil
	}

	word := strings.ToLower(strings.TrimSpace(input))
	if word == "" {
		return replies(text(me.ChatID, "Отправьте непустое слово.", nil)), nil
	}

	sess.CurrentWord = word
	sess.Stage = domain.StageSendCards
	if err := s.store.Sessions().Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("save word: %w", err)
	}

	out := replies(text(me.ChatID, "Слово разослано. Ждём карточки игроков.", nil))
	for _, other := range players {
		if other.ID == me.ID {
			continue
		}
		hand, err := s.store.Players().Hand(ctx, other.ID)
		if err != nil {
			return nil, fmt.Errorf("player hand: %w", err)
		}
		out = append(out, handReply(other, hand))
		out = append(out, Reply{
			ChatID:   other.ChatID,
			Text:     fmt.Sprintf("Слово ведущего: %s\n\nВыберите из руки карточку, которая подходит под слово.", word),
			Keyboard: AnswersKeyboard(len(hand)),
		})
	}
	return out, nil
}

// SubmitCard — игрок выкладывает карточку под слово ведущего.
// Последняя карточка собирает раскладку и открывает голосование.
func (s *Service) SubmitCard(ctx context.Context, pl *domain.Player, input string) ([]Reply, error) {
	if pl.SessionID == 0 {
		return s.notInGame(pl), nil
	}
	unlock := s.locks.lock(pl.SessionID)
	defer unlock()

	sess, err := s.store.Sessions().Get(ctx, pl.SessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess.Status != domain.StatusStarted || sess.Stage != domain.StageSendCards {
		return replies(text(pl.ChatID, "Сейчас не время выкладывать карточку.", nil)), nil
	}

	players, err := s.store.Players().BySession(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("session players: %w", err)
	}
	me := findPlayer(players, pl.ID)
	if me == nil {
		return s.notInGame(pl), nil
	}
	if me.IsHost {
		return replies(text(me.ChatID, "Ведущий уже выложил свою карточку.", nil)), nil
	}
	if me.SentCard != "" {
		return replies(text(me.ChatID, "Карточка уже принята.", nil)), nil
	}

	hand, err := s.store.Players().Hand(ctx, me.ID)
	if err != nil {
		return nil, fmt.Errorf("player hand: %w", err)
	}
	n, convErr := strconv.Atoi(strings.TrimSpace(input))
	if convErr != nil || n < 1 || n > len(hand) {
		msg := fmt.Sprintf("Нужен номер карточки от 1 до %d.", len(hand))
		return replies(text(me.ChatID, msg, AnswersKeyboard(len(hand)))), nil
	}

	me.SentCard = hand[n-1].Attachment
	if err := s.store.Players().Update(ctx, me); err != nil {
		return nil, fmt.Errorf("save card: %w", err)
	}

	opening, err := s.maybeOpenVoting(ctx, sess)
	if err != nil {
		return nil, err
	}
	if opening != nil {
		return opening, nil
	}
	return replies(text(me.ChatID, "Карточка принята. Ждём остальных.", nil)), nil
}

// maybeOpenVoting строит раскладку и открывает голосование, когда карточки
// всех оставшихся игроков собраны. Возвращает nil, если круг ещё ждёт
// чью-то карточку. Вызывается под блокировкой сессии.
func (s *Service) maybeOpenVoting(ctx context.Context, sess *domain.Session) ([]Reply, error) {
	if sess.Status != domain.StatusStarted || sess.Stage != domain.StageSendCards {
		return nil, nil
	}

	players, err := s.store.Players().BySession(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("session players: %w", err)
	}
	for _, pl := range players {
		if !pl.IsHost && pl.SentCard == "" {
			return nil, nil
		}
	}

	circle := s.proc.BuildHostCircle(sess, players)
	if err := s.store.Sessions().Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("save circle: %w", err)
	}
	for _, pl := range players {
		if err := s.store.Players().Update(ctx, pl); err != nil {
			return nil, fmt.Errorf("save slots: %w", err)
		}
	}

	var out []Reply
	for _, pl := range players {
		if pl.IsHost {
			out = append(out, Reply{
				ChatID:      pl.ChatID,
				Text:        "Все карточки собраны, голосование началось!",
				Attachments: circle.Attachments,
			})
			continue
		}
		out = append(out, Reply{
			ChatID:      pl.ChatID,
			Text:        fmt.Sprintf("Слово: %s\n\nКакую карточку выложил ведущий? Выберите номер.", circle.Word),
			Keyboard:    AnswersKeyboard(len(circle.Attachments)),
			Attachments: circle.Attachments,
		})
	}
	return out, nil
}

// closeHostCircle подсчитывает круг с ведущим и готовит следующий.
// Вызывается из maybeCloseCircle под блокировкой сессии.
func (s *Service) closeHostCircle(ctx context.Context, sess *domain.Session, players []*domain.Player) ([]Reply, error) {
	subs := make([]HostSubmission, 0, len(players))
	for _, pl := range players {
		subs = append(subs, HostSubmission{
			PlayerID: pl.ID,
			CardSlot: pl.CardSlot,
			Vote:     pl.Answer,
			IsHost:   pl.IsHost,
		})
	}
	deltas := ScoreHostRound(subs)

	var winner *domain.Player
	var out []Reply
	for _, pl := range players {
		pl.Score += deltas[pl.ID]
		if pl.Score >= WinThreshold && winner == nil {
			winner = pl
		}
	}
	for _, pl := range players {
		msg := fmt.Sprintf("Карточка ведущего была №%d. Вы получаете +%d очков.\n\n%s",
			sess.CorrectSlot, deltas[pl.ID], resultsTable(players, pl.ID))
		out = append(out, text(pl.ChatID, msg, nil))
	}

	// Выложенные карточки уходят из рук.
	for _, pl := range players {
		if pl.SentCard == "" {
			continue
		}
		hand, err := s.store.Players().Hand(ctx, pl.ID)
		if err != nil {
			return nil, fmt.Errorf("player hand: %w", err)
		}
		for _, img := range hand {
			if img.Attachment == pl.SentCard {
				if err := s.store.Players().RemoveFromHand(ctx, pl.ID, img.ID); err != nil {
					return nil, fmt.Errorf("drop card: %w", err)
				}
				break
			}
		}
	}

	for _, pl := range players {
		pl.IsHost = false
		pl.ResetRoundState()
		if err := s.store.Players().Update(ctx, pl); err != nil {
			return nil, fmt.Errorf("reset player: %w", err)
		}
	}

	if winner != nil {
		ending, err := s.endSession(ctx, sess, players, winner.ID)
		if err != nil {
			return nil, err
		}
		return append(out, ending...), nil
	}

	next, err := s.nextHostRound(ctx, sess, players)
	if err != nil {
		return nil, err
	}
	return append(out, next...), nil
}

// nextHostRound добирает по карточке, передаёт роль ведущего дальше.
func (s *Service) nextHostRound(ctx context.Context, sess *domain.Session, players []*domain.Player) ([]Reply, error) {
	catalog, err := s.store.Collections().Images(ctx, sess.CollectionID)
	if err != nil {
		return nil, fmt.Errorf("collection images: %w", err)
	}
	used, err := s.store.Sessions().UsedImages(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("used images: %w", err)
	}

	cards, usedIDs := s.proc.DealOneCard(players, catalog, used)
	if cards == nil {
		var out []Reply
		for _, pl := range players {
			out = append(out, text(pl.ChatID, "Карточки закончились!", nil))
		}
		ending, err := s.endSession(ctx, sess, players, 0)
		if err != nil {
			return nil, err
		}
		return append(out, ending...), nil
	}

	if err := s.store.Sessions().AddUsedImages(ctx, sess.ID, usedIDs...); err != nil {
		return nil, fmt.Errorf("mark used: %w", err)
	}
	for _, pl := range players {
		if err := s.store.Players().AddToHand(ctx, pl.ID, cards[pl.ID].ID); err != nil {
			return nil, fmt.Errorf("deal card: %w", err)
		}
	}

	host := s.rotateHost(players)
	for _, pl := range players {
		if err := s.store.Players().Update(ctx, pl); err != nil {
			return nil, fmt.Errorf("assign host: %w", err)
		}
	}

	sess.Stage = domain.StageHostWritingWord
	sess.CurrentWord = ""
	sess.CorrectSlot = 0
	sess.CurrentOrder = nil
	if err := s.store.Sessions().Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("advance stage: %w", err)
	}

	var out []Reply
	for _, pl := range players {
		hand, err := s.store.Players().Hand(ctx, pl.ID)
		if err != nil {
			return nil, fmt.Errorf("player hand: %w", err)
		}
		out = append(out, handReply(pl, hand))
		if pl.ID == host.ID {
			out = append(out, Reply{
				ChatID:   pl.ChatID,
				Text:     "Теперь вы ведущий! Выберите карточку и отправьте её номер.",
				Keyboard: AnswersKeyboard(len(hand)),
			})
		} else {
			out = append(out, text(pl.ChatID, fmt.Sprintf("Ведущий в этом круге — %s.", host.Name), nil))
		}
	}
	return out, nil
}

// rotateHost выбирает следующего ведущего по кругу: первый, кто ещё не вёл;
// когда отыграли все — флаги сбрасываются и круг начинается заново.
func (s *Service) rotateHost(players []*domain.Player) *domain.Player {
	for _, pl := range players {
		if !pl.WasHost {
			pl.IsHost = true
			pl.WasHost = true
			return pl
		}
	}
	for _, pl := range players {
		pl.WasHost = false
	}
	host := players[0]
	host.IsHost = true
	host.WasHost = true
	return host
}

func handReply(pl *domain.Player, hand []domain.Image) Reply {
	attachments := make([]string, len(hand))
	for i, img := range hand {
		attachments[i] = img.Attachment
	}
	return Reply{
		ChatID:      pl.ChatID,
		Text:        "Ваши карточки (нумерация по порядку):",
		Attachments: attachments,
	}
}
