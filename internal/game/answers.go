package game

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/domain"
)

// beginCircle генерирует и рассылает следующий круг. Вызывается под
// блокировкой сессии. Если карточек не хватает — завершает сессию.
func (s *Service) beginCircle(ctx context.Context, sess *domain.Session) ([]Reply, error) {
	ctx, span := s.tracer.Start(ctx, "game.start_circle", spanAttrs(sess))
	defer span.End()

	players, err := s.store.Players().BySession(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("session players: %w", err)
	}
	catalog, err := s.store.Collections().Images(ctx, sess.CollectionID)
	if err != nil {
		return nil, fmt.Errorf("collection images: %w", err)
	}
	used, err := s.store.Sessions().UsedImages(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("used images: %w", err)
	}

	circle, usedIDs := s.proc.StartCircle(sess, catalog, used)
	if circle == nil {
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
	if err := s.store.Sessions().Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("save circle: %w", err)
	}
	for _, pl := range players {
		pl.ResetRoundState()
		if err := s.store.Players().Update(ctx, pl); err != nil {
			return nil, fmt.Errorf("reset player: %w", err)
		}
	}

	return circleReplies(circle, players), nil
}

// SubmitAnswer обрабатывает числовой ответ игрока в фазе сбора ответов.
func (s *Service) SubmitAnswer(ctx context.Context, pl *domain.Player, input string) ([]Reply, error) {
	if pl.SessionID == 0 {
		return s.notInGame(pl), nil
	}
	unlock := s.locks.lock(pl.SessionID)
	defer unlock()

	sess, err := s.store.Sessions().Get(ctx, pl.SessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess.Status != domain.StatusStarted || sess.Stage != domain.StageGettingAnswers {
		return replies(text(pl.ChatID, "Сейчас не время отвечать.", SessionKeyboard())), nil
	}

	n, convErr := strconv.Atoi(strings.TrimSpace(input))
	if convErr != nil || n < 1 || n > len(sess.CurrentOrder) {
		msg := fmt.Sprintf("Нужен номер карточки от 1 до %d.", len(sess.CurrentOrder))
		return replies(text(pl.ChatID, msg, AnswersKeyboard(len(sess.CurrentOrder)))), nil
	}

	players, err := s.store.Players().BySession(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("session players: %w", err)
	}
	me := findPlayer(players, pl.ID)
	if me == nil {
		return s.notInGame(pl), nil
	}
	if sess.WithHost && me.IsHost {
		return replies(text(me.ChatID, "Ведущий не голосует — ждите остальных.", nil)), nil
	}

	flipped, err := s.store.Players().MarkAnswered(ctx, me.ID, n)
	if err != nil {
		return nil, fmt.Errorf("mark answered: %w", err)
	}
	if !flipped {
		return replies(text(me.ChatID, "Вы уже ответили в этом круге.", nil)), nil
	}
	me.Answered = true
	me.Answer = n

	if sess.Single {
		return s.closeSingleCircle(ctx, sess, me)
	}

	out := replies(text(me.ChatID, "Ответ принят. Ждём остальных.", nil))
	closing, err := s.maybeCloseCircle(ctx, sess)
	if err != nil {
		return nil, err
	}
	return append(out, closing...), nil
}

// NextCircle переводит сессию из раздачи к следующему кругу.
func (s *Service) NextCircle(ctx context.Context, pl *domain.Player) ([]Reply, error) {
	if pl.SessionID == 0 {
		return s.notInGame(pl), nil
	}
	unlock := s.locks.lock(pl.SessionID)
	defer unlock()

	sess, err := s.store.Sessions().Get(ctx, pl.SessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess.Status != domain.StatusStarted || sess.Stage != domain.StageDistribution {
		return replies(text(pl.ChatID, "Круг уже идёт.", nil)), nil
	}

	return s.beginCircle(ctx, sess)
}

// closeSingleCircle — мгновенный подсчёт одиночного круга.
func (s *Service) closeSingleCircle(ctx context.Context, sess *domain.Session, me *domain.Player) ([]Reply, error) {
	delta := ScoreGuess(me.Answer, sess.CorrectSlot)
	me.Score += delta
	if err := s.store.Players().Update(ctx, me); err != nil {
		return nil, fmt.Errorf("apply score: %w", err)
	}

	sess.Stage = domain.StageDistribution
	if err := s.store.Sessions().Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("advance stage: %w", err)
	}

	msg := fmt.Sprintf("Увы, это была карточка №%d.", sess.CorrectSlot)
	if delta > 0 {
		msg = fmt.Sprintf("Верно! +%d очков.", delta)
	}
	msg += fmt.Sprintf("\nВаш счёт: %d", me.Score)
	return replies(text(me.ChatID, msg, NextCircleKeyboard())), nil
}

// maybeCloseCircle закрывает круг, если все ответы собраны. Повторный вход
// безопасен: под блокировкой сессии фаза перечитывается, так что подсчёт
// выполняется ровно один раз.
func (s *Service) maybeCloseCircle(ctx context.Context, sess *domain.Session) ([]Reply, error) {
	if sess.Status != domain.StatusStarted || sess.Stage != domain.StageGettingAnswers {
		return nil, nil
	}

	players, err := s.store.Players().BySession(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("session players: %w", err)
	}
	for _, pl := range players {
		if sess.WithHost && pl.IsHost {
			continue
		}
		if !pl.Answered {
			return nil, nil
		}
	}

	ctx, span := s.tracer.Start(ctx, "game.close_circle", spanAttrs(sess))
	defer span.End()

	if sess.WithHost {
		return s.closeHostCircle(ctx, sess, players)
	}
	return s.closePlainCircle(ctx, sess, players)
}

// closePlainCircle начисляет очки за обычный многопользовательский круг.
func (s *Service) closePlainCircle(ctx context.Context, sess *domain.Session, players []*domain.Player) ([]Reply, error) {
	sess.Stage = domain.StageDistribution
	if err := s.store.Sessions().Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("advance stage: %w", err)
	}

	var out []Reply
	var winner *domain.Player
	for _, pl := range players {
		delta := ScoreGuess(pl.Answer, sess.CorrectSlot)
		pl.Score += delta
		answered := pl.Answered
		pl.ResetRoundState()
		if err := s.store.Players().Update(ctx, pl); err != nil {
			return nil, fmt.Errorf("apply score: %w", err)
		}
		if pl.Score >= WinThreshold && winner == nil {
			winner = pl
		}

		msg := fmt.Sprintf("Это была карточка №%d.", sess.CorrectSlot)
		switch {
		case delta > 0:
			msg = fmt.Sprintf("Верно! Это была карточка №%d. +%d очков.", sess.CorrectSlot, delta)
		case !answered:
			msg = fmt.Sprintf("Вы не успели ответить. Это была карточка №%d.", sess.CorrectSlot)
		}
		out = append(out, text(pl.ChatID, msg+"\n\n"+resultsTable(players, pl.ID), NextCircleKeyboard()))
	}

	if winner != nil {
		ending, err := s.endSession(ctx, sess, players, winner.ID)
		if err != nil {
			return nil, err
		}
		return append(out, ending...), nil
	}
	return out, nil
}

func findPlayer(players []*domain.Player, id int64) *domain.Player {
	for _, pl := range players {
		if pl.ID == id {
			return pl
		}
	}
	return nil
}
