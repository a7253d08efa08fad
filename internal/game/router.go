package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/domain"
)

// HandleSessionInput направляет свободный ввод игрока по фазе круга.
// Сами операции перечитывают сессию под блокировкой, так что смена фазы
// между чтением и вызовом даст лишь вежливый отказ, а не порчу состояния.
func (s *Service) HandleSessionInput(ctx context.Context, pl *domain.Player, input string) ([]Reply, error) {
	if pl.SessionID == 0 {
		return s.notInGame(pl), nil
	}

	sess, err := s.store.Sessions().Get(ctx, pl.SessionID)
	if errors.Is(err, ErrNotFound) {
		return s.notInGame(pl), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	switch sess.Status {
	case domain.StatusCreating:
		return replies(text(pl.ChatID, "Сначала выберите коллекцию.", CollectionKeyboard())), nil
	case domain.StatusWaiting:
		return replies(text(pl.ChatID, "Игра ещё не началась. Ждём игроков.", SessionKeyboard())), nil
	case domain.StatusFinished:
		return s.notInGame(pl), nil
	}

	switch sess.Stage {
	case domain.StageGettingAnswers:
		return s.SubmitAnswer(ctx, pl, input)
	case domain.StageHostWritingWord:
		return s.HostPickCard(ctx, pl, input)
	case domain.StageSendingWord:
		return s.HostSetWord(ctx, pl, input)
	case domain.StageSendCards:
		return s.SubmitCard(ctx, pl, input)
	case domain.StageDistribution:
		return replies(text(pl.ChatID, fmt.Sprintf("Нажмите «%s», чтобы продолжить.", BtnNextCircle), NextCircleKeyboard())), nil
	}
	return replies(text(pl.ChatID, "Я вас не понял.", SessionKeyboard())), nil
}
