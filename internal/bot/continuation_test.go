package bot

import (
	"context"
	"testing"

	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/domain"
)

func TestContinuationTakenOnce(t *testing.T) {
	cont := NewContinuations()

	calls := 0
	cont.Register(1, func(ctx context.Context, pl *domain.Player, input string) {
		calls++
	})

	fn := cont.Take(1)
	if fn == nil {
		t.Fatal("registered continuation must be returned")
	}
	fn(context.Background(), &domain.Player{ChatID: 1}, "что-то")
	if calls != 1 {
		t.Fatalf("calls: got %d, want 1", calls)
	}

	if cont.Take(1) != nil {
		t.Error("continuation must be consumed by the first Take")
	}
}

func TestContinuationReplaced(t *testing.T) {
	cont := NewContinuations()

	var got string
	cont.Register(7, func(ctx context.Context, pl *domain.Player, input string) {
		got = "первый"
	})
	cont.Register(7, func(ctx context.Context, pl *domain.Player, input string) {
		got = "второй"
	})

	fn := cont.Take(7)
	if fn == nil {
		t.Fatal("continuation must survive re-registration")
	}
	fn(context.Background(), &domain.Player{ChatID: 7}, "")
	if got != "второй" {
		t.Errorf("got %q, want the later registration to win", got)
	}
}

func TestContinuationPerChat(t *testing.T) {
	cont := NewContinuations()

	cont.Register(1, func(ctx context.Context, pl *domain.Player, input string) {})
	if cont.Take(2) != nil {
		t.Error("continuation for one chat must not leak into another")
	}
	if cont.Take(1) == nil {
		t.Error("continuation for its own chat must still be there")
	}
}
