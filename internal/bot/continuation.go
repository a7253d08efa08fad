package bot

import (
	"context"
	"sync"

	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/domain"
)

// Continuation — одноразовый обработчик следующего сообщения игрока,
// ожидающего ответа на уточняющий вопрос (код игры, ссылка на альбом).
type Continuation func(ctx context.Context, pl *domain.Player, input string)

// Continuations — реестр отложенных обработчиков. На игрока хранится не более
// одного: новая регистрация заменяет старую, Take снимает запись навсегда.
type Continuations struct {
	mu      sync.Mutex
	pending map[int64]Continuation
}

func NewContinuations() *Continuations {
	return &Continuations{pending: make(map[int64]Continuation)}
}

func (c *Continuations) Register(chatID int64, fn Continuation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[chatID] = fn
}

// Take возвращает отложенный обработчик и удаляет его, либо nil.
func (c *Continuations) Take(chatID int64) Continuation {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn := c.pending[chatID]
	delete(c.pending, chatID)
	return fn
}
