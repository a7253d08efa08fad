package game

import (
	"context"
	"errors"

	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/domain"
)

var ErrNotFound = errors.New("not found")

// PlayerRepo — хранилище игроков и их рук.
type PlayerRepo interface {
	GetByChatID(ctx context.Context, chatID int64) (*domain.Player, error)

	// Create создаёт игрока либо возвращает существующего с этим chat_id:
	// одновременные первые сообщения не плодят дубликаты.
	Create(ctx context.Context, chatID int64, name string) (*domain.Player, error)
	Update(ctx context.Context, p *domain.Player) error
	BySession(ctx context.Context, sessionID int64) ([]*domain.Player, error)

	// MarkAnswered выставляет ответ, только если игрок ещё не отвечал.
	// Возвращает false, если ответ уже был зафиксирован.
	MarkAnswered(ctx context.Context, playerID int64, answer int) (bool, error)

	Hand(ctx context.Context, playerID int64) ([]domain.Image, error)
	AddToHand(ctx context.Context, playerID int64, imageIDs ...int64) error
	RemoveFromHand(ctx context.Context, playerID, imageID int64) error
	ClearHand(ctx context.Context, playerID int64) error
}

// CollectionRepo — хранилище коллекций изображений.
type CollectionRepo interface {
	// Create сохраняет коллекцию вместе с изображениями одной операцией:
	// при ошибке наполовину заполненная коллекция не должна быть видна.
	Create(ctx context.Context, c *domain.Collection, images []domain.Image) error
	Get(ctx context.Context, id int64) (*domain.Collection, error)
	Standard(ctx context.Context) (*domain.Collection, error)
	DeleteStandard(ctx context.Context) error

	// Images возвращает изображения в каталожном порядке.
	Images(ctx context.Context, collectionID int64) ([]domain.Image, error)
	Stats(ctx context.Context) (collections, images int, err error)
}

// SessionRepo — хранилище игровых сессий.
type SessionRepo interface {
	Create(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, id int64) (*domain.Session, error)
	GetByCode(ctx context.Context, code string) (*domain.Session, error)
	Update(ctx context.Context, s *domain.Session) error

	// AddUsedImages добавляет изображения в множество использованных (union, идемпотентно).
	AddUsedImages(ctx context.Context, sessionID int64, imageIDs ...int64) error
	UsedImages(ctx context.Context, sessionID int64) (map[int64]struct{}, error)

	Active(ctx context.Context) ([]*domain.Session, error)
}

// Store объединяет репозитории, которыми владеет игровой сервис.
type Store interface {
	Players() PlayerRepo
	Collections() CollectionRepo
	Sessions() SessionRepo
}
