// Package memory — хранилище в памяти процесса. Реализует те же контракты,
// что и postgres-репозитории; используется в тестах и для локального запуска
// без базы.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/domain"
	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/game"
)

type Store struct {
	mu sync.RWMutex

	players     map[int64]*domain.Player
	collections map[int64]*domain.Collection
	images      map[int64]*domain.Image
	sessions    map[int64]*domain.Session

	hands map[int64][]int64            // player id -> image ids
	used  map[int64]map[int64]struct{} // session id -> image ids

	nextID int64
}

func NewStore() *Store {
	return &Store{
		players:     make(map[int64]*domain.Player),
		collections: make(map[int64]*domain.Collection),
		images:      make(map[int64]*domain.Image),
		sessions:    make(map[int64]*domain.Session),
		hands:       make(map[int64][]int64),
		used:        make(map[int64]map[int64]struct{}),
	}
}

func (s *Store) Players() game.PlayerRepo         { return (*playerRepo)(s) }
func (s *Store) Collections() game.CollectionRepo { return (*collectionRepo)(s) }
func (s *Store) Sessions() game.SessionRepo       { return (*sessionRepo)(s) }

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// === Игроки ===

type playerRepo Store

func (r *playerRepo) GetByChatID(ctx context.Context, chatID int64) (*domain.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.players {
		if p.ChatID == chatID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, game.ErrNotFound
}

func (r *playerRepo) Create(ctx context.Context, chatID int64, name string) (*domain.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Зеркалит upsert по chat_id в postgres: повторное создание возвращает
	// существующего игрока, а не дубликат.
	for _, p := range r.players {
		if p.ChatID == chatID {
			p.Name = name
			cp := *p
			return &cp, nil
		}
	}
	p := &domain.Player{
		ID:        (*Store)(r).id(),
		ChatID:    chatID,
		Name:      name,
		CreatedAt: time.Now(),
	}
	r.players[p.ID] = p
	cp := *p
	return &cp, nil
}

func (r *playerRepo) Update(ctx context.Context, p *domain.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.players[p.ID]; !ok {
		return game.ErrNotFound
	}
	cp := *p
	r.players[p.ID] = &cp
	return nil
}

func (r *playerRepo) BySession(ctx context.Context, sessionID int64) ([]*domain.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Player
	for _, p := range r.players {
		if p.SessionID == sessionID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *playerRepo) MarkAnswered(ctx context.Context, playerID int64, answer int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[playerID]
	if !ok {
		return false, game.ErrNotFound
	}
	if p.Answered {
		return false, nil
	}
	p.Answered = true
	p.Answer = answer
	return true, nil
}

func (r *playerRepo) Hand(ctx context.Context, playerID int64) ([]domain.Image, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Image
	for _, id := range r.hands[playerID] {
		if img, ok := r.images[id]; ok {
			out = append(out, *img)
		}
	}
	return out, nil
}

func (r *playerRepo) AddToHand(ctx context.Context, playerID int64, imageIDs ...int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hands[playerID] = append(r.hands[playerID], imageIDs...)
	return nil
}

func (r *playerRepo) RemoveFromHand(ctx context.Context, playerID, imageID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	hand := r.hands[playerID]
	for i, id := range hand {
		if id == imageID {
			r.hands[playerID] = append(hand[:i:i], hand[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *playerRepo) ClearHand(ctx context.Context, playerID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.hands, playerID)
	return nil
}

// === Коллекции ===

type collectionRepo Store

func (r *collectionRepo) Create(ctx context.Context, c *domain.Collection, images []domain.Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = (*Store)(r).id()
	c.CreatedAt = time.Now()
	cp := *c
	r.collections[c.ID] = &cp
	for i := range images {
		img := images[i]
		img.ID = (*Store)(r).id()
		img.CollectionID = c.ID
		r.images[img.ID] = &img
	}
	return nil
}

func (r *collectionRepo) Get(ctx context.Context, id int64) (*domain.Collection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.collections[id]
	if !ok {
		return nil, game.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *collectionRepo) Standard(ctx context.Context) (*domain.Collection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.collections {
		if c.Standard {
			cp := *c
			return &cp, nil
		}
	}
	return nil, game.ErrNotFound
}

func (r *collectionRepo) DeleteStandard(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.collections {
		if !c.Standard {
			continue
		}
		delete(r.collections, id)
		for imgID, img := range r.images {
			if img.CollectionID == id {
				delete(r.images, imgID)
			}
		}
	}
	return nil
}

func (r *collectionRepo) Images(ctx context.Context, collectionID int64) ([]domain.Image, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Image
	for _, img := range r.images {
		if img.CollectionID == collectionID {
			out = append(out, *img)
		}
	}
	// Каталожный порядок — порядок добавления.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *collectionRepo) Stats(ctx context.Context) (int, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.collections), len(r.images), nil
}

// === Сессии ===

type sessionRepo Store

func (r *sessionRepo) Create(ctx context.Context, sess *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess.ID = (*Store)(r).id()
	sess.CreatedAt = time.Now()
	cp := cloneSession(sess)
	r.sessions[sess.ID] = cp
	r.used[sess.ID] = make(map[int64]struct{})
	return nil
}

func (r *sessionRepo) Get(ctx context.Context, id int64) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[id]
	if !ok {
		return nil, game.ErrNotFound
	}
	return cloneSession(sess), nil
}

func (r *sessionRepo) GetByCode(ctx context.Context, code string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, sess := range r.sessions {
		if sess.Code == code {
			return cloneSession(sess), nil
		}
	}
	return nil, game.ErrNotFound
}

func (r *sessionRepo) Update(ctx context.Context, sess *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sess.ID]; !ok {
		return game.ErrNotFound
	}
	r.sessions[sess.ID] = cloneSession(sess)
	return nil
}

func (r *sessionRepo) AddUsedImages(ctx context.Context, sessionID int64, imageIDs ...int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.used[sessionID]
	if !ok {
		return game.ErrNotFound
	}
	for _, id := range imageIDs {
		set[id] = struct{}{}
	}
	return nil
}

func (r *sessionRepo) UsedImages(ctx context.Context, sessionID int64) (map[int64]struct{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[int64]struct{}, len(r.used[sessionID]))
	for id := range r.used[sessionID] {
		out[id] = struct{}{}
	}
	return out, nil
}

func (r *sessionRepo) Active(ctx context.Context) ([]*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Session
	for _, sess := range r.sessions {
		if sess.Status != domain.StatusFinished {
			out = append(out, cloneSession(sess))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func cloneSession(sess *domain.Session) *domain.Session {
	cp := *sess
	cp.CurrentOrder = append([]string(nil), sess.CurrentOrder...)
	return &cp
}
