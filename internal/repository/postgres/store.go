package postgres

import "github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/game"

// Store собирает репозитории в game.Store.
type Store struct {
	players     *PlayerRepository
	collections *CollectionRepository
	sessions    *SessionRepository
}

func NewStore(db *DB) *Store {
	return &Store{
		players:     NewPlayerRepository(db),
		collections: NewCollectionRepository(db),
		sessions:    NewSessionRepository(db),
	}
}

func (s *Store) Players() game.PlayerRepo         { return s.players }
func (s *Store) Collections() game.CollectionRepo { return s.collections }
func (s *Store) Sessions() game.SessionRepo       { return s.sessions }
