package domain

import "time"

// Status — жизненный цикл игровой сессии.
type Status string

const (
	StatusCreating Status = "creating"
	StatusWaiting  Status = "waiting"
	StatusStarted  Status = "started"
	StatusFinished Status = "finished"
)

// Stage — фаза текущего круга внутри запущенной сессии.
type Stage string

const (
	StageGettingAnswers  Stage = "getting_answers"
	StageDistribution    Stage = "distribution_of_cards"
	StageHostWritingWord Stage = "host_writing_word"
	StageSendingWord     Stage = "sending_word"
	StageSendCards       Stage = "send_cards"
)

// CircleSize — сколько карточек показывается в обычном круге.
const CircleSize = 5

// MinCollectionImages — минимум изображений для приёма пользовательской коллекции.
const MinCollectionImages = 6

type Player struct {
	ID        int64
	ChatID    int64
	Name      string
	SessionID int64 // 0 — нет активной сессии

	Score    int
	Answered bool
	Answer   int // 1-based номер выбранной карточки, 0 — нет ответа

	// Поля режима с ведущим
	IsHost   bool
	WasHost  bool
	SentCard string // attachment выложенной карточки, "" — не выложена
	CardSlot int    // 1-based позиция выложенной карточки в раскладке круга

	CreatedAt time.Time
}

type Collection struct {
	ID       int64
	Name     string
	Standard bool

	CreatedAt time.Time
}

type Image struct {
	ID           int64
	CollectionID int64
	Attachment   string
	Words        []string
}

// HasWord проверяет, несёт ли изображение указанное слово.
func (img Image) HasWord(word string) bool {
	for _, w := range img.Words {
		if w == word {
			return true
		}
	}
	return false
}

type Session struct {
	ID        int64
	Code      string // короткий код для присоединения
	Status    Status
	Stage     Stage
	Single    bool
	WithHost  bool
	CreatorID int64
	WinnerID  int64 // 0 — победитель не зафиксирован

	CollectionID int64

	// Состояние текущего круга
	CurrentOrder []string // перемешанный порядок attachment'ов
	CurrentWord  string
	CorrectSlot  int // 1-based позиция правильной карточки в CurrentOrder

	CreatedAt time.Time
}

// ResetRoundState очищает игровые поля игрока после круга.
func (p *Player) ResetRoundState() {
	p.Answered = false
	p.Answer = 0
	p.SentCard = ""
	p.CardSlot = 0
}

// ClearSession снимает привязку игрока к сессии и обнуляет счёт.
func (p *Player) ClearSession() {
	p.SessionID = 0
	p.Score = 0
	p.IsHost = false
	p.WasHost = false
	p.ResetRoundState()
}
