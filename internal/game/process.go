package game

import (
	"math/rand"
	"time"

	"github.com/Likwid-Technologies-Vezdekod-2022/ChatBots/internal/domain"
)

// Circle — один круг игры: раскладка карточек и загаданное слово.
type Circle struct {
	Attachments []string
	Word        string
}

// Process — генератор кругов. Чистая логика без хранилища: мутирует
// переданную сессию, возвращает идентификаторы задействованных изображений,
// а сохраняет их вызывающая сторона.
type Process struct {
	rng *rand.Rand
}

// NewProcess создаёт генератор. Нулевой seed даёт недетерминированную игру.
func NewProcess(seed int64) *Process {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Process{rng: rand.New(rand.NewSource(seed))}
}

// StartCircle подбирает следующий круг: 5 карточек (1 правильная + 4 ложных),
// одно слово. Возвращает nil-круг, если подходящих карточек не осталось —
// в этом случае ни сессия, ни множество использованных не меняются.
func (p *Process) StartCircle(sess *domain.Session, catalog []domain.Image, used map[int64]struct{}) (*Circle, []int64) {
	eligible := make([]domain.Image, 0, len(catalog))
	for _, img := range catalog {
		if _, ok := used[img.ID]; !ok {
			eligible = append(eligible, img)
		}
	}

	if len(eligible) < domain.CircleSize {
		return nil, nil
	}

	// Слова считаем в порядке первого появления, чтобы выбор не зависел
	// от порядка обхода map.
	bearing := make(map[string]int)
	var words []string
	for _, img := range eligible {
		for _, w := range img.Words {
			if bearing[w] == 0 {
				words = append(words, w)
			}
			bearing[w]++
		}
	}

	// Годится только слово, для которого наберётся полный круг:
	// хотя бы одна карточка со словом и 4 без него.
	var viable []string
	for _, w := range words {
		if len(eligible)-bearing[w] >= domain.CircleSize-1 {
			viable = append(viable, w)
		}
	}
	if len(viable) == 0 {
		return nil, nil
	}

	word := viable[p.rng.Intn(len(viable))]

	var correct domain.Image
	decoys := make([]domain.Image, 0, domain.CircleSize-1)
	for _, img := range eligible {
		if img.HasWord(word) {
			if correct.ID == 0 {
				correct = img
			}
			continue
		}
		if len(decoys) < domain.CircleSize-1 {
			decoys = append(decoys, img)
		}
	}

	chosen := append([]domain.Image{correct}, decoys...)
	p.rng.Shuffle(len(chosen), func(i, j int) {
		chosen[i], chosen[j] = chosen[j], chosen[i]
	})

	attachments := make([]string, len(chosen))
	usedIDs := make([]int64, len(chosen))
	slot := 0
	for i, img := range chosen {
		attachments[i] = img.Attachment
		usedIDs[i] = img.ID
		if img.ID == correct.ID {
			slot = i + 1
		}
	}

	sess.CurrentOrder = attachments
	sess.CurrentWord = word
	sess.CorrectSlot = slot
	sess.Stage = domain.StageGettingAnswers

	return &Circle{Attachments: attachments, Word: word}, usedIDs
}

// CurrentCircle восстанавливает текущий круг из сохранённой сессии —
// для игрока, присоединившегося посреди круга.
func (p *Process) CurrentCircle(sess *domain.Session) *Circle {
	return &Circle{Attachments: sess.CurrentOrder, Word: sess.CurrentWord}
}

// InitHostDeal раздаёт каждому игроку по len(players) карточек из свободных.
// Руки не пересекаются. Возвращает nil, если карточек не хватает.
func (p *Process) InitHostDeal(players []*domain.Player, catalog []domain.Image, used map[int64]struct{}) (map[int64][]domain.Image, []int64) {
	eligible := p.shuffledEligible(catalog, used)

	n := len(players)
	if len(eligible) < n*n {
		return nil, nil
	}

	hands := make(map[int64][]domain.Image, n)
	var usedIDs []int64
	for i, pl := range players {
		dealt := eligible[i*n : (i+1)*n]
		hands[pl.ID] = dealt
		for _, img := range dealt {
			usedIDs = append(usedIDs, img.ID)
		}
	}
	return hands, usedIDs
}

// DealOneCard добирает каждому игроку по одной карточке.
func (p *Process) DealOneCard(players []*domain.Player, catalog []domain.Image, used map[int64]struct{}) (map[int64]domain.Image, []int64) {
	eligible := p.shuffledEligible(catalog, used)

	if len(eligible) < len(players) {
		return nil, nil
	}

	cards := make(map[int64]domain.Image, len(players))
	usedIDs := make([]int64, 0, len(players))
	for i, pl := range players {
		cards[pl.ID] = eligible[i]
		usedIDs = append(usedIDs, eligible[i].ID)
	}
	return cards, usedIDs
}

// BuildHostCircle собирает раскладку круга с ведущим из выложенных карточек:
// перемешивает их, запоминает позицию каждой у владельца и позицию карточки
// ведущего как правильную.
func (p *Process) BuildHostCircle(sess *domain.Session, players []*domain.Player) *Circle {
	owners := make([]*domain.Player, 0, len(players))
	for _, pl := range players {
		if pl.SentCard != "" {
			owners = append(owners, pl)
		}
	}

	p.rng.Shuffle(len(owners), func(i, j int) {
		owners[i], owners[j] = owners[j], owners[i]
	})

	attachments := make([]string, len(owners))
	for i, pl := range owners {
		attachments[i] = pl.SentCard
		pl.CardSlot = i + 1
		if pl.IsHost {
			sess.CorrectSlot = i + 1
		}
	}

	sess.CurrentOrder = attachments
	sess.Stage = domain.StageGettingAnswers

	return &Circle{Attachments: attachments, Word: sess.CurrentWord}
}

func (p *Process) shuffledEligible(catalog []domain.Image, used map[int64]struct{}) []domain.Image {
	eligible := make([]domain.Image, 0, len(catalog))
	for _, img := range catalog {
		if _, ok := used[img.ID]; !ok {
			eligible = append(eligible, img)
		}
	}
	p.rng.Shuffle(len(eligible), func(i, j int) {
		eligible[i], eligible[j] = eligible[j], eligible[i]
	})
	return eligible
}
