package game

// Правила начисления очков.
const (
	// CorrectGuessPoints — очки за угаданную карточку в обычном режиме.
	CorrectGuessPoints = 3
	// HostRoundPoints — очки ведущему за частично угаданный круг
	// и каждому игроку за круг, где угадали все или никто.
	HostRoundPoints = 2
	// WinThreshold — счёт, при котором многопользовательская игра завершается.
	WinThreshold = 40
)

// ScoreGuess возвращает очки за один ответ в обычном режиме.
func ScoreGuess(answer, correctSlot int) int {
	if answer == correctSlot {
		return CorrectGuessPoints
	}
	return 0
}

// HostSubmission — выложенная карточка и голос одного игрока круга с ведущим.
type HostSubmission struct {
	PlayerID int64
	CardSlot int // позиция выложенной карточки в раскладке
	Vote     int // за какую позицию проголосовал; 0 у ведущего — он не голосует
	IsHost   bool
}

// ScoreHostRound считает дельты очков за завершённый круг с ведущим.
//
// Голос игрока за собственную карточку не учитывается. Если карточку ведущего
// угадали все остальные или не угадал никто — по HostRoundPoints каждому
// не-ведущему, ведущему ничего. Иначе ведущий получает HostRoundPoints,
// а каждый игрок — столько очков, сколько голосов собрала его карточка.
func ScoreHostRound(subs []HostSubmission) map[int64]int {
	votesBySlot := make(map[int]int)
	var hostID int64
	hostSlot := 0
	nonHosts := 0

	for _, s := range subs {
		if s.IsHost {
			hostID = s.PlayerID
			hostSlot = s.CardSlot
			continue
		}
		nonHosts++
		if s.Vote != 0 && s.Vote != s.CardSlot {
			votesBySlot[s.Vote]++
		}
	}

	deltas := make(map[int64]int, len(subs))
	hostVotes := votesBySlot[hostSlot]

	if hostVotes == 0 || hostVotes >= nonHosts {
		for _, s := range subs {
			if s.IsHost {
				deltas[s.PlayerID] = 0
			} else {
				deltas[s.PlayerID] = HostRoundPoints
			}
		}
		return deltas
	}

	deltas[hostID] = HostRoundPoints
	for _, s := range subs {
		if s.IsHost {
			continue
		}
		deltas[s.PlayerID] = votesBySlot[s.CardSlot]
	}
	return deltas
}
