package game

import "testing"

func TestScoreGuess(t *testing.T) {
	if got := ScoreGuess(3, 3); got != CorrectGuessPoints {
		t.Errorf("correct guess: got %d, want %d", got, CorrectGuessPoints)
	}
	if got := ScoreGuess(1, 3); got != 0 {
		t.Errorf("wrong guess: got %d, want 0", got)
	}
}

// Круг с ведущим: карточку ведущего не угадал никто — всем игрокам по 2,
// ведущему ничего.
func TestScoreHostRoundNobodyGuessed(t *testing.T) {
	subs := []HostSubmission{
		{PlayerID: 1, CardSlot: 1, IsHost: true},
		{PlayerID: 2, CardSlot: 2, Vote: 3},
		{PlayerID: 3, CardSlot: 3, Vote: 2},
		{PlayerID: 4, CardSlot: 4, Vote: 2},
	}
	deltas := ScoreHostRound(subs)

	if deltas[1] != 0 {
		t.Errorf("host delta: got %d, want 0", deltas[1])
	}
	for _, id := range []int64{2, 3, 4} {
		if deltas[id] != HostRoundPoints {
			t.Errorf("player %d delta: got %d, want %d", id, deltas[id], HostRoundPoints)
		}
	}
}

// Круг с ведущим: угадали все — то же самое.
func TestScoreHostRoundEverybodyGuessed(t *testing.T) {
	subs := []HostSubmission{
		{PlayerID: 1, CardSlot: 1, IsHost: true},
		{PlayerID: 2, CardSlot: 2, Vote: 1},
		{PlayerID: 3, CardSlot: 3, Vote: 1},
		{PlayerID: 4, CardSlot: 4, Vote: 1},
	}
	deltas := ScoreHostRound(subs)

	if deltas[1] != 0 {
		t.Errorf("host delta: got %d, want 0", deltas[1])
	}
	for _, id := range []int64{2, 3, 4} {
		if deltas[id] != HostRoundPoints {
			t.Errorf("player %d delta: got %d, want %d", id, deltas[id], HostRoundPoints)
		}
	}
}

// Частичное угадывание: ведущему +2, остальным — по голосам за их карточки.
// Сумма очков игроков равна числу голосов, отданных за карточки игроков.
func TestScoreHostRoundPartial(t *testing.T) {
	// Трое игроков, карточка ведущего в слоте 1.
	// Игрок 2 голосует за слот 1 (ведущий), игрок 3 — за слот 2,
	// игрок 4 — за слот 2.
	subs := []HostSubmission{
		{PlayerID: 1, CardSlot: 1, IsHost: true},
		{PlayerID: 2, CardSlot: 2, Vote: 1},
		{PlayerID: 3, CardSlot: 3, Vote: 2},
		{PlayerID: 4, CardSlot: 4, Vote: 2},
	}
	deltas := ScoreHostRound(subs)

	if deltas[1] != HostRoundPoints {
		t.Errorf("host delta: got %d, want %d", deltas[1], HostRoundPoints)
	}
	if deltas[2] != 2 {
		t.Errorf("player 2 delta: got %d, want 2", deltas[2])
	}
	if deltas[3] != 0 || deltas[4] != 0 {
		t.Errorf("players 3,4 deltas: got %d,%d, want 0,0", deltas[3], deltas[4])
	}

	// Сохранение голосов-очков: голоса не за ведущего = 2, очки игроков = 2.
	sum := deltas[2] + deltas[3] + deltas[4]
	if sum != 2 {
		t.Errorf("sum of player deltas: got %d, want 2", sum)
	}
}

// Голос за собственную карточку не считается.
func TestScoreHostRoundOwnVoteIgnored(t *testing.T) {
	subs := []HostSubmission{
		{PlayerID: 1, CardSlot: 1, IsHost: true},
		{PlayerID: 2, CardSlot: 2, Vote: 2}, // свой голос
		{PlayerID: 3, CardSlot: 3, Vote: 1},
	}
	deltas := ScoreHostRound(subs)

	// Единственный засчитанный голос — за ведущего, 1 из 2 игроков:
	// частичное угадывание.
	if deltas[1] != HostRoundPoints {
		t.Errorf("host delta: got %d, want %d", deltas[1], HostRoundPoints)
	}
	if deltas[2] != 0 {
		t.Errorf("player 2 delta: got %d, want 0 (own vote must not count)", deltas[2])
	}
}
