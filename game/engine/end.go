package engine

import (
	"slices"
	"sort"
)

// CheckEnd finishes the run when the state sits on the terminal cell. The
// finished run's score goes onto the leaderboard and the state returns to the
// start cell with score and CO2 cleared; HighScore is kept.
func CheckEnd(state GridState, board Leaderboard, config *GameConfig) (GridState, Leaderboard, bool) {
	if !state.OnTerminal(config) {
		return state, board, false
	}

	board = board.Insert(state.Score, config.LeaderboardSize)

	reset := NewGridState(config)
	reset.HighScore = state.HighScore
	return reset, board, true
}

// Insert returns a new leaderboard with score added, sorted highest first and
// truncated to size entries. The receiver is not modified.
func (lb Leaderboard) Insert(score, size int) Leaderboard {
	next := make(Leaderboard, 0, len(lb)+1)
	next = append(next, lb...)
	next = append(next, score)
	return next.Normalize(size)
}

// Normalize sorts a copy of the leaderboard highest first and truncates it
func (lb Leaderboard) Normalize(size int) Leaderboard {
	next := slices.Clone(lb)
	sort.Sort(sort.Reverse(sort.IntSlice(next)))
	if size >= 0 && len(next) > size {
		next = next[:size]
	}
	if next == nil {
		next = Leaderboard{}
	}
	return next
}

// Best returns the top score, or false when the leaderboard is empty
func (lb Leaderboard) Best() (int, bool) {
	if len(lb) == 0 {
		return 0, false
	}
	return lb[0], true
}
