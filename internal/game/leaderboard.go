package game

import (
	"sort"
	"sync"
	"time"
)

// DefaultRunBoardSize is how many finished runs the board keeps.
const DefaultRunBoardSize = 10

// RunResult summarises one finished session.
type RunResult struct {
	SessionID string    `json:"sessionId"`
	Kills     uint64    `json:"kills"`
	Shots     uint64    `json:"shots"`
	Hits      uint64    `json:"hits"`
	Accuracy  float64   `json:"accuracy"`
	Survived  float64   `json:"survived"` // s of scaled time
	Reason    string    `json:"reason"`
	EndedAt   time.Time `json:"endedAt"`
	Rank      int       `json:"rank"`
}

// better orders runs by kills, then by time survived, then by who got
// there first.
func (r RunResult) better(o RunResult) bool {
	if r.Kills != o.Kills {
		return r.Kills > o.Kills
	}
	if r.Survived != o.Survived {
		return r.Survived > o.Survived
	}
	return r.EndedAt.Before(o.EndedAt)
}

// RunBoard keeps the best finished runs of this process. Reads come from
// HTTP handlers while the tick records, so it carries its own lock.
type RunBoard struct {
	mu       sync.RWMutex
	size     int
	runs     []RunResult
	recorded uint64
}

// NewRunBoard creates a board holding at most size runs.
func NewRunBoard(size int) *RunBoard {
	if size < 1 {
		size = DefaultRunBoardSize
	}
	return &RunBoard{size: size, runs: make([]RunResult, 0, size+1)}
}

// Record adds a finished run and returns its rank, or 0 if it did not make
// the board.
func (b *RunBoard) Record(r RunResult) int {
	if r.Shots > 0 {
		r.Accuracy = float64(r.Hits) / float64(r.Shots)
	}
	if r.EndedAt.IsZero() {
		r.EndedAt = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.recorded++

	i := sort.Search(len(b.runs), func(i int) bool { return r.better(b.runs[i]) })
	if i >= b.size {
		return 0
	}
	b.runs = append(b.runs, RunResult{})
	copy(b.runs[i+1:], b.runs[i:])
	b.runs[i] = r
	if len(b.runs) > b.size {
		b.runs = b.runs[:b.size]
	}
	for j := i; j < len(b.runs); j++ {
		b.runs[j].Rank = j + 1
	}
	return i + 1
}

// Top returns up to n runs, best first.
func (b *RunBoard) Top(n int) []RunResult {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if n <= 0 || n > len(b.runs) {
		n = len(b.runs)
	}
	return append([]RunResult(nil), b.runs[:n]...)
}

// Best returns the top run, if any.
func (b *RunBoard) Best() (RunResult, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.runs) == 0 {
		return RunResult{}, false
	}
	return b.runs[0], true
}

// Recorded is the number of runs ever offered to the board.
func (b *RunBoard) Recorded() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.recorded
}

// Clear forgets every run.
func (b *RunBoard) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.runs = b.runs[:0]
}
