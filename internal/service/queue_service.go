package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/harikrishna-au/codetogetherfull/internal/model"
)

// QueueService owns one append-ordered queue per difficulty tier. All
// mutation is serialized under a single mutex so pairing can never observe a
// half-applied enqueue. Queues are in-memory only; entries do not survive a
// restart and are not meant to.
type QueueService struct {
	mu      sync.Mutex
	queues  map[model.Difficulty][]*model.QueueEntry
	members map[string]model.Difficulty // sessionId -> occupied queue
}

func NewQueueService() *QueueService {
	queues := make(map[model.Difficulty][]*model.QueueEntry, len(model.Difficulties))
	for _, d := range model.Difficulties {
		queues[d] = nil
	}
	return &QueueService{
		queues:  queues,
		members: make(map[string]model.Difficulty),
	}
}

// Enqueue appends the session to the named queue, first removing it from any
// queue it already occupies so a session never holds two slots.
func (q *QueueService) Enqueue(sessionID string, difficulty model.Difficulty, mode string, userData model.UserData) (*model.QueueEntry, error) {
	if !difficulty.IsValid() {
		return nil, ErrInvalidDifficulty
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.removeLocked(sessionID)

	entry := &model.QueueEntry{
		SessionID:  sessionID,
		Difficulty: difficulty,
		Mode:       mode,
		UserData:   userData,
		JoinedAt:   time.Now(),
	}
	q.queues[difficulty] = append(q.queues[difficulty], entry)
	q.members[sessionID] = difficulty

	log.Printf("session %s joined %s queue (size %d)", sessionID, difficulty, len(q.queues[difficulty]))
	cp := *entry
	return &cp, nil
}

// TryPair removes and returns the two oldest entries of the named queue, in
// strict FIFO order. It returns false when fewer than two sessions wait.
func (q *QueueService) TryPair(difficulty model.Difficulty) (*model.QueueEntry, *model.QueueEntry, bool) {
	if !difficulty.IsValid() {
		return nil, nil, false
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	queue := q.queues[difficulty]
	if len(queue) < 2 {
		return nil, nil, false
	}

	first, second := queue[0], queue[1]
	q.queues[difficulty] = append([]*model.QueueEntry(nil), queue[2:]...)
	delete(q.members, first.SessionID)
	delete(q.members, second.SessionID)

	log.Printf("paired %s with %s on %s", first.SessionID, second.SessionID, difficulty)
	return first, second, true
}

// Leave removes the session from whichever queue it occupies. Idempotent.
func (q *QueueService) Leave(sessionID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.removeLocked(sessionID)
}

func (q *QueueService) removeLocked(sessionID string) bool {
	difficulty, ok := q.members[sessionID]
	if !ok {
		return false
	}
	q.queues[difficulty] = lo.Reject(q.queues[difficulty], func(e *model.QueueEntry, _ int) bool {
		return e.SessionID == sessionID
	})
	delete(q.members, sessionID)
	return true
}

// Position reports the session's 1-based rank, the occupied queue's size, and
// the elapsed wait. ok is false when the session is not queued.
func (q *QueueService) Position(sessionID string) (*model.QueuePosition, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	difficulty, ok := q.members[sessionID]
	if !ok {
		return nil, false
	}
	queue := q.queues[difficulty]
	for i, entry := range queue {
		if entry.SessionID == sessionID {
			return &model.QueuePosition{
				Position:   i + 1,
				Difficulty: difficulty,
				QueueSize:  len(queue),
				WaitTimeMs: time.Since(entry.JoinedAt).Milliseconds(),
			}, true
		}
	}
	return nil, false
}

// Stats returns per-difficulty counts and wait times over current entries.
func (q *QueueService) Stats() model.QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := model.QueueStats{ByDifficulty: make(map[model.Difficulty]model.DifficultyStats, len(q.queues))}
	now := time.Now()
	for difficulty, queue := range q.queues {
		s := model.DifficultyStats{Count: len(queue)}
		if len(queue) > 0 {
			total := lo.SumBy(queue, func(e *model.QueueEntry) int64 {
				return now.Sub(e.JoinedAt).Milliseconds()
			})
			s.AverageWaitTimeMs = total / int64(len(queue))
			oldest := lo.MinBy(queue, func(a, b *model.QueueEntry) bool {
				return a.JoinedAt.Before(b.JoinedAt)
			})
			s.OldestWaitTimeMs = now.Sub(oldest.JoinedAt).Milliseconds()
		}
		stats.ByDifficulty[difficulty] = s
		stats.TotalUsers += s.Count
	}
	return stats
}

// Contents returns the admin view of one queue in FIFO order.
func (q *QueueService) Contents(difficulty model.Difficulty) ([]model.QueueEntryView, error) {
	if !difficulty.IsValid() {
		return nil, ErrInvalidDifficulty
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	return lo.Map(q.queues[difficulty], func(e *model.QueueEntry, i int) model.QueueEntryView {
		return model.QueueEntryView{
			SessionID:  e.SessionID,
			UserData:   e.UserData,
			Position:   i + 1,
			WaitTimeMs: now.Sub(e.JoinedAt).Milliseconds(),
		}
	}), nil
}

// Clear evicts every entry of one difficulty and returns the evicted session
// ids so the caller can transition their session state. Clearing an empty
// queue is a no-op.
func (q *QueueService) Clear(difficulty model.Difficulty) ([]string, error) {
	if !difficulty.IsValid() {
		return nil, ErrInvalidDifficulty
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	return q.clearLocked(difficulty), nil
}

// ClearAll evicts every entry of every difficulty.
func (q *QueueService) ClearAll() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	var cleared []string
	for _, difficulty := range model.Difficulties {
		cleared = append(cleared, q.clearLocked(difficulty)...)
	}
	return cleared
}

func (q *QueueService) clearLocked(difficulty model.Difficulty) []string {
	queue := q.queues[difficulty]
	if len(queue) == 0 {
		return nil
	}
	cleared := lo.Map(queue, func(e *model.QueueEntry, _ int) string { return e.SessionID })
	for _, id := range cleared {
		delete(q.members, id)
	}
	q.queues[difficulty] = nil
	log.Printf("cleared %s queue (%d entries)", difficulty, len(cleared))
	return cleared
}

// EvictStale removes entries older than maxAge and returns the evicted
// session ids.
func (q *QueueService) EvictStale(maxAge time.Duration) []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	var evicted []string
	for difficulty, queue := range q.queues {
		kept := queue[:0]
		for _, entry := range queue {
			if now.Sub(entry.JoinedAt) > maxAge {
				evicted = append(evicted, entry.SessionID)
				delete(q.members, entry.SessionID)
			} else {
				kept = append(kept, entry)
			}
		}
		q.queues[difficulty] = kept
	}
	if len(evicted) > 0 {
		log.Printf("evicted %d stale queue entries", len(evicted))
	}
	return evicted
}

// StartSweeper runs EvictStale on a fixed interval until ctx is done,
// independent of request traffic. onEvict receives the evicted session ids.
func (q *QueueService) StartSweeper(ctx context.Context, interval, maxAge time.Duration, onEvict func(sessionIDs []string)) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if evicted := q.EvictStale(maxAge); len(evicted) > 0 && onEvict != nil {
					onEvict(evicted)
				}
			}
		}
	}()
}
