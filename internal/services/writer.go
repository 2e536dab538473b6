package services

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/models"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/tracker"
)

// writer persists one user's committed store changes in commit order. It is the
// store's Journal: Record only queues, a single goroutine does the database work.
// Once closed, Record applies each change itself.
type writer struct {
	db     *gorm.DB
	userID uuid.UUID

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []tracker.Change
	busy   bool
	closed bool
	done   chan struct{}
}

func newWriter(db *gorm.DB, userID uuid.UUID) *writer {
	w := &writer{db: db, userID: userID, done: make(chan struct{})}
	w.cond = sync.NewCond(&w.mu)
	go w.loop()
	return w
}

func (w *writer) Record(change tracker.Change) {
	w.mu.Lock()
	if !w.closed {
		w.queue = append(w.queue, change)
		w.cond.Broadcast()
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	// The store records under its own lock, so changes still arrive in order.
	<-w.done
	w.persist(change)
}

func (w *writer) loop() {
	defer close(w.done)
	for {
		w.mu.Lock()
		for len(w.queue) == 0 && !w.closed {
			w.cond.Wait()
		}
		if len(w.queue) == 0 {
			w.mu.Unlock()
			return
		}
		batch := w.queue
		w.queue = nil
		w.busy = true
		w.mu.Unlock()

		for _, change := range batch {
			w.persist(change)
		}

		w.mu.Lock()
		w.busy = false
		w.cond.Broadcast()
		w.mu.Unlock()
	}
}

// Flush blocks until every change recorded so far has been applied.
func (w *writer) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for len(w.queue) > 0 || w.busy {
		w.cond.Wait()
	}
}

// Close drains the queue and stops the goroutine.
func (w *writer) Close() {
	w.mu.Lock()
	w.closed = true
	w.cond.Broadcast()
	w.mu.Unlock()
	<-w.done
}

func (w *writer) persist(change tracker.Change) {
	if err := w.apply(change); err != nil {
		slog.Error("failed to persist assignment change",
			"user_id", w.userID.String(),
			"action", "persist_"+change.Kind.String(),
			"error", err,
		)
	}
}

func (w *writer) apply(change tracker.Change) error {
	switch change.Kind {
	case tracker.ChangeAdded, tracker.ChangeUpdated:
		row := models.AssignmentFromTracker(w.userID, change.Assignment)
		return w.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
	case tracker.ChangeRemoved:
		return w.db.Where("user_id = ? AND id = ?", w.userID, change.ID).Delete(&models.Assignment{}).Error
	case tracker.ChangeReplaced:
		return w.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("user_id = ? AND source = ?", w.userID, string(change.Source)).
				Delete(&models.Assignment{}).Error; err != nil {
				return err
			}
			if len(change.Records) == 0 {
				return nil
			}
			rows := make([]models.Assignment, len(change.Records))
			for i, a := range change.Records {
				rows[i] = models.AssignmentFromTracker(w.userID, a)
			}
			return tx.CreateInBatches(rows, 100).Error
		})
	}
	return nil
}
