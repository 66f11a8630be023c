package services

import (
	"sync"
	"time"

	"chefbot_go_backend/internal/models"

	"github.com/rs/zerolog/log"
)

// MemorySessionStore keeps dialogue sessions in process memory. Every mutation is a
// load-modify-store of the whole session without a lock, so two concurrent writers for
// the same user resolve last-write-wins.
type MemorySessionStore struct {
	sessions     sync.Map
	ttl          time.Duration
	historyLimit int
	now          func() time.Time
}

func NewMemorySessionStore(ttl time.Duration, historyLimit int, opts ...ServiceOption) *MemorySessionStore {
	o := applyOptions(opts)
	return &MemorySessionStore{
		ttl:          ttl,
		historyLimit: historyLimit,
		now:          o.now,
	}
}

// Get returns a copy of the user's session, or a fresh one awaiting input. Reading an
// existing session slides its expiry.
func (s *MemorySessionStore) Get(userID int64) models.Session {
	value, ok := s.sessions.Load(userID)
	if !ok {
		return models.Session{UserID: userID, State: models.StateAwaitingInput}
	}
	sess := cloneSession(value.(models.Session))
	sess.LastActivity = s.now()
	s.sessions.Store(userID, sess)
	return cloneSession(sess)
}

// Update applies fn to the user's session and stores the result, creating the session
// on first write.
func (s *MemorySessionStore) Update(userID int64, fn func(*models.Session)) models.Session {
	var sess models.Session
	if value, ok := s.sessions.Load(userID); ok {
		sess = cloneSession(value.(models.Session))
	} else {
		sess = models.Session{UserID: userID, State: models.StateAwaitingInput}
	}
	fn(&sess)
	sess.UserID = userID
	sess.LastActivity = s.now()
	s.sessions.Store(userID, sess)
	return cloneSession(sess)
}

func (s *MemorySessionStore) Products(userID int64) string {
	return s.Get(userID).Products
}

func (s *MemorySessionStore) SetProducts(userID int64, products string) {
	s.Update(userID, func(sess *models.Session) {
		sess.Products = products
	})
}

// AppendProducts concatenates with the stored list instead of replacing it.
func (s *MemorySessionStore) AppendProducts(userID int64, products string) {
	s.Update(userID, func(sess *models.Session) {
		sess.Products = joinProducts(sess.Products, products)
	})
}

func (s *MemorySessionStore) Categories(userID int64) []models.DishCategory {
	return s.Get(userID).Categories
}

func (s *MemorySessionStore) SetCategories(userID int64, categories []models.DishCategory) {
	s.Update(userID, func(sess *models.Session) {
		sess.Categories = append([]models.DishCategory(nil), categories...)
	})
}

func (s *MemorySessionStore) GeneratedDishes(userID int64) []models.Dish {
	return s.Get(userID).GeneratedDishes
}

func (s *MemorySessionStore) SetGeneratedDishes(userID int64, dishes []models.Dish) {
	s.Update(userID, func(sess *models.Session) {
		sess.GeneratedDishes = append([]models.Dish(nil), dishes...)
	})
}

func (s *MemorySessionStore) CurrentDish(userID int64) *models.CurrentDish {
	return s.Get(userID).CurrentDish
}

func (s *MemorySessionStore) SetCurrentDish(userID int64, dish *models.CurrentDish) {
	s.Update(userID, func(sess *models.Session) {
		if dish == nil {
			sess.CurrentDish = nil
			return
		}
		pinned := *dish
		sess.CurrentDish = &pinned
	})
}

func (s *MemorySessionStore) History(userID int64) []models.ChatMessage {
	return s.Get(userID).MessageHistory
}

// AddMessage appends to the bounded history, evicting the oldest entries.
func (s *MemorySessionStore) AddMessage(userID int64, role, text string) {
	now := s.now()
	s.Update(userID, func(sess *models.Session) {
		sess.MessageHistory = append(sess.MessageHistory, models.ChatMessage{
			Role:      role,
			Text:      text,
			Timestamp: now,
		})
		if s.historyLimit > 0 && len(sess.MessageHistory) > s.historyLimit {
			sess.MessageHistory = sess.MessageHistory[len(sess.MessageHistory)-s.historyLimit:]
		}
	})
}

func (s *MemorySessionStore) Clear(userID int64) {
	s.sessions.Delete(userID)
}

// ActiveCount sweeps idle sessions first and counts the rest.
func (s *MemorySessionStore) ActiveCount() int {
	s.CleanupExpiredSessions()
	count := 0
	s.sessions.Range(func(_, _ interface{}) bool {
		count++
		return true
	})
	return count
}

// CleanupExpiredSessions removes every session idle for longer than the TTL and
// returns how many were dropped.
func (s *MemorySessionStore) CleanupExpiredSessions() int {
	now := s.now()
	removed := 0
	s.sessions.Range(func(key, value interface{}) bool {
		sess := value.(models.Session)
		if now.Sub(sess.LastActivity) > s.ttl {
			s.sessions.Delete(key)
			removed++
		}
		return true
	})
	if removed > 0 {
		log.Debug().Int("count", removed).Msg("Evicted idle sessions")
	}
	return removed
}

func joinProducts(existing, more string) string {
	if existing == "" {
		return more
	}
	if more == "" {
		return existing
	}
	return existing + ", " + more
}

func cloneSession(s models.Session) models.Session {
	out := s
	out.Categories = append([]models.DishCategory(nil), s.Categories...)
	out.GeneratedDishes = append([]models.Dish(nil), s.GeneratedDishes...)
	out.MessageHistory = append([]models.ChatMessage(nil), s.MessageHistory...)
	if s.CurrentDish != nil {
		pinned := *s.CurrentDish
		out.CurrentDish = &pinned
	}
	return out
}
