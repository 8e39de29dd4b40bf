// Package memory implements the repository interfaces over process-local
// maps. One mutex guards every table, so multi-table operations such as
// Submit and Accept are atomic the same way a database transaction is, and
// the unique indexes of the SQL schema are enforced on every write.
package memory

import (
	"sort"
	"sync"
	"time"

	"marketplace/internal/model"
	"marketplace/internal/repository"
)

// Store shared state behind all memory repositories
type Store struct {
	mu  sync.Mutex
	seq int64
	now func() time.Time

	cartItems     map[string]*cartRow
	requests      map[string]*requestRow
	responses     map[string]*responseRow
	conversations map[string]*conversationRow
	notifications map[string]*notificationRow
	profiles      map[string]model.Profile
	services      map[string]model.Service

	// unique indexes
	cartByClientService map[string]string
	responseByBid       map[string]string
	conversationByPair  map[string]string
}

type cartRow struct {
	seq  int64
	item model.CartItem
}

type requestRow struct {
	seq     int64
	request model.Request
}

type responseRow struct {
	seq      int64
	response model.Response
}

type conversationRow struct {
	seq  int64
	conv model.Conversation
}

type notificationRow struct {
	seq          int64
	notification model.Notification
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		now:                 time.Now,
		cartItems:           make(map[string]*cartRow),
		requests:            make(map[string]*requestRow),
		responses:           make(map[string]*responseRow),
		conversations:       make(map[string]*conversationRow),
		notifications:       make(map[string]*notificationRow),
		profiles:            make(map[string]model.Profile),
		services:            make(map[string]model.Service),
		cartByClientService: make(map[string]string),
		responseByBid:       make(map[string]string),
		conversationByPair:  make(map[string]string),
	}
}

// SeedProfile registers a provider profile
func (s *Store) SeedProfile(p model.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ID] = p
}

// SeedService registers a catalog service
func (s *Store) SeedService(svc model.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services[svc.ID] = svc
}

// ConversationCount number of stored conversations
func (s *Store) ConversationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conversations)
}

// ResponseCount number of stored responses for a request
func (s *Store) ResponseCount(requestID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, row := range s.responses {
		if row.response.RequestID == requestID {
			n++
		}
	}
	return n
}

func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

func pairKey(a, b string) string {
	return a + "\x00" + b
}

func page[T any](rows []T, page, pageSize int) []T {
	start := repository.Offset(page, pageSize)
	if start >= len(rows) {
		return []T{}
	}
	end := start + pageSize
	if pageSize <= 0 || end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

func sortBySeq[T any](rows []T, seq func(T) int64, desc bool) {
	sort.Slice(rows, func(i, j int) bool {
		if desc {
			return seq(rows[i]) > seq(rows[j])
		}
		return seq(rows[i]) < seq(rows[j])
	})
}
