// Package memory keeps sessions and purchase records in process memory.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/m3rciful/goldbot/internal/dialogue"
	"github.com/m3rciful/goldbot/internal/profit"
)

type recordKey struct {
	userID int64
	grade  string
}

// Store implements dialogue.SessionStore and dialogue.RecordStore.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]dialogue.Session
	records  map[recordKey]profit.PurchaseRecord
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		sessions: make(map[int64]dialogue.Session),
		records:  make(map[recordKey]profit.PurchaseRecord),
	}
}

// Get returns the user's session if one exists.
func (s *Store) Get(_ context.Context, userID int64) (dialogue.Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[userID]
	return sess, ok, nil
}

// Put replaces the user's session.
func (s *Store) Put(_ context.Context, sess dialogue.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.UserID] = sess
	return nil
}

// Remove deletes the user's session; a missing one is not an error.
func (s *Store) Remove(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}

// GetRecord returns the record for user and grade.
func (s *Store) GetRecord(_ context.Context, userID int64, grade string) (profit.PurchaseRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[recordKey{userID, grade}]
	return rec, ok, nil
}

// PutRecord overwrites any record with the same user and grade.
func (s *Store) PutRecord(_ context.Context, rec profit.PurchaseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[recordKey{rec.UserID, rec.Grade}] = rec
	return nil
}

// ListRecords returns all records ordered by user then grade.
func (s *Store) ListRecords(_ context.Context) ([]profit.PurchaseRecord, error) {
	s.mu.RLock()
	out := make([]profit.PurchaseRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	s.mu.RUnlock()
	sortRecords(out)
	return out, nil
}

// ListUserRecords returns one user's records ordered by grade.
func (s *Store) ListUserRecords(_ context.Context, userID int64) ([]profit.PurchaseRecord, error) {
	s.mu.RLock()
	var out []profit.PurchaseRecord
	for key, rec := range s.records {
		if key.userID == userID {
			out = append(out, rec)
		}
	}
	s.mu.RUnlock()
	sortRecords(out)
	return out, nil
}

func sortRecords(recs []profit.PurchaseRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].UserID != recs[j].UserID {
			return recs[i].UserID < recs[j].UserID
		}
		return recs[i].Grade < recs[j].Grade
	})
}

var (
	_ dialogue.SessionStore = (*Store)(nil)
	_ dialogue.RecordStore  = (*Store)(nil)
)
