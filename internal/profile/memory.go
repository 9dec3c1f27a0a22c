package profile

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store with the same merge and completion
// semantics as PostgresStore. It backs tests and local development without a
// database.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]*memoryRecord
}

// userSet marks that UpdateUser has written the user record. Spouse and
// child writes may land first; until the user record exists the graph reads
// as absent, matching the row-per-document store.
type memoryRecord struct {
	userSet  bool
	user     UserProfile
	spouse   *SpouseProfile
	children []ChildProfile
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]*memoryRecord)}
}

func (s *MemoryStore) GetProfile(_ context.Context, userID string) (Graph, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graphLocked(userID), nil
}

func (s *MemoryStore) graphLocked(userID string) Graph {
	record, ok := s.users[userID]
	if !ok || !record.userSet {
		return Graph{Exists: false}
	}
	graph := Graph{Exists: true, User: record.user, Children: make([]ChildProfile, len(record.children))}
	copy(graph.Children, record.children)
	if record.spouse != nil {
		spouse := *record.spouse
		graph.Spouse = &spouse
	}
	return graph
}

func (s *MemoryStore) UpdateUser(_ context.Context, userID string, fields Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	record, ok := s.users[userID]
	if !ok {
		record = &memoryRecord{}
	}

	merged := record.user
	if !record.userSet {
		merged = UserProfile{ProfileCreatedAt: now}
	}
	if err := applyUserFields(&merged, fields); err != nil {
		return err
	}
	merged.ProfileUpdatedAt = now
	if err := merged.ValidateAt(now); err != nil {
		return err
	}

	record.user = merged
	record.userSet = true
	s.users[userID] = record
	s.refreshCompletionLocked(userID)
	return nil
}

func (s *MemoryStore) AddOrReplaceSpouse(_ context.Context, userID string, fields Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	record, ok := s.users[userID]
	if !ok {
		record = &memoryRecord{}
	}

	merged := SpouseProfile{}
	if record.spouse != nil {
		merged = *record.spouse
	}
	if err := applyPersonFields(&merged.PersonProfile, fields); err != nil {
		return err
	}
	if err := merged.ValidateAt(now); err != nil {
		return err
	}

	record.spouse = &merged
	s.users[userID] = record
	s.refreshCompletionLocked(userID)
	return nil
}

func (s *MemoryStore) AddChild(_ context.Context, userID string, fields Fields) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	record, ok := s.users[userID]
	if !ok {
		record = &memoryRecord{}
	}

	child := ChildProfile{Interests: []string{}, MedicalConsiderations: []string{}}
	if err := applyChildFields(&child, fields); err != nil {
		return "", err
	}
	if err := child.ValidateAt(now); err != nil {
		return "", err
	}

	child.ID = uuid.NewString()
	record.children = append(record.children, child)
	s.users[userID] = record
	s.refreshCompletionLocked(userID)
	return child.ID, nil
}

func (s *MemoryStore) UpdateChild(_ context.Context, userID, childID string, fields Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	record, ok := s.users[userID]
	if !ok {
		return &NotFoundError{Resource: "child", ID: childID}
	}

	for i, child := range record.children {
		if child.ID != childID {
			continue
		}
		merged := child
		if err := applyChildFields(&merged, fields); err != nil {
			return err
		}
		if err := merged.ValidateAt(now); err != nil {
			return err
		}
		record.children[i] = merged
		s.refreshCompletionLocked(userID)
		return nil
	}
	return &NotFoundError{Resource: "child", ID: childID}
}

func (s *MemoryStore) CompletionStatus(_ context.Context, userID string) (CompletionStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CompletionOf(s.graphLocked(userID)), nil
}

func (s *MemoryStore) refreshCompletionLocked(userID string) {
	record, ok := s.users[userID]
	if !ok {
		return
	}
	record.user.ProfileComplete = CompletionOf(s.graphLocked(userID)).IsComplete
}
