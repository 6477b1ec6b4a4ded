package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/quillflow/quillflow-core/internal/core/domain"
)

// MockDocumentStore is a mock implementation of DocumentStore for testing
type MockDocumentStore struct {
	mu          sync.RWMutex
	documents   map[string]*domain.Document
	assignments *MockAssignmentStore // optional, for ListByRecipient
}

// NewMockDocumentStore creates a new MockDocumentStore
func NewMockDocumentStore() *MockDocumentStore {
	return &MockDocumentStore{
		documents: make(map[string]*domain.Document),
	}
}

// WithAssignments links the assignment mock so ListByRecipient works.
func (m *MockDocumentStore) WithAssignments(as *MockAssignmentStore) *MockDocumentStore {
	m.assignments = as
	return m
}

func (m *MockDocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *doc
	m.documents[doc.ID] = &cp
	return nil
}

func (m *MockDocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (m *MockDocumentStore) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var docs []*domain.Document
	for _, doc := range m.documents {
		if doc.OwnerID == ownerID {
			cp := *doc
			docs = append(docs, &cp)
		}
	}
	sortDocs(docs)
	return paginate(docs, limit, offset), nil
}

func (m *MockDocumentStore) ListByRecipient(ctx context.Context, recipientID string, limit, offset int) ([]*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var docs []*domain.Document
	for _, doc := range m.documents {
		if m.assignments != nil {
			if _, err := m.assignments.Get(ctx, doc.ID, recipientID); err == nil {
				cp := *doc
				docs = append(docs, &cp)
			}
		}
	}
	sortDocs(docs)
	return paginate(docs, limit, offset), nil
}

func (m *MockDocumentStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.documents[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.documents, id)
	return nil
}

func (m *MockDocumentStore) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, doc := range m.documents {
		if doc.OwnerID == ownerID {
			count++
		}
	}
	return count, nil
}

func sortDocs(docs []*domain.Document) {
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].ID < docs[j].ID
		}
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
}

func paginate(docs []*domain.Document, limit, offset int) []*domain.Document {
	if offset >= len(docs) {
		return nil
	}
	docs = docs[offset:]
	if limit > 0 && limit < len(docs) {
		docs = docs[:limit]
	}
	return docs
}

// MockAssignmentStore is a mock implementation of AssignmentStore for testing
type MockAssignmentStore struct {
	mu    sync.RWMutex
	pairs map[string]*domain.RecipientAssignment // key: documentID:recipientID
}

// NewMockAssignmentStore creates a new MockAssignmentStore
func NewMockAssignmentStore() *MockAssignmentStore {
	return &MockAssignmentStore{
		pairs: make(map[string]*domain.RecipientAssignment),
	}
}

func pairKey(documentID, recipientID string) string {
	return documentID + ":" + recipientID
}

func (m *MockAssignmentStore) Upsert(ctx context.Context, a *domain.RecipientAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := pairKey(a.DocumentID, a.RecipientID)
	if existing, ok := m.pairs[key]; ok {
		a.ID = existing.ID
		a.CreatedAt = existing.CreatedAt
	}
	cp := *a
	m.pairs[key] = &cp
	return nil
}

func (m *MockAssignmentStore) Get(ctx context.Context, documentID, recipientID string) (*domain.RecipientAssignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.pairs[pairKey(documentID, recipientID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MockAssignmentStore) ListByDocument(ctx context.Context, documentID string) ([]*domain.RecipientAssignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.RecipientAssignment
	for _, a := range m.pairs {
		if a.DocumentID == documentID {
			cp := *a
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].RecipientID < result[j].RecipientID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MockAssignmentStore) ListDueBefore(ctx context.Context, cutoff time.Time) ([]*domain.RecipientAssignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.RecipientAssignment
	for _, a := range m.pairs {
		if a.DueDate == nil || a.Status.Complete() {
			continue
		}
		if a.DueDate.Before(cutoff) {
			cp := *a
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *MockAssignmentStore) DeleteByDocument(ctx context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, a := range m.pairs {
		if a.DocumentID == documentID {
			delete(m.pairs, key)
		}
	}
	return nil
}
