package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/quillflow/quillflow-core/internal/core/domain"
)

// MockAnnotationStore is a mock implementation of AnnotationStore for testing
type MockAnnotationStore struct {
	mu     sync.RWMutex
	drafts map[string][]*domain.Annotation // key: documentID:recipientID
	finals map[string][]*domain.Annotation
}

// NewMockAnnotationStore creates a new MockAnnotationStore
func NewMockAnnotationStore() *MockAnnotationStore {
	return &MockAnnotationStore{
		drafts: make(map[string][]*domain.Annotation),
		finals: make(map[string][]*domain.Annotation),
	}
}

func (m *MockAnnotationStore) ReplaceDraft(ctx context.Context, documentID, recipientID string, anns []*domain.Annotation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[pairKey(documentID, recipientID)] = copyAnns(anns)
	return nil
}

func (m *MockAnnotationStore) ReplaceFinal(ctx context.Context, documentID, recipientID string, anns []*domain.Annotation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finals[pairKey(documentID, recipientID)] = copyAnns(anns)
	return nil
}

func (m *MockAnnotationStore) ListDraft(ctx context.Context, documentID, recipientID string) ([]*domain.Annotation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyAnns(m.drafts[pairKey(documentID, recipientID)]), nil
}

func (m *MockAnnotationStore) ListFinalByDocument(ctx context.Context, documentID string) ([]*domain.Annotation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Annotation
	for _, anns := range m.finals {
		for _, a := range anns {
			if a.DocumentID == documentID {
				cp := *a
				result = append(result, &cp)
			}
		}
	}
	// Stable order: recipient identity, then insertion order
	sort.Slice(result, func(i, j int) bool {
		if result[i].RecipientID != result[j].RecipientID {
			return result[i].RecipientID < result[j].RecipientID
		}
		return result[i].Position < result[j].Position
	})
	return result, nil
}

func (m *MockAnnotationStore) DeleteByDocument(ctx context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, anns := range m.drafts {
		if len(anns) > 0 && anns[0].DocumentID == documentID {
			delete(m.drafts, key)
		}
	}
	for key, anns := range m.finals {
		if len(anns) > 0 && anns[0].DocumentID == documentID {
			delete(m.finals, key)
		}
	}
	return nil
}

func copyAnns(anns []*domain.Annotation) []*domain.Annotation {
	out := make([]*domain.Annotation, len(anns))
	for i, a := range anns {
		cp := *a
		out[i] = &cp
	}
	return out
}
