package blob

import (
	"context"
	"errors"
	"testing"

	"github.com/quillflow/quillflow-core/internal/core/domain"
)

func newTestStore(t *testing.T) *FSStore {
	t.Helper()
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func TestFSStore_WriteReadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	key := "documents/doc-1/original.pdf"
	content := []byte("%PDF-1.7 test content")

	if err := store.Write(ctx, key, content); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	got, err := store.Read(ctx, key)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("expected %q, got %q", content, got)
	}
}

func TestFSStore_WriteReplacesExisting(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	key := "documents/doc-1/signed.pdf"
	if err := store.Write(ctx, key, []byte("first")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := store.Write(ctx, key, []byte("second")); err != nil {
		t.Fatalf("rewrite failed: %v", err)
	}

	got, err := store.Read(ctx, key)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(got) != "second" {
		t.Errorf("expected replaced content, got %q", got)
	}
}

func TestFSStore_ReadMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Read(context.Background(), "documents/missing/original.pdf")
	if !errors.Is(err, domain.ErrArtifactMissing) {
		t.Errorf("expected ErrArtifactMissing, got %v", err)
	}
}

func TestFSStore_DeleteAndExists(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	key := "signatures/user-1/img-1"
	if err := store.Write(ctx, key, []byte("png bytes")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	exists, err := store.Exists(ctx, key)
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if !exists {
		t.Error("expected blob to exist")
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	exists, err = store.Exists(ctx, key)
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if exists {
		t.Error("expected blob to be gone")
	}

	// Deleting again is not an error
	if err := store.Delete(ctx, key); err != nil {
		t.Errorf("second delete failed: %v", err)
	}
}

func TestFSStore_RejectsEscapingKeys(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"", "../outside", "/etc/passwd", "a/../../outside"} {
		if err := store.Write(ctx, key, []byte("x")); err == nil {
			t.Errorf("expected error for key %q", key)
		}
	}
}
