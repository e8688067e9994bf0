package document

import (
	"context"
	"errors"
	"testing"
)

const ownerAddr = "0x71C7656EC7ab88b098defB751B7401B5f6d8976F"

func newDoc(hash, verificationID string) *Document {
	return &Document{
		Owner:          ownerAddr,
		DocType:        "Personal ID",
		FileName:       "passport.pdf",
		StorageLocator: "documents/1_passport.pdf.enc",
		ContentHash:    hash,
		VerificationID: verificationID,
	}
}

func TestRegisterAssignsSequentialIDs(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()

	first, err := repo.Register(ctx, newDoc(HashContent([]byte("one")), "DOC-AAAAA1"))
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	second, err := repo.Register(ctx, newDoc(HashContent([]byte("two")), "DOC-AAAAA2"))
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if first.ID != 1 || second.ID != 2 {
		t.Errorf("IDs = %d, %d, want 1, 2", first.ID, second.ID)
	}
	if first.UploadedAt.IsZero() {
		t.Error("UploadedAt was not defaulted")
	}
}

func TestRegisterHashCollision(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()

	hash := HashContent([]byte("same bytes"))
	if _, err := repo.Register(ctx, newDoc(hash, "DOC-AAAAA1")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	// Same hash under a different owner still collides: uniqueness is global.
	dup := newDoc(hash, "DOC-AAAAA2")
	dup.Owner = "0x0000000000000000000000000000000000000001"
	if _, err := repo.Register(ctx, dup); !errors.Is(err, ErrHashCollision) {
		t.Errorf("Register() error = %v, want ErrHashCollision", err)
	}

	// The failed registration must not have created anything.
	if _, err := repo.FindByVerificationID(ctx, "DOC-AAAAA2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByVerificationID() after failed Register error = %v, want ErrNotFound", err)
	}
}

func TestRegisterVerificationIDCollision(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()

	if _, err := repo.Register(ctx, newDoc(HashContent([]byte("one")), "DOC-AAAAA1")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := repo.Register(ctx, newDoc(HashContent([]byte("two")), "DOC-AAAAA1")); !errors.Is(err, ErrVerificationIDCollision) {
		t.Errorf("Register() error = %v, want ErrVerificationIDCollision", err)
	}
}

func TestListByOwnerOrdered(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()

	for i, content := range []string{"a", "b", "c"} {
		id := []string{"DOC-AAAAA1", "DOC-AAAAA2", "DOC-AAAAA3"}[i]
		if _, err := repo.Register(ctx, newDoc(HashContent([]byte(content)), id)); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}

	docs, err := repo.ListByOwner(ctx, ownerAddr)
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("ListByOwner() returned %d documents, want 3", len(docs))
	}
	for i, doc := range docs {
		if doc.ID != int64(i)+1 {
			t.Errorf("docs[%d].ID = %d, want %d", i, doc.ID, i+1)
		}
	}

	other, err := repo.ListByOwner(ctx, "0x0000000000000000000000000000000000000001")
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if len(other) != 0 {
		t.Errorf("ListByOwner() for stranger returned %d documents, want 0", len(other))
	}
}

func TestFindByHashRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()

	content := []byte("round trip payload")
	hash := HashContent(content)

	registered, err := repo.Register(ctx, newDoc(hash, "DOC-AAAAA1"))
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	found, err := repo.FindByHash(ctx, HashContent(content))
	if err != nil {
		t.Fatalf("FindByHash() error = %v", err)
	}
	if found.FileName != registered.FileName || found.DocType != registered.DocType || found.Owner != registered.Owner {
		t.Errorf("FindByHash() = %+v, want fields of %+v", found, registered)
	}

	if _, err := repo.FindByHash(ctx, HashContent([]byte("other"))); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByHash() for unknown hash error = %v, want ErrNotFound", err)
	}
}

func TestFindByVerificationIDCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()

	if _, err := repo.Register(ctx, newDoc(HashContent([]byte("x")), "DOC-ABC123")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	found, err := repo.FindByVerificationID(ctx, "doc-abc123")
	if err != nil {
		t.Fatalf("FindByVerificationID() error = %v", err)
	}
	if found.VerificationID != "DOC-ABC123" {
		t.Errorf("VerificationID = %q, want DOC-ABC123", found.VerificationID)
	}
}

func TestHashContentFormat(t *testing.T) {
	hash := HashContent([]byte("hello"))
	if len(hash) != 66 {
		t.Errorf("hash length = %d, want 66 (0x + 64 hex chars)", len(hash))
	}
	if hash[:2] != "0x" {
		t.Errorf("hash %q missing 0x prefix", hash)
	}
	// SHA-256 of "hello", a fixed vector.
	want := "0x2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if hash != want {
		t.Errorf("HashContent(hello) = %q, want %q", hash, want)
	}
}

func TestNewVerificationIDFormat(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := NewVerificationID()
		if err != nil {
			t.Fatalf("NewVerificationID() error = %v", err)
		}
		if len(id) != 10 || id[:4] != "DOC-" {
			t.Fatalf("NewVerificationID() = %q, want DOC- plus 6 characters", id)
		}
		for _, c := range id[4:] {
			if !((c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
				t.Fatalf("NewVerificationID() = %q contains %q outside [A-Z0-9]", id, c)
			}
		}
		seen[id] = true
	}
	// 100 draws from a ~2 billion space colliding entirely would mean a
	// broken generator.
	if len(seen) < 90 {
		t.Errorf("only %d distinct ids out of 100 draws", len(seen))
	}
}
