package workflow

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sealdoc/docledger/internal/blob"
	"github.com/sealdoc/docledger/internal/document"
	"github.com/sealdoc/docledger/internal/identity"
	"github.com/sealdoc/docledger/internal/org"
	"github.com/sealdoc/docledger/internal/verification"
)

const (
	ownerAddr = "0x71C7656EC7ab88b098defB751B7401B5f6d8976F"
	orgAddr   = "0x8ba1f109551bD432803012645Ac136ddd64DBA72"
)

type testEnv struct {
	coordinator *Coordinator
	identities  *identity.InMemoryRepository
	documents   *document.InMemoryRepository
	directory   *org.InMemoryDirectory
	blobs       *blob.InMemoryStore
	sealer      *blob.Sealer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	env := &testEnv{
		identities: identity.NewInMemoryRepository(),
		documents:  document.NewInMemoryRepository(),
		directory:  org.NewInMemoryDirectory(),
		blobs:      blob.NewInMemoryStore(),
	}
	sealer, err := blob.NewSealer("workflow-test-secret")
	if err != nil {
		t.Fatalf("NewSealer() error = %v", err)
	}
	env.sealer = sealer

	ledger := verification.NewLedger(
		verification.NewInMemoryRepository(), env.documents, env.directory, nil)
	env.coordinator = NewCoordinator(env.identities, env.documents, ledger, env.blobs, sealer, nil)

	if err := env.identities.Register(ctx, &identity.Identity{Address: ownerAddr, Username: "alice", Active: true}); err != nil {
		t.Fatalf("register identity: %v", err)
	}
	if _, err := env.directory.Register(ctx, "ACEM", orgAddr); err != nil {
		t.Fatalf("register org: %v", err)
	}
	return env
}

func TestUploadRegistersAndSeals(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	content := []byte("passport scan bytes")
	doc, err := env.coordinator.Upload(ctx, ownerAddr, "Personal ID", "passport.pdf", content)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if doc.ID != 1 {
		t.Errorf("ID = %d, want 1", doc.ID)
	}
	if doc.ContentHash != document.HashContent(content) {
		t.Errorf("ContentHash = %s, want hash of content", doc.ContentHash)
	}
	if !strings.HasPrefix(doc.StorageLocator, "documents/"+doc.VerificationID+"_") {
		t.Errorf("StorageLocator = %s, want documents/{id}_ prefix", doc.StorageLocator)
	}

	// The blob store holds ciphertext, not the raw content.
	sealed, err := env.blobs.Get(ctx, doc.StorageLocator)
	if err != nil {
		t.Fatalf("blob Get() error = %v", err)
	}
	if bytes.Contains(sealed, content) {
		t.Error("blob store holds the plaintext")
	}
	opened, err := env.sealer.Open(sealed)
	if err != nil || !bytes.Equal(opened, content) {
		t.Errorf("stored blob does not decrypt to the upload (err = %v)", err)
	}
}

func TestUploadRejectsUnregisteredOwner(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	stranger := "0x0000000000000000000000000000000000000001"
	if _, err := env.coordinator.Upload(ctx, stranger, "Personal ID", "a.pdf", []byte("x")); !errors.Is(err, ErrOwnerNotRegistered) {
		t.Errorf("Upload() error = %v, want ErrOwnerNotRegistered", err)
	}
}

func TestUploadRejectsDuplicateContent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	content := []byte("the very same bytes")
	if _, err := env.coordinator.Upload(ctx, ownerAddr, "Certificate", "a.pdf", content); err != nil {
		t.Fatalf("first Upload() error = %v", err)
	}
	if _, err := env.coordinator.Upload(ctx, ownerAddr, "Certificate", "b.pdf", content); !errors.Is(err, document.ErrHashCollision) {
		t.Errorf("second Upload() error = %v, want ErrHashCollision", err)
	}
}

func TestUploadRejectsEmptyContent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	if _, err := env.coordinator.Upload(ctx, ownerAddr, "Certificate", "a.pdf", nil); !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("Upload() error = %v, want ErrEmptyDocument", err)
	}
}

func TestDownloadRoundTrip(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	content := []byte("degree certificate bytes")
	doc, err := env.coordinator.Upload(ctx, ownerAddr, "Certificate", "degree.pdf", content)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	got, gotDoc, err := env.coordinator.Download(ctx, ownerAddr, doc.StorageLocator)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Error("Download() did not return the original content")
	}
	if gotDoc.VerificationID != doc.VerificationID {
		t.Errorf("Download() document = %s, want %s", gotDoc.VerificationID, doc.VerificationID)
	}

	// Someone else's locator is refused.
	other := "0x0000000000000000000000000000000000000002"
	if err := env.identities.Register(ctx, &identity.Identity{Address: other, Username: "mallory"}); err != nil {
		t.Fatalf("register identity: %v", err)
	}
	if _, _, err := env.coordinator.Download(ctx, other, doc.StorageLocator); !errors.Is(err, ErrNotOwner) {
		t.Errorf("Download() by non-owner error = %v, want ErrNotOwner", err)
	}
}

func TestPublicLookups(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	content := []byte("notarized deed bytes")
	doc, err := env.coordinator.Upload(ctx, ownerAddr, "Deed", "deed.pdf", content)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	byID, rec, err := env.coordinator.VerifyByID(ctx, doc.VerificationID)
	if err != nil {
		t.Fatalf("VerifyByID() error = %v", err)
	}
	if byID.ContentHash != doc.ContentHash || rec.Status != verification.StatusNone {
		t.Errorf("VerifyByID() = %s / %v, want %s / NONE", byID.ContentHash, rec.Status, doc.ContentHash)
	}

	byHash, _, err := env.coordinator.VerifyByHash(ctx, doc.ContentHash)
	if err != nil {
		t.Fatalf("VerifyByHash() error = %v", err)
	}
	if byHash.VerificationID != doc.VerificationID {
		t.Errorf("VerifyByHash() = %s, want %s", byHash.VerificationID, doc.VerificationID)
	}

	byFile, _, err := env.coordinator.VerifyFile(ctx, content)
	if err != nil {
		t.Fatalf("VerifyFile() error = %v", err)
	}
	if byFile.VerificationID != doc.VerificationID {
		t.Errorf("VerifyFile() = %s, want %s", byFile.VerificationID, doc.VerificationID)
	}

	if _, _, err := env.coordinator.VerifyFile(ctx, []byte("unknown bytes")); !errors.Is(err, document.ErrNotFound) {
		t.Errorf("VerifyFile() with unknown content error = %v, want ErrNotFound", err)
	}
}

func TestEndToEndVerification(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	doc, err := env.coordinator.Upload(ctx, ownerAddr, "Personal ID", "passport.pdf", []byte("scan"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	rec, err := env.coordinator.Request(ctx, doc.VerificationID, ownerAddr, orgAddr)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if rec.Status != verification.StatusPending {
		t.Errorf("Status = %v, want PENDING", rec.Status)
	}

	pending, err := env.coordinator.Pending(ctx, orgAddr)
	if err != nil || len(pending) != 1 {
		t.Fatalf("Pending() = %d records (err = %v), want 1", len(pending), err)
	}

	rec, err = env.coordinator.Verify(ctx, doc.VerificationID, orgAddr, "checked against source")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if rec.Status != verification.StatusVerified {
		t.Errorf("Status = %v, want VERIFIED", rec.Status)
	}

	trail, err := env.coordinator.AuditTrail(ctx, doc.VerificationID)
	if err != nil || len(trail) != 1 {
		t.Fatalf("AuditTrail() = %d entries (err = %v), want 1", len(trail), err)
	}
}

func TestStatusSwallowsFailures(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	rec := env.coordinator.Status(ctx, "doc-unseen")
	if rec.Status != verification.StatusNone {
		t.Errorf("Status = %v for unknown id, want NONE", rec.Status)
	}
	if rec.VerificationID != "DOC-UNSEEN" {
		t.Errorf("VerificationID = %s, want normalized DOC-UNSEEN", rec.VerificationID)
	}
}

func TestBuildLocatorSanitizesFileName(t *testing.T) {
	cases := []struct {
		fileName string
		want     string
	}{
		{"passport.pdf", "documents/DOC-AAAAAA_passport.pdf.enc"},
		{"../../etc/passwd", "documents/DOC-AAAAAA_passwd.enc"},
		{"weird name!?.pdf", "documents/DOC-AAAAAA_weirdname.pdf.enc"},
		{"", "documents/DOC-AAAAAA_document.enc"},
	}
	for _, tc := range cases {
		if got := buildLocator("DOC-AAAAAA", tc.fileName); got != tc.want {
			t.Errorf("buildLocator(%q) = %s, want %s", tc.fileName, got, tc.want)
		}
	}
}
