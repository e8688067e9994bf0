// Package workflow coordinates uploads, lookups, and verification calls
// across the identity, document, organization, and verification stores.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sealdoc/docledger/internal/blob"
	"github.com/sealdoc/docledger/internal/document"
	"github.com/sealdoc/docledger/internal/verification"
)

// Coordinator errors
var (
	ErrOwnerNotRegistered = errors.New("owner is not a registered identity")
	ErrEmptyDocument      = errors.New("document content is empty")
	ErrIDExhausted        = errors.New("could not allocate a unique verification id")
	ErrNotOwner           = errors.New("document does not belong to the requester")
)

// maxIDAttempts bounds verification id regeneration on collision.
const maxIDAttempts = 5

// Coordinator wires the stores together. Documents are sealed before they
// reach the blob store and opened on the way out; the registry only ever
// sees locators and content hashes.
type Coordinator struct {
	identities IdentityReader
	documents  document.Repository
	ledger     *verification.Ledger
	blobs      blob.Store
	sealer     *blob.Sealer
	notifier   Notifier
}

// IdentityReader is the slice of the identity repository the coordinator
// needs.
type IdentityReader interface {
	IsRegistered(ctx context.Context, address string) (bool, error)
}

// NewCoordinator creates a coordinator. notifier may be nil.
func NewCoordinator(identities IdentityReader, documents document.Repository, ledger *verification.Ledger, blobs blob.Store, sealer *blob.Sealer, notifier Notifier) *Coordinator {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Coordinator{
		identities: identities,
		documents:  documents,
		ledger:     ledger,
		blobs:      blobs,
		sealer:     sealer,
		notifier:   notifier,
	}
}

// Upload seals the content, stores it, and registers the document. The blob
// is deleted again if registration fails, so a failed upload leaves no
// orphaned ciphertext behind.
func (c *Coordinator) Upload(ctx context.Context, owner, docType, fileName string, content []byte) (*document.Document, error) {
	registered, err := c.identities.IsRegistered(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("check owner registration: %w", err)
	}
	if !registered {
		return nil, ErrOwnerNotRegistered
	}
	if len(content) == 0 {
		return nil, ErrEmptyDocument
	}

	hash := document.HashContent(content)
	if _, err := c.documents.FindByHash(ctx, hash); err == nil {
		return nil, document.ErrHashCollision
	} else if !errors.Is(err, document.ErrNotFound) {
		return nil, fmt.Errorf("check content hash: %w", err)
	}

	sealed, err := c.sealer.Seal(content)
	if err != nil {
		return nil, fmt.Errorf("seal document: %w", err)
	}

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		verificationID, err := document.NewVerificationID()
		if err != nil {
			return nil, fmt.Errorf("generate verification id: %w", err)
		}
		locator := buildLocator(verificationID, fileName)

		if err := c.blobs.Put(ctx, locator, sealed); err != nil {
			if errors.Is(err, blob.ErrLocatorInUse) {
				continue
			}
			return nil, fmt.Errorf("store sealed document: %w", err)
		}

		created, err := c.documents.Register(ctx, &document.Document{
			Owner:          owner,
			DocType:        docType,
			FileName:       fileName,
			StorageLocator: locator,
			ContentHash:    hash,
			VerificationID: verificationID,
		})
		if err == nil {
			c.notifier.DocumentUploaded(ctx, created)
			return created, nil
		}

		// Registration failed; the sealed payload must not linger.
		if delErr := c.blobs.Delete(ctx, locator); delErr != nil {
			return nil, errors.Join(err, fmt.Errorf("clean up blob %s: %w", locator, delErr))
		}
		if errors.Is(err, document.ErrVerificationIDCollision) {
			continue
		}
		return nil, err
	}
	return nil, ErrIDExhausted
}

// Download returns the decrypted content of one of the requester's
// documents. The locator must belong to a document the requester owns.
func (c *Coordinator) Download(ctx context.Context, requester, locator string) ([]byte, *document.Document, error) {
	docs, err := c.documents.ListByOwner(ctx, requester)
	if err != nil {
		return nil, nil, fmt.Errorf("list documents: %w", err)
	}
	var owned *document.Document
	for _, doc := range docs {
		if doc.StorageLocator == locator {
			owned = doc
			break
		}
	}
	if owned == nil {
		return nil, nil, ErrNotOwner
	}

	sealed, err := c.blobs.Get(ctx, locator)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch sealed document: %w", err)
	}
	content, err := c.sealer.Open(sealed)
	if err != nil {
		return nil, nil, fmt.Errorf("open sealed document: %w", err)
	}
	return content, owned, nil
}

// Documents lists the owner's documents in upload order.
func (c *Coordinator) Documents(ctx context.Context, owner string) ([]*document.Document, error) {
	return c.documents.ListByOwner(ctx, owner)
}

// Request asks an organization to verify a document.
func (c *Coordinator) Request(ctx context.Context, verificationID, requester, targetOrg string) (*verification.Record, error) {
	rec, err := c.ledger.Request(ctx, verificationID, requester, targetOrg)
	if err != nil {
		return nil, err
	}
	c.notifier.VerificationRequested(ctx, rec)
	return rec, nil
}

// Verify records a positive decision by the acting organization.
func (c *Coordinator) Verify(ctx context.Context, verificationID, actingOrg, remarks string) (*verification.Record, error) {
	rec, err := c.ledger.Verify(ctx, verificationID, actingOrg, remarks)
	if err != nil {
		return nil, err
	}
	c.notifier.VerificationDecided(ctx, rec)
	return rec, nil
}

// Reject records a negative decision with a reason.
func (c *Coordinator) Reject(ctx context.Context, verificationID, actingOrg, reason string) (*verification.Record, error) {
	rec, err := c.ledger.Reject(ctx, verificationID, actingOrg, reason)
	if err != nil {
		return nil, err
	}
	c.notifier.VerificationDecided(ctx, rec)
	return rec, nil
}

// VerifyByID looks up a document and its verification record by id.
func (c *Coordinator) VerifyByID(ctx context.Context, verificationID string) (*document.Document, *verification.Record, error) {
	doc, err := c.documents.FindByVerificationID(ctx, verificationID)
	if err != nil {
		return nil, nil, err
	}
	rec, err := c.ledger.Status(ctx, doc.VerificationID)
	if err != nil {
		return nil, nil, err
	}
	return doc, rec, nil
}

// VerifyByHash looks up a document and its verification record by content
// hash.
func (c *Coordinator) VerifyByHash(ctx context.Context, hash string) (*document.Document, *verification.Record, error) {
	doc, err := c.documents.FindByHash(ctx, hash)
	if err != nil {
		return nil, nil, err
	}
	rec, err := c.ledger.Status(ctx, doc.VerificationID)
	if err != nil {
		return nil, nil, err
	}
	return doc, rec, nil
}

// VerifyFile hashes uploaded content and performs the same lookup as
// VerifyByHash.
func (c *Coordinator) VerifyFile(ctx context.Context, content []byte) (*document.Document, *verification.Record, error) {
	if len(content) == 0 {
		return nil, nil, ErrEmptyDocument
	}
	return c.VerifyByHash(ctx, document.HashContent(content))
}

// Status reports the verification state for an id. Every internal failure
// maps to NONE: this read backs the public trust check and must not leak
// errors.
func (c *Coordinator) Status(ctx context.Context, verificationID string) *verification.Record {
	rec, err := c.ledger.Status(ctx, verificationID)
	if err != nil {
		return &verification.Record{
			VerificationID: strings.ToUpper(verificationID),
			Status:         verification.StatusNone,
		}
	}
	return rec
}

// AuditTrail returns the decision trail for a verification id.
func (c *Coordinator) AuditTrail(ctx context.Context, verificationID string) ([]*verification.AuditEntry, error) {
	return c.ledger.AuditTrail(ctx, verificationID)
}

// Pending returns an organization's queue of pending verifications.
func (c *Coordinator) Pending(ctx context.Context, orgAddress string) ([]*verification.Record, error) {
	return c.ledger.Pending(ctx, orgAddress)
}

// buildLocator derives the blob key from the verification id and the
// sanitized upload file name.
func buildLocator(verificationID, fileName string) string {
	base := sanitizeFileName(filepath.Base(fileName))
	if base == "" {
		base = "document"
	}
	return fmt.Sprintf("documents/%s_%s.enc", verificationID, base)
}

// sanitizeFileName keeps alphanumerics, dots, hyphens, and underscores.
func sanitizeFileName(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), ".")
}
