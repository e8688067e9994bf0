package workflow

import (
	"context"
	"log/slog"

	"github.com/sealdoc/docledger/internal/document"
	"github.com/sealdoc/docledger/internal/verification"
)

// Notifier receives workflow events. Implementations must not block; the
// coordinator calls them inline on the request path.
type Notifier interface {
	DocumentUploaded(ctx context.Context, doc *document.Document)
	VerificationRequested(ctx context.Context, rec *verification.Record)
	VerificationDecided(ctx context.Context, rec *verification.Record)
}

// LogNotifier writes workflow events to the structured log. It stands in for
// outbound channels (email, webhooks) that are out of scope.
type LogNotifier struct{}

func (LogNotifier) DocumentUploaded(ctx context.Context, doc *document.Document) {
	slog.InfoContext(ctx, "document uploaded",
		"verification_id", doc.VerificationID, "owner", doc.Owner, "doc_type", doc.DocType)
}

func (LogNotifier) VerificationRequested(ctx context.Context, rec *verification.Record) {
	slog.InfoContext(ctx, "verification requested",
		"verification_id", rec.VerificationID, "target_org", rec.VerifierOrg)
}

func (LogNotifier) VerificationDecided(ctx context.Context, rec *verification.Record) {
	slog.InfoContext(ctx, "verification decided",
		"verification_id", rec.VerificationID, "status", rec.Status.String(), "org", rec.VerifierOrg)
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) DocumentUploaded(context.Context, *document.Document)            {}
func (NopNotifier) VerificationRequested(context.Context, *verification.Record)     {}
func (NopNotifier) VerificationDecided(context.Context, *verification.Record)       {}
