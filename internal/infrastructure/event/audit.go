package event

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/vendorsync/backend/internal/domain/shared"
	"github.com/vendorsync/backend/internal/domain/vendor"
)

// AuditLogHandler writes vendor audit events to the structured log. Vault
// events carry field names only, so the log never sees credential values.
type AuditLogHandler struct {
	log *zap.Logger
}

// NewAuditLogHandler creates an audit log handler
func NewAuditLogHandler(log *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{log: log.Named("audit")}
}

var _ shared.EventHandler = (*AuditLogHandler)(nil)

// EventTypes returns the audited event types
func (h *AuditLogHandler) EventTypes() []string {
	return []string{
		vendor.EventTypeVaultAccessed,
		vendor.EventTypePriorityInvalidated,
	}
}

// Handle logs the event as one structured entry
func (h *AuditLogHandler) Handle(_ context.Context, ev shared.DomainEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	h.log.Info("audit event",
		zap.String("event_type", ev.EventType()),
		zap.String("event_id", ev.EventID().String()),
		zap.Time("occurred_at", ev.OccurredAt()),
		zap.ByteString("payload", payload),
	)
	return nil
}
