package cache

import "context"

// DeliveryDedup remembers which (message id, status) webhook deliveries have
// already been applied, so carrier retries and duplicate callbacks don't
// rewrite ledger rows.
type DeliveryDedup interface {
	Seen(ctx context.Context, messageID, status string) (bool, error)
	Mark(ctx context.Context, messageID, status string) error
}
