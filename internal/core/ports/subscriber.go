package ports

import (
	"context"

	"github.com/groupbuy/campaign-service/internal/core/domain/campaign"
)

// SubscriberRepository stores notify opt-ins, unique by phone.
type SubscriberRepository interface {
	// Upsert inserts s or, when the phone is known, overwrites name and building.
	Upsert(ctx context.Context, s *campaign.Subscriber) (*campaign.Subscriber, error)
}
