package campaign

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrCampaignNotFound is returned when a campaign id does not resolve to a stored campaign.
	ErrCampaignNotFound = errors.New("campaign not found")
	// ErrBuildingNotFound is returned when no stored building has the requested name.
	ErrBuildingNotFound = errors.New("building not found")
	// ErrUnknownBuilding is returned for a building name outside the catalog.
	ErrUnknownBuilding = errors.New("unknown building")
	// ErrUnknownService is returned for a service type outside the catalog.
	ErrUnknownService = errors.New("unknown service type")
	// ErrStoreUnavailable wraps transient persistence faults.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrDuplicateSubmission marks a replayed order; the original result is returned alongside it.
	ErrDuplicateSubmission = errors.New("duplicate submission")
)

type Building struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Address   string    `json:"address" db:"address"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Campaign is the counter aggregate for one (building, service) pair.
// CurrentOrders only ever grows and is not clamped at MinOrders.
type Campaign struct {
	ID            string    `json:"id" db:"id"`
	Service       string    `json:"service" db:"service"`
	MinOrders     int       `json:"min_orders" db:"min_orders"`
	CurrentOrders int64     `json:"current_orders" db:"current_orders"`
	BuildingID    uuid.UUID `json:"building_id" db:"building_id"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Progress returns CurrentOrders as a percentage of MinOrders. Values above 100 are valid.
func (c *Campaign) Progress() int {
	if c.MinOrders <= 0 {
		return 0
	}
	return int(c.CurrentOrders * 100 / int64(c.MinOrders))
}

// Reached reports whether the campaign met its minimum order threshold.
func (c *Campaign) Reached() bool {
	return c.MinOrders > 0 && c.CurrentOrders >= int64(c.MinOrders)
}

// Order is immutable once stored.
type Order struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Phone       string    `json:"phone" db:"phone"`
	ServiceType string    `json:"service_type" db:"service_type"`
	Unit        *string   `json:"unit,omitempty" db:"unit"`
	Consent     bool      `json:"consent" db:"consent"`
	CampaignID  string    `json:"campaign_id" db:"campaign_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// OrderFields are the client-supplied parts of an order.
type OrderFields struct {
	Name    string
	Phone   string
	Unit    string
	Consent bool
	// IdempotencyKey, when set, makes the order id deterministic so a retry cannot count twice.
	IdempotencyKey string
}

// orderNamespace scopes UUIDv5 order ids derived from idempotency keys.
var orderNamespace = uuid.MustParse("6f1d3c52-8e0b-4a7e-9b64-3f5a3c0d2e91")

// NewOrder builds the Order record for campaign c at time now.
func NewOrder(c *Campaign, f OrderFields, now time.Time) *Order {
	id := uuid.New()
	if f.IdempotencyKey != "" {
		id = uuid.NewSHA1(orderNamespace, []byte(c.ID+"|"+f.IdempotencyKey))
	}
	o := &Order{
		ID:          id,
		Name:        f.Name,
		Phone:       f.Phone,
		ServiceType: c.Service,
		Consent:     f.Consent,
		CampaignID:  c.ID,
		CreatedAt:   now.UTC(),
	}
	if f.Unit != "" {
		unit := f.Unit
		o.Unit = &unit
	}
	return o
}

// OrderResult is what recording an order yields: the stored order and the campaign counter after it.
type OrderResult struct {
	Order    *Order    `json:"order"`
	Campaign *Campaign `json:"campaign"`
	NewCount int64     `json:"new_count"`
}

// Subscriber is a notify opt-in, unique by phone.
type Subscriber struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      *string   `json:"name,omitempty" db:"name"`
	Phone     string    `json:"phone" db:"phone"`
	Building  *string   `json:"building,omitempty" db:"building"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
