package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Integration Entity
// ---------------------------------------------------------------------------

// Integration holds the credentials for one external platform account.
// The sync engine reads these; provisioning them is someone else's job.
type Integration struct {
	// ID is the unique identifier of this integration
	ID uuid.UUID
	// Name is the operator-facing label
	Name string
	// ShopURL is the platform shop domain, e.g. "acme.myshopify.com"
	ShopURL string
	// AccessToken authenticates API calls
	AccessToken string
	// WebhookSecret is the shared secret for webhook HMAC verification
	WebhookSecret string
	// Active gates whether syncs may run for this integration
	Active bool
	// CreatedAt is when the integration was registered
	CreatedAt time.Time
	// UpdatedAt is when the integration was last updated
	UpdatedAt time.Time
}

// Validate checks the integration is usable for API calls
func (i *Integration) Validate() error {
	if i.ID == uuid.Nil {
		return ErrInvalidIntegrationID
	}
	if i.ShopURL == "" || i.AccessToken == "" {
		return ErrIntegrationInactive
	}
	if !i.Active {
		return ErrIntegrationInactive
	}
	return nil
}

// IntegrationReader provides read-only access to integration credentials
type IntegrationReader interface {
	// FindByID finds an integration by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Integration, error)

	// FindByShopURL finds an integration by its shop domain
	FindByShopURL(ctx context.Context, shopURL string) (*Integration, error)
}
