package urconf

import (
	"context"

	"github.com/knyar/urconf/pkg/types"
)

// Provider is the provider API boundary the reconciler depends on. The
// semantics matter here, not the transport: list calls return every existing
// entity with server-side ids populated, create calls return the new id.
// pkg/uptimerobot implements this against the Uptime Robot v2 API.
type Provider interface {
	ListContacts(ctx context.Context) ([]*types.Contact, error)
	ListMonitors(ctx context.Context) ([]*types.Monitor, error)
	CreateContact(ctx context.Context, c *types.Contact) (string, error)
	DeleteContact(ctx context.Context, id string) error
	CreateMonitor(ctx context.Context, m *types.Monitor) (string, error)
	UpdateMonitor(ctx context.Context, id string, m *types.Monitor) error
	DeleteMonitor(ctx context.Context, id string) error
}
