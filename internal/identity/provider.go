// Package identity provides the local addressable identity a session
// binds on the transport. It is injected rather than read from ambient
// storage so the core stays decoupled from any persistence mechanism.
package identity

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/taalhaakaagaan/Lets-Watch/internal/domain"
)

type Provider interface {
	Identity(ctx context.Context) (domain.PeerID, error)
}

// Static always returns the same id. Hosts use it: their identity must
// equal the room's well-known id so viewers can find them.
type Static domain.PeerID

func (s Static) Identity(context.Context) (domain.PeerID, error) {
	return domain.PeerID(s), nil
}

// Store persists one identity between runs. Implementations live with
// whatever storage the embedding app has; the core never sees it.
type Store interface {
	Load() (domain.PeerID, bool)
	Save(domain.PeerID) error
}

// Cached mints a uuid identity once and reuses it via the Store.
type Cached struct {
	store Store

	mu sync.Mutex
	id domain.PeerID
}

func NewCached(store Store) *Cached {
	return &Cached{store: store}
}

func (c *Cached) Identity(context.Context) (domain.PeerID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.id != "" {
		return c.id, nil
	}
	if c.store != nil {
		if id, ok := c.store.Load(); ok && id != "" {
			c.id = id
			return c.id, nil
		}
	}
	c.id = domain.PeerID(uuid.NewString())
	if c.store != nil {
		if err := c.store.Save(c.id); err != nil {
			return "", err
		}
	}
	return c.id, nil
}
