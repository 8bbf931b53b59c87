package dreamlog

import (
	"context"

	"github.com/google/uuid"
)

// NoopEventSink is a no-operation implementation of EventSink
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

func (n *NoopEventSink) UserRegistered(ctx context.Context, user *User) error { return nil }

func (n *NoopEventSink) DreamCreated(ctx context.Context, dream *Dream) error { return nil }

func (n *NoopEventSink) DreamUpdated(ctx context.Context, dream *Dream) error { return nil }

func (n *NoopEventSink) DreamDeleted(ctx context.Context, dreamID uuid.UUID) error { return nil }

// ProvisioningEventSink ensures the storage container exists when a user
// registers. It replaces the hidden on-user-created signal with an explicit
// sink registration.
type ProvisioningEventSink struct {
	NoopEventSink
	store BlobStore
}

// NewProvisioningEventSink creates a sink that provisions storage on
// registration.
func NewProvisioningEventSink(store BlobStore) EventSink {
	return &ProvisioningEventSink{store: store}
}

func (p *ProvisioningEventSink) UserRegistered(ctx context.Context, user *User) error {
	return p.store.EnsureBucketExists(ctx)
}
