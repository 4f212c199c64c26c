package client

import (
	"github.com/erp/bizdesk/internal/domain/shared"
	"github.com/google/uuid"
)

// AggregateTypeClient identifies client events
const AggregateTypeClient = "Client"

// Event type constants
const (
	EventTypeClientCreated = "ClientCreated"
	EventTypeClientUpdated = "ClientUpdated"
	EventTypeClientDeleted = "ClientDeleted"
)

// ClientCreatedEvent is published when a new client is registered
type ClientCreatedEvent struct {
	shared.BaseDomainEvent
	ClientID uuid.UUID  `json:"client_id"`
	Name     string     `json:"name"`
	Type     ClientType `json:"type"`
}

// NewClientCreatedEvent creates a new ClientCreatedEvent
func NewClientCreatedEvent(c *Client) *ClientCreatedEvent {
	return &ClientCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeClientCreated, AggregateTypeClient, c.ID),
		ClientID:        c.ID,
		Name:            c.Name,
		Type:            c.Type,
	}
}

// ClientUpdatedEvent is published when a client's details change
type ClientUpdatedEvent struct {
	shared.BaseDomainEvent
	ClientID uuid.UUID `json:"client_id"`
	Name     string    `json:"name"`
}

// NewClientUpdatedEvent creates a new ClientUpdatedEvent
func NewClientUpdatedEvent(c *Client) *ClientUpdatedEvent {
	return &ClientUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeClientUpdated, AggregateTypeClient, c.ID),
		ClientID:        c.ID,
		Name:            c.Name,
	}
}

// ClientDeletedEvent is published when a client is removed
type ClientDeletedEvent struct {
	shared.BaseDomainEvent
	ClientID uuid.UUID `json:"client_id"`
}

// NewClientDeletedEvent creates a new ClientDeletedEvent
func NewClientDeletedEvent(c *Client) *ClientDeletedEvent {
	return &ClientDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeClientDeleted, AggregateTypeClient, c.ID),
		ClientID:        c.ID,
	}
}
