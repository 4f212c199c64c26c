package company

import (
	"strings"
	"time"

	"github.com/erp/bizdesk/internal/domain/client"
	"github.com/erp/bizdesk/internal/domain/shared"
	"github.com/google/uuid"
)

// SettingsID is the fixed identity of the single settings row
var SettingsID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// AggregateTypeSettings identifies company settings events
const AggregateTypeSettings = "CompanySettings"

// EventTypeSettingsUpdated is published whenever the settings are replaced
const EventTypeSettingsUpdated = "CompanySettingsUpdated"

// Settings describes the business issuing quotes and orders
type Settings struct {
	shared.BaseAggregateRoot
	Name       string
	TaxID      string
	Email      string
	Phone      string
	Website    string
	Address    client.Address
	LogoKey    string
	FooterNote string
}

// Profile holds the editable settings fields
type Profile struct {
	Name       string
	TaxID      string
	Email      string
	Phone      string
	Website    string
	Address    client.Address
	FooterNote string
}

// NewSettings creates the settings record
func NewSettings(p Profile) (*Settings, error) {
	s := &Settings{BaseAggregateRoot: shared.NewBaseAggregateRoot()}
	s.ID = SettingsID
	if err := s.Update(p); err != nil {
		return nil, err
	}
	s.Version = 1
	return s, nil
}

// Update replaces the editable fields
func (s *Settings) Update(p Profile) error {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Company name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Company name cannot exceed 200 characters")
	}

	s.Name = name
	s.TaxID = strings.TrimSpace(p.TaxID)
	s.Email = strings.ToLower(strings.TrimSpace(p.Email))
	s.Phone = strings.TrimSpace(p.Phone)
	s.Website = strings.TrimSpace(p.Website)
	s.Address = p.Address
	s.FooterNote = p.FooterNote
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
	s.AddDomainEvent(newSettingsUpdatedEvent(s))
	return nil
}

// SetLogo records the object storage key of the uploaded logo
func (s *Settings) SetLogo(key string) {
	s.LogoKey = key
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
	s.AddDomainEvent(newSettingsUpdatedEvent(s))
}

// HasLogo reports whether a logo has been uploaded
func (s *Settings) HasLogo() bool {
	return s.LogoKey != ""
}

// SettingsUpdatedEvent is published when any settings field changes
type SettingsUpdatedEvent struct {
	shared.BaseDomainEvent
	Name string `json:"name"`
}

func newSettingsUpdatedEvent(s *Settings) *SettingsUpdatedEvent {
	return &SettingsUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSettingsUpdated, AggregateTypeSettings, s.ID),
		Name:            s.Name,
	}
}
