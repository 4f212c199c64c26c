package client

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/erp/bizdesk/internal/domain/shared"
)

// ClientType distinguishes people from companies
type ClientType string

const (
	ClientTypeIndividual   ClientType = "individual"
	ClientTypeOrganization ClientType = "organization"
)

// IsValid reports whether the type is a known client type
func (t ClientType) IsValid() bool {
	return t == ClientTypeIndividual || t == ClientTypeOrganization
}

// Address is the postal address of a client
type Address struct {
	Street     string
	Number     string
	Complement string
	District   string
	City       string
	State      string
	PostalCode string
	Country    string
}

// OneLine renders the address on a single line, skipping empty parts
func (a Address) OneLine() string {
	street := strings.TrimSpace(strings.Join(nonEmpty(a.Street, a.Number), ", "))
	parts := nonEmpty(street, a.Complement, a.District, a.City, a.State, a.PostalCode, a.Country)
	return strings.Join(parts, ", ")
}

// Details holds the editable attributes of a client
type Details struct {
	Type           ClientType
	Name           string
	DocumentNumber string
	Email          string
	Phone          string
	ContactName    string
	Address        Address
	Notes          string
}

// Client is the aggregate root of the client registry
type Client struct {
	shared.BaseAggregateRoot
	Type           ClientType
	Name           string
	DocumentNumber string
	Email          string
	Phone          string
	ContactName    string
	Address        Address
	Notes          string
}

// NewClient creates a client from validated details
func NewClient(d Details) (*Client, error) {
	if err := validateDetails(d); err != nil {
		return nil, err
	}

	c := &Client{BaseAggregateRoot: shared.NewBaseAggregateRoot()}
	c.apply(d)
	c.AddDomainEvent(NewClientCreatedEvent(c))
	return c, nil
}

// Update replaces the client's editable attributes
func (c *Client) Update(d Details) error {
	if err := validateDetails(d); err != nil {
		return err
	}

	c.apply(d)
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
	c.AddDomainEvent(NewClientUpdatedEvent(c))
	return nil
}

// MarkDeleted records the deletion event; the repository removes the row
func (c *Client) MarkDeleted() {
	c.AddDomainEvent(NewClientDeletedEvent(c))
}

// IsOrganization reports whether the client is a company
func (c *Client) IsOrganization() bool {
	return c.Type == ClientTypeOrganization
}

// Details returns the editable attributes of the client
func (c *Client) Details() Details {
	return Details{
		Type:           c.Type,
		Name:           c.Name,
		DocumentNumber: c.DocumentNumber,
		Email:          c.Email,
		Phone:          c.Phone,
		ContactName:    c.ContactName,
		Address:        c.Address,
		Notes:          c.Notes,
	}
}

func (c *Client) apply(d Details) {
	c.Type = d.Type
	c.Name = strings.TrimSpace(d.Name)
	c.DocumentNumber = NormalizeDocumentNumber(d.DocumentNumber)
	c.Email = strings.ToLower(strings.TrimSpace(d.Email))
	c.Phone = strings.TrimSpace(d.Phone)
	c.ContactName = strings.TrimSpace(d.ContactName)
	c.Address = d.Address
	c.Notes = d.Notes
}

// NormalizeDocumentNumber strips punctuation so formatted and bare numbers compare equal
func NormalizeDocumentNumber(doc string) string {
	var b strings.Builder
	for _, r := range doc {
		if (r >= '0' && r <= '9') || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
			b.WriteRune(r)
		}
	}
	return strings.ToUpper(b.String())
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func validateDetails(d Details) error {
	if !d.Type.IsValid() {
		return shared.NewDomainError("INVALID_CLIENT_TYPE", "Client type must be individual or organization")
	}
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Client name cannot be empty")
	}
	if utf8.RuneCountInString(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Client name cannot exceed 200 characters")
	}
	if len(NormalizeDocumentNumber(d.DocumentNumber)) > 32 {
		return shared.NewDomainError("INVALID_DOCUMENT_NUMBER", "Document number cannot exceed 32 characters")
	}
	if email := strings.TrimSpace(d.Email); email != "" && !emailPattern.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return nil
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
