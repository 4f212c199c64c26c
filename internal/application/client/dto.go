package client

import (
	"time"

	"github.com/erp/bizdesk/internal/domain/client"
	"github.com/google/uuid"
)

// AddressDTO is the postal address of a client or of the company
type AddressDTO struct {
	Street     string `json:"street" binding:"max=200"`
	Number     string `json:"number" binding:"max=20"`
	Complement string `json:"complement" binding:"max=100"`
	District   string `json:"district" binding:"max=100"`
	City       string `json:"city" binding:"max=100"`
	State      string `json:"state" binding:"max=100"`
	PostalCode string `json:"postal_code" binding:"max=20"`
	Country    string `json:"country" binding:"max=100"`
}

// ToAddress converts the DTO into the domain address
func (a AddressDTO) ToAddress() client.Address {
	return client.Address{
		Street:     a.Street,
		Number:     a.Number,
		Complement: a.Complement,
		District:   a.District,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

// ToAddressDTO converts a domain address
func ToAddressDTO(a client.Address) AddressDTO {
	return AddressDTO{
		Street:     a.Street,
		Number:     a.Number,
		Complement: a.Complement,
		District:   a.District,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

// CreateClientRequest represents a request to register a client
type CreateClientRequest struct {
	Type           string     `json:"type" binding:"required,oneof=individual organization"`
	Name           string     `json:"name" binding:"required,notblank,max=200"`
	DocumentNumber string     `json:"document_number" binding:"max=50"`
	Email          string     `json:"email" binding:"omitempty,email,max=200"`
	Phone          string     `json:"phone" binding:"max=50"`
	ContactName    string     `json:"contact_name" binding:"max=100"`
	Address        AddressDTO `json:"address"`
	Notes          string     `json:"notes"`
}

// UpdateClientRequest represents a partial update of a client.
// Nil fields keep their current value.
type UpdateClientRequest struct {
	Type           *string     `json:"type" binding:"omitempty,oneof=individual organization"`
	Name           *string     `json:"name" binding:"omitempty,min=1,max=200"`
	DocumentNumber *string     `json:"document_number" binding:"omitempty,max=50"`
	Email          *string     `json:"email" binding:"omitempty,email,max=200"`
	Phone          *string     `json:"phone" binding:"omitempty,max=50"`
	ContactName    *string     `json:"contact_name" binding:"omitempty,max=100"`
	Address        *AddressDTO `json:"address"`
	Notes          *string     `json:"notes"`
}

// ClientListFilter represents filter options for the client list
type ClientListFilter struct {
	Search   string `form:"search"`
	Type     string `form:"type" binding:"omitempty,oneof=individual organization"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ClientResponse represents a client in API responses
type ClientResponse struct {
	ID             uuid.UUID  `json:"id"`
	Type           string     `json:"type"`
	Name           string     `json:"name"`
	DocumentNumber string     `json:"document_number"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone"`
	ContactName    string     `json:"contact_name"`
	Address        AddressDTO `json:"address"`
	FullAddress    string     `json:"full_address"`
	Notes          string     `json:"notes"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	Version        int        `json:"version"`
}

// ToClientResponse converts a domain Client to ClientResponse
func ToClientResponse(c *client.Client) ClientResponse {
	return ClientResponse{
		ID:             c.ID,
		Type:           string(c.Type),
		Name:           c.Name,
		DocumentNumber: c.DocumentNumber,
		Email:          c.Email,
		Phone:          c.Phone,
		ContactName:    c.ContactName,
		Address:        ToAddressDTO(c.Address),
		FullAddress:    c.Address.OneLine(),
		Notes:          c.Notes,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
		Version:        c.Version,
	}
}

// ToClientResponses converts a slice of clients
func ToClientResponses(clients []*client.Client) []ClientResponse {
	out := make([]ClientResponse, len(clients))
	for i, c := range clients {
		out[i] = ToClientResponse(c)
	}
	return out
}

func (r CreateClientRequest) details() client.Details {
	return client.Details{
		Type:           client.ClientType(r.Type),
		Name:           r.Name,
		DocumentNumber: r.DocumentNumber,
		Email:          r.Email,
		Phone:          r.Phone,
		ContactName:    r.ContactName,
		Address:        r.Address.ToAddress(),
		Notes:          r.Notes,
	}
}

// apply overlays the non-nil fields of the request on d
func (r UpdateClientRequest) apply(d client.Details) client.Details {
	if r.Type != nil {
		d.Type = client.ClientType(*r.Type)
	}
	if r.Name != nil {
		d.Name = *r.Name
	}
	if r.DocumentNumber != nil {
		d.DocumentNumber = *r.DocumentNumber
	}
	if r.Email != nil {
		d.Email = *r.Email
	}
	if r.Phone != nil {
		d.Phone = *r.Phone
	}
	if r.ContactName != nil {
		d.ContactName = *r.ContactName
	}
	if r.Address != nil {
		d.Address = r.Address.ToAddress()
	}
	if r.Notes != nil {
		d.Notes = *r.Notes
	}
	return d
}
