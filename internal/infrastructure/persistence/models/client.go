package models

import "github.com/erp/bizdesk/internal/domain/client"

// ClientModel is the persistence model for the Client aggregate
type ClientModel struct {
	AggregateModel
	Type           client.ClientType `gorm:"type:varchar(20);not null;default:'individual'"`
	Name           string            `gorm:"type:varchar(200);not null;index"`
	DocumentNumber string            `gorm:"type:varchar(30);index"`
	Email          string            `gorm:"type:varchar(200)"`
	Phone          string            `gorm:"type:varchar(50)"`
	ContactName    string            `gorm:"type:varchar(100)"`
	Address        AddressModel      `gorm:"embedded;embeddedPrefix:address_"`
	Notes          string            `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (ClientModel) TableName() string {
	return "clients"
}

// ToDomain converts the persistence model to a domain Client
func (m *ClientModel) ToDomain() *client.Client {
	return &client.Client{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Type:              m.Type,
		Name:              m.Name,
		DocumentNumber:    m.DocumentNumber,
		Email:             m.Email,
		Phone:             m.Phone,
		ContactName:       m.ContactName,
		Address:           m.Address.ToDomain(),
		Notes:             m.Notes,
	}
}

// ClientModelFromDomain creates a persistence model from a domain Client
func ClientModelFromDomain(c *client.Client) *ClientModel {
	m := &ClientModel{
		Type:           c.Type,
		Name:           c.Name,
		DocumentNumber: c.DocumentNumber,
		Email:          c.Email,
		Phone:          c.Phone,
		ContactName:    c.ContactName,
		Address:        AddressModelFromDomain(c.Address),
		Notes:          c.Notes,
	}
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	return m
}
