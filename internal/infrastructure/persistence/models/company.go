package models

import "github.com/erp/bizdesk/internal/domain/company"

// CompanySettingsModel is the persistence model of the single settings row
type CompanySettingsModel struct {
	AggregateModel
	Name       string       `gorm:"type:varchar(200);not null"`
	TaxID      string       `gorm:"type:varchar(30)"`
	Email      string       `gorm:"type:varchar(200)"`
	Phone      string       `gorm:"type:varchar(50)"`
	Website    string       `gorm:"type:varchar(200)"`
	Address    AddressModel `gorm:"embedded;embeddedPrefix:address_"`
	LogoKey    string       `gorm:"type:varchar(500)"`
	FooterNote string       `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (CompanySettingsModel) TableName() string {
	return "company_settings"
}

// ToDomain converts the persistence model to domain Settings
func (m *CompanySettingsModel) ToDomain() *company.Settings {
	return &company.Settings{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Name:              m.Name,
		TaxID:             m.TaxID,
		Email:             m.Email,
		Phone:             m.Phone,
		Website:           m.Website,
		Address:           m.Address.ToDomain(),
		LogoKey:           m.LogoKey,
		FooterNote:        m.FooterNote,
	}
}

// CompanySettingsModelFromDomain creates a persistence model from domain Settings
func CompanySettingsModelFromDomain(s *company.Settings) *CompanySettingsModel {
	m := &CompanySettingsModel{
		Name:       s.Name,
		TaxID:      s.TaxID,
		Email:      s.Email,
		Phone:      s.Phone,
		Website:    s.Website,
		Address:    AddressModelFromDomain(s.Address),
		LogoKey:    s.LogoKey,
		FooterNote: s.FooterNote,
	}
	m.FromDomainAggregateRoot(s.BaseAggregateRoot)
	return m
}
