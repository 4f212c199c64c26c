package company

import (
	"time"

	clientapp "github.com/erp/bizdesk/internal/application/client"
	"github.com/erp/bizdesk/internal/domain/company"
)

// UpdateSettingsRequest replaces the company profile
type UpdateSettingsRequest struct {
	Name       string               `json:"name" binding:"required,notblank,max=200"`
	TaxID      string               `json:"tax_id" binding:"max=50"`
	Email      string               `json:"email" binding:"omitempty,email,max=200"`
	Phone      string               `json:"phone" binding:"max=50"`
	Website    string               `json:"website" binding:"omitempty,url,max=200"`
	Address    clientapp.AddressDTO `json:"address"`
	FooterNote string               `json:"footer_note" binding:"max=1000"`
}

func (r UpdateSettingsRequest) profile() company.Profile {
	return company.Profile{
		Name:       r.Name,
		TaxID:      r.TaxID,
		Email:      r.Email,
		Phone:      r.Phone,
		Website:    r.Website,
		Address:    r.Address.ToAddress(),
		FooterNote: r.FooterNote,
	}
}

// SettingsResponse represents the company settings in API responses
type SettingsResponse struct {
	Name          string               `json:"name"`
	TaxID         string               `json:"tax_id"`
	Email         string               `json:"email"`
	Phone         string               `json:"phone"`
	Website       string               `json:"website"`
	Address       clientapp.AddressDTO `json:"address"`
	FullAddress   string               `json:"full_address"`
	FooterNote    string               `json:"footer_note"`
	HasLogo       bool                 `json:"has_logo"`
	LogoURL       string               `json:"logo_url,omitempty"`
	LogoExpiresAt *time.Time           `json:"logo_url_expires_at,omitempty"`
	UpdatedAt     time.Time            `json:"updated_at"`
	Version       int                  `json:"version"`
}

// ToSettingsResponse converts the domain settings
func ToSettingsResponse(s *company.Settings) SettingsResponse {
	return SettingsResponse{
		Name:        s.Name,
		TaxID:       s.TaxID,
		Email:       s.Email,
		Phone:       s.Phone,
		Website:     s.Website,
		Address:     clientapp.ToAddressDTO(s.Address),
		FullAddress: s.Address.OneLine(),
		FooterNote:  s.FooterNote,
		HasLogo:     s.HasLogo(),
		UpdatedAt:   s.UpdatedAt,
		Version:     s.Version,
	}
}
