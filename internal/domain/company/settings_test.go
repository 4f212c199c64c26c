package company

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSettings(t *testing.T) {
	s, err := NewSettings(Profile{Name: " Bizdesk Services ", Email: "Office@Example.com"})
	require.NoError(t, err)

	assert.Equal(t, SettingsID, s.ID)
	assert.Equal(t, "Bizdesk Services", s.Name)
	assert.Equal(t, "office@example.com", s.Email)
	assert.Equal(t, 1, s.Version)
	assert.False(t, s.HasLogo())

	_, err = NewSettings(Profile{})
	require.Error(t, err)
}

func TestSettings_SetLogo(t *testing.T) {
	s, err := NewSettings(Profile{Name: "Bizdesk"})
	require.NoError(t, err)
	s.ClearDomainEvents()

	s.SetLogo("company/logo.png")
	assert.True(t, s.HasLogo())
	assert.Equal(t, 2, s.Version)
	require.Len(t, s.GetDomainEvents(), 1)
	assert.Equal(t, EventTypeSettingsUpdated, s.GetDomainEvents()[0].EventType())
}
