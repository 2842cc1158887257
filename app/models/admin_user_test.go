package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminUserPasswordRoundtrip(t *testing.T) {
	admin := &AdminUser{Name: "Operateur", Email: "ops@example.org"}
	require.NoError(t, admin.SetPassword("tres-secret"))

	// Only the bcrypt hash is stored.
	assert.NotEqual(t, "tres-secret", admin.Password)
	assert.True(t, admin.CheckPassword("tres-secret"))
	assert.False(t, admin.CheckPassword("autre-chose"))

	require.NoError(t, admin.Validate())
}

func TestAdminUserValidateRejectsShortPassword(t *testing.T) {
	admin := &AdminUser{Name: "Operateur", Email: "ops@example.org", Password: "court"}
	assert.Error(t, admin.Validate())
}
