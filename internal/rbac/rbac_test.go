package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/authsession/internal/model"
)

func TestRequire(t *testing.T) {
	tests := []struct {
		name     string
		required model.Role
		caller   model.Role
		wantErr  bool
	}{
		{name: "user below admin", required: model.RoleAdmin, caller: model.RoleUser, wantErr: true},
		{name: "admin above guest", required: model.RoleGuest, caller: model.RoleAdmin},
		{name: "same role", required: model.RoleAnalyst, caller: model.RoleAnalyst},
		{name: "moderator above analyst", required: model.RoleAnalyst, caller: model.RoleModerator},
		{name: "readonly below user", required: model.RoleUser, caller: model.RoleReadOnly, wantErr: true},
		{name: "unknown caller", required: model.RoleGuest, caller: model.Role("root"), wantErr: true},
		{name: "empty caller", required: model.RoleGuest, caller: "", wantErr: true},
		{name: "unknown required", required: model.Role("superuser"), caller: model.RoleAdmin, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Require(tt.required, tt.caller)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, model.ErrInsufficientRole)
			require.ErrorIs(t, err, model.ErrAuthorization)
		})
	}
}

func TestRequire_ReasonNamesBothRoles(t *testing.T) {
	err := Require(model.RoleAdmin, model.RoleUser)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"user"`)
	assert.Contains(t, err.Error(), `"admin"`)
}

func TestRank_Ordering(t *testing.T) {
	ordered := []model.Role{
		model.RoleGuest,
		model.RoleReadOnly,
		model.RoleUser,
		model.RoleAnalyst,
		model.RoleModerator,
		model.RoleAdmin,
	}
	for i := 1; i < len(ordered); i++ {
		assert.Less(t, Rank(ordered[i-1]), Rank(ordered[i]), "%s < %s", ordered[i-1], ordered[i])
	}
	assert.Equal(t, Unranked, Rank("nobody"))
	assert.Less(t, Rank("nobody"), Rank(model.RoleGuest))
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" Admin ")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, role)

	_, err = ParseRole("owner")
	require.ErrorIs(t, err, model.ErrValidation)
}
