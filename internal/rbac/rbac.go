// Package rbac implements the fixed role hierarchy used for coarse-grained authorization.
package rbac

import (
	"fmt"
	"strings"

	"github.com/dtroode/authsession/internal/model"
)

// Unranked is the rank of a role outside the hierarchy. It is below every known role.
const Unranked = -1

var ranks = map[model.Role]int{
	model.RoleGuest:     0,
	model.RoleReadOnly:  1,
	model.RoleUser:      2,
	model.RoleAnalyst:   3,
	model.RoleModerator: 4,
	model.RoleAdmin:     5,
}

// Rank returns the position of role in the hierarchy, or Unranked.
func Rank(role model.Role) int {
	if r, ok := ranks[role]; ok {
		return r
	}
	return Unranked
}

// ParseRole normalizes s into a known role.
func ParseRole(s string) (model.Role, error) {
	role := model.Role(strings.ToLower(strings.TrimSpace(s)))
	if Rank(role) == Unranked {
		return "", fmt.Errorf("%w: unknown role %q", model.ErrValidation, s)
	}
	return role, nil
}

// Require fails with ErrInsufficientRole when caller ranks below required.
// An unknown required role can never be satisfied.
func Require(required, caller model.Role) error {
	need := Rank(required)
	if need == Unranked {
		return fmt.Errorf("%w: unknown required role %q", model.ErrInsufficientRole, required)
	}
	if Rank(caller) < need {
		return fmt.Errorf("%w: role %q is below required role %q", model.ErrInsufficientRole, caller, required)
	}
	return nil
}
