package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserTableName(t *testing.T) {
	user := User{}
	assert.Equal(t, "users", user.TableName(), "Table name should be 'users'")
}

func TestRoleValid(t *testing.T) {
	tests := []struct {
		name string
		role Role
		want bool
	}{
		{"admin role", RoleAdmin, true},
		{"student role", RoleStudent, true},
		{"teacher role", RoleTeacher, true},
		{"professor role", RoleProfessor, true},
		{"staff role", RoleStaff, true},
		{"unknown role", Role("customer"), false},
		{"empty role", Role(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.role.Valid())
		})
	}
}

func TestUserIsActive(t *testing.T) {
	assert.True(t, (&User{Status: UserActive}).IsActive())
	assert.False(t, (&User{Status: UserInactive}).IsActive())
	assert.False(t, (&User{}).IsActive(), "zero status should not count as active")
}

func TestUserStatusValid(t *testing.T) {
	assert.True(t, UserActive.Valid())
	assert.True(t, UserInactive.Valid())
	assert.False(t, UserStatus("suspended").Valid())
}
