package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_Public_StripsSecrets(t *testing.T) {
	u := &User{
		ID:           "id-1",
		Username:     "alice",
		Email:        "alice@x.com",
		FullName:     "Alice",
		PasswordHash: "$2a$10$hash",
		RefreshToken: "refresh.token.value",
		UserType:     UserTypeAdmin,
		CreatedAt:    time.Now(),
	}

	pub := u.Public()
	require.NotNil(t, pub)
	assert.Equal(t, "id-1", pub.ID)
	assert.Equal(t, UserTypeAdmin, pub.UserType)

	data, err := json.Marshal(pub)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "$2a$10$hash")
	assert.NotContains(t, string(data), "refresh.token.value")
}

func TestUser_Public_Nil(t *testing.T) {
	var u *User
	assert.Nil(t, u.Public())
}

func TestUserType_Valid(t *testing.T) {
	tests := []struct {
		userType UserType
		want     bool
	}{
		{UserTypeUser, true},
		{UserTypeAdmin, true},
		{UserTypeModerator, true},
		{UserTypeSuperAdmin, true},
		{"root", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.userType), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.userType.Valid())
		})
	}
}
