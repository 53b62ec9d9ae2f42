package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Email    string `json:"email" validate:"email_shape"`
	Username string `json:"username" validate:"username"`
	Password string `json:"password" validate:"strong_password,password_len"`
}

type profile struct {
	Bio *string `json:"bio" validate:"omitnil,max=200"`
}

func TestStruct_Valid(t *testing.T) {
	assert.NoError(t, Struct(signup{Email: "a@b.co", Username: "alice_1", Password: "Passw0rd!"}))
}

func TestStruct_ReportsFirstViolationOnly(t *testing.T) {
	err := Struct(signup{Email: "nope", Username: "ab", Password: "weak"})
	require.Error(t, err)
	assert.Equal(t, MsgEmail, err.Error())

	err = Struct(signup{Email: "a@b.co", Username: "ab", Password: "weak"})
	require.Error(t, err)
	assert.Equal(t, MsgUsername, err.Error())

	err = Struct(signup{Email: "a@b.co", Username: "alice", Password: "weak"})
	require.Error(t, err)
	assert.Equal(t, MsgPassword, err.Error())
}

func TestStruct_MaxUsesJSONName(t *testing.T) {
	long := make([]byte, 201)
	for i := range long {
		long[i] = 'x'
	}
	bio := string(long)
	err := Struct(profile{Bio: &bio})
	require.Error(t, err)
	assert.Equal(t, "bio must be at most 200 characters", err.Error())
}

func TestUsername(t *testing.T) {
	cases := map[string]bool{
		"ab":                    false,
		"abc":                   true,
		"with space":            false,
		"under_score_9":         true,
		"abcdefghijklmnopqrstu": false, // 21 chars
		"dash-name":             false,
	}
	for in, want := range cases {
		assert.Equal(t, want, Username(in), in)
	}
}

func TestStruct_PasswordOverBcryptLimit(t *testing.T) {
	long := "Str0ng!pw" + strings.Repeat("a", 80)
	err := Struct(signup{Email: "a@b.co", Username: "alice", Password: long})
	require.Error(t, err)
	assert.Equal(t, MsgPasswordLength, err.Error())

	atLimit := "Str0ng!pw" + strings.Repeat("a", MaxPasswordBytes-9)
	assert.NoError(t, Struct(signup{Email: "a@b.co", Username: "alice", Password: atLimit}))
}

func TestPassword(t *testing.T) {
	cases := map[string]bool{
		"Passw0rd!": true,
		"Pa0!":      false,
		"password1!": false,
		"PASSWORD1!": false,
		"Password!!": false,
		"Password11": false,
		"Passw0rd&":  true,
	}
	for in, want := range cases {
		assert.Equal(t, want, Password(in), in)
	}
}

func TestEmail(t *testing.T) {
	assert.True(t, Email("user@example.com"))
	assert.False(t, Email("user@example"))
	assert.False(t, Email("us er@example.com"))
	assert.False(t, Email(""))
}
