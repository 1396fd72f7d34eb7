package form

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/securebank/internal/models"
)

func TestValidateField(t *testing.T) {
	tests := []struct {
		name    string
		field   models.Field
		raw     string
		wantErr error
		wantMsg string
	}{
		{"empty user id", models.FieldUserID, "", ErrEmpty, "User ID is required"},
		{"whitespace user id", models.FieldUserID, "   \t", ErrEmpty, "User ID is required"},
		{"one char user id", models.FieldUserID, "a", ErrTooShort, "User ID must be at least 3 characters"},
		{"padded short user id", models.FieldUserID, "  ab  ", ErrTooShort, "User ID must be at least 3 characters"},
		{"valid user id", models.FieldUserID, "bob", nil, ""},
		{"multibyte user id", models.FieldUserID, "ñañ", nil, ""},
		{"empty password", models.FieldPassword, " ", ErrEmpty, "Password is required"},
		{"short password", models.FieldPassword, "12345", ErrTooShort, "Password must be at least 6 characters"},
		{"valid password", models.FieldPassword, "123456", nil, ""},
		{"astral password", models.FieldPassword, "😀😀😀", nil, ""},
		{"single astral user id", models.FieldUserID, "😀", ErrTooShort, "User ID must be at least 3 characters"},
		{"byte order marks only", models.FieldUserID, "\ufeff \ufeff", ErrEmpty, "User ID is required"},
		{"ideographic space only", models.FieldPassword, "\u3000\u00a0", ErrEmpty, "Password is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateField(tt.field, tt.raw)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, tt.wantMsg, verr.Message)
			assert.Equal(t, tt.wantErr.Error(), verr.Code())
		})
	}
}

func TestTrimValue(t *testing.T) {
	assert.Equal(t, "bob", TrimValue("\ufeff\u2028 bob\t\u00a0"))
	assert.Equal(t, "\u0085bob", TrimValue("\u0085bob "))
	assert.Equal(t, "a b", TrimValue(" a b "))
}

func TestLength(t *testing.T) {
	assert.Equal(t, 0, Length(""))
	assert.Equal(t, 3, Length("ñañ"))
	assert.Equal(t, 2, Length("😀"))
	assert.Equal(t, 3, Length("a😀"))
}

func TestValidateField_ShortInputsAlwaysTooShort(t *testing.T) {
	for n := 1; n < MinUserIDLength; n++ {
		err := ValidateField(models.FieldUserID, " "+strings.Repeat("x", n)+" ")
		assert.ErrorIs(t, err, ErrTooShort, "user id of length %d", n)
	}
	for n := 1; n < MinPasswordLength; n++ {
		err := ValidateField(models.FieldPassword, strings.Repeat("p", n))
		assert.ErrorIs(t, err, ErrTooShort, "password of length %d", n)
	}
}

func TestState_ValidateFormEvaluatesBothFields(t *testing.T) {
	s := New()
	s.UserID.Value = ""
	s.Password.Value = "123"

	assert.False(t, s.ValidateForm())
	assert.True(t, s.UserID.Invalid)
	assert.Equal(t, "EMPTY", s.UserID.Code)
	assert.True(t, s.Password.Invalid)
	assert.Equal(t, "TOO_SHORT", s.Password.Code)

	s.UserID.Value = "admin"
	s.Password.Value = "123456"
	assert.True(t, s.ValidateForm())
	assert.False(t, s.UserID.Invalid)
	assert.Empty(t, s.Password.Message)
}

func TestState_InputClearsErrorAndBanner(t *testing.T) {
	s := New()
	s.ValidateForm()
	s.ShowBanner(models.BannerError, "nope")
	require.True(t, s.UserID.Invalid)

	s.Input(models.FieldUserID, "a")

	assert.Equal(t, "a", s.UserID.Value)
	assert.False(t, s.UserID.Invalid)
	assert.False(t, s.Banner.Visible)
	// the other field keeps its annotation
	assert.True(t, s.Password.Invalid)
}

func TestState_UnknownField(t *testing.T) {
	s := New()
	assert.Nil(t, s.Field("email"))
	assert.False(t, s.ValidateField("email"))
	s.Input("email", "x")
}

func TestState_TogglePasswordVisibility(t *testing.T) {
	s := New()
	assert.Equal(t, "password", s.PasswordInputType())
	assert.True(t, s.TogglePasswordVisibility())
	assert.Equal(t, "text", s.PasswordInputType())
	assert.False(t, s.TogglePasswordVisibility())
	assert.Equal(t, "password", s.PasswordInputType())
}
