package flow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/shopbot/internal/shop"
)

func reasonOf(t *testing.T, err error) string {
	t.Helper()
	var ve *shop.ValidationError
	require.ErrorAs(t, err, &ve)
	return ve.Reason
}

func TestValidateName(t *testing.T) {
	got, err := ValidateName("  Ann  ")
	require.NoError(t, err)
	assert.Equal(t, "Ann", got)

	_, err = ValidateName("A")
	assert.Equal(t, shop.ReasonTooShort, reasonOf(t, err))

	_, err = ValidateName(strings.Repeat("я", 65))
	assert.Equal(t, shop.ReasonTooLong, reasonOf(t, err))

	got, err = ValidateName(strings.Repeat("я", 64))
	require.NoError(t, err)
	assert.Len(t, []rune(got), 64)
}

func TestValidateComment(t *testing.T) {
	got, err := ValidateComment("  nice  ")
	require.NoError(t, err)
	assert.Equal(t, "nice", got)

	_, err = ValidateComment(strings.Repeat("я", 1001))
	assert.Equal(t, shop.ReasonTooLong, reasonOf(t, err))

	got, err = ValidateComment(strings.Repeat("я", 1000))
	require.NoError(t, err)
	assert.Len(t, []rune(got), 1000)
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"+998 (90) 123-45-67", "+998901234567", true},
		{"901234567", "901234567", true},
		{"1234567", "1234567", true},
		{"123456", "", false},
		{"+1234567890123456", "", false},
		{"phone 123", "", false},
		{"12+34567", "", false},
	}
	for _, tt := range tests {
		got, err := NormalizePhone(tt.in)
		if !tt.ok {
			assert.Equal(t, shop.ReasonInvalidPhone, reasonOf(t, err), tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestValidateEmail(t *testing.T) {
	got, err := ValidateEmail(" Ann@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", got)

	for _, bad := range []string{"ann", "ann@example", "@example.com", "a b@example.com"} {
		_, err := ValidateEmail(bad)
		assert.Equal(t, shop.ReasonInvalidEmail, reasonOf(t, err), bad)
	}
}

func TestValidateAddress(t *testing.T) {
	_, err := ValidateAddress("Short st")
	assert.Equal(t, shop.ReasonTooShort, reasonOf(t, err))

	got, err := ValidateAddress("  Tashkent, Amir Temur 1  ")
	require.NoError(t, err)
	assert.Equal(t, "Tashkent, Amir Temur 1", got)
}

func TestParseStarsAndOrderRef(t *testing.T) {
	n, err := ParseStars("4⭐")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	for _, bad := range []string{"0", "6", "five", ""} {
		_, err := ParseStars(bad)
		assert.Equal(t, shop.ReasonOutOfRange, reasonOf(t, err), bad)
	}

	id, err := ParseOrderRef("#42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = ParseOrderRef("forty two")
	assert.Equal(t, shop.ReasonNotNumber, reasonOf(t, err))
}
