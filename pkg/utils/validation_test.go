package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("learner@example.com"))
	assert.Error(t, ValidateEmail("not-an-email"))
	assert.Error(t, ValidateEmail("Name <learner@example.com>"))
	assert.Error(t, ValidateEmail(""))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("Str0ng&Secure!"))
	assert.Error(t, ValidatePassword("short1!A"))
	assert.Error(t, ValidatePassword("alllowercase1234!"))
	assert.Error(t, ValidatePassword("NoDigitsHere!!!!"))
}

func TestTimeAgo(t *testing.T) {
	assert.Equal(t, "just now", TimeAgo(time.Now().Add(-10*time.Second)))
	assert.Equal(t, "5 minutes ago", TimeAgo(time.Now().Add(-5*time.Minute)))
	assert.Equal(t, "2 hours ago", TimeAgo(time.Now().Add(-2*time.Hour)))
	assert.Equal(t, "yesterday", TimeAgo(time.Now().Add(-30*time.Hour)))
	assert.Equal(t, "3 weeks ago", TimeAgo(time.Now().Add(-22*24*time.Hour)))
}

func TestFormatWatchTime(t *testing.T) {
	assert.Equal(t, "45s", FormatWatchTime(45))
	assert.Equal(t, "12m", FormatWatchTime(12*60+30))
	assert.Equal(t, "1h05m", FormatWatchTime(65*60))
}

func TestCombineErrors(t *testing.T) {
	assert.NoError(t, CombineErrors(nil, nil))

	err := CombineErrors(nil, errors.New("redis close failed"))
	assert.EqualError(t, err, "redis close failed")

	err = CombineErrors(errors.New("tcp close failed"), errors.New("udp close failed"))
	assert.ErrorContains(t, err, "multiple errors")
	assert.ErrorContains(t, err, "udp close failed")
}

func TestCloseAll(t *testing.T) {
	var order []string
	step := func(name string, err error) func() error {
		return func() error {
			order = append(order, name)
			return err
		}
	}

	err := CloseAll(step("http", nil), nil, step("db", errors.New("db close failed")))
	assert.EqualError(t, err, "db close failed")
	assert.Equal(t, []string{"http", "db"}, order)
}
