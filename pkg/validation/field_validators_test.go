package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequiredString(t *testing.T) {
	assert.NoError(t, RequiredString("charging", "category"))
	assert.Error(t, RequiredString("", "category"))
	assert.Error(t, RequiredString("   ", "category"))
}

func TestRequiredSlice(t *testing.T) {
	assert.NoError(t, RequiredSlice([]int{1}, "items"))
	assert.Error(t, RequiredSlice([]int{}, "items"))
}

func TestValidateStringLength(t *testing.T) {
	assert.NoError(t, ValidateStringLength("hello", "name", 1, 10))
	assert.Error(t, ValidateStringLength("", "name", 1, 10))
	assert.Error(t, ValidateStringLength("this is way too long", "name", 1, 10))
	assert.NoError(t, ValidateStringLength("unbounded-max-ok", "name", 1, 0), "max <= 0 means no upper bound")
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("user@example.com"))
	assert.Error(t, ValidateEmail("not-an-email"))
	assert.Error(t, ValidateEmail("missing@tld"))
}

func TestValidateRange(t *testing.T) {
	assert.NoError(t, ValidateRange(50.0, "amount", 1.0, 500.0))
	assert.Error(t, ValidateRange(0.5, "amount", 1.0, 500.0))
	assert.Error(t, ValidateRange(501.0, "amount", 1.0, 500.0))
}

func TestValidateEnum(t *testing.T) {
	allowed := []string{"urgent", "high", "medium", "low"}
	assert.NoError(t, ValidateEnum("urgent", "priority", allowed))
	assert.Error(t, ValidateEnum("critical", "priority", allowed))
}

func TestValidateSliceItems(t *testing.T) {
	items := []int{2, 4, 6}
	err := ValidateSliceItems(items, "numbers", func(v, _ int) error {
		if v%2 != 0 {
			return assert.AnError
		}
		return nil
	})
	assert.NoError(t, err)

	items = append(items, 7)
	err = ValidateSliceItems(items, "numbers", func(v, _ int) error {
		if v%2 != 0 {
			return assert.AnError
		}
		return nil
	})
	assert.Error(t, err)
}

func TestValidateConditional(t *testing.T) {
	called := false
	err := ValidateConditional(false, func() error {
		called = true
		return assert.AnError
	})
	assert.NoError(t, err)
	assert.False(t, called, "validator must not run when condition is false")

	err = ValidateConditional(true, func() error {
		called = true
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, called)
}
