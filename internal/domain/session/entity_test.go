package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntity_IsPlaceholder(t *testing.T) {
	assert.True(t, Entity{TransactionID: PlaceholderTransactionID}.IsPlaceholder())
	assert.True(t, Entity{TransactionID: 0}.IsPlaceholder())
	assert.False(t, Entity{TransactionID: 42}.IsPlaceholder())
}

func TestEntity_Open(t *testing.T) {
	cases := []struct {
		status Status
		want   bool
	}{
		{StatusPending, true},
		{StatusActive, true},
		{StatusStopping, false},
		{StatusCompleted, false},
	}
	for _, tc := range cases {
		e := Entity{Status: tc.status}
		assert.Equal(t, tc.want, e.Open(), "status %q", tc.status)
	}
}
