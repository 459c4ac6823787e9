package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntity_Terminal(t *testing.T) {
	cases := []struct {
		status Status
		want   bool
	}{
		{StatusPending, false},
		{StatusPendingApproval, false},
		{StatusProcessing, false},
		{StatusSuccess, true},
		{StatusFailed, true},
		{StatusExpired, true},
		{StatusRefunded, true},
	}
	for _, tc := range cases {
		e := Entity{Status: tc.status}
		assert.Equal(t, tc.want, e.Terminal(), "status %q", tc.status)
	}
}
