package bookings

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateBookingCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code, err := GenerateBookingCode()
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(code, "BK-"), "code %q missing prefix", code)
		body := strings.TrimPrefix(code, "BK-")
		assert.Len(t, body, bookingCodeLength)
		for _, r := range body {
			assert.Contains(t, bookingCodeAlphabet, string(r), "code %q has character outside alphabet", code)
		}
		seen[code] = true
	}

	// 200 draws from a 36^8 space colliding would point at a broken generator.
	assert.Len(t, seen, 200)
}
