package otp

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_SixDigits(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := Generate()
		require.NoError(t, err)
		require.Len(t, code, 6)

		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
}

func TestHashAndMatches(t *testing.T) {
	d := Hash("123456")
	assert.Len(t, d, 64)
	assert.NotEqual(t, "123456", d)

	assert.True(t, Matches("123456", d))
	assert.False(t, Matches("654321", d))
	assert.False(t, Matches("123456", ""))
}

func TestExpired(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Minute)
	past := now.Add(-time.Minute)

	assert.True(t, Expired(nil, now))
	assert.True(t, Expired(&past, now))
	assert.True(t, Expired(&now, now))
	assert.False(t, Expired(&future, now))
}
