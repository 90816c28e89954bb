package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_EmptyDSN(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), DriverPGX, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestOpen_UnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "oracle", "postgres://localhost/school")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DRIVER")
}

func TestDialector_KnownDrivers(t *testing.T) {
	t.Parallel()

	for _, drv := range []string{"", DriverPGX, DriverPQ} {
		d, err := dialector(drv, "postgres://localhost/school")
		require.NoError(t, err)
		assert.Equal(t, "postgres", d.Name())
	}
}
