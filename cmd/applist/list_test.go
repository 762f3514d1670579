package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/applist/internal/dbus"
)

func TestFallbackSource(t *testing.T) {
	source, err := fallbackSource(dbus.ErrServiceUnavailable, true)
	require.NoError(t, err)
	assert.Equal(t, "-", source)

	_, err = fallbackSource(dbus.ErrServiceUnavailable, false)
	require.ErrorIs(t, err, dbus.ErrServiceUnavailable)
	assert.Contains(t, err.Error(), "--events")
}
