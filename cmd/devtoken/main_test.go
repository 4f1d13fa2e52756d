package main

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	userID, err := parseFlags([]string{"--user", "staff-1"})
	require.NoError(t, err)
	assert.Equal(t, "staff-1", userID)

	userID, err = parseFlags([]string{"-u", "admin-1"})
	require.NoError(t, err)
	assert.Equal(t, "admin-1", userID)

	_, err = parseFlags(nil)
	assert.EqualError(t, err, "--user is required")

	_, err = parseFlags([]string{"--help"})
	assert.ErrorIs(t, err, pflag.ErrHelp)

	_, err = parseFlags([]string{"--zone", "north"})
	assert.Error(t, err)
}
