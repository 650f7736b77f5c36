package logging

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestBufferDropsOldestOnOverflow(t *testing.T) {
	buffer := NewBuffer(3)

	for _, line := range []string{"one\n", "two\n", "three\n", "four\n"} {
		_, err := buffer.Write([]byte(line))
		require.NoError(t, err)
	}

	require.Equal(t, []string{"two", "three", "four"}, buffer.Entries())
	require.Equal(t, 3, buffer.Len())
}

func TestBufferEntriesReturnsSnapshot(t *testing.T) {
	buffer := NewBuffer(2)
	_, err := buffer.Write([]byte("first\n"))
	require.NoError(t, err)

	snapshot := buffer.Entries()
	_, err = buffer.Write([]byte("second\n"))
	require.NoError(t, err)

	require.Equal(t, []string{"first"}, snapshot)
	require.Equal(t, []string{"first", "second"}, buffer.Entries())
}

func TestNewFiltersBelowConfiguredLevel(t *testing.T) {
	logger, buffer := New("warn", 10)

	logger.Info().Msg("hidden")
	logger.Warn().Msg("visible")

	entries := buffer.Entries()
	require.Len(t, entries, 1)
	require.True(t, strings.Contains(entries[0], "visible"))
}

func TestNewDefaultsToInfoOnBadLevel(t *testing.T) {
	logger, _ := New("nonsense", 1)
	require.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}
