package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeCommand(t *testing.T) {
	assert.Equal(t, "serve", serveCmd.Use)
	assert.Contains(t, serveCmd.Long, "POST /classify")

	flags := []string{
		"host", "port", "cors-origin", "max-upload-size", "timeout", "shutdown-timeout",
		"rate-limit-enabled", "requests-per-minute", "requests-per-hour", "max-requests-per-day", "max-data-per-day-mb",
	}
	for _, name := range flags {
		assert.NotNil(t, serveCmd.Flags().Lookup(name), name)
	}
}

func TestServeCommandInvalidPort(t *testing.T) {
	useStaticModel(t, alluvialProbs)

	_, _, err := executeCommand(t, "serve", "--port", "70000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port number: 70000")
}
