package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateCmdFlagsRegistered(t *testing.T) {
	for _, name := range []string{"store-path", "output-dir", "tau", "start-date", "end-date", "quiet"} {
		assert.NotNil(t, rateCmd.Flags().Lookup(name), "expected flag %q to be registered", name)
	}
}

func TestRateCmdRegisteredOnRoot(t *testing.T) {
	found := false
	for _, c := range rootCmd.Commands() {
		if c.Name() == "rate" {
			found = true
		}
	}
	assert.True(t, found)
}
