package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServeCmdFlags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	assert.NotNil(t, flag)
	assert.Equal(t, "8080", flag.DefValue)

	flag = serveCmd.Flags().Lookup("output-dir")
	assert.NotNil(t, flag)
	assert.Equal(t, "build", flag.DefValue)

	flag = serveCmd.Flags().Lookup("host")
	assert.NotNil(t, flag)
	assert.Equal(t, "0.0.0.0", flag.DefValue)
}

func TestServeCmdRegisteredOnRoot(t *testing.T) {
	found := false
	for _, c := range rootCmd.Commands() {
		if c.Name() == "serve" {
			found = true
		}
	}
	assert.True(t, found)
}
