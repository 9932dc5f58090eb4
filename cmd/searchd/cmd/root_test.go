package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcebot-dev/sourcebot-sub003/pkg/version"
)

func TestRootCmd_Help(t *testing.T) {
	cmd := NewRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()

	require.NoError(t, err)
	output := buf.String()
	assert.Contains(t, output, "serve", "Help should list the serve command")
	assert.Contains(t, output, "search", "Help should list the search command")
	assert.Contains(t, output, "version", "Help should list the version command")
}

func TestRootCmd_VersionFlag(t *testing.T) {
	cmd := NewRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--version"})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), version.Version)
}

func TestSearchCmd_RequiresQuery(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"search"})

	err := cmd.Execute()

	require.Error(t, err)
}
