package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTeams(t *testing.T) {
	teams, err := parseTeams([]string{
		"red=0x3bB94F092f247A37DA1832D802Ae2CC2cA8d4526",
		"blue=0x8ba1f109551bd432803012645ac136ddd64dba72",
	})
	require.NoError(t, err)
	require.Len(t, teams, 2)
	assert.Equal(t, "red", teams[0].Name)
	assert.Equal(t, "0x8ba1f109551bd432803012645ac136ddd64dba72", teams[1].Address.Key())
}

func TestParseTeamsRejects(t *testing.T) {
	for _, flags := range [][]string{
		nil,
		{"red"},
		{"=0x3bB94F092f247A37DA1832D802Ae2CC2cA8d4526"},
		{"red=0x123"},
	} {
		_, err := parseTeams(flags)
		assert.Error(t, err, "%v", flags)
	}
}

func TestCommandsRegistered(t *testing.T) {
	rootCmd.AddCommand(serveCmd(), mintCmd(), ownersCmd(), balanceCmd())
	for _, name := range []string{"serve", "mint", "owners", "balance"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}
