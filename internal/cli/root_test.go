package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "offpos", cmd.Use)
	assert.Contains(t, cmd.Long, "point-of-sale")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"product", "add"}, {"product", "list"}, {"product", "update"},
		{"product", "delete"}, {"product", "import"},
		{"sale"}, {"sales", "list"}, {"sales", "show"},
		{"stats"}, {"export"}, {"recover"}, {"seed"}, {"daemon"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"config", "db"} {
		flag := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, flag, "--%s", name)
		assert.Equal(t, "", flag.DefValue)
	}
}

func TestSaleCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	saleCmd, _, err := cmd.Find([]string{"sale"})
	require.NoError(t, err)

	itemFlag := saleCmd.Flags().Lookup("item")
	require.NotNil(t, itemFlag)
	assert.Equal(t, "i", itemFlag.Shorthand)

	methodFlag := saleCmd.Flags().Lookup("method")
	require.NotNil(t, methodFlag)
	assert.Equal(t, "Cash", methodFlag.DefValue)
}

func TestExportCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	exportCmd, _, err := cmd.Find([]string{"export"})
	require.NoError(t, err)

	asFlag := exportCmd.Flags().Lookup("as")
	require.NotNil(t, asFlag)
	assert.Equal(t, "json", asFlag.DefValue)
}

func TestIsValidFormat(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))
	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
}
