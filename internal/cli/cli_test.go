package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCLIRegistersRunSubcommand(t *testing.T) {
	root := BuildCLI()

	runCmd, _, err := root.Find([]string{"run"})
	require.NoError(t, err)
	assert.Equal(t, "run", runCmd.Name())
}

func TestBuildCLIExposesConfigFlag(t *testing.T) {
	root := BuildCLI()

	flag := root.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, "c", flag.Shorthand)
}

func TestRunCommandExposesAddrAndDatasetFlags(t *testing.T) {
	root := BuildCLI()
	runCmd, _, err := root.Find([]string{"run"})
	require.NoError(t, err)

	assert.NotNil(t, runCmd.Flags().Lookup("addr"))
	assert.NotNil(t, runCmd.Flags().Lookup("dataset"))
}
