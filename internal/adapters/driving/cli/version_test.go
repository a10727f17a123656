package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd_PrintsBuildVersion(t *testing.T) {
	tests := []struct {
		name    string
		version string
		want    string
	}{
		{name: "release", version: "1.4.2", want: "flowsync version 1.4.2\n"},
		{name: "dev build", version: "dev", want: "flowsync version dev\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saved := version
			version = tt.version
			t.Cleanup(func() {
				version = saved
				rootCmd.SetArgs(nil)
				rootCmd.SetOut(nil)
			})

			var out bytes.Buffer
			rootCmd.SetOut(&out)
			rootCmd.SetArgs([]string{"version"})

			require.NoError(t, rootCmd.Execute())
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestVersionCmd_NeedsNoConfig(t *testing.T) {
	// version must work before any config file exists.
	assert.Nil(t, versionCmd.PreRunE)
	assert.Equal(t, "version", versionCmd.Use)
}
