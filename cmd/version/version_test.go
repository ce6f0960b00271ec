package version

import (
	"bytes"
	"encoding/json"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd(t *testing.T) {
	Version, Commit, BuildTime = "v1.2.3", "0123456789abcdef", "2026-01-02T03:04:05Z"
	t.Cleanup(func() { Version, Commit, BuildTime = "", "", "" })

	t.Run("Text", func(t *testing.T) {
		var out bytes.Buffer
		cmd := NewVersionCmd()
		cmd.SetOut(&out)
		cmd.SetArgs(nil)
		require.NoError(t, cmd.Execute())

		assert.Contains(t, out.String(), "v1.2.3")
		assert.Contains(t, out.String(), "012345678")
		assert.NotContains(t, out.String(), "0123456789")
		assert.Contains(t, out.String(), "2026-01-02T03:04:05Z (commit time)")
	})

	t.Run("JSON", func(t *testing.T) {
		var out bytes.Buffer
		cmd := NewVersionCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"--json"})
		require.NoError(t, cmd.Execute())

		var info versionInfo
		require.NoError(t, json.Unmarshal(out.Bytes(), &info))
		assert.Equal(t, "v1.2.3", info.Version)
		assert.Equal(t, runtime.GOOS, info.Os)
	})
}

func TestBuildTimeDisplay(t *testing.T) {
	Version, BuildTime = "v1.2.3-dirty", "2026-01-02T03:04:05Z"
	t.Cleanup(func() { Version, BuildTime = "", "" })
	assert.Equal(t, "2026-01-02T03:04:05Z (build time)", getBuildTimeDisplay())

	BuildTime = "not a time"
	// Falls back to VCS info, which test binaries may not carry.
	display := getBuildTimeDisplay()
	assert.True(t, display == "unknown" || len(display) > len("unknown"))
}
