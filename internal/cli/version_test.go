package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runVersion runs 'version' with HOME pointed at a fresh directory.
func runVersion(t *testing.T, app *App, args ...string) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	var out bytes.Buffer
	app.rootCmd.SetOut(&out)
	app.rootCmd.SetErr(io.Discard)
	app.rootCmd.SetArgs(append(args, "version"))
	require.NoError(t, app.Execute())
	return out.String()
}

func TestVersion_Plain(t *testing.T) {
	app := New()
	app.SetVersion("1.2.3", "abc1234", "2026-05-04T10:30:00Z")

	path := filepath.Join(t.TempDir(), "cluster.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: info\n"), 0o644))

	lines := strings.Split(strings.TrimSpace(runVersion(t, app, "--config", path)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "hpctui 1.2.3 (commit abc1234, built 2026-05-04T10:30:00Z)", lines[0])
	assert.Equal(t, runtime.Version()+" "+runtime.GOOS+"/"+runtime.GOARCH, lines[1])
	assert.Equal(t, "config:  "+path+" (found)", lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "scripts: "), lines[3])
	assert.True(t, strings.HasSuffix(lines[3], filepath.Join(".hpctui", "scripts")), lines[3])
}

func TestVersion_DefaultsWithoutConfig(t *testing.T) {
	out := runVersion(t, New())
	assert.Contains(t, out, "hpctui dev (commit unknown, built unknown)")
	assert.Contains(t, out, filepath.Join(".hpctui", "config.yaml")+" (not found, using defaults)")
}

func TestVersion_IgnoresBrokenConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ssh: [not, a, map"), 0o644))

	out := runVersion(t, New(), "--config", path)
	assert.Contains(t, out, "config:  "+path+" (found)")
}

func TestVersion_JSON(t *testing.T) {
	app := New()
	app.SetVersion("1.2.3", "abc1234", "2026-05-04T10:30:00Z")

	var got versionReport
	require.NoError(t, json.Unmarshal([]byte(runVersion(t, app, "--json")), &got))
	assert.Equal(t, "1.2.3", got.Version)
	assert.Equal(t, "abc1234", got.Commit)
	assert.Equal(t, runtime.Version(), got.Go)
	assert.False(t, got.ConfigFound)
	assert.True(t, strings.HasSuffix(got.Config, filepath.Join(".hpctui", "config.yaml")))
}
