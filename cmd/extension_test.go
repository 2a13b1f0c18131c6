package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// installExtension writes a shell script named fin-<name> in a directory
// prepended to PATH.
func installExtension(t *testing.T, name, script string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("extensions are shell scripts in this test")
	}
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fin-"+name), []byte("#!/bin/sh\n"+script), 0o755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestRunExtension(t *testing.T) {
	installExtension(t, "hello", `echo "args=$*"
echo "`+EnvConfigFile+`=$`+EnvConfigFile+`"
echo "`+EnvDebug+`=$`+EnvDebug+`"
`)
	*configFile = "fin.yaml"
	*Debug = true
	t.Cleanup(func() { *configFile, *Debug = "", false })

	var stdout, stderr bytes.Buffer
	found, code := runExtension(context.Background(), "hello", []string{"a", "b"}, strings.NewReader(""), &stdout, &stderr)
	require.True(t, found)
	assert.Equal(t, 0, code)
	assert.Equal(t, "args=a b\nFIN_CONFIG_FILE=fin.yaml\nFIN_DEBUG=true\n", stdout.String())
	assert.Empty(t, stderr.String())
}

func TestRunExtension_ExitCode(t *testing.T) {
	installExtension(t, "fail", "exit 3\n")

	found, code := runExtension(context.Background(), "fail", nil, strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})
	assert.True(t, found)
	assert.Equal(t, 3, code)
}

func TestRunExtension_NotFound(t *testing.T) {
	found, code := runExtension(context.Background(), "does-not-exist-anywhere", nil, nil, nil, nil)
	assert.False(t, found)
	assert.Equal(t, 0, code)
}
