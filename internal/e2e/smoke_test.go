package e2e

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmokeFlow(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)

	stdout, stderr, err := runXSR(t, binaryPath, home, nil, "config", "init")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, filepath.Join(home, ".config", "xsr", "xsr.toml"))

	stdout, stderr, err = runXSR(t, binaryPath, home,
		[]string{"XSERVER_ACCOUNTS=alice-account:secret://alice:srv1"},
		"accounts",
	)
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Equal(t, "ali***ount\tserver:srv1\tsecret:secret://alice\n", stdout)

	stdout, stderr, err = runXSR(t, binaryPath, home, nil, "config", "show")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "# source: "+filepath.Join(home, ".config", "xsr", "xsr.toml"))
}

func TestSmokeRenewWithoutAccountsExitsNonZero(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)

	_, stderr, err := runXSR(t, binaryPath, home, nil, "renew")
	require.Error(t, err)

	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.ExitCode())
	assert.Contains(t, stderr, "no accounts configured")
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "xsr-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/xsr")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build xsr binary: %s", string(output))
	return binaryPath
}

func runXSR(t *testing.T, binaryPath, home string, extraEnv []string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(cleanEnv(), "HOME="+home, "XDG_CONFIG_HOME="+filepath.Join(home, ".config"))
	cmd.Env = append(cmd.Env, extraEnv...)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// cleanEnv drops variables that would leak real accounts into the run.
func cleanEnv() []string {
	env := make([]string, 0, len(os.Environ()))
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "XSERVER_") || strings.HasPrefix(kv, "TELEGRAM_") || strings.HasPrefix(kv, "XSR_") {
			continue
		}
		env = append(env, kv)
	}

	return env
}

func repoRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}
