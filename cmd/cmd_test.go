package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{Use: "test"}
	c.Flags().String("db", "", "")
	c.Flags().String("candidate", "", "")
	require.NoError(t, c.Flags().Parse(args))
	return c
}

func TestResolveDBPathPrefersFlag(t *testing.T) {
	dir := t.TempDir()
	flag := filepath.Join(dir, "flag", "a.db")

	p, err := resolveDBPath(newTestCmd(t, "--db", flag), filepath.Join(dir, "cfg.db"))
	require.NoError(t, err)
	assert.Equal(t, flag, p)
	assert.DirExists(t, filepath.Dir(flag))

	cfg := filepath.Join(dir, "cfg", "b.db")
	p, err = resolveDBPath(newTestCmd(t), cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg, p)
}

func TestResolveCandidate(t *testing.T) {
	t.Setenv("ASSESSOR_CANDIDATE", "env-cand")

	c, err := resolveCandidate(newTestCmd(t, "--candidate", "flag-cand"))
	require.NoError(t, err)
	assert.Equal(t, "flag-cand", c)

	c, err = resolveCandidate(newTestCmd(t))
	require.NoError(t, err)
	assert.Equal(t, "env-cand", c)
}

func TestReadRubric(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte(`componentWeights:
  FLAT: 50
  ASP: 10
  VAL: 20
  MS: 20
thresholds:
  admit: 70
  counselling: 55
  bridge: 40
`), 0o644))

	cfg, err := readRubric(good)
	require.NoError(t, err)
	assert.Equal(t, 50.0, cfg.ComponentWeights["FLAT"])
	assert.Equal(t, 55.0, cfg.Thresholds.Counselling)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("weights: {}\n"), 0o644))
	_, err = readRubric(bad)
	assert.Error(t, err, "unknown keys are rejected")

	_, err = readRubric(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
