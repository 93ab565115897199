package poolcfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFileParsesJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pool.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"wallet":"abc123","pool_fee":0.01,"node_role":"WORKER"}`), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, "abc123", cfg.Wallet)
	require.Equal(t, 0.01, cfg.PoolFee)
	require.Equal(t, NodeRoleWorker, cfg.NodeRole)
}

func TestLoadFileParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pool.yaml")
	require.NoError(t, os.WriteFile(path, []byte("wallet: abc123\npool_fee: 0.02\n"), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, "abc123", cfg.Wallet)
	require.Equal(t, 0.02, cfg.PoolFee)
}

func TestLoadFileParsesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pool.toml")
	require.NoError(t, os.WriteFile(path, []byte(`wallet = "abc123"`+"\n"), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, "abc123", cfg.Wallet)
}

func TestLoadFileRejectsUnknownExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pool.ini")
	require.NoError(t, os.WriteFile(path, []byte("wallet=abc"), 0o600))

	_, err := LoadFile(path)
	require.Error(t, err)
}

func TestApplyEnvironmentOverridesOverridesWalletAndFee(t *testing.T) {
	t.Setenv("RUSTPOOL_WALLET", "env-wallet")
	t.Setenv("RUSTPOOL_POOL_FEE", "0.05")
	t.Setenv("RUSTPOOL_ALLOW_SELF_SELECT", "true")

	cfg := ApplyEnvironmentOverrides(Default())
	require.Equal(t, "env-wallet", cfg.Wallet)
	require.Equal(t, 0.05, cfg.PoolFee)
	require.True(t, cfg.AllowSelfSelect)
}

func TestApplyEnvironmentOverridesLeavesUnsetFieldsAlone(t *testing.T) {
	cfg := ApplyEnvironmentOverrides(Default())
	require.Equal(t, Default().PoolListenHost, cfg.PoolListenHost)
}

func TestApplyRuntimeOverridesFillsInThreads(t *testing.T) {
	cfg := Default()
	cfg.Threads = 0
	cfg = ApplyRuntimeOverrides(cfg)
	require.Greater(t, cfg.Threads, 0)
}

func TestValidatePanicsOnBadNodeRole(t *testing.T) {
	cfg := Default()
	cfg.NodeRole = "BOGUS"
	require.Panics(t, func() { Validate(cfg) })
}

func TestValidatePanicsOnSelfSelectInProduction(t *testing.T) {
	t.Setenv("RUSTPOOL_DEV", "")
	cfg := Default()
	cfg.AllowSelfSelect = true
	require.Panics(t, func() { Validate(cfg) })
}

func TestValidateAllowsSelfSelectOutsideProduction(t *testing.T) {
	t.Setenv("RUSTPOOL_DEV", "1")
	cfg := Default()
	cfg.AllowSelfSelect = true
	require.NotPanics(t, func() { Validate(cfg) })
}

func TestValidatePanicsOnFeeOutOfRange(t *testing.T) {
	cfg := Default()
	cfg.PoolFee = 1.5
	require.Panics(t, func() { Validate(cfg) })
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := ApplyRuntimeOverrides(Default())
	require.NotPanics(t, func() { Validate(cfg) })
}
