package poolproto

import (
	"context"
	"encoding/json"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AndesWebDesign/rustpool/poolcfg"
	"github.com/AndesWebDesign/rustpool/poolmetrics"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	metrics, _ := poolmetrics.New()
	cfg := poolcfg.Config{
		Wallet:              "pool-wallet",
		PoolMinDifficulty:   1000,
		MaxOpenJobsToBlock:  50,
		MaxErrorJobsToBlock: 10,
	}
	return New(cfg, nil, nil, nil, metrics)
}

func TestDispatchKeepaliveNeedsNoBackend(t *testing.T) {
	e := newTestEngine(t)
	resp := e.dispatch(context.Background(), rpcMessage{ID: json.RawMessage(`"1"`), Method: methodKeepalive}, &net.TCPAddr{})

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(resp, &decoded))
	require.Equal(t, statusKeepalive, decoded["status"])
}

func TestDispatchUnknownMethodReturnsError(t *testing.T) {
	e := newTestEngine(t)
	resp := e.dispatch(context.Background(), rpcMessage{ID: json.RawMessage(`"1"`), Method: "bogus"}, &net.TCPAddr{})

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(resp, &decoded))
	errField, ok := decoded["error"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "method not recognized", errField["message"])
}

func TestDispatchLoginWithMalformedParamsNeedsNoBackend(t *testing.T) {
	e := newTestEngine(t)
	resp := e.dispatch(context.Background(), rpcMessage{ID: json.RawMessage(`"1"`), Method: methodLogin, Params: json.RawMessage(`{"rigid":"rig1"}`)}, &net.TCPAddr{})

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(resp, &decoded))
	errField, ok := decoded["error"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "invalid request", errField["message"])
}

func TestRunRejectsUnrecognizedNodeRole(t *testing.T) {
	e := newTestEngine(t)
	e.cfg.NodeRole = "BOGUS"

	err := e.Run(context.Background())
	require.Error(t, err)
}

func TestLimiterForIsPerWalletAndReused(t *testing.T) {
	e := newTestEngine(t)
	a := e.limiterFor("wallet-a")
	b := e.limiterFor("wallet-a")
	c := e.limiterFor("wallet-b")

	require.Same(t, a, b)
	require.NotSame(t, a, c)
}
