package poolchain

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetBlockTemplateSucceedsOnFirstTry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"jsonrpc":"2.0","id":"0","result":{"blocktemplate_blob":"ab","blockhashing_blob":"cd","difficulty":100,"height":5,"prev_hash":"ff","reserved_offset":10,"seed_hash":"11","next_seed_hash":"22"}}`)
	}))
	defer srv.Close()

	c := NewClient(Endpoint{URL: srv.URL, Username: "pool", Password: "pass"}, Endpoint{}, time.Second)
	tmpl, err := c.GetBlockTemplate(context.Background(), "wallet-address", 16)
	require.NoError(t, err)
	require.Equal(t, "ab", tmpl.BlocktemplateBlob)
	require.Equal(t, int64(5), tmpl.Height)
}

func TestDoRPCRetriesOnceAfterDigestChallenge(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&attempts, 1)
		if n == 1 {
			w.Header().Set("WWW-Authenticate", `Digest realm="monero-rpc", nonce="abc123", qop="auth"`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		require.NotEmpty(t, r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"jsonrpc":"2.0","id":"0","result":{"unlocked_balance":42}}`)
	}))
	defer srv.Close()

	c := NewClient(Endpoint{}, Endpoint{URL: srv.URL, Username: "pool", Password: "pass"}, time.Second)
	balance, err := c.GetUnlockedBalance(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(42), balance)
	require.Equal(t, int32(2), attempts)
}

func TestDoRPCFailsAfterSecondUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("WWW-Authenticate", `Digest realm="monero-rpc", nonce="abc123", qop="auth"`)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(Endpoint{}, Endpoint{URL: srv.URL, Username: "pool", Password: "wrong"}, time.Second)
	_, err := c.GetUnlockedBalance(context.Background())
	require.Error(t, err)
}

func TestTransferSplitSendsFixedParameters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string                 `json:"method"`
			Params map[string]interface{} `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "transfer_split", req.Method)
		require.Equal(t, float64(60), req.Params["unlock_time"])
		require.Equal(t, float64(0), req.Params["priority"])
		require.Equal(t, float64(10), req.Params["mixin"])
		require.Equal(t, float64(11), req.Params["ring_size"])
		require.Equal(t, true, req.Params["new_algorithm"])
		fmt.Fprint(w, `{"jsonrpc":"2.0","id":"0","result":{"tx_hash_list":["aa"],"tx_keys_list":["bb"]}}`)
	}))
	defer srv.Close()

	c := NewClient(Endpoint{}, Endpoint{URL: srv.URL}, time.Second)
	resp, err := c.TransferSplit(context.Background(), []Destination{{Amount: 100, Address: "wallet1"}})
	require.NoError(t, err)
	require.Equal(t, []string{"aa"}, resp.TxHashes)
	require.Equal(t, []string{"bb"}, resp.TxKeys)
}

func TestTransferSplitErrorsOnEmptyHashList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"jsonrpc":"2.0","id":"0","result":{"tx_hash_list":[],"tx_keys_list":[]}}`)
	}))
	defer srv.Close()

	c := NewClient(Endpoint{}, Endpoint{URL: srv.URL}, time.Second)
	_, err := c.TransferSplit(context.Background(), []Destination{{Amount: 100, Address: "wallet1"}})
	require.Error(t, err)
}

func TestBuildAuthorizationHeaderIncludesQopFields(t *testing.T) {
	c := &digestChallenge{realm: "monero-rpc", nonce: "n1", qop: "auth"}
	header, err := buildAuthorizationHeader(c, "pool", "pass", http.MethodPost, "/json_rpc", 1)
	require.NoError(t, err)
	require.Contains(t, header, `username="pool"`)
	require.Contains(t, header, `nonce="n1"`)
	require.Contains(t, header, "qop=auth")
}
