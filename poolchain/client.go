// Package poolchain is the Chain Oracle: a JSON-RPC client for the Monero
// daemon and wallet RPC endpoints, speaking HTTP digest authentication.
// Grounded on original_source/src/stream/rpc.rs.
package poolchain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Endpoint is one daemon or wallet RPC target with its own credentials.
type Endpoint struct {
	URL      string
	Username string
	Password string
}

// Client talks to a daemon endpoint and a wallet endpoint. Grounded on
// original_source's separate make_daemon_rpc_request/make_wallet_rpc_request
// helpers, both funneled through the same digest-auth core.
type Client struct {
	httpClient *http.Client
	daemon     Endpoint
	wallet     Endpoint
}

// NewClient builds a Chain Oracle client with the given request timeout.
func NewClient(daemon, wallet Endpoint, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		daemon:     daemon,
		wallet:     wallet,
	}
}

// doRPC posts one JSON-RPC request to endpoint, retrying exactly once with
// a computed digest Authorization header if the first attempt comes back
// 401. A second 401, or any status other than 200/401, is a hard failure:
// the prior attempt is never retried a second time, so a server that
// always challenges can't loop forever.
func (c *Client) doRPC(ctx context.Context, endpoint Endpoint, method string, params interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(jsonRPCRequest{JSONRPC: "2.0", ID: "0", Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("poolchain: marshal request: %w", err)
	}

	resp, err := c.postRaw(ctx, endpoint, body, "")
	if err != nil {
		return nil, fmt.Errorf("poolchain: %s: %w", method, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return decodeRPCBody(resp.Body)
	case http.StatusUnauthorized:
		authHeader, err := c.computeRetryHeader(resp, endpoint, body)
		if err != nil {
			return nil, fmt.Errorf("poolchain: %s: %w", method, err)
		}
		retryResp, err := c.postRaw(ctx, endpoint, body, authHeader)
		if err != nil {
			return nil, fmt.Errorf("poolchain: %s: retry: %w", method, err)
		}
		defer retryResp.Body.Close()
		if retryResp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("poolchain: %s: still unauthorized after digest retry (status %d)", method, retryResp.StatusCode)
		}
		return decodeRPCBody(retryResp.Body)
	default:
		return nil, fmt.Errorf("poolchain: %s: unexpected status %d", method, resp.StatusCode)
	}
}

func (c *Client) postRaw(ctx context.Context, endpoint Endpoint, body []byte, authHeader string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	return c.httpClient.Do(req)
}

func (c *Client) computeRetryHeader(resp *http.Response, endpoint Endpoint, body []byte) (string, error) {
	challengeHeader := resp.Header.Get("WWW-Authenticate")
	if challengeHeader == "" {
		return "", fmt.Errorf("401 response carried no WWW-Authenticate header")
	}
	challenge, err := parseDigestChallenge(challengeHeader)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(endpoint.URL)
	if err != nil {
		return "", fmt.Errorf("parse endpoint URL: %w", err)
	}
	return buildAuthorizationHeader(challenge, endpoint.Username, endpoint.Password, http.MethodPost, u.RequestURI(), 1)
}

func decodeRPCBody(r io.Reader) (json.RawMessage, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	var parsed jsonRPCResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode JSON-RPC envelope: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("RPC error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}
	return parsed.Result, nil
}

// GetBlockTemplate requests a new block template reserving reserveSize
// bytes in the coinbase extra field for the pool nonce.
func (c *Client) GetBlockTemplate(ctx context.Context, wallet string, reserveSize int) (*BlockTemplate, error) {
	result, err := c.doRPC(ctx, c.daemon, "get_block_template", map[string]interface{}{
		"wallet_address": wallet,
		"reserve_size":   reserveSize,
	})
	if err != nil {
		return nil, err
	}
	var tmpl BlockTemplate
	if err := json.Unmarshal(result, &tmpl); err != nil {
		return nil, fmt.Errorf("poolchain: parse block template: %w", err)
	}
	return &tmpl, nil
}

// SubmitBlock submits a fully-assembled block's hex-encoded bytes.
func (c *Client) SubmitBlock(ctx context.Context, blockHex string) error {
	_, err := c.doRPC(ctx, c.daemon, "submit_block", []string{blockHex})
	return err
}

// GetUnlockedBalance returns the pool wallet's spendable balance in atomic
// units.
func (c *Client) GetUnlockedBalance(ctx context.Context) (uint64, error) {
	result, err := c.doRPC(ctx, c.wallet, "get_balance", map[string]interface{}{"account_index": 0})
	if err != nil {
		return 0, err
	}
	var balance struct {
		UnlockedBalance uint64 `json:"unlocked_balance"`
	}
	if err := json.Unmarshal(result, &balance); err != nil {
		return 0, fmt.Errorf("poolchain: parse balance: %w", err)
	}
	return balance.UnlockedBalance, nil
}

// TransferSplit dispatches a payout to every destination in one wallet
// transfer_split call. unlock_time, priority, mixin, ring_size, and
// new_algorithm are fixed constants, not operator-configurable.
func (c *Client) TransferSplit(ctx context.Context, destinations []Destination) (*TransferResponse, error) {
	result, err := c.doRPC(ctx, c.wallet, "transfer_split", map[string]interface{}{
		"account_index":   0,
		"destinations":    destinations,
		"get_tx_metadata": true,
		"get_tx_hex":      true,
		"get_tx_key":      true,
		"unlock_time":     60,
		"priority":        0,
		"mixin":           10,
		"ring_size":       11,
		"new_algorithm":   true,
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		TxHashList []string `json:"tx_hash_list"`
		TxKeysList []string `json:"tx_keys_list"`
	}
	if err := json.Unmarshal(result, &parsed); err != nil {
		return nil, fmt.Errorf("poolchain: parse transfer response: %w", err)
	}
	if len(parsed.TxHashList) == 0 {
		return nil, fmt.Errorf("poolchain: transfer_split returned no transaction hashes")
	}
	return &TransferResponse{TxHashes: parsed.TxHashList, TxKeys: parsed.TxKeysList}, nil
}
