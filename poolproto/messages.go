// Package poolproto is the Protocol Engine: a request-per-connection
// JSON-RPC 2.0 listener for miners, a block-notify listener and polling
// timer feeding the Chain Oracle, a share-accounting pass, and a payout
// timer. Grounded on original_source/src/pool/{worker,backend,exec}.rs and
// src/stream/{parsers,response}.rs, styled structurally on the donor
// node's mining/mobilex/pool package (one file per concern: server,
// job assignment, validation, config).
package poolproto

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

const (
	methodLogin         = "login"
	methodBlockTemplate = "block_template"
	methodSubmit        = "submit"
	methodKeepalive     = "keepalived"

	statusOK        = "OK"
	statusKeepalive = "KEEPALIVED"

	selfSelectMode = "self-select"
)

// rpcMessage is the generic envelope every incoming request arrives in.
type rpcMessage struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

func messageID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "missing"
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return string(raw)
}

// loginRequest mirrors original_source's LoginMessage: "login" carries the
// miner's wallet, "rigid" its worker identity, "mode" an optional
// self-select flag.
type loginRequest struct {
	Wallet string `json:"login"`
	RigID  string `json:"rigid"`
	Mode   string `json:"mode"`
}

type blockTemplateRequest struct {
	ClientID string `json:"id"`
	JobID    string `json:"job_id"`
	Blob     string `json:"blob"`
	Height   int64  `json:"height"`
	Difficulty int64 `json:"difficulty"`
	PrevHash string `json:"prev_hash"`
}

type submitRequest struct {
	ClientID string `json:"id"`
	JobID    string `json:"job_id"`
	Nonce    string `json:"nonce"`
	Result   string `json:"result"`
}

func parseLogin(raw json.RawMessage) (*loginRequest, error) {
	var req loginRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("poolproto: parse login params: %w", err)
	}
	if req.Wallet == "" || req.RigID == "" {
		return nil, fmt.Errorf("poolproto: login missing wallet or rigid")
	}
	return &req, nil
}

func parseBlockTemplateRequest(raw json.RawMessage) (*blockTemplateRequest, error) {
	var req blockTemplateRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("poolproto: parse block_template params: %w", err)
	}
	if _, err := uuid.Parse(req.ClientID); err != nil {
		return nil, fmt.Errorf("poolproto: invalid client id: %w", err)
	}
	if _, err := uuid.Parse(req.JobID); err != nil {
		return nil, fmt.Errorf("poolproto: invalid job id: %w", err)
	}
	return &req, nil
}

func parseSubmit(raw json.RawMessage) (*submitRequest, error) {
	var req submitRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("poolproto: parse submit params: %w", err)
	}
	if _, err := uuid.Parse(req.ClientID); err != nil {
		return nil, fmt.Errorf("poolproto: invalid client id: %w", err)
	}
	if _, err := uuid.Parse(req.JobID); err != nil {
		return nil, fmt.Errorf("poolproto: invalid job id: %w", err)
	}
	if req.Nonce == "" || req.Result == "" {
		return nil, fmt.Errorf("poolproto: submit missing nonce or result")
	}
	return &req, nil
}

func statusBody(status, id string) json.RawMessage {
	body, _ := json.Marshal(map[string]interface{}{
		"id":      id,
		"jsonrpc": "2.0",
		"error":   nil,
		"status":  status,
	})
	return body
}

func errorBody(message, id string) json.RawMessage {
	body, _ := json.Marshal(map[string]interface{}{
		"id":      id,
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    -1,
			"message": message,
		},
	})
	return body
}

// jobResponse renders a login/job response. In normal mode it carries the
// blob passed in as blobHex (the hashing blob derived from the
// pool-nonce-injected template); in self-select
// mode it carries only the pool wallet and extra_nonce, letting the miner
// build its own block. Grounded on
// original_source/src/stream/response.rs's process_job_response.
func jobResponse(clientID, jobID string, target, height int64, blobHex, poolWallet, poolNonce, mode, msgID string) (json.RawMessage, error) {
	switch mode {
	case "":
		return json.Marshal(map[string]interface{}{
			"result": map[string]interface{}{
				"job": map[string]interface{}{
					"job_id": jobID,
					"target": target,
					"height": height,
					"blob":   blobHex,
				},
				"id":     clientID,
				"status": statusOK,
			},
			"jsonrpc": "2.0",
			"error":   nil,
			"id":      msgID,
		})
	case selfSelectMode:
		return json.Marshal(map[string]interface{}{
			"result": map[string]interface{}{
				"job": map[string]interface{}{
					"job_id":      jobID,
					"target":      target,
					"pool_wallet": poolWallet,
					"extra_nonce": poolNonce,
				},
				"id":     clientID,
				"status": statusOK,
			},
			"jsonrpc": "2.0",
			"error":   nil,
			"id":      msgID,
		})
	default:
		return nil, fmt.Errorf("poolproto: mode not supported: %s", mode)
	}
}
