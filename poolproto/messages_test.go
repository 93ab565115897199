package poolproto

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestMessageIDPrefersStringThenNumberThenRaw(t *testing.T) {
	require.Equal(t, "missing", messageID(nil))
	require.Equal(t, "abc", messageID(json.RawMessage(`"abc"`)))
	require.Equal(t, "7", messageID(json.RawMessage(`7`)))
	require.Equal(t, "{}", messageID(json.RawMessage(`{}`)))
}

func TestParseLoginRejectsMissingFields(t *testing.T) {
	_, err := parseLogin(json.RawMessage(`{"login":"","rigid":"rig1"}`))
	require.Error(t, err)

	_, err = parseLogin(json.RawMessage(`{"login":"wallet","rigid":""}`))
	require.Error(t, err)

	req, err := parseLogin(json.RawMessage(`{"login":"wallet1","rigid":"rig1","mode":"self-select"}`))
	require.NoError(t, err)
	require.Equal(t, "wallet1", req.Wallet)
	require.Equal(t, selfSelectMode, req.Mode)
}

func TestParseBlockTemplateRequestRejectsBadUUIDs(t *testing.T) {
	_, err := parseBlockTemplateRequest(json.RawMessage(`{"id":"not-a-uuid","job_id":"` + uuid.NewString() + `"}`))
	require.Error(t, err)

	_, err = parseBlockTemplateRequest(json.RawMessage(`{"id":"` + uuid.NewString() + `","job_id":"nope"}`))
	require.Error(t, err)
}

func TestParseBlockTemplateRequestAccepted(t *testing.T) {
	clientID := uuid.NewString()
	jobID := uuid.NewString()
	raw := json.RawMessage(`{"id":"` + clientID + `","job_id":"` + jobID + `","blob":"deadbeef","height":100,"difficulty":5,"prev_hash":"abc"}`)

	req, err := parseBlockTemplateRequest(raw)
	require.NoError(t, err)
	require.Equal(t, clientID, req.ClientID)
	require.Equal(t, jobID, req.JobID)
	require.Equal(t, "deadbeef", req.Blob)
	require.Equal(t, int64(100), req.Height)
}

func TestParseSubmitRejectsMissingNonceOrResult(t *testing.T) {
	clientID := uuid.NewString()
	jobID := uuid.NewString()

	_, err := parseSubmit(json.RawMessage(`{"id":"` + clientID + `","job_id":"` + jobID + `","nonce":"","result":"abc"}`))
	require.Error(t, err)

	_, err = parseSubmit(json.RawMessage(`{"id":"` + clientID + `","job_id":"` + jobID + `","nonce":"abc","result":""}`))
	require.Error(t, err)

	req, err := parseSubmit(json.RawMessage(`{"id":"` + clientID + `","job_id":"` + jobID + `","nonce":"abc","result":"def"}`))
	require.NoError(t, err)
	require.Equal(t, "abc", req.Nonce)
	require.Equal(t, "def", req.Result)
}

func TestStatusAndErrorBodyShape(t *testing.T) {
	body := statusBody(statusOK, "7")
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.Equal(t, statusOK, decoded["status"])
	require.Nil(t, decoded["error"])
	require.Equal(t, "7", decoded["id"])

	body = errorBody("bad request", "7")
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.Nil(t, decoded["result"])
	errField, ok := decoded["error"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "bad request", errField["message"])
}

func TestJobResponseNormalModeCarriesBlob(t *testing.T) {
	body, err := jobResponse("client-1", "job-1", 1000, 500, "beef", "pool-wallet", "nonce1", "", "msg-1")
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))
	result := decoded["result"].(map[string]interface{})
	job := result["job"].(map[string]interface{})
	require.Equal(t, "beef", job["blob"])
	require.Nil(t, job["pool_wallet"])
}

func TestJobResponseSelfSelectModeCarriesPoolWalletAndNonce(t *testing.T) {
	body, err := jobResponse("client-1", "job-1", 1000, 500, "beef", "pool-wallet", "nonce1", selfSelectMode, "msg-1")
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))
	result := decoded["result"].(map[string]interface{})
	job := result["job"].(map[string]interface{})
	require.Equal(t, "pool-wallet", job["pool_wallet"])
	require.Equal(t, "nonce1", job["extra_nonce"])
	require.Nil(t, job["blob"])
}

func TestJobResponseRejectsUnknownMode(t *testing.T) {
	_, err := jobResponse("client-1", "job-1", 1000, 500, "beef", "pool-wallet", "nonce1", "bogus", "msg-1")
	require.Error(t, err)
}
