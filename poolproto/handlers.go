package poolproto

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net"
	"strings"

	"github.com/AndesWebDesign/rustpool/poolcodec"
	"github.com/AndesWebDesign/rustpool/poolhash"
	"github.com/AndesWebDesign/rustpool/pooldb"
)

// handleLogin finds-or-creates the miner, checks job eligibility, and
// assigns a fresh job. Grounded on
// original_source/src/pool/worker.rs's handle_login_request.
func (e *Engine) handleLogin(ctx context.Context, params json.RawMessage, msgID string, addr net.Addr) []byte {
	req, err := parseLogin(params)
	if err != nil {
		log.Errorf("could not parse login request: %v", err)
		return errorBody("invalid request", msgID)
	}

	limiter := e.limiterFor(req.Wallet)
	if !limiter.Allow() {
		e.metrics.LoginThrottled.Inc()
		return errorBody("too many login attempts", msgID)
	}
	e.metrics.LoginRequests.Inc()

	host, port := splitHostPort(addr)
	miner, err := e.db.Login(ctx, req.Wallet, req.RigID, host, port)
	if err != nil {
		log.Errorf("miner login failed: %v", err)
		return errorBody("miner not found", msgID)
	}
	if !miner.CanHaveJob(int64(e.cfg.MaxErrorJobsToBlock), int64(e.cfg.MaxOpenJobsToBlock)) {
		log.Warnf("miner cannot have job: %s", req.Wallet)
		return errorBody("job not available", msgID)
	}

	tmpl, err := e.db.LatestTemplate(ctx)
	if err != nil {
		log.Errorf("no template available: %v", err)
		return errorBody("job not available", msgID)
	}

	poolNonce, err := freshPoolNonce(tmpl.ReservedSize)
	if err != nil {
		log.Errorf("could not generate pool nonce: %v", err)
		return errorBody("job not available", msgID)
	}

	job, err := e.db.CreateJob(ctx, miner.ID, tmpl.ID, poolNonce, int64(e.cfg.PoolMinDifficulty), int(e.cfg.PoolStatsWindowSeconds))
	if err != nil {
		log.Errorf("unable to create job: %v", err)
		return errorBody("job not available", msgID)
	}

	return e.renderJobResponse(job, miner.ClientID, req.Mode, msgID)
}

// handleBlockTemplateRequest accepts a self-select miner's proposed
// template for a job still in CREATED state. Grounded on
// original_source/src/pool/worker.rs's handle_block_template_request.
func (e *Engine) handleBlockTemplateRequest(ctx context.Context, params json.RawMessage, msgID string) []byte {
	req, err := parseBlockTemplateRequest(params)
	if err != nil {
		log.Errorf("unable to parse block template message: %v", err)
		return errorBody("invalid message", msgID)
	}
	if !e.cfg.AllowSelfSelect {
		return errorBody("template self select not allowed", msgID)
	}
	if req.Blob == "" {
		log.Errorf("could not parse block template")
		return errorBody("could not parse block template", msgID)
	}

	job, err := e.db.GetJobForClient(ctx, req.ClientID, req.JobID)
	if err != nil {
		log.Warnf("unable to find job for miner with client id: %s", req.ClientID)
		return errorBody("job not available", msgID)
	}
	if job.State != pooldb.JobStateCreated {
		log.Warnf("job not open, maybe a repeat request")
		return errorBody("no job available", msgID)
	}

	blob, err := hex.DecodeString(req.Blob)
	if err != nil {
		log.Errorf("could not decode block template hex")
		_ = e.db.SetJobState(ctx, job.ID, pooldb.JobStateError)
		return errorBody("block template not accepted", msgID)
	}
	if err := e.db.UpdateMinerBlockTemplate(ctx, job.ID, blob, req.Height, req.Difficulty, req.PrevHash); err != nil {
		log.Errorf("could not update miner block template: %v", err)
		_ = e.db.SetJobState(ctx, job.ID, pooldb.JobStateError)
		return errorBody("block template not accepted", msgID)
	}
	return statusBody(statusOK, msgID)
}

// handleSubmit verifies a share: re-assembles the exact bytes the miner
// hashed, recomputes the RandomX hash, and compares it against the
// reported result before accepting or rejecting. Grounded on
// original_source/src/pool/worker.rs's handle_submit_block_request.
func (e *Engine) handleSubmit(ctx context.Context, params json.RawMessage, msgID string) []byte {
	req, err := parseSubmit(params)
	if err != nil {
		log.Errorf("could not parse submit block request: %v", err)
		return errorBody("could not parse", msgID)
	}

	job, err := e.db.GetJobForClient(ctx, req.ClientID, req.JobID)
	if err != nil {
		log.Warnf("no job found for miner with client_id: %s", req.ClientID)
		return errorBody("no job found", msgID)
	}

	hashingBlob, err := poolcodec.InjectMinerNonce(job.BlockhashingBlob, req.Nonce)
	if err != nil {
		log.Errorf("block invalid: %v", err)
		return errorBody("block invalid", msgID)
	}
	computed, err := e.seeds.RandomXHash(hashingBlob, job.Template.SeedHash)
	if err != nil {
		log.Errorf("could not compute randomx hash: %v", err)
		return errorBody("block invalid", msgID)
	}
	computedHex := hex.EncodeToString(computed)
	if !strings.EqualFold(computedHex, req.Result) {
		log.Errorf("submitted hash does not match computed hash")
		_ = e.db.SetJobState(ctx, job.ID, pooldb.JobStateError)
		e.metrics.SharesRejected.Inc()
		return errorBody("block invalid", msgID)
	}

	diff, err := poolhash.CalculateDifficulty(computedHex)
	if err != nil {
		return errorBody("block invalid", msgID)
	}

	if diff.Int64() >= job.Template.Difficulty {
		finalBlock, err := poolcodec.InjectMinerNonce(job.BlocktemplateBlob, req.Nonce)
		if err == nil {
			if err := e.chain.SubmitBlock(ctx, hex.EncodeToString(finalBlock)); err != nil {
				log.Errorf("submit_block failed: %v", err)
			} else {
				e.metrics.BlocksSubmitted.Inc()
			}
		}
		if body := e.acceptShare(ctx, job.ID, req.Nonce, diff.Int64(), msgID); body != nil {
			return body
		}
		e.metrics.SharesAccepted.Inc()
		return statusBody(statusOK, msgID)
	}

	if diff.Int64() >= job.Target {
		if body := e.acceptShare(ctx, job.ID, req.Nonce, diff.Int64(), msgID); body != nil {
			return body
		}
		e.metrics.SharesAccepted.Inc()
		return statusBody(statusOK, msgID)
	}

	_ = e.db.SetJobState(ctx, job.ID, pooldb.JobStateError)
	e.metrics.SharesRejected.Inc()
	return errorBody("difficulty too low", msgID)
}

// acceptShare records an accepted share via AcceptSubmit's conditional
// UPDATE ... WHERE state = 'CREATED', returning nil on success. A non-nil
// return is the error body to send the miner: pooldb.ErrJobNotOpen means a
// concurrent submit (or other state change) already settled this job, so
// the share is rejected rather than double-credited.
func (e *Engine) acceptShare(ctx context.Context, jobID, nonce string, difficulty int64, msgID string) []byte {
	if err := e.db.AcceptSubmit(ctx, jobID, nonce, difficulty, true); err != nil {
		if errors.Is(err, pooldb.ErrJobNotOpen) {
			log.Warnf("job no longer open for submission: %s", jobID)
			e.metrics.SharesRejected.Inc()
			return errorBody("job no longer open", msgID)
		}
		log.Errorf("could not record accepted share: %v", err)
		return errorBody("could not process share", msgID)
	}
	return nil
}
