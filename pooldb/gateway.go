package pooldb

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/AndesWebDesign/rustpool/poolcodec"
)

// Gateway is the Persistence Gateway: every account, miner, template,
// job, and payment read and write goes through one of its methods.
// Grounded on
// original_source/src/data/api.rs's PoolDatabase trait, adapted to sqlx's
// struct-scanning conventions in place of sqlx-rs's query_as! macros.
type Gateway struct {
	db *sqlx.DB
}

// Open connects to Postgres and applies the schema idempotently.
func Open(ctx context.Context, dataSourceName string) (*Gateway, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("pooldb: connect: %w", err)
	}
	g := &Gateway{db: db}
	if err := g.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return g, nil
}

func (g *Gateway) migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := g.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("pooldb: apply schema: %w", err)
		}
	}
	return nil
}

// Close releases the underlying connection pool.
func (g *Gateway) Close() error {
	return g.db.Close()
}

// Login finds or creates the (wallet, rigid) miner and its owning account,
// returning a MinerView with its current job-state counts. Grounded on
// original_source/src/pool/worker.rs's handle_login.
func (g *Gateway) Login(ctx context.Context, wallet, rigID, host string, port int) (*MinerView, error) {
	var account Account
	err := g.db.GetContext(ctx, &account, findAccountByWalletSQL, wallet)
	if err == sql.ErrNoRows {
		if err := g.db.GetContext(ctx, &account, insertAccountSQL, wallet); err != nil {
			return nil, fmt.Errorf("pooldb: create account: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("pooldb: find account: %w", err)
	}

	var view MinerView
	err = g.db.GetContext(ctx, &view, loginSelectMinerSQL, wallet, rigID)
	if err == sql.ErrNoRows {
		var m Miner
		if err := g.db.GetContext(ctx, &m, loginInsertMinerSQL, account.ID, host, port, wallet, rigID); err != nil {
			return nil, fmt.Errorf("pooldb: create miner: %w", err)
		}
		return &MinerView{Miner: m}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pooldb: find miner: %w", err)
	}
	return &view, nil
}

// LatestTemplate returns the most recently inserted BACKEND-origin block
// template, or sql.ErrNoRows if none exists yet.
func (g *Gateway) LatestTemplate(ctx context.Context) (*BlockTemplate, error) {
	var t BlockTemplate
	if err := g.db.GetContext(ctx, &t, latestTemplateSQL); err != nil {
		return nil, err
	}
	return &t, nil
}

// InsertBackendTemplate records a template fetched from the chain daemon.
// Idempotent on (previous_hash, height): a duplicate insert is a no-op and
// returns a nil template with a nil error, which callers treat as
// "already known, nothing to do".
func (g *Gateway) InsertBackendTemplate(ctx context.Context, t BlockTemplate) (*BlockTemplate, error) {
	var out BlockTemplate
	err := g.db.GetContext(ctx, &out, insertBackendTemplateSQL,
		t.BlocktemplateBlob, t.BlockhashingBlob, t.ReservedOffset, t.ReservedSize,
		t.Difficulty, t.Height, t.PreviousHash, t.SeedHash, t.NextSeedHash)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pooldb: insert backend template: %w", err)
	}
	return &out, nil
}

// InsertMinerTemplate records a template a self-select miner proposed.
// Callers must have already checked poolcfg's allow_self_select gate; the
// gateway does not re-check it — that stays a config-layer concern.
func (g *Gateway) InsertMinerTemplate(ctx context.Context, t BlockTemplate) (*BlockTemplate, error) {
	var out BlockTemplate
	err := g.db.GetContext(ctx, &out, insertMinerTemplateSQL,
		t.BlocktemplateBlob, t.BlockhashingBlob, t.ReservedOffset, t.ReservedSize,
		t.Difficulty, t.Height, t.PreviousHash, t.SeedHash, t.NextSeedHash)
	if err != nil {
		return nil, fmt.Errorf("pooldb: insert miner template: %w", err)
	}
	return &out, nil
}

// CreateJob assigns the given miner the current template with a fresh pool
// nonce and a windowed target, returning the joined view the Protocol
// Engine sends as a job notification. The target is the per-miner
// difficulty controller: insertJobSQL estimates the miner's hashrate as
// the sum of targets it has been assigned within windowSeconds divided by
// that window, floors it at poolMinDifficulty, and caps it at the
// template's own difficulty so a job is never harder than the block it is
// for.
func (g *Gateway) CreateJob(ctx context.Context, minerID, templateID int64, poolNonce string, poolMinDifficulty int64, windowSeconds int) (*JobView, error) {
	var j Job
	if err := g.db.GetContext(ctx, &j, insertJobSQL, minerID, templateID, poolNonce, poolMinDifficulty, windowSeconds); err != nil {
		return nil, fmt.Errorf("pooldb: create job: %w", err)
	}
	return g.GetJob(ctx, j.ID)
}

// GetJob fetches a job joined with its template and derives its
// pool-nonce-injected blobs.
func (g *Gateway) GetJob(ctx context.Context, jobID string) (*JobView, error) {
	var jv JobView
	if err := g.db.GetContext(ctx, &jv, jobByIDSQL, jobID); err != nil {
		return nil, fmt.Errorf("pooldb: get job: %w", err)
	}
	if err := deriveJobBlobs(&jv); err != nil {
		return nil, fmt.Errorf("pooldb: derive job blobs: %w", err)
	}
	return &jv, nil
}

// deriveJobBlobs injects jv.PoolNonce into the template's
// blocktemplate_blob at its reserved region and recomputes the hashing
// blob from the result, matching original_source's create_job contract.
func deriveJobBlobs(jv *JobView) error {
	withPoolNonce, err := poolcodec.InjectPoolNonce(jv.Template.BlocktemplateBlob, jv.PoolNonce, jv.Template.ReservedOffset, jv.Template.ReservedSize)
	if err != nil {
		return err
	}
	jv.BlocktemplateBlob = withPoolNonce

	hashingHex, err := poolcodec.HashingBlob(withPoolNonce)
	if err != nil {
		return err
	}
	hashingBlob, err := hex.DecodeString(hashingHex)
	if err != nil {
		return fmt.Errorf("decode derived hashing blob: %w", err)
	}
	jv.BlockhashingBlob = hashingBlob
	return nil
}

// GetJobForClient fetches the job with jobID, scoped to the miner
// identified by clientID, so one miner can never poll another's job by
// guessing an ID. Grounded on
// original_source/src/data/api.rs's get_job_for_miner.
func (g *Gateway) GetJobForClient(ctx context.Context, clientID, jobID string) (*JobView, error) {
	var jv JobView
	if err := g.db.GetContext(ctx, &jv, jobForClientAndJobIDSQL, clientID, jobID); err != nil {
		return nil, fmt.Errorf("pooldb: get job for client: %w", err)
	}
	if err := deriveJobBlobs(&jv); err != nil {
		return nil, fmt.Errorf("pooldb: derive job blobs: %w", err)
	}
	return &jv, nil
}

// UpdateMinerBlockTemplate overwrites a self-selected job's template blob,
// height, difficulty, and previous hash with the miner-proposed values, on
// the job's existing template row. Only valid while the job is still
// CREATED.
func (g *Gateway) UpdateMinerBlockTemplate(ctx context.Context, jobID string, blob []byte, height, difficulty int64, prevHash string) error {
	if _, err := g.db.ExecContext(ctx, updateMinerBlockTemplateSQL, jobID, blob, height, difficulty, prevHash); err != nil {
		return fmt.Errorf("pooldb: update miner block template: %w", err)
	}
	return nil
}

// ErrJobNotOpen is returned by AcceptSubmit when the job it targets is no
// longer in state CREATED — a concurrent submit (or state change) already
// settled it, and this one affects zero rows instead of double-crediting
// or reviving a terminal job.
var ErrJobNotOpen = errors.New("pooldb: job not open for submission")

// AcceptSubmit records a miner's solution nonce and the share difficulty
// poolhash.CalculateDifficulty derived from it, and transitions the job to
// FINISHED or ERROR. The update only applies while the job is still
// CREATED; see ErrJobNotOpen.
func (g *Gateway) AcceptSubmit(ctx context.Context, jobID, nonce string, calculatedDifficulty int64, accepted bool) error {
	state := JobStateFinished
	if !accepted {
		state = JobStateError
	}
	res, err := g.db.ExecContext(ctx, setJobSubmitSQL, nonce, calculatedDifficulty, state, jobID)
	if err != nil {
		return fmt.Errorf("pooldb: record submit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pooldb: record submit: rows affected: %w", err)
	}
	if n == 0 {
		return ErrJobNotOpen
	}
	return nil
}

// SetJobState forces a job directly to the given state, used by the
// request handlers to mark a job ERROR when a submit or self-select
// template fails validation.
func (g *Gateway) SetJobState(ctx context.Context, jobID string, state JobState) error {
	if _, err := g.db.ExecContext(ctx, setJobStateSQL, state, jobID); err != nil {
		return fmt.Errorf("pooldb: set job state: %w", err)
	}
	return nil
}

// FinishedJobsForAccounting returns every job currently awaiting a PPS
// credit, oldest first.
func (g *Gateway) FinishedJobsForAccounting(ctx context.Context) ([]Job, error) {
	var jobs []Job
	if err := g.db.SelectContext(ctx, &jobs, finishedJobsForAccountingSQL); err != nil {
		return nil, fmt.Errorf("pooldb: list finished jobs: %w", err)
	}
	return jobs, nil
}

// CreditShare implements the PPS rule: credits the job's owning account
// by calculated_difficulty * ratePerDifficulty and moves the job to
// PROCESSED, atomically within one transaction so a crash between the
// two original_source statements can never double- or zero-credit a
// share.
func (g *Gateway) CreditShare(ctx context.Context, job Job, ratePerDifficulty int64) error {
	if job.CalculatedDifficulty == nil {
		return fmt.Errorf("pooldb: job %s has no calculated difficulty", job.ID)
	}
	credit := *job.CalculatedDifficulty * ratePerDifficulty

	tx, err := g.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pooldb: credit share: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, creditShareSQL, job.ID, credit); err != nil {
		return fmt.Errorf("pooldb: credit share: update balance: %w", err)
	}
	if _, err := tx.ExecContext(ctx, setJobStateSQL, JobStateProcessed, job.ID); err != nil {
		return fmt.Errorf("pooldb: credit share: set processed: %w", err)
	}
	return tx.Commit()
}

// AccountsForPayout lists every account due a payout: balance above
// autoThreshold regardless of preference, or wants_payout and balance
// above the lower manualThreshold.
func (g *Gateway) AccountsForPayout(ctx context.Context, autoThreshold, manualThreshold int64) ([]AccountSlim, error) {
	var accounts []AccountSlim
	if err := g.db.SelectContext(ctx, &accounts, accountsForPayoutSQL, autoThreshold, manualThreshold); err != nil {
		return nil, fmt.Errorf("pooldb: list accounts for payout: %w", err)
	}
	return accounts, nil
}

// RecordPayment debits the account's balance and inserts a payment record
// atomically. The debit's WHERE balance >= amount guard makes a concurrent
// double-payout a no-op affecting zero rows rather than an overdrawn
// balance, which is reported back as an error.
func (g *Gateway) RecordPayment(ctx context.Context, accountID, amount int64) (*Payment, error) {
	tx, err := g.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("pooldb: record payment: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, debitAccountForPaymentSQL, accountID, amount)
	if err != nil {
		return nil, fmt.Errorf("pooldb: record payment: debit: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("pooldb: record payment: rows affected: %w", err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("pooldb: record payment: account %d has insufficient balance for %d", accountID, amount)
	}

	var p Payment
	if err := tx.GetContext(ctx, &p, insertPaymentSQL, accountID, amount); err != nil {
		return nil, fmt.Errorf("pooldb: record payment: insert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("pooldb: record payment: commit: %w", err)
	}
	return &p, nil
}
