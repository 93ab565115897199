// Package pooldb is the Persistence Gateway: a narrow interface over
// accounts, miners, block templates, jobs, and payments with well-defined
// idempotence and conflict semantics, backed by PostgreSQL via
// github.com/jmoiron/sqlx and github.com/lib/pq. Grounded on
// original_source/src/data/sql.rs, src/data/api.rs, and src/data/init.rs;
// styled after the donor node's per-package layout (one file per concern).
package pooldb

import "time"

// JobState is the lifecycle state of a Job: CREATED -> {FINISHED, ERROR};
// FINISHED -> PROCESSED.
type JobState string

const (
	JobStateCreated   JobState = "CREATED"
	JobStateFinished  JobState = "FINISHED"
	JobStateProcessed JobState = "PROCESSED"
	JobStateError     JobState = "ERROR"
)

// TemplateOrigin distinguishes a template fetched from the daemon from one
// proposed by a self-select miner.
type TemplateOrigin string

const (
	TemplateOriginBackend TemplateOrigin = "BACKEND"
	TemplateOriginMiner   TemplateOrigin = "MINER"
)

// Account is a pool wallet's accrued balance and payout preferences.
type Account struct {
	ID           int64     `db:"id"`
	Wallet       string    `db:"wallet"`
	Balance      int64     `db:"balance"`
	TotalPaid    int64     `db:"total_paid"`
	WantsPayout  bool      `db:"wants_payout"`
	Banned       bool      `db:"banned"`
	CreatedOn    time.Time `db:"created_on"`
}

// Miner is a (wallet, rigid) worker identity, stable across reconnects.
type Miner struct {
	ID        int64     `db:"id"`
	AccountID int64     `db:"account_id"`
	ClientID  string    `db:"client_id"` // UUID
	Host      string    `db:"host"`
	Port      int       `db:"port"`
	Wallet    string    `db:"wallet"`
	RigID     string    `db:"rigid"`
	Banned    bool      `db:"banned"`
	CreatedOn time.Time `db:"created_on"`
}

// MinerView is a Miner joined with a window of recent job-state counts, as
// returned by Login. CanHaveJob restates
// original_source/src/structs/mod.rs's MinerDTO::can_have_job eligibility
// predicate, dropped by the distillation's prose description of the same
// three checks in the login handler.
type MinerView struct {
	Miner
	OpenJobs  int64 `db:"open_jobs"`
	ErrorJobs int64 `db:"error_jobs"`
	TotalJobs int64 `db:"total_jobs"`
}

// CanHaveJob reports whether this miner is eligible for a new job: not
// banned, not over the error-job cap, and under the open-job cap.
func (m MinerView) CanHaveJob(maxErrorJobs, maxOpenJobs int64) bool {
	if m.Banned {
		return false
	}
	if m.ErrorJobs > maxErrorJobs {
		return false
	}
	if m.OpenJobs >= maxOpenJobs {
		return false
	}
	return true
}

// BlockTemplate is a binary block template and its codec-derived fields.
// Never mutated once inserted.
type BlockTemplate struct {
	ID                int64          `db:"id"`
	BlocktemplateBlob []byte         `db:"blocktemplate_blob"`
	BlockhashingBlob   []byte         `db:"blockhashing_blob"`
	ReservedOffset    int            `db:"reserved_offset"`
	ReservedSize      int            `db:"reserved_size"`
	Difficulty        int64          `db:"difficulty"`
	Height            int64          `db:"height"`
	PreviousHash      string         `db:"previous_hash"`
	SeedHash          string         `db:"seed_hash"`
	NextSeedHash      *string        `db:"next_seed_hash"`
	Origin            TemplateOrigin `db:"origin"`
	CreatedOn         time.Time      `db:"created_on"`
}

// Job is a unit of mining work assigned to a miner against a template.
type Job struct {
	ID                   string    `db:"id"` // UUID
	MinerID              int64     `db:"miner_id"`
	TemplateID           int64     `db:"template_id"`
	PoolNonce            string    `db:"pool_nonce"`
	Target               int64     `db:"target"`
	Nonce                *string   `db:"nonce"`
	CalculatedDifficulty *int64    `db:"calculated_difficulty"`
	State                JobState  `db:"state"`
	CreatedOn            time.Time `db:"created_on"`
}

// JobView is a Job joined with its template's fields, as create_job and
// get_job_for_miner return it. BlocktemplateBlob and BlockhashingBlob are
// derived fresh on every fetch (the underlying BlockTemplate row is never
// mutated) by injecting the job's pool nonce and recomputing the hashing
// blob, matching original_source/src/data/api.rs's create_job, which calls
// format_block_template + get_hashing_blob_from_template to mutate the
// returned row rather than leaving it a pass-through of the stored
// template.
type JobView struct {
	Job
	Template          BlockTemplate
	BlocktemplateBlob []byte `db:"-"`
	BlockhashingBlob  []byte `db:"-"`
}

// Payment is a single payout dispatched to an account.
type Payment struct {
	ID        int64     `db:"id"`
	AccountID int64     `db:"account_id"`
	Amount    int64     `db:"amount"`
	CreatedOn time.Time `db:"created_on"`
}

// AccountSlim is the minimal projection accounts_for_payout returns.
type AccountSlim struct {
	ID      int64  `db:"id"`
	Wallet  string `db:"wallet"`
	Balance int64  `db:"balance"`
}
