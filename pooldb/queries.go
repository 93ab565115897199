package pooldb

// SQL text adapted from original_source/src/data/sql.rs. Two statements
// there concatenate SET clauses with " AND " instead of a comma, which
// Postgres accepts as a boolean expression rather than a second assignment
// and silently drops the second column from the UPDATE; both are corrected
// here to comma-separated SET lists.

const loginSelectMinerSQL = `
SELECT m.id, m.account_id, m.client_id, m.host, m.port, m.wallet, m.rigid, m.banned, m.created_on,
       COALESCE(SUM(CASE WHEN j.state = 'CREATED' THEN 1 ELSE 0 END), 0)  AS open_jobs,
       COALESCE(SUM(CASE WHEN j.state = 'ERROR'   THEN 1 ELSE 0 END), 0)  AS error_jobs,
       COUNT(j.id)                                                        AS total_jobs
FROM miner m
LEFT JOIN job j ON j.miner_id = m.id
WHERE m.wallet = $1 AND m.rigid = $2
GROUP BY m.id`

const loginInsertMinerSQL = `
INSERT INTO miner (account_id, host, port, wallet, rigid)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, account_id, client_id, host, port, wallet, rigid, banned, created_on`

const findAccountByWalletSQL = `SELECT id, wallet, balance, total_paid, wants_payout, banned, created_on FROM account WHERE wallet = $1`

const insertAccountSQL = `
INSERT INTO account (wallet)
VALUES ($1)
RETURNING id, wallet, balance, total_paid, wants_payout, banned, created_on`

const insertBackendTemplateSQL = `
INSERT INTO block_template
	(blocktemplate_blob, blockhashing_blob, reserved_offset, reserved_size, difficulty, height, previous_hash, seed_hash, next_seed_hash, origin)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'BACKEND')
ON CONFLICT (previous_hash, height) DO NOTHING
RETURNING id, blocktemplate_blob, blockhashing_blob, reserved_offset, reserved_size, difficulty, height, previous_hash, seed_hash, next_seed_hash, origin, created_on`

const insertMinerTemplateSQL = `
INSERT INTO block_template
	(blocktemplate_blob, blockhashing_blob, reserved_offset, reserved_size, difficulty, height, previous_hash, seed_hash, next_seed_hash, origin)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'MINER')
RETURNING id, blocktemplate_blob, blockhashing_blob, reserved_offset, reserved_size, difficulty, height, previous_hash, seed_hash, next_seed_hash, origin, created_on`

const latestTemplateSQL = `
SELECT id, blocktemplate_blob, blockhashing_blob, reserved_offset, reserved_size, difficulty, height, previous_hash, seed_hash, next_seed_hash, origin, created_on
FROM block_template
WHERE origin = 'BACKEND'
ORDER BY id DESC
LIMIT 1`

// insertJobSQL restores the windowed per-miner difficulty controller
// original_source/src/data/sql.rs's CREATE_JOB_SQL computes: hr estimates
// the miner's recent hashrate as the sum of targets it was assigned within
// the trailing windowSeconds divided by that window, floored at
// poolMinDifficulty, then clamped to at most the template's own
// difficulty so a job's target never exceeds it.
const insertJobSQL = `
WITH hr AS (
	SELECT GREATEST(SUM(COALESCE(target, 0)) / NULLIF($5::BIGINT, 0), $4::BIGINT) AS diff
	FROM job
	WHERE miner_id = $1
	  AND created_on > now() - make_interval(secs => $5::INTEGER)
)
INSERT INTO job (miner_id, template_id, pool_nonce, target, state)
SELECT $1, $2, $3, LEAST(t.difficulty, hr.diff), 'CREATED'
FROM block_template t, hr
WHERE t.id = $2
RETURNING id, miner_id, template_id, pool_nonce, target, nonce, calculated_difficulty, state, created_on`

const jobByIDSQL = `
SELECT j.id, j.miner_id, j.template_id, j.pool_nonce, j.target, j.nonce, j.calculated_difficulty, j.state, j.created_on,
       t.id AS "template.id", t.blocktemplate_blob AS "template.blocktemplate_blob", t.blockhashing_blob AS "template.blockhashing_blob",
       t.reserved_offset AS "template.reserved_offset", t.reserved_size AS "template.reserved_size",
       t.difficulty AS "template.difficulty", t.height AS "template.height", t.previous_hash AS "template.previous_hash",
       t.seed_hash AS "template.seed_hash", t.next_seed_hash AS "template.next_seed_hash",
       t.origin AS "template.origin", t.created_on AS "template.created_on"
FROM job j
JOIN block_template t ON t.id = j.template_id
WHERE j.id = $1`

// setJobSubmitSQL is the corrected form of original_source's
// UPDATE_JOB_SUBMIT_SQL: that statement reads
// "SET nonce = $1 AND calculated_difficulty = $2 AND state = $3 WHERE id = $4",
// which Postgres parses as a single boolean-valued SET nonce = (...) and
// never touches calculated_difficulty or state. The added
// "AND state = 'CREATED'" guard makes this the at-most-once gate on a
// submit: a job already moved to FINISHED, ERROR, or PROCESSED affects
// zero rows instead of being re-accepted or re-credited.
const setJobSubmitSQL = `
UPDATE job
SET nonce = $1, calculated_difficulty = $2, state = $3
WHERE id = $4 AND state = 'CREATED'`

const setJobStateSQL = `UPDATE job SET state = $1 WHERE id = $2`

// accountsForPayoutSQL restores the two-branch predicate
// original_source/src/data/sql.rs's GET_ACCOUNTS_FOR_PAYOUT_SQL uses:
// accounts above the automatic-payout threshold are paid regardless of
// wants_payout, and accounts that opted in are paid above the lower
// manual threshold.
const accountsForPayoutSQL = `
SELECT id, wallet, balance
FROM account
WHERE balance > $1 OR (wants_payout AND balance > $2)
ORDER BY id`

// insertPaymentSQL is the corrected form of original_source's ADD_PAYMENT_SQL,
// which similarly ANDs the balance decrement into the INSERT's RETURNING
// clause instead of running it as a second statement; this implementation
// does the decrement and the insert inside a single transaction instead
// (see Gateway.RecordPayment), so only the INSERT needs to exist here.
const insertPaymentSQL = `
INSERT INTO payment (account_id, amount)
VALUES ($1, $2)
RETURNING id, account_id, amount, created_on`

const debitAccountForPaymentSQL = `
UPDATE account
SET balance = balance - $2, total_paid = total_paid + $2
WHERE id = $1 AND balance >= $2`

// creditShareSQL implements the PPS credit rule: every FINISHED job
// credits its miner's account by calculated_difficulty * rate, then
// moves to PROCESSED.
const creditShareSQL = `
UPDATE account
SET balance = balance + $2
WHERE id = (SELECT account_id FROM miner WHERE id = (SELECT miner_id FROM job WHERE id = $1))`

// jobForClientAndJobIDSQL restores original_source's GET_JOB_FOR_MINER
// filter on j.state = 'CREATED': a job that already finished, errored, or
// was processed is invisible to this lookup, so neither a resubmit nor a
// repeat self-select request can find and mutate it a second time.
const jobForClientAndJobIDSQL = `
SELECT j.id, j.miner_id, j.template_id, j.pool_nonce, j.target, j.nonce, j.calculated_difficulty, j.state, j.created_on,
       t.id AS "template.id", t.blocktemplate_blob AS "template.blocktemplate_blob", t.blockhashing_blob AS "template.blockhashing_blob",
       t.reserved_offset AS "template.reserved_offset", t.reserved_size AS "template.reserved_size",
       t.difficulty AS "template.difficulty", t.height AS "template.height", t.previous_hash AS "template.previous_hash",
       t.seed_hash AS "template.seed_hash", t.next_seed_hash AS "template.next_seed_hash",
       t.origin AS "template.origin", t.created_on AS "template.created_on"
FROM job j
JOIN miner m ON m.id = j.miner_id
JOIN block_template t ON t.id = j.template_id
WHERE m.client_id = $1 AND j.id = $2 AND j.state = 'CREATED'`

const updateMinerBlockTemplateSQL = `
UPDATE block_template
SET blocktemplate_blob = $2, height = $3, difficulty = $4, previous_hash = $5
WHERE id = (SELECT template_id FROM job WHERE id = $1)`

const finishedJobsForAccountingSQL = `
SELECT j.id, j.miner_id, j.template_id, j.pool_nonce, j.target, j.nonce, j.calculated_difficulty, j.state, j.created_on
FROM job j
WHERE j.state = 'FINISHED'
ORDER BY j.created_on`
