package pooldb

// Schema DDL, adapted from original_source/src/data/sql.rs. Run idempotently
// at startup (CREATE TABLE IF NOT EXISTS) by Gateway.migrate, mirroring
// original_source/src/data/init.rs's load_schema_idempotent, which applies
// the same raw CREATE TABLE statements directly rather than through a
// migration framework.

const createAccountTableSQL = `
CREATE TABLE IF NOT EXISTS account (
	id           BIGSERIAL PRIMARY KEY,
	wallet       TEXT NOT NULL UNIQUE,
	balance      BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
	total_paid   BIGINT NOT NULL DEFAULT 0 CHECK (total_paid >= 0),
	wants_payout BOOLEAN NOT NULL DEFAULT FALSE,
	banned       BOOLEAN NOT NULL DEFAULT FALSE,
	created_on   TIMESTAMPTZ NOT NULL DEFAULT now()
);`

const createMinerTableSQL = `
CREATE TABLE IF NOT EXISTS miner (
	id         BIGSERIAL PRIMARY KEY,
	account_id BIGINT NOT NULL REFERENCES account(id),
	client_id  UUID NOT NULL DEFAULT gen_random_uuid(),
	host       TEXT NOT NULL,
	port       INTEGER NOT NULL,
	wallet     TEXT NOT NULL,
	rigid      TEXT NOT NULL,
	banned     BOOLEAN NOT NULL DEFAULT FALSE,
	created_on TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (wallet, rigid)
);`

const createBlockTemplateTableSQL = `
CREATE TABLE IF NOT EXISTS block_template (
	id                  BIGSERIAL PRIMARY KEY,
	blocktemplate_blob  BYTEA NOT NULL,
	blockhashing_blob   BYTEA NOT NULL,
	reserved_offset     INTEGER NOT NULL,
	reserved_size       INTEGER NOT NULL,
	difficulty          BIGINT NOT NULL,
	height              BIGINT NOT NULL,
	previous_hash       TEXT NOT NULL,
	seed_hash           TEXT NOT NULL,
	next_seed_hash      TEXT,
	origin              TEXT NOT NULL,
	created_on          TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (previous_hash, height)
);`

const createJobTableSQL = `
CREATE TABLE IF NOT EXISTS job (
	id                     UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	miner_id               BIGINT NOT NULL REFERENCES miner(id),
	template_id            BIGINT NOT NULL REFERENCES block_template(id),
	pool_nonce             TEXT NOT NULL,
	target                 BIGINT NOT NULL,
	nonce                  TEXT,
	calculated_difficulty  BIGINT,
	state                  TEXT NOT NULL DEFAULT 'CREATED',
	created_on             TIMESTAMPTZ NOT NULL DEFAULT now()
);`

const createPaymentTableSQL = `
CREATE TABLE IF NOT EXISTS payment (
	id         BIGSERIAL PRIMARY KEY,
	account_id BIGINT NOT NULL REFERENCES account(id),
	amount     BIGINT NOT NULL,
	created_on TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// schemaStatements is the order-dependent list of DDL to apply at startup.
var schemaStatements = []string{
	createAccountTableSQL,
	createMinerTableSQL,
	createBlockTemplateTableSQL,
	createJobTableSQL,
	createPaymentTableSQL,
}
