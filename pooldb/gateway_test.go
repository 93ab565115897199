package pooldb

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newMockGateway(t *testing.T) (*Gateway, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &Gateway{db: sqlx.NewDb(db, "postgres")}, mock
}

func TestCreditShareUpdatesBalanceThenMarksProcessed(t *testing.T) {
	g, mock := newMockGateway(t)
	diff := int64(1000)
	job := Job{ID: "job-1", CalculatedDifficulty: &diff}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE account")).
		WithArgs("job-1", diff*5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE job SET state = $1 WHERE id = $2")).
		WithArgs(JobStateProcessed, "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := g.CreditShare(context.Background(), job, 5)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreditShareRejectsJobWithoutDifficulty(t *testing.T) {
	g, _ := newMockGateway(t)
	err := g.CreditShare(context.Background(), Job{ID: "job-2"}, 5)
	require.Error(t, err)
}

func TestRecordPaymentDebitsThenInserts(t *testing.T) {
	g, mock := newMockGateway(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE account")).
		WithArgs(int64(7), int64(500)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	rows := sqlmock.NewRows([]string{"id", "account_id", "amount", "created_on"}).
		AddRow(int64(1), int64(7), int64(500), time.Unix(1753900000, 0))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO payment")).
		WithArgs(int64(7), int64(500)).
		WillReturnRows(rows)
	mock.ExpectCommit()

	p, err := g.RecordPayment(context.Background(), 7, 500)
	require.NoError(t, err)
	require.Equal(t, int64(500), p.Amount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordPaymentFailsOnInsufficientBalance(t *testing.T) {
	g, mock := newMockGateway(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE account")).
		WithArgs(int64(7), int64(500)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := g.RecordPayment(context.Background(), 7, 500)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcceptSubmitSetsErrorStateOnRejection(t *testing.T) {
	g, mock := newMockGateway(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE job")).
		WithArgs("deadbeef", int64(42), JobStateError, "job-3").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := g.AcceptSubmit(context.Background(), "job-3", "deadbeef", 42, false)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcceptSubmitRejectsJobNotInCreatedState(t *testing.T) {
	g, mock := newMockGateway(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE job")).
		WithArgs("deadbeef", int64(42), JobStateFinished, "job-4").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := g.AcceptSubmit(context.Background(), "job-4", "deadbeef", 42, true)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrJobNotOpen))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateJobPassesWindowedDifficultyParams(t *testing.T) {
	g, mock := newMockGateway(t)
	rows := sqlmock.NewRows([]string{
		"id", "miner_id", "template_id", "pool_nonce", "target", "nonce", "calculated_difficulty", "state", "created_on",
	}).AddRow("job-5", int64(1), int64(2), "aabbccdd", int64(5000), nil, nil, JobStateCreated, time.Unix(1753900000, 0))
	mock.ExpectQuery(regexp.QuoteMeta("WITH hr AS")).
		WithArgs(int64(1), int64(2), "aabbccdd", int64(1000), 600).
		WillReturnRows(rows)

	// Minimal v1 block: header, one-output miner_tx whose 4-byte extra is
	// the reserved region at offset 80, and no tx_hashes.
	blob := append([]byte{0x01, 0x00, 0x00}, make([]byte, 36)...)
	blob = append(blob, 0x01, 0x00, 0x01, 0xff, 0x00, 0x01, 0x00, 0x02)
	blob = append(blob, make([]byte, 32)...)
	blob = append(blob, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00)

	jobRows := sqlmock.NewRows([]string{
		"id", "miner_id", "template_id", "pool_nonce", "target", "nonce", "calculated_difficulty", "state", "created_on",
		"template.id", "template.blocktemplate_blob", "template.blockhashing_blob",
		"template.reserved_offset", "template.reserved_size", "template.difficulty", "template.height",
		"template.previous_hash", "template.seed_hash", "template.next_seed_hash", "template.origin", "template.created_on",
	}).AddRow("job-5", int64(1), int64(2), "aabbccdd", int64(5000), nil, nil, JobStateCreated, time.Unix(1753900000, 0),
		int64(2), blob, []byte{}, 80, 4, int64(10000), int64(100), "prevhash", "seedhash", nil, "BACKEND", time.Unix(1753900000, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM job j")).
		WithArgs("job-5").
		WillReturnRows(jobRows)

	_, err := g.CreateJob(context.Background(), 1, 2, "aabbccdd", 1000, 600)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountsForPayoutPassesBothThresholds(t *testing.T) {
	g, mock := newMockGateway(t)
	rows := sqlmock.NewRows([]string{"id", "wallet", "balance"}).
		AddRow(int64(1), "wallet-1", int64(9000))
	mock.ExpectQuery(regexp.QuoteMeta("FROM account")).
		WithArgs(int64(5000), int64(1000)).
		WillReturnRows(rows)

	accounts, err := g.AccountsForPayout(context.Background(), 5000, 1000)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}
