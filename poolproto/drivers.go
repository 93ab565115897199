package poolproto

import (
	"context"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/AndesWebDesign/rustpool/poolchain"
	"github.com/AndesWebDesign/rustpool/pooldb"
)

// isProduction mirrors poolcfg's own check (original_source/src/util/mod.rs's
// is_production): production is the default, and only setting RUSTPOOL_DEV
// to a non-empty value opts a process out of it.
func isProduction() bool {
	return os.Getenv("RUSTPOOL_DEV") == ""
}

// runSyncChainStateTimer polls the daemon for a new block template on a
// fixed interval and records it. Grounded on
// original_source/src/pool/backend.rs's init_sync_chain_state_timer.
func (e *Engine) runSyncChainStateTimer(ctx context.Context) error {
	period := time.Duration(e.cfg.PollRPCIntervalSeconds) * time.Second
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := e.updateBlockTemplate(ctx); err != nil {
				log.Errorf("unable to update block template: %v", err)
			}
		}
	}
}

// runBlockNotifyListener accepts the daemon's block-notify connections
// (one per new block) and refreshes the template immediately rather than
// waiting for the next poll tick. Grounded on
// original_source/src/pool/backend.rs's listen_for_blocks.
func (e *Engine) runBlockNotifyListener(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", e.cfg.BlockNotifyHost, e.cfg.BlockNotifyPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("poolproto: listen on %s: %w", addr, err)
	}
	defer ln.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				log.Errorf("block notify accept failed: %v", err)
				continue
			}
		}
		func() {
			defer conn.Close()
			if _, err := readMessage(conn); err != nil {
				log.Errorf("block notify read failed: %v", err)
			}
		}()
		if err := e.updateBlockTemplate(ctx); err != nil {
			log.Errorf("unable to update block template: %v", err)
		}
	}
}

func (e *Engine) updateBlockTemplate(ctx context.Context) error {
	tmpl, err := e.chain.GetBlockTemplate(ctx, e.cfg.Wallet, int(e.cfg.PoolReserveSizeBytes))
	if err != nil {
		return fmt.Errorf("get latest block template: %w", err)
	}
	e.metrics.TemplatesFetched.Inc()

	blob, err := hex.DecodeString(tmpl.BlocktemplateBlob)
	if err != nil {
		return fmt.Errorf("decode blocktemplate_blob: %w", err)
	}
	hashingBlob, err := hex.DecodeString(tmpl.BlockhashingBlob)
	if err != nil {
		return fmt.Errorf("decode blockhashing_blob: %w", err)
	}

	row := pooldb.BlockTemplate{
		BlocktemplateBlob: blob,
		BlockhashingBlob:  hashingBlob,
		ReservedOffset:    tmpl.ReservedOffset,
		ReservedSize:      int(e.cfg.PoolReserveSizeBytes),
		Difficulty:        tmpl.Difficulty,
		Height:            tmpl.Height,
		PreviousHash:      tmpl.PrevHash,
		SeedHash:          tmpl.SeedHash,
	}
	if tmpl.NextSeedHash != "" {
		row.NextSeedHash = &tmpl.NextSeedHash
	}

	inserted, err := e.db.InsertBackendTemplate(ctx, row)
	if err != nil {
		return fmt.Errorf("insert block template: %w", err)
	}
	if inserted != nil {
		e.metrics.PoolDifficulty.Set(float64(inserted.Difficulty))
	}
	return nil
}

// runPaymentsTimer, if payments are enabled, runs the share-accounting
// pass and then dispatches payouts on a fixed interval; with payments
// disabled it returns at once and neither pass runs. Grounded on
// original_source/src/pool/backend.rs's init_process_payments_timer,
// with process_shares supplemented from a stub (original_source's
// process_shares always returns true without doing anything) into a real
// PPS accounting pass.
func (e *Engine) runPaymentsTimer(ctx context.Context) error {
	if e.cfg.ShouldProcessPayments && !isProduction() {
		return fmt.Errorf("poolproto: payment processing not allowed yet")
	}
	if !e.cfg.ShouldProcessPayments {
		log.Infof("payments processing external")
		return nil
	}

	period := time.Duration(e.cfg.ProcessPaymentsTimerSeconds) * time.Second
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := e.processShares(ctx); err != nil {
				log.Errorf("could not process shares: %v", err)
				continue
			}
			if err := e.processPayments(ctx); err != nil {
				log.Errorf("could not process payments: %v", err)
			}
		}
	}
}

// processShares implements the PPS rule's periodic credit pass: every
// FINISHED job credits its owning account and moves to PROCESSED.
func (e *Engine) processShares(ctx context.Context) error {
	jobs, err := e.db.FinishedJobsForAccounting(ctx)
	if err != nil {
		return fmt.Errorf("list finished jobs: %w", err)
	}
	for _, job := range jobs {
		if err := e.db.CreditShare(ctx, job, e.cfg.PoolPayoutRateAtomicUnitsPerDifficulty); err != nil {
			log.Errorf("could not credit share for job %s: %v", job.ID, err)
			continue
		}
	}
	return nil
}

func (e *Engine) processPayments(ctx context.Context) error {
	unlocked, err := e.chain.GetUnlockedBalance(ctx)
	if err != nil {
		return fmt.Errorf("get unlocked balance: %w", err)
	}
	accounts, err := e.db.AccountsForPayout(ctx, int64(e.cfg.AutoPaymentMinBalanceAtomicUnits), int64(e.cfg.ManualPaymentMinBalanceAtomicUnits))
	if err != nil {
		log.Errorf("could not get accounts for payout: %v", err)
		return nil
	}
	if len(accounts) == 0 {
		log.Infof("no accounts need payout")
		return nil
	}

	var total uint64
	for _, a := range accounts {
		total += uint64(a.Balance)
	}
	if unlocked < total {
		return fmt.Errorf("total payout balance %d exceeds unlocked pool wallet balance %d", total, unlocked)
	}

	destinations := make([]poolchain.Destination, 0, len(accounts))
	for _, a := range accounts {
		destinations = append(destinations, poolchain.Destination{Amount: a.Balance, Address: a.Wallet})
	}
	resp, err := e.chain.TransferSplit(ctx, destinations)
	if err != nil {
		log.Errorf("unable to submit transfers: %v", err)
		return nil
	}
	if len(resp.TxHashes) == 0 || len(resp.TxKeys) == 0 {
		return fmt.Errorf("failure to submit payment transfers")
	}

	for _, a := range accounts {
		if _, err := e.db.RecordPayment(ctx, a.ID, a.Balance); err != nil {
			log.Errorf("could not record payment for account %d: %v", a.ID, err)
			e.metrics.PayoutFailures.Inc()
			continue
		}
		e.metrics.PayoutsSent.Inc()
	}
	return nil
}
