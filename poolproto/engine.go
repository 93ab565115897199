package poolproto

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/AndesWebDesign/rustpool/poolcfg"
	"github.com/AndesWebDesign/rustpool/poolchain"
	"github.com/AndesWebDesign/rustpool/poolcodec"
	"github.com/AndesWebDesign/rustpool/poolhash"
	"github.com/AndesWebDesign/rustpool/pooldb"
	"github.com/AndesWebDesign/rustpool/poolmetrics"
)

// Engine is the Protocol Engine: it owns the miner-facing listener, the
// block-notify listener, and the periodic drivers, and dispatches each to
// the Persistence Gateway, Chain Oracle, and Hash Kernel. Grounded on
// original_source/src/pool/exec.rs's run_pool, which wires the same set of
// concerns together by node role.
type Engine struct {
	cfg     poolcfg.Config
	db      *pooldb.Gateway
	chain   *poolchain.Client
	seeds   *poolhash.SeedCache
	metrics *poolmetrics.Metrics

	loginLimiters   map[string]*rate.Limiter
	loginLimitersMu sync.Mutex
}

// New builds an Engine from its already-constructed dependencies.
func New(cfg poolcfg.Config, db *pooldb.Gateway, chain *poolchain.Client, seeds *poolhash.SeedCache, metrics *poolmetrics.Metrics) *Engine {
	return &Engine{
		cfg:           cfg,
		db:            db,
		chain:         chain,
		seeds:         seeds,
		metrics:       metrics,
		loginLimiters: make(map[string]*rate.Limiter),
	}
}

// limiterFor returns the per-wallet login rate limiter, creating one on
// first use. Supplemented beyond original_source, which has no login
// throttling at all.
func (e *Engine) limiterFor(wallet string) *rate.Limiter {
	e.loginLimitersMu.Lock()
	defer e.loginLimitersMu.Unlock()
	l, ok := e.loginLimiters[wallet]
	if !ok {
		l = rate.NewLimiter(rate.Every(time.Second), 5)
		e.loginLimiters[wallet] = l
	}
	return l
}

// Run starts every task appropriate to cfg.NodeRole and blocks until ctx
// is canceled or one task returns an error. Grounded on
// original_source/src/pool/exec.rs's run_pool role switch.
func (e *Engine) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	errCh := make(chan error, 4)

	start := func(task func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := task(ctx); err != nil {
				errCh <- err
			}
		}()
	}

	switch e.cfg.NodeRole {
	case poolcfg.NodeRoleBackend:
		start(e.runSyncChainStateTimer)
		start(e.runBlockNotifyListener)
		start(e.runPaymentsTimer)
	case poolcfg.NodeRoleWorker:
		start(e.runWorkerListener)
	case poolcfg.NodeRoleCombined:
		start(e.runSyncChainStateTimer)
		start(e.runBlockNotifyListener)
		start(e.runPaymentsTimer)
		start(e.runWorkerListener)
	default:
		return fmt.Errorf("poolproto: node role not recognized: %s", e.cfg.NodeRole)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case err := <-errCh:
		return err
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runWorkerListener accepts connections and hands each to its own
// goroutine, which reads exactly one request, dispatches it, writes
// exactly one response, and closes the connection — the request-per-connection model this protocol uses
// instead of a long-lived stratum session.
func (e *Engine) runWorkerListener(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", e.cfg.PoolListenHost, e.cfg.PoolListenPort)
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
				log.Errorf("accept failed: %v", err)
				continue
			}
		}
		go e.handleConnection(ctx, conn)
	}
}

func (e *Engine) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	msg, err := readMessage(conn)
	if err != nil {
		log.Errorf("could not read message: %v", err)
		return
	}

	resp := e.dispatch(ctx, msg, conn.RemoteAddr())
	if !writeMessage(conn, resp) {
		log.Errorf("unable to write message response")
	}
}

func (e *Engine) dispatch(ctx context.Context, msg rpcMessage, addr net.Addr) []byte {
	id := messageID(msg.ID)
	switch msg.Method {
	case methodLogin:
		return e.handleLogin(ctx, msg.Params, id, addr)
	case methodBlockTemplate:
		return e.handleBlockTemplateRequest(ctx, msg.Params, id)
	case methodSubmit:
		return e.handleSubmit(ctx, msg.Params, id)
	case methodKeepalive:
		return statusBody(statusKeepalive, id)
	default:
		log.Errorf("method not recognized: %s from address: %s", msg.Method, addr)
		return errorBody("method not recognized", id)
	}
}
