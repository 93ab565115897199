package poolproto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"

	"github.com/AndesWebDesign/rustpool/pooldb"
)

// splitHostPort breaks a net.Addr into the host/port pair Login records,
// falling back to the whole address string as host and port 0 on a
// malformed address rather than failing the request.
func splitHostPort(addr net.Addr) (string, int) {
	host, portStr, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String(), 0
	}
	var port int
	fmt.Sscanf(portStr, "%d", &port)
	return host, port
}

// freshPoolNonce generates a random hex-encoded pool nonce of the
// template's reserved size, one per job so distinct miners searching the
// same template never collide on the same nonce space.
func freshPoolNonce(reserveSize int) (string, error) {
	buf := make([]byte, reserveSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("poolproto: generate pool nonce: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// renderJobResponse builds the login response's job body for either
// normal mode (the miner receives the ready-to-hash blob) or self-select
// mode (the miner receives only the pool wallet and its assigned nonce
// space and builds its own block template).
func (e *Engine) renderJobResponse(job *pooldb.JobView, clientID, mode, msgID string) []byte {
	body, err := jobResponse(
		clientID,
		job.ID,
		job.Target,
		job.Template.Height,
		hex.EncodeToString(job.BlockhashingBlob),
		e.cfg.Wallet,
		job.PoolNonce,
		mode,
		msgID,
	)
	if err != nil {
		log.Errorf("could not render job response: %v", err)
		return errorBody("could not get job", msgID)
	}
	return body
}
