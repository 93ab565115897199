package poolproto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
)

// messageBufferSize matches original_source's MESSAGE_BUFFER_SIZE: reads
// proceed in fixed-size chunks until a short read signals the request is
// complete. This implementation deliberately does not keep the connection
// open for a stream of further requests the way a stratum session would
// (mining/mobilex/pool's StratumServer) — each accepted connection carries
// exactly one JSON-RPC request and is closed after one response, per
// original_source/src/stream/http.rs's read_message/write_message pair.
const messageBufferSize = 1024

// readMessage reads one JSON document from conn, chunk by chunk, stopping
// at the first short read (a reliable EOF signal for a client that sends
// exactly one request then stops writing).
func readMessage(conn net.Conn) (rpcMessage, error) {
	var buf bytes.Buffer
	chunk := make([]byte, messageBufferSize)
	for {
		n, err := conn.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return rpcMessage{}, fmt.Errorf("poolproto: read message: %w", err)
		}
		if n < messageBufferSize {
			break
		}
	}

	var msg rpcMessage
	if err := json.Unmarshal(buf.Bytes(), &msg); err != nil {
		return rpcMessage{}, fmt.Errorf("poolproto: decode message: %w", err)
	}
	return msg, nil
}

// writeMessage writes body to conn and reports whether every byte was
// accepted, mirroring original_source's write_message's short-write check.
func writeMessage(conn net.Conn, body json.RawMessage) bool {
	n, err := conn.Write(body)
	return err == nil && n == len(body)
}
