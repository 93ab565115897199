package poolproto

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReadMessageParsesOneRequestThenStops(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go func() {
		client.Write([]byte(`{"id":1,"method":"keepalived","params":{}}`))
		client.Close()
	}()

	msg, err := readMessage(server)
	require.NoError(t, err)
	require.Equal(t, methodKeepalive, msg.Method)
}

func TestReadMessageRejectsGarbage(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go func() {
		client.Write([]byte("not json"))
		client.Close()
	}()

	_, err := readMessage(server)
	require.Error(t, err)
}

func TestWriteMessageReportsFullWrite(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	done := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 64)
		n, _ := client.Read(buf)
		done <- buf[:n]
	}()

	ok := writeMessage(server, statusBody(statusOK, "1"))
	server.Close()
	require.True(t, ok)

	select {
	case got := <-done:
		require.Contains(t, string(got), statusOK)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for write")
	}
}

func TestWriteMessageFailsOnClosedConn(t *testing.T) {
	server, client := net.Pipe()
	client.Close()
	server.Close()

	require.False(t, writeMessage(server, statusBody(statusOK, "1")))
}
