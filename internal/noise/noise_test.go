package noise

import (
	"bytes"
	"encoding/hex"
	"net"
	"sync"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// recordingConn wraps a net.Conn, appending a copy of every Write call's
// bytes to writes, so a handshake act can be checked against a fixed
// expected wire value.
type recordingConn struct {
	net.Conn
	writes [][]byte
}

func (r *recordingConn) Write(p []byte) (int, error) {
	r.writes = append(r.writes, append([]byte{}, p...))
	return r.Conn.Write(p)
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("decode hex: %v", err)
	}
	return b
}

func mustPrivKey(t *testing.T, hexDigit byte) *secp256k1.PrivateKey {
	t.Helper()
	b := make([]byte, 32)
	for i := range b {
		b[i] = hexDigit
	}
	return secp256k1.PrivKeyFromBytes(b)
}

func TestHandshakeProducesMatchingSessionKeys(t *testing.T) {
	clientStatic := mustPrivKey(t, 0x11)
	clientEphemeral := mustPrivKey(t, 0x12)
	serverStatic := mustPrivKey(t, 0x21)
	serverEphemeral := mustPrivKey(t, 0x22)

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	var wg sync.WaitGroup
	wg.Add(2)

	var clientKeys, serverKeys SessionKeys
	var clientErr, serverErr error
	var remoteOfServer *secp256k1.PublicKey

	go func() {
		defer wg.Done()
		clientKeys, clientErr = InitiatorHandshake(clientConn, clientStatic, clientEphemeral, serverStatic.PubKey())
	}()
	go func() {
		defer wg.Done()
		serverKeys, remoteOfServer, serverErr = ResponderHandshake(serverConn, serverStatic, serverEphemeral)
	}()
	wg.Wait()

	if clientErr != nil {
		t.Fatalf("initiator handshake: %v", clientErr)
	}
	if serverErr != nil {
		t.Fatalf("responder handshake: %v", serverErr)
	}

	if clientKeys.SendKey != serverKeys.RecvKey {
		t.Fatalf("client send key != server recv key")
	}
	if clientKeys.RecvKey != serverKeys.SendKey {
		t.Fatalf("client recv key != server send key")
	}

	if !bytes.Equal(remoteOfServer.SerializeCompressed(), clientStatic.PubKey().SerializeCompressed()) {
		t.Fatalf("server did not learn the client's static key")
	}
}

// TestHandshakeMatchesBOLT8Vectors checks the handshake against the fixed
// BOLT-8 test vectors from original_source's handshake.rs test_handshake:
// static/ephemeral keys 0x11/0x12/0x21/0x22 repeated, with the expected
// Act One (50 bytes), Act Two (50 bytes), Act Three (66 bytes) wire
// values and the final derived sk/rk. This is the check that would have
// caught a wrong ECDH construction (e.g. hashing only the X coordinate
// instead of the full compressed point), since every value downstream of
// the first ECDH differs from the vector the moment that step is wrong.
func TestHandshakeMatchesBOLT8Vectors(t *testing.T) {
	clientStatic := mustPrivKey(t, 0x11)
	clientEphemeral := mustPrivKey(t, 0x12)
	serverStatic := mustPrivKey(t, 0x21)
	serverEphemeral := mustPrivKey(t, 0x22)

	wantActOne := mustHex(t, "00036360e856310ce5d294e8be33fc807077dc56ac80d95d9cd4ddbd21325eff73f70df6086551151f58b8afe6c195782c6a")
	wantActTwo := mustHex(t, "0002466d7fcae563e5cb09a0d1870bb580344804617879a14949cf22285f1bae3f276e2470b93aac583c9ef6eafca3f730ae")
	wantActThree := mustHex(t, "00b9e3a702e93e3a9948c2ed6e5fd7590a6e1c3a0344cfc9d5b57357049aa22355361aa02e55a8fc28fef5bd6d71ad0c38228dc68b1c466263b47fdf31e560e139ba")
	wantRK := mustHex(t, "969ab31b4d288cedf6218839b27a3e2140827047f2c0f01bf5c04435d43511a9")
	wantSK := mustHex(t, "bb9020b8965f4df047e07f955f3c4b88418984aadc5cdb35096b9ea8fa5c3442")

	clientConnRaw, serverConnRaw := net.Pipe()
	defer clientConnRaw.Close()
	defer serverConnRaw.Close()
	clientConn := &recordingConn{Conn: clientConnRaw}
	serverConn := &recordingConn{Conn: serverConnRaw}

	var wg sync.WaitGroup
	wg.Add(2)

	var clientKeys, serverKeys SessionKeys
	var clientErr, serverErr error
	go func() {
		defer wg.Done()
		clientKeys, clientErr = InitiatorHandshake(clientConn, clientStatic, clientEphemeral, serverStatic.PubKey())
	}()
	go func() {
		defer wg.Done()
		serverKeys, _, serverErr = ResponderHandshake(serverConn, serverStatic, serverEphemeral)
	}()
	wg.Wait()

	if clientErr != nil {
		t.Fatalf("initiator handshake: %v", clientErr)
	}
	if serverErr != nil {
		t.Fatalf("responder handshake: %v", serverErr)
	}

	if len(clientConn.writes) != 2 {
		t.Fatalf("got %d initiator writes, want 2 (act one, act three)", len(clientConn.writes))
	}
	if !bytes.Equal(clientConn.writes[0], wantActOne) {
		t.Fatalf("act one: got %x, want %x", clientConn.writes[0], wantActOne)
	}
	if !bytes.Equal(clientConn.writes[1], wantActThree) {
		t.Fatalf("act three: got %x, want %x", clientConn.writes[1], wantActThree)
	}

	if len(serverConn.writes) != 1 {
		t.Fatalf("got %d responder writes, want 1 (act two)", len(serverConn.writes))
	}
	if !bytes.Equal(serverConn.writes[0], wantActTwo) {
		t.Fatalf("act two: got %x, want %x", serverConn.writes[0], wantActTwo)
	}

	if !bytes.Equal(clientKeys.SendKey[:], wantRK) {
		t.Fatalf("initiator send key: got %x, want %x", clientKeys.SendKey, wantRK)
	}
	if !bytes.Equal(clientKeys.RecvKey[:], wantSK) {
		t.Fatalf("initiator recv key: got %x, want %x", clientKeys.RecvKey, wantSK)
	}
	if !bytes.Equal(serverKeys.RecvKey[:], wantRK) {
		t.Fatalf("responder recv key: got %x, want %x", serverKeys.RecvKey, wantRK)
	}
	if !bytes.Equal(serverKeys.SendKey[:], wantSK) {
		t.Fatalf("responder send key: got %x, want %x", serverKeys.SendKey, wantSK)
	}
}

func TestFramedTransportRoundTrip(t *testing.T) {
	clientStatic := mustPrivKey(t, 0x31)
	clientEphemeral := mustPrivKey(t, 0x32)
	serverStatic := mustPrivKey(t, 0x41)
	serverEphemeral := mustPrivKey(t, 0x42)

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	var wg sync.WaitGroup
	wg.Add(2)

	var clientKeys, serverKeys SessionKeys
	go func() {
		defer wg.Done()
		clientKeys, _ = InitiatorHandshake(clientConn, clientStatic, clientEphemeral, serverStatic.PubKey())
	}()
	go func() {
		defer wg.Done()
		serverKeys, _, _ = ResponderHandshake(serverConn, serverStatic, serverEphemeral)
	}()
	wg.Wait()

	clientSession := NewSession(clientKeys)
	serverSession := NewSession(serverKeys)

	messages := [][]byte{
		[]byte("first message"),
		[]byte("second, a little longer message"),
		{},
	}

	var recvWg sync.WaitGroup
	recvWg.Add(1)
	var received [][]byte
	var recvErr error
	go func() {
		defer recvWg.Done()
		for range messages {
			m, err := serverSession.RecvMsg(serverConn)
			if err != nil {
				recvErr = err
				return
			}
			received = append(received, m)
		}
	}()

	for _, m := range messages {
		if err := clientSession.SendMsg(clientConn, m); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	recvWg.Wait()

	if recvErr != nil {
		t.Fatalf("recv: %v", recvErr)
	}
	if len(received) != len(messages) {
		t.Fatalf("got %d messages, want %d", len(received), len(messages))
	}
	for i, m := range messages {
		if !bytes.Equal(received[i], m) {
			t.Fatalf("message %d mismatch: got %q want %q", i, received[i], m)
		}
	}
}

func TestResponderRejectsWrongStatic(t *testing.T) {
	clientStatic := mustPrivKey(t, 0x51)
	clientEphemeral := mustPrivKey(t, 0x52)
	serverStatic := mustPrivKey(t, 0x61)
	serverEphemeral := mustPrivKey(t, 0x62)
	wrongStatic := mustPrivKey(t, 0x99)

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	var wg sync.WaitGroup
	wg.Add(2)

	var clientErr, serverErr error
	go func() {
		defer wg.Done()
		// client believes it is talking to wrongStatic, not serverStatic.
		_, clientErr = InitiatorHandshake(clientConn, clientStatic, clientEphemeral, wrongStatic.PubKey())
		clientConn.Close()
	}()
	go func() {
		defer wg.Done()
		_, _, serverErr = ResponderHandshake(serverConn, serverStatic, serverEphemeral)
		serverConn.Close()
	}()
	wg.Wait()

	if clientErr == nil && serverErr == nil {
		t.Fatalf("expected a handshake failure when the initiator has the wrong responder static key")
	}
}
