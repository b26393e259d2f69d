package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/peerdrop/roulette/internal/core/service"
	"github.com/peerdrop/roulette/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	m := service.NewMatchmaker()
	go m.Run()
	t.Cleanup(m.Stop)

	ts := httptest.NewServer(NewHandler(m).NewRouter())
	t.Cleanup(ts.Close)
	return ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) protocol.Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env protocol.Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMatchAndRelayFlow(t *testing.T) {
	ts := newTestServer(t)

	a := dial(t, ts)
	b := dial(t, ts)

	require.NoError(t, a.WriteJSON(protocol.Envelope{Event: protocol.EventFindMatch}))
	// Give the server time to queue A before B requests.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, b.WriteJSON(protocol.Envelope{Event: protocol.EventFindMatch}))

	matchA := readEnvelope(t, a)
	matchB := readEnvelope(t, b)

	require.Equal(t, protocol.EventMatchFound, matchA.Event)
	require.Equal(t, protocol.EventMatchFound, matchB.Event)
	assert.NotEmpty(t, matchA.PartnerID)
	assert.NotEmpty(t, matchB.PartnerID)
	assert.False(t, matchA.Initiator, "queued side must not initiate")
	assert.True(t, matchB.Initiator, "requesting side must initiate")

	// B, the initiator, sends an offer to A.
	offer := json.RawMessage(`{"type":"offer","sdp":"v=0 fake offer"}`)
	require.NoError(t, b.WriteJSON(protocol.Envelope{
		Event:  protocol.EventSignal,
		Target: matchB.PartnerID,
		Signal: offer,
	}))

	got := readEnvelope(t, a)
	require.Equal(t, protocol.EventSignal, got.Event)
	assert.Equal(t, matchA.PartnerID, got.Sender)
	assert.JSONEq(t, string(offer), string(got.Signal))

	// A answers.
	answer := json.RawMessage(`{"type":"answer","sdp":"v=0 fake answer"}`)
	require.NoError(t, a.WriteJSON(protocol.Envelope{
		Event:  protocol.EventSignal,
		Target: matchA.PartnerID,
		Signal: answer,
	}))

	got = readEnvelope(t, b)
	require.Equal(t, protocol.EventSignal, got.Event)
	assert.JSONEq(t, string(answer), string(got.Signal))

	// A leaves; B is told exactly once.
	require.NoError(t, a.WriteJSON(protocol.Envelope{Event: protocol.EventLeave}))
	left := readEnvelope(t, b)
	assert.Equal(t, protocol.EventPartnerLeft, left.Event)
}

func TestRelayToUnknownTargetIsSilent(t *testing.T) {
	ts := newTestServer(t)

	x := dial(t, ts)
	require.NoError(t, x.WriteJSON(protocol.Envelope{
		Event:  protocol.EventSignal,
		Target: "nonexistent-id",
		Signal: json.RawMessage(`{"type":"candidate","candidate":{}}`),
	}))

	// No delivery and no error event; the read just times out.
	x.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	var env protocol.Envelope
	err := x.ReadJSON(&env)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "timeout"), "expected read timeout, got %v", err)
}

func TestDisconnectNotifiesPartner(t *testing.T) {
	ts := newTestServer(t)

	a := dial(t, ts)
	b := dial(t, ts)

	require.NoError(t, a.WriteJSON(protocol.Envelope{Event: protocol.EventFindMatch}))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, b.WriteJSON(protocol.Envelope{Event: protocol.EventFindMatch}))

	readEnvelope(t, a)
	readEnvelope(t, b)

	require.NoError(t, a.Close())

	left := readEnvelope(t, b)
	assert.Equal(t, protocol.EventPartnerLeft, left.Event)
}

func TestThirdClientStaysQueued(t *testing.T) {
	ts := newTestServer(t)

	a := dial(t, ts)
	b := dial(t, ts)
	c := dial(t, ts)

	require.NoError(t, a.WriteJSON(protocol.Envelope{Event: protocol.EventFindMatch}))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, b.WriteJSON(protocol.Envelope{Event: protocol.EventFindMatch}))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, c.WriteJSON(protocol.Envelope{Event: protocol.EventFindMatch}))

	readEnvelope(t, a)
	readEnvelope(t, b)

	// C has no partner yet.
	c.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	var env protocol.Envelope
	require.Error(t, c.ReadJSON(&env))
}
