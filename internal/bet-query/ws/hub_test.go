package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-platform-poc/pkg/contracts/views"
)

func TestTopic(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"all", "all", true},
		{"bet:12", "bet:12", true},
		{"bet:-1", "", false},
		{"player:0x000000000000000000000000000000000000a11c", "player:" + common.HexToAddress("0xa11c").Hex(), true},
		{"player:bob", "", false},
		{"odds:1", "", false},
	}
	for _, tc := range cases {
		got, ok := Topic(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func send(t *testing.T, c *websocket.Conn, msg ClientMsg) map[string]string {
	t.Helper()
	require.NoError(t, c.WriteJSON(msg))
	var ack map[string]string
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, c.ReadJSON(&ack))
	return ack
}

func TestHubBroadcastsOncePerConnection(t *testing.T) {
	hub := NewHub(zap.NewNop(), func(*http.Request) bool { return true })
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	alice := common.HexToAddress("0xa11c").Hex()
	c := dial(t, srv)
	assert.Equal(t, "subscribed", send(t, c, ClientMsg{Type: "subscribe", Topic: "all"})["type"])
	assert.Equal(t, "subscribed", send(t, c, ClientMsg{Type: "subscribe", Topic: "player:" + alice})["type"])
	assert.Equal(t, "error", send(t, c, ClientMsg{Type: "subscribe", Topic: "nope"})["type"])
	assert.Equal(t, "pong", send(t, c, ClientMsg{Type: "ping"})["type"])

	other := dial(t, srv)
	send(t, other, ClientMsg{Type: "subscribe", Topic: "bet:99"})

	require.Equal(t, 1, hub.Subscribers(TopicAll))
	sent := hub.Broadcast(views.BetUpdate{Type: "BetSettled", Seq: 4, Bettor: alice, Bet: views.BetView{BetID: 5, State: "SETTLED"}})
	assert.Equal(t, 1, sent)

	var got views.BetUpdate
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, c.ReadJSON(&got))
	assert.Equal(t, uint64(4), got.Seq)
	assert.Equal(t, uint64(5), got.Bet.BetID)

	assert.Equal(t, "unsubscribed", send(t, c, ClientMsg{Type: "unsubscribe", Topic: "all"})["type"])
	assert.Zero(t, hub.Subscribers(TopicAll))
}
