package ws

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-platform-poc/pkg/contracts/views"
)

const TopicAll = "all"

// conn serializa as escritas: o gorilla não aceita escritores concorrentes.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) write(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(2 * time.Second))
	return c.ws.WriteMessage(websocket.TextMessage, b)
}

// Hub gerencia conexões WebSocket e assinaturas de atualizações de aposta
// subs: mapeia tópico para o conjunto de conexões inscritas
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	subs     map[string]map[*conn]struct{}
}

// NewHub cria uma instância de Hub com política customizada de origem (CORS)
func NewHub(log *zap.Logger, allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		subs:     make(map[string]map[*conn]struct{}),
	}
}

// Topic normaliza o tópico; devolve false se inválido.
func Topic(s string) (string, bool) {
	switch {
	case s == TopicAll:
		return s, true
	case strings.HasPrefix(s, "player:"):
		addr := strings.TrimPrefix(s, "player:")
		if !common.IsHexAddress(addr) {
			return "", false
		}
		return "player:" + common.HexToAddress(addr).Hex(), true
	case strings.HasPrefix(s, "bet:"):
		if _, err := strconv.ParseUint(strings.TrimPrefix(s, "bet:"), 10, 64); err != nil {
			return "", false
		}
		return s, true
	}
	return "", false
}

// HandleWS gerencia o ciclo de vida de uma conexão WebSocket
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &conn{ws: ws}
	defer ws.Close()

	for {
		var msg ClientMsg
		if err := ws.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "subscribe", "unsubscribe":
			topic, ok := Topic(msg.Topic)
			if !ok {
				h.reply(c, map[string]string{"type": "error", "error": "invalid topic"})
				continue
			}
			if msg.Type == "subscribe" {
				h.subscribe(c, topic)
			} else {
				h.unsubscribe(c, topic)
			}
			h.reply(c, map[string]string{"type": msg.Type + "d", "topic": topic})
		case "ping":
			h.reply(c, map[string]string{"type": "pong"})
		}
	}
	// Remove a conexão de todas as assinaturas ao desconectar
	h.mu.Lock()
	for topic, set := range h.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, topic)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) subscribe(c *conn, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[topic]; !ok {
		h.subs[topic] = make(map[*conn]struct{})
	}
	h.subs[topic][c] = struct{}{}
}

func (h *Hub) unsubscribe(c *conn, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.subs[topic]; ok {
		delete(m, c)
		if len(m) == 0 {
			delete(h.subs, topic)
		}
	}
}

func (h *Hub) reply(c *conn, v any) {
	b, _ := json.Marshal(v)
	_ = c.write(b)
}

// Subscribers conta conexões inscritas no tópico.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}

// Broadcast envia a atualização para quem assina o jogador, a aposta ou "all".
// Cada conexão recebe no máximo uma cópia.
func (h *Hub) Broadcast(u views.BetUpdate) int {
	topics := []string{TopicAll, "bet:" + strconv.FormatUint(u.Bet.BetID, 10)}
	if t, ok := Topic("player:" + u.Bettor); ok {
		topics = append(topics, t)
	}

	h.mu.RLock()
	targets := make(map[*conn]struct{})
	for _, t := range topics {
		for c := range h.subs[t] {
			targets[c] = struct{}{}
		}
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return 0
	}

	b, _ := json.Marshal(u)
	sent := 0
	for c := range targets {
		if err := c.write(b); err != nil {
			h.log.Debug("ws write failed", zap.Error(err))
			continue
		}
		sent++
	}
	return sent
}
