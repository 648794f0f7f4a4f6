package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/mentorpro/internal/domain"
	"github.com/gosuda/mentorpro/internal/server/middleware"
	redisstore "github.com/gosuda/mentorpro/internal/store/redis"
)

// Broker is the pub/sub transport behind the hub. *redisstore.PubSub
// satisfies it.
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
}

// Hub manages WebSocket connections backed by Redis pub/sub.
type Hub struct {
	broker Broker
}

// NewHub creates a new WebSocket hub.
func NewHub(broker Broker) *Hub {
	return &Hub{broker: broker}
}

// channelFor picks the channel a connection listens on. Staff and admins on
// the CRM board follow the whole tenant; everyone else follows their own
// board.
func channelFor(scope domain.Scope, kind domain.BoardKind) string {
	if kind == domain.BoardCRM && scope.TenantWide() {
		return redisstore.TenantBoardChannel(scope.TenantID, kind)
	}
	return redisstore.BoardChannel(scope.TenantID, kind, scope.UserID)
}

// ServeBoard streams board events for /ws/boards/{kind}.
func (h *Hub) ServeBoard(w http.ResponseWriter, r *http.Request) {
	scope, ok := middleware.ScopeFromContext(r.Context())
	if !ok {
		http.Error(w, "missing tenant", http.StatusBadRequest)
		return
	}

	kind := domain.BoardKind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		http.Error(w, "unknown board", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	// Clients never send; CloseRead drains control frames and cancels ctx
	// once the peer goes away.
	ctx := conn.CloseRead(r.Context())

	messages, cleanup, err := h.broker.Subscribe(ctx, channelFor(scope, kind))
	if err != nil {
		log.Error().Err(err).Msg("websocket subscribe")
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer cleanup()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case msg, msgOK := <-messages:
			if !msgOK {
				_ = conn.Close(websocket.StatusNormalClosure, "channel closed")
				return
			}
			if writeErr := conn.Write(ctx, websocket.MessageText, msg); writeErr != nil {
				log.Debug().Err(writeErr).Msg("websocket write")
				return
			}
		}
	}
}

// PublishBoard sends ev to its owner's channel and, for the shared CRM
// board, to the tenant channel as well.
func (h *Hub) PublishBoard(ctx context.Context, ev BoardEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("ws.Hub.PublishBoard: marshal: %w", err)
	}

	channels := []string{redisstore.BoardChannel(ev.TenantID, ev.Board, ev.OwnerID)}
	if ev.Board == domain.BoardCRM {
		channels = append(channels, redisstore.TenantBoardChannel(ev.TenantID, ev.Board))
	}

	for _, ch := range channels {
		if err := h.broker.Publish(ctx, ch, payload); err != nil {
			return fmt.Errorf("ws.Hub.PublishBoard: %w", err)
		}
	}
	return nil
}
