package ws_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/mentorpro/internal/api/ws"
	"github.com/gosuda/mentorpro/internal/domain"
	"github.com/gosuda/mentorpro/internal/server/middleware"
	redisstore "github.com/gosuda/mentorpro/internal/store/redis"
)

// ---------------------------------------------------------------------------
// fakeBroker
// ---------------------------------------------------------------------------

type published struct {
	channel string
	payload []byte
}

type fakeBroker struct {
	mu         sync.Mutex
	published  []published
	publishErr error

	subscribed chan string
	feed       chan []byte
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{subscribed: make(chan string, 1), feed: make(chan []byte, 1)}
}

func (b *fakeBroker) Publish(_ context.Context, channel string, payload []byte) error {
	if b.publishErr != nil {
		return b.publishErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, published{channel: channel, payload: payload})
	return nil
}

func (b *fakeBroker) Subscribe(_ context.Context, channel string) (<-chan []byte, func(), error) {
	b.subscribed <- channel
	return b.feed, func() {}, nil
}

// ---------------------------------------------------------------------------
// PublishBoard
// ---------------------------------------------------------------------------

func TestPublishBoard_Channels(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	ownerID := uuid.New()

	tests := []struct {
		name string
		kind domain.BoardKind
		want []string
	}{
		{
			name: "activities reach the owner only",
			kind: domain.BoardActivities,
			want: []string{redisstore.BoardChannel(tenantID, domain.BoardActivities, ownerID)},
		},
		{
			name: "crm is mirrored to the tenant",
			kind: domain.BoardCRM,
			want: []string{
				redisstore.BoardChannel(tenantID, domain.BoardCRM, ownerID),
				redisstore.TenantBoardChannel(tenantID, domain.BoardCRM),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			broker := newFakeBroker()
			hub := ws.NewHub(broker)
			itemID := uuid.New()

			err := hub.PublishBoard(context.Background(), ws.BoardEvent{
				Type:     ws.EventItemMoved,
				Board:    tt.kind,
				TenantID: tenantID,
				OwnerID:  ownerID,
				StageID:  uuid.New(),
				ItemID:   &itemID,
			})
			require.NoError(t, err)

			got := make([]string, 0, len(broker.published))
			for _, p := range broker.published {
				got = append(got, p.channel)
				assert.NotContains(t, string(p.payload), tenantID.String(), "tenant id stays server side")
				assert.Contains(t, string(p.payload), `"type":"item_moved"`)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPublishBoard_BrokerError(t *testing.T) {
	t.Parallel()

	broker := newFakeBroker()
	broker.publishErr = errors.New("connection refused")

	err := ws.NewHub(broker).PublishBoard(context.Background(), ws.BoardEvent{Board: domain.BoardActivities})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

// ---------------------------------------------------------------------------
// ServeBoard
// ---------------------------------------------------------------------------

func newBoardServer(t *testing.T, hub *ws.Hub, scope domain.Scope) *httptest.Server {
	t.Helper()

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithScope(req.Context(), scope)))
		})
	})
	r.Get("/ws/boards/{kind}", hub.ServeBoard)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestServeBoard_StreamsFromScopedChannel(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	userID := uuid.New()

	tests := []struct {
		name        string
		role        domain.Role
		kind        domain.BoardKind
		wantChannel string
	}{
		{
			name:        "mentor on crm follows own funnels",
			role:        domain.RoleMentor,
			kind:        domain.BoardCRM,
			wantChannel: redisstore.BoardChannel(tenantID, domain.BoardCRM, userID),
		},
		{
			name:        "staff on crm follows the tenant",
			role:        domain.RoleStaff,
			kind:        domain.BoardCRM,
			wantChannel: redisstore.TenantBoardChannel(tenantID, domain.BoardCRM),
		},
		{
			name:        "staff on activities follows own board",
			role:        domain.RoleStaff,
			kind:        domain.BoardActivities,
			wantChannel: redisstore.BoardChannel(tenantID, domain.BoardActivities, userID),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			broker := newFakeBroker()
			srv := newBoardServer(t, ws.NewHub(broker), domain.Scope{TenantID: tenantID, UserID: userID, Role: tt.role})

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/boards/" + string(tt.kind)
			conn, _, err := websocket.Dial(ctx, url, nil)
			require.NoError(t, err)
			defer conn.CloseNow()

			select {
			case ch := <-broker.subscribed:
				assert.Equal(t, tt.wantChannel, ch)
			case <-ctx.Done():
				t.Fatal("hub never subscribed")
			}

			want, err := json.Marshal(ws.BoardEvent{Type: ws.EventStageCreated, Board: tt.kind})
			require.NoError(t, err)
			broker.feed <- want

			_, got, err := conn.Read(ctx)
			require.NoError(t, err)
			assert.JSONEq(t, string(want), string(got))
		})
	}
}

func TestServeBoard_UnknownKind(t *testing.T) {
	t.Parallel()

	srv := newBoardServer(t, ws.NewHub(newFakeBroker()), domain.Scope{TenantID: uuid.New(), UserID: uuid.New(), Role: domain.RoleMentor})

	resp, err := http.Get(srv.URL + "/ws/boards/tasks")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
