package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"anoa.com/storyverse/internal/entity"
	notifDto "anoa.com/storyverse/internal/modules/notification/dto"
	"anoa.com/storyverse/internal/modules/notification/service"
	"anoa.com/storyverse/pkg/apperror"
	commonDto "anoa.com/storyverse/pkg/dto"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type stubNotifications struct {
	feed     chan string
	realtime bool
	closed   bool
}

func (s *stubNotifications) Notify(ctx context.Context, n *entity.Notification) error { return nil }

func (s *stubNotifications) List(ctx context.Context, userID primitive.ObjectID, page commonDto.PageQuery) (*notifDto.PaginatedNotificationResponse, error) {
	return &notifDto.PaginatedNotificationResponse{Data: []notifDto.NotificationResponse{}}, nil
}

func (s *stubNotifications) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return 7, nil
}

func (s *stubNotifications) MarkAsRead(ctx context.Context, userID, id primitive.ObjectID) error {
	return apperror.ErrNotFound
}

func (s *stubNotifications) MarkAllAsRead(ctx context.Context, userID primitive.ObjectID) error {
	return nil
}

func (s *stubNotifications) Subscribe(ctx context.Context, userID primitive.ObjectID) (<-chan string, func() error, error) {
	if !s.realtime {
		return nil, nil, service.ErrRealtimeUnavailable
	}
	return s.feed, func() error { s.closed = true; return nil }, nil
}

func newRouter(svc service.NotificationService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("user_id", primitive.NewObjectID().Hex()) })
	h := NewNotificationHandler(svc, []string{"https://storyverse.test"})
	r.GET("/api/notifications", h.GetNotifications)
	r.GET("/api/notifications/unread-count", h.UnreadCount)
	r.PUT("/api/notifications/:id/read", h.MarkAsRead)
	r.PUT("/api/notifications/read-all", h.MarkAllAsRead)
	r.GET("/api/notifications/ws", h.HandleWebSocket)
	return r
}

func TestRESTEndpoints(t *testing.T) {
	r := newRouter(&stubNotifications{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/notifications/unread-count", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":7}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/notifications/"+primitive.NewObjectID().Hex()+"/read", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/notifications/read-all", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/notifications?limit=500", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebSocketWithoutRealtime(t *testing.T) {
	r := newRouter(&stubNotifications{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/notifications/ws", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestWebSocketForwardsNotifications(t *testing.T) {
	svc := &stubNotifications{feed: make(chan string, 1), realtime: true}
	srv := httptest.NewServer(newRouter(svc))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/notifications/ws"
	header := http.Header{"Origin": []string{"https://storyverse.test"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	defer conn.Close()

	svc.feed <- `{"type":"story_like"}`

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	kind, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)
	assert.JSONEq(t, `{"type":"story_like"}`, string(msg))
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	svc := &stubNotifications{feed: make(chan string), realtime: true}
	srv := httptest.NewServer(newRouter(svc))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/notifications/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": []string{"https://evil.test"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
