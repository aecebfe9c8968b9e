package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	storyDto "anoa.com/storyverse/internal/modules/story/dto"
	"anoa.com/storyverse/pkg/apperror"
	commonDto "anoa.com/storyverse/pkg/dto"
	"anoa.com/storyverse/pkg/ratelimiter"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type stubService struct {
	createErr error
	viewer    *primitive.ObjectID
	listQuery storyDto.ListStoriesQuery
	found     *storyDto.StoryDetailResponse
}

func (s *stubService) Create(ctx context.Context, userID primitive.ObjectID, req storyDto.CreateStoryInput) (*storyDto.StoryDetailResponse, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &storyDto.StoryDetailResponse{StoryResponse: storyDto.StoryResponse{ID: "new", Title: req.Title}}, nil
}

func (s *stubService) GetByID(ctx context.Context, id primitive.ObjectID, viewer *primitive.ObjectID) (*storyDto.StoryDetailResponse, error) {
	s.viewer = viewer
	if s.found != nil {
		return s.found, nil
	}
	return nil, apperror.ErrNotFound
}

func (s *stubService) Update(ctx context.Context, userID, id primitive.ObjectID, req storyDto.UpdateStoryInput) (*storyDto.StoryDetailResponse, error) {
	return nil, apperror.ErrForbidden
}

func (s *stubService) Delete(ctx context.Context, userID, id primitive.ObjectID) error {
	return nil
}

func (s *stubService) List(ctx context.Context, q storyDto.ListStoriesQuery) (*storyDto.PaginatedStoryResponse, error) {
	s.listQuery = q
	return &storyDto.PaginatedStoryResponse{Data: []storyDto.StoryResponse{}}, nil
}

func (s *stubService) ByAuthor(ctx context.Context, username string, page commonDto.PageQuery) (*storyDto.PaginatedStoryResponse, error) {
	return &storyDto.PaginatedStoryResponse{Data: []storyDto.StoryResponse{}}, nil
}

func (s *stubService) LikedBy(ctx context.Context, username string, page commonDto.PageQuery) (*storyDto.PaginatedStoryResponse, error) {
	return &storyDto.PaginatedStoryResponse{Data: []storyDto.StoryResponse{}}, nil
}

func (s *stubService) Search(ctx context.Context, query string, page commonDto.PageQuery) (*storyDto.PaginatedStoryResponse, error) {
	return &storyDto.PaginatedStoryResponse{Data: []storyDto.StoryResponse{}}, nil
}

type recordedViews struct {
	viewers []string
}

func (r *recordedViews) RecordView(ctx context.Context, storyID primitive.ObjectID, viewer string) error {
	r.viewers = append(r.viewers, viewer)
	return nil
}

func newRouter(svc *stubService, userID string) *gin.Engine {
	return newRouterWithViews(svc, userID, nil)
}

func newRouterWithViews(svc *stubService, userID string, views ViewRecorder) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set("user_id", userID)
		}
		c.Next()
	})
	h := NewStoryHandler(svc, views)
	r.POST("/api/stories", h.CreateStory)
	r.GET("/api/stories", h.ListStories)
	r.GET("/api/stories/search", h.SearchStories)
	r.GET("/api/stories/:id", h.GetStory)
	r.PUT("/api/stories/:id", h.UpdateStory)
	r.DELETE("/api/stories/:id", h.DeleteStory)
	return r
}

func TestCreateStory(t *testing.T) {
	uid := primitive.NewObjectID().Hex()
	r := newRouter(&stubService{}, uid)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/stories", strings.NewReader(`{"title":"Tide","content":"salt"}`)))
	require.Equal(t, http.StatusCreated, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Tide", body["title"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/stories", strings.NewReader(`{"content":"salt"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateStoryRateLimited(t *testing.T) {
	svc := &stubService{createErr: &ratelimiter.RateLimitError{Message: "slow down", RetryAfter: 42 * time.Second}}
	r := newRouter(svc, primitive.NewObjectID().Hex())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/stories", strings.NewReader(`{"title":"T","content":"c"}`)))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "42", w.Header().Get("Retry-After"))
}

func TestCreateStoryRequiresUser(t *testing.T) {
	r := newRouter(&stubService{}, "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/stories", strings.NewReader(`{"title":"T","content":"c"}`)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetStoryErrors(t *testing.T) {
	svc := &stubService{}
	r := newRouter(svc, "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stories/not-an-id", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stories/"+primitive.NewObjectID().Hex(), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Nil(t, svc.viewer)
}

func TestUpdateStoryForbidden(t *testing.T) {
	r := newRouter(&stubService{}, primitive.NewObjectID().Hex())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/stories/"+primitive.NewObjectID().Hex(), strings.NewReader(`{"title":"x"}`)))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListStoriesBindsQuery(t *testing.T) {
	svc := &stubService{}
	r := newRouter(svc, "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stories?genre=Horror&sort=trending&page=2&q=moon", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Horror", svc.listQuery.Genre)
	assert.Equal(t, "trending", svc.listQuery.Sort)
	assert.Equal(t, "moon", svc.listQuery.Search)
	assert.Equal(t, 2, svc.listQuery.Page)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stories?sort=random", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchRequiresQuery(t *testing.T) {
	r := newRouter(&stubService{}, "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stories/search", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetStoryRecordsViews(t *testing.T) {
	id := primitive.NewObjectID().Hex()
	views := &recordedViews{}

	svc := &stubService{found: &storyDto.StoryDetailResponse{StoryResponse: storyDto.StoryResponse{ID: id, Published: true}}}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/stories/"+id, nil)
	req.RemoteAddr = "10.1.2.3:5555"
	newRouterWithViews(svc, "", views).ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	uid := primitive.NewObjectID().Hex()
	w = httptest.NewRecorder()
	newRouterWithViews(svc, uid, views).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stories/"+id, nil))
	require.Equal(t, http.StatusOK, w.Code)

	svc.found.Published = false
	w = httptest.NewRecorder()
	newRouterWithViews(svc, uid, views).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stories/"+id, nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, []string{"10.1.2.3", uid}, views.viewers)
}
