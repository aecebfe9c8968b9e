package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	likeDto "anoa.com/storyverse/internal/modules/like/dto"
	"anoa.com/storyverse/pkg/apperror"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type stubLikes struct {
	liked bool
}

func (s *stubLikes) Like(ctx context.Context, userID, targetID primitive.ObjectID) (*likeDto.LikeResult, error) {
	if s.liked {
		return &likeDto.LikeResult{Liked: true, AlreadyLiked: true, LikesCount: 1}, nil
	}
	s.liked = true
	return &likeDto.LikeResult{Liked: true, LikesCount: 1}, nil
}

func (s *stubLikes) Unlike(ctx context.Context, userID, targetID primitive.ObjectID) (*likeDto.LikeResult, error) {
	return nil, apperror.ErrNotFound
}

func (s *stubLikes) HasLiked(ctx context.Context, userID, targetID primitive.ObjectID) (bool, error) {
	return s.liked, nil
}

func (s *stubLikes) LikedIDs(ctx context.Context, userID primitive.ObjectID, skip, limit int64) ([]primitive.ObjectID, int64, error) {
	return nil, 0, nil
}

func TestLikeHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("user_id", primitive.NewObjectID().Hex()) })
	h := NewLikeHandler(&stubLikes{})
	r.POST("/api/stories/:id/like", h.Like)
	r.DELETE("/api/stories/:id/like", h.Unlike)

	path := "/api/stories/" + primitive.NewObjectID().Hex() + "/like"

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"liked":true,"alreadyLiked":false,"likesCount":1}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))
	require.Equal(t, http.StatusOK, w.Code, "second like is not an error")
	assert.JSONEq(t, `{"liked":true,"alreadyLiked":true,"likesCount":1}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, path, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/stories/xyz/like", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
