package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	uploadDto "anoa.com/storyverse/internal/modules/upload/dto"
	"anoa.com/storyverse/pkg/apperror"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type stubUploads struct{}

func (stubUploads) UploadImage(ctx context.Context, userID primitive.ObjectID, req uploadDto.UploadImageInput) (*uploadDto.UploadImageResponse, error) {
	if req.Image == "garbage" {
		return nil, apperror.ErrInvalidInput
	}
	return &uploadDto.UploadImageResponse{URL: "https://img/" + req.Name}, nil
}

func TestUploadImage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	userID := primitive.NewObjectID()

	r := gin.New()
	h := NewUploadHandler(stubUploads{})
	r.POST("/anon", h.UploadImage)
	authed := r.Group("")
	authed.Use(func(c *gin.Context) { c.Set("user_id", userID.Hex()) })
	authed.POST("/api/upload", h.UploadImage)

	send := func(path, body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		return w
	}

	w := send("/api/upload", `{"image":"aGVsbG8=","name":"cover"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var res uploadDto.UploadImageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "https://img/cover", res.URL)

	assert.Equal(t, http.StatusBadRequest, send("/api/upload", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, send("/api/upload", `{"image":"garbage"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, send("/anon", `{"image":"aGVsbG8="}`).Code)
}
