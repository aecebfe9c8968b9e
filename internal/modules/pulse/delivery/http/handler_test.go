package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"anoa.com/storyverse/internal/entity"
	pulseDto "anoa.com/storyverse/internal/modules/pulse/dto"
	"anoa.com/storyverse/pkg/apperror"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type stubPulse struct{}

func (stubPulse) Vote(ctx context.Context, userID, storyID primitive.ObjectID, mood entity.Mood) (*pulseDto.PulseResult, error) {
	if !mood.Valid() {
		return nil, apperror.New(http.StatusBadRequest, "invalid mood", apperror.ErrInvalidInput)
	}
	return &pulseDto.PulseResult{Mood: mood, Pulse: entity.PulseCounts{mood: 1}.Full(), Changed: true}, nil
}

func (stubPulse) Retract(ctx context.Context, userID, storyID primitive.ObjectID) (*pulseDto.PulseResult, error) {
	return &pulseDto.PulseResult{Pulse: entity.PulseCounts{}.Full()}, nil
}

func (stubPulse) MoodOf(ctx context.Context, userID, storyID primitive.ObjectID) (entity.Mood, error) {
	return "", nil
}

func TestPulseHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("user_id", primitive.NewObjectID().Hex()) })
	h := NewPulseHandler(stubPulse{})
	r.PUT("/api/stories/:id/pulse", h.Vote)
	r.DELETE("/api/stories/:id/pulse", h.Retract)

	path := "/api/stories/" + primitive.NewObjectID().Hex() + "/pulse"

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, path, strings.NewReader(`{"mood":"dark"}`)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"mood":"dark","changed":true,"pulse":{"soft":0,"dark":1,"warm":0,"tense":0,"strange":0}}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, path, strings.NewReader(`{"mood":"joyful"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, path, strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, path, nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
