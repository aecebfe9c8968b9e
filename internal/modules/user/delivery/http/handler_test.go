package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"anoa.com/storyverse/internal/modules/user/dto"
	"anoa.com/storyverse/pkg/apperror"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuth struct {
	registered []dto.RegisterInput
}

func (s *stubAuth) Register(ctx context.Context, input dto.RegisterInput) (*dto.AuthResponse, error) {
	if input.Username == "taken" {
		return nil, fmt.Errorf("username already in use: %w", apperror.ErrConflict)
	}
	s.registered = append(s.registered, input)
	return &dto.AuthResponse{AccessToken: "tok", TokenType: "Bearer", User: dto.UserResponse{Username: input.Username}}, nil
}

func (s *stubAuth) Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error) {
	if input.Password != "correct horse" {
		return nil, apperror.New(http.StatusUnauthorized, "invalid credentials", apperror.ErrUnauthorized)
	}
	return &dto.AuthResponse{AccessToken: "tok", TokenType: "Bearer"}, nil
}

func newRouter(stub *stubAuth) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewAuthHandler(stub)
	r.POST("/api/auth/register", h.Register)
	r.POST("/api/auth/login", h.Login)
	return r
}

func post(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestRegister(t *testing.T) {
	stub := &stubAuth{}
	r := newRouter(stub)

	w := post(r, "/api/auth/register", `{"email":"a@b.co","password":"longenough","username":"alice","name":"Alice"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var res dto.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "tok", res.AccessToken)
	assert.Equal(t, "alice", res.User.Username)
	require.Len(t, stub.registered, 1)

	w = post(r, "/api/auth/register", `{"email":"not-an-email","password":"short","username":"al","name":"A"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(r, "/api/auth/register", `{"email":"a@b.co","password":"longenough","username":"taken","name":"T"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLogin(t *testing.T) {
	r := newRouter(&stubAuth{})

	w := post(r, "/api/auth/login", `{"email":"a@b.co","password":"correct horse"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = post(r, "/api/auth/login", `{"email":"a@b.co","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = post(r, "/api/auth/login", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
