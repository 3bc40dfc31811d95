package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edunova-api/internal/middleware"
	"github.com/noah-isme/edunova-api/internal/models"
	appErrors "github.com/noah-isme/edunova-api/pkg/errors"
)

type accountServiceMock struct {
	registered []models.RegisterRequest
	users      map[string]*models.User
}

func (m *accountServiceMock) Register(ctx context.Context, req models.RegisterRequest) (*models.RegisterResponse, error) {
	for _, r := range m.registered {
		if r.Email == req.Email {
			return nil, appErrors.Clone(appErrors.ErrUserExists, "User already exists")
		}
	}
	m.registered = append(m.registered, req)
	return &models.RegisterResponse{Message: "User registered successfully", UserID: "u-1"}, nil
}

func (m *accountServiceMock) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if req.Password != "secret123" {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "Invalid credentials")
	}
	return &models.LoginResponse{Token: "token-1", TokenType: "bearer", UserType: models.UserTypeStudent, ExpiresIn: 60}, nil
}

func (m *accountServiceMock) Profile(ctx context.Context, userID string) (*models.User, error) {
	user, ok := m.users[userID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	return user, nil
}

func postJSON(router *gin.Engine, path, payload string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func newAuthRouter(mock *accountServiceMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewAuthHandler(mock)
	router := gin.New()
	router.POST("/register", h.LegacyRegister)
	router.POST("/login", h.LegacyLogin)
	router.POST("/api/v1/auth/register", h.Register)
	router.POST("/api/v1/auth/login", h.Login)
	return router
}

func TestLegacyRegisterAndLogin(t *testing.T) {
	router := newAuthRouter(&accountServiceMock{})
	payload := `{"name":"Ada","email":"ada@example.com","password":"secret123"}`

	w := postJSON(router, "/register", payload)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"User registered successfully","user_id":"u-1"}`, w.Body.String())

	w = postJSON(router, "/register", payload)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"detail":"User already exists","code":"USER_EXISTS"}`, w.Body.String())

	w = postJSON(router, "/login", `{"email":"ada@example.com","password":"secret123"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var login map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	assert.Equal(t, "token-1", login["token"])

	w = postJSON(router, "/login", `{"email":"ada@example.com","password":"nope"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"detail":"Invalid credentials","code":"INVALID_CREDENTIALS"}`, w.Body.String())
}

func TestEnvelopeRegisterAndLogin(t *testing.T) {
	router := newAuthRouter(&accountServiceMock{})

	w := postJSON(router, "/api/v1/auth/register", `{"name":"Ada","email":"ada@example.com","password":"secret123"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"data"`)

	w = postJSON(router, "/api/v1/auth/login", `{"email":"ada@example.com","password":"secret123"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"token":"token-1"`)

	w = postJSON(router, "/api/v1/auth/login", `{"email":`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"VALIDATION_ERROR"`)
}

func TestMe(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &accountServiceMock{users: map[string]*models.User{"u-1": {ID: "u-1", Email: "ada@example.com", UserType: models.UserTypeStudent}}}
	h := NewAuthHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	h.Me(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1"}})
	h.Me(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"email":"ada@example.com"`)
	assert.NotContains(t, w.Body.String(), "password")
}
