package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/raduhhr/contact-api/config"
	"github.com/raduhhr/contact-api/handlers"
	"github.com/raduhhr/contact-api/logger"
	"github.com/raduhhr/contact-api/pkg/turnstile"
	"github.com/raduhhr/contact-api/router"
	"github.com/raduhhr/contact-api/services"
	"github.com/raduhhr/contact-api/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testClientIP = "203.0.113.7"
	testRedisKey = "rate_limit:contact:" + testClientIP
	testOrigin   = "https://raduhhr.xyz"
)

func init() {
	logger.IsTest = true
	gin.SetMode(gin.TestMode)
}

type mockVerifier struct {
	mock.Mock
}

func (m *mockVerifier) Verify(ctx context.Context, token, remoteIP string) (*turnstile.VerifyResult, error) {
	args := m.Called(ctx, token, remoteIP)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*turnstile.VerifyResult), args.Error(1)
}

type mockEmailSender struct {
	mock.Mock
}

func (m *mockEmailSender) SendContactEmail(ctx context.Context, data types.ContactEmailData) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Environment:    config.EnvDevelopment,
			Port:           "8080",
			Version:        "test",
			AllowedOrigins: []string{"https://raduhhr.xyz", "https://www.raduhhr.xyz"},
			MaxBodyBytes:   10000,
		},
		Turnstile: config.TurnstileConfig{
			Secret:           "test-secret",
			AllowedHostnames: []string{"raduhhr.xyz", "www.raduhhr.xyz"},
			TimeoutSeconds:   10,
		},
		RateLimit: config.RateLimitConfig{
			MaxSubmissions: 5,
			WindowSeconds:  3600,
		},
	}
}

type testFixture struct {
	router    *gin.Engine
	redisMock redismock.ClientMock
	verifier  *mockVerifier
	sender    *mockEmailSender
}

func newTestFixture(t *testing.T) *testFixture {
	t.Helper()

	cfg := testConfig()
	db, redisMock := redismock.NewClientMock()
	verifier := &mockVerifier{}
	sender := &mockEmailSender{}

	contactHandler := handlers.NewContactHandler(cfg,
		services.NewRateLimitService(db), verifier, sender, prometheus.NewRegistry())
	healthHandler := handlers.NewHealthHandler(db, cfg.Server.Version)

	r := router.SetupRouter(router.Dependencies{
		Config:         cfg,
		ContactHandler: contactHandler,
		HealthHandler:  healthHandler,
		Logger:         logger.GetLogger(),
	})

	return &testFixture{
		router:    r,
		redisMock: redisMock,
		verifier:  verifier,
		sender:    sender,
	}
}

func validPayload() map[string]string {
	return map[string]string{
		"name":           "Jo",
		"email":          "jo@example.com",
		"message":        "Hello there, this works!",
		"turnstileToken": "tok",
	}
}

func postContact(f *testFixture, payload any) *httptest.ResponseRecorder {
	var body []byte
	switch p := payload.(type) {
	case string:
		body = []byte(p)
	default:
		body, _ = json.Marshal(p)
	}

	req, _ := http.NewRequest(http.MethodPost, "/v1/contact", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", testOrigin)
	req.Header.Set("CF-Connecting-IP", testClientIP)
	req.Header.Set("User-Agent", "Mozilla/5.0")

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func allowVerification(f *testFixture, hostname string) {
	f.verifier.On("Verify", mock.Anything, "tok", testClientIP).
		Return(&turnstile.VerifyResult{Success: true, Hostname: hostname}, nil)
}

func TestSubmitContact_Success(t *testing.T) {
	f := newTestFixture(t)

	f.redisMock.ExpectGet(testRedisKey).RedisNil()
	f.redisMock.ExpectIncr(testRedisKey).SetVal(1)
	f.redisMock.ExpectExpire(testRedisKey, 3600*time.Second).SetVal(true)
	allowVerification(f, "raduhhr.xyz")
	f.sender.On("SendContactEmail", mock.Anything, mock.Anything).Return(nil).Once()

	w := postContact(f, validPayload())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":"Email sent successfully!"}`, w.Body.String())
	assert.Equal(t, testOrigin, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", w.Header().Get("Vary"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	f.sender.AssertExpectations(t)
	f.verifier.AssertExpectations(t)
	assert.NoError(t, f.redisMock.ExpectationsWereMet())
}

func TestSubmitContact_ForwardsSubmissionData(t *testing.T) {
	f := newTestFixture(t)

	f.redisMock.ExpectGet(testRedisKey).RedisNil()
	f.redisMock.ExpectIncr(testRedisKey).SetVal(1)
	f.redisMock.ExpectExpire(testRedisKey, 3600*time.Second).SetVal(true)
	allowVerification(f, "raduhhr.xyz")

	var captured types.ContactEmailData
	f.sender.On("SendContactEmail", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(types.ContactEmailData)
		}).
		Return(nil)

	w := postContact(f, validPayload())
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "Jo", captured.Name)
	assert.Equal(t, "jo@example.com", captured.Email)
	assert.Equal(t, "Hello there, this works!", captured.Message)
	assert.Equal(t, testClientIP, captured.ClientIP)
	assert.Equal(t, "Mozilla/5.0", captured.UserAgent)
	assert.False(t, captured.SubmittedAt.IsZero())
}

func TestSubmitContact_DisallowedOrigin(t *testing.T) {
	f := newTestFixture(t)

	body, _ := json.Marshal(validPayload())
	req, _ := http.NewRequest(http.MethodPost, "/v1/contact", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "http://malicious.com")
	req.Header.Set("CF-Connecting-IP", testClientIP)

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"Origin not allowed"}`, w.Body.String())
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	// Rejected before the pipeline: no counter read, no verification, no email.
	f.sender.AssertNotCalled(t, "SendContactEmail", mock.Anything, mock.Anything)
	f.verifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything)
	assert.NoError(t, f.redisMock.ExpectationsWereMet())
}

func TestSubmitContact_Preflight(t *testing.T) {
	f := newTestFixture(t)

	req, _ := http.NewRequest(http.MethodOptions, "/v1/contact", nil)
	req.Header.Set("Origin", testOrigin)
	req.Header.Set("Access-Control-Request-Method", "POST")

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Equal(t, testOrigin, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
}

func TestSubmitContact_MethodNotAllowed(t *testing.T) {
	f := newTestFixture(t)

	req, _ := http.NewRequest(http.MethodGet, "/v1/contact", nil)
	req.Header.Set("Origin", testOrigin)

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.JSONEq(t, `{"error":"Method not allowed"}`, w.Body.String())
}

func TestSubmitContact_UnknownRoute(t *testing.T) {
	f := newTestFixture(t)

	req, _ := http.NewRequest(http.MethodPost, "/v1/nope", nil)
	req.Header.Set("Origin", testOrigin)

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmitContact_MalformedJSON(t *testing.T) {
	f := newTestFixture(t)

	f.redisMock.ExpectGet(testRedisKey).RedisNil()

	w := postContact(f, `{"name": "Jo", "email":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid request body"}`, w.Body.String())
	f.sender.AssertNotCalled(t, "SendContactEmail", mock.Anything, mock.Anything)
}

func TestSubmitContact_MissingFields(t *testing.T) {
	tests := []struct {
		name  string
		strip string
	}{
		{"missing name", "name"},
		{"missing email", "email"},
		{"missing message", "message"},
		{"missing token", "turnstileToken"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFixture(t)
			f.redisMock.ExpectGet(testRedisKey).RedisNil()

			payload := validPayload()
			delete(payload, tt.strip)

			w := postContact(f, payload)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			// One generic message regardless of which field is absent.
			assert.JSONEq(t, `{"error":"All fields are required."}`, w.Body.String())
			f.verifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestSubmitContact_FieldValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(map[string]string)
		message string
	}{
		{
			"name too short",
			func(p map[string]string) { p["name"] = "J" },
			"Name must be between 2 and 100 characters.",
		},
		{
			"name too long",
			func(p map[string]string) { p["name"] = strings.Repeat("a", 101) },
			"Name must be between 2 and 100 characters.",
		},
		{
			"invalid email",
			func(p map[string]string) { p["email"] = "not-an-email" },
			"Please provide a valid email address.",
		},
		{
			"email with header injection",
			func(p map[string]string) { p["email"] = "jo@example.com\nBcc: spam@evil.com" },
			"Please provide a valid email address.",
		},
		{
			"message too short",
			func(p map[string]string) { p["message"] = "too short" },
			"Message must be between 10 and 2000 characters.",
		},
		{
			"message too long",
			func(p map[string]string) { p["message"] = strings.Repeat("m", 2001) },
			"Message must be between 10 and 2000 characters.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFixture(t)
			f.redisMock.ExpectGet(testRedisKey).RedisNil()

			payload := validPayload()
			tt.mutate(payload)

			w := postContact(f, payload)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, fmt.Sprintf(`{"error":%q}`, tt.message), w.Body.String())
			f.verifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestSubmitContact_RateLimit(t *testing.T) {
	t.Run("under the limit proceeds", func(t *testing.T) {
		f := newTestFixture(t)

		// Four accepted submissions on record: the fifth is allowed.
		f.redisMock.ExpectGet(testRedisKey).SetVal("4")
		f.redisMock.ExpectIncr(testRedisKey).SetVal(5)
		f.redisMock.ExpectExpire(testRedisKey, 3600*time.Second).SetVal(true)
		allowVerification(f, "raduhhr.xyz")
		f.sender.On("SendContactEmail", mock.Anything, mock.Anything).Return(nil)

		w := postContact(f, validPayload())
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, f.redisMock.ExpectationsWereMet())
	})

	t.Run("at the limit rejects with Retry-After", func(t *testing.T) {
		f := newTestFixture(t)

		f.redisMock.ExpectGet(testRedisKey).SetVal("5")
		f.redisMock.ExpectTTL(testRedisKey).SetVal(1200 * time.Second)

		w := postContact(f, validPayload())

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.JSONEq(t, `{"error":"Too many requests. Please try again later."}`, w.Body.String())
		assert.Equal(t, "1200", w.Header().Get("Retry-After"))
		f.verifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything)
		f.sender.AssertNotCalled(t, "SendContactEmail", mock.Anything, mock.Anything)
	})

	t.Run("counter read failure fails open", func(t *testing.T) {
		f := newTestFixture(t)

		f.redisMock.ExpectGet(testRedisKey).SetErr(fmt.Errorf("connection refused"))
		f.redisMock.ExpectIncr(testRedisKey).SetVal(1)
		f.redisMock.ExpectExpire(testRedisKey, 3600*time.Second).SetVal(true)
		allowVerification(f, "raduhhr.xyz")
		f.sender.On("SendContactEmail", mock.Anything, mock.Anything).Return(nil)

		w := postContact(f, validPayload())
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestSubmitContact_Verification(t *testing.T) {
	t.Run("rejected token", func(t *testing.T) {
		f := newTestFixture(t)

		f.redisMock.ExpectGet(testRedisKey).RedisNil()
		f.verifier.On("Verify", mock.Anything, "tok", testClientIP).
			Return(&turnstile.VerifyResult{Success: false, ErrorCodes: []string{"invalid-input-response"}}, nil)

		w := postContact(f, validPayload())

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"Security verification failed. Please try again."}`, w.Body.String())
		f.sender.AssertNotCalled(t, "SendContactEmail", mock.Anything, mock.Anything)
	})

	t.Run("verifier unreachable", func(t *testing.T) {
		f := newTestFixture(t)

		f.redisMock.ExpectGet(testRedisKey).RedisNil()
		f.verifier.On("Verify", mock.Anything, "tok", testClientIP).
			Return(nil, fmt.Errorf("failed to reach verifier: connection refused"))

		w := postContact(f, validPayload())

		// Transport failures surface the same generic message as a bad token.
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"Security verification failed. Please try again."}`, w.Body.String())
		f.sender.AssertNotCalled(t, "SendContactEmail", mock.Anything, mock.Anything)
	})

	t.Run("token issued for foreign hostname", func(t *testing.T) {
		f := newTestFixture(t)

		f.redisMock.ExpectGet(testRedisKey).RedisNil()
		allowVerification(f, "evil.example")

		w := postContact(f, validPayload())

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"Invalid verification context."}`, w.Body.String())
		f.sender.AssertNotCalled(t, "SendContactEmail", mock.Anything, mock.Anything)
	})
}

func TestSubmitContact_DispatchFailure(t *testing.T) {
	f := newTestFixture(t)

	// Only the pre-check read: a failed send must not commit the counter.
	f.redisMock.ExpectGet(testRedisKey).RedisNil()
	allowVerification(f, "raduhhr.xyz")
	f.sender.On("SendContactEmail", mock.Anything, mock.Anything).Return(fmt.Errorf("provider unavailable"))

	w := postContact(f, validPayload())

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to send message. Please try again later."}`, w.Body.String())
	assert.NoError(t, f.redisMock.ExpectationsWereMet())
}

func TestSubmitContact_IncrementFailureStillSucceeds(t *testing.T) {
	f := newTestFixture(t)

	f.redisMock.ExpectGet(testRedisKey).RedisNil()
	f.redisMock.ExpectIncr(testRedisKey).SetErr(fmt.Errorf("connection refused"))
	allowVerification(f, "raduhhr.xyz")
	f.sender.On("SendContactEmail", mock.Anything, mock.Anything).Return(nil)

	w := postContact(f, validPayload())

	// The email already went out; the commit failure is logged, not surfaced.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":"Email sent successfully!"}`, w.Body.String())
}

func TestSubmitContact_PayloadTooLarge(t *testing.T) {
	f := newTestFixture(t)

	f.redisMock.ExpectGet(testRedisKey).RedisNil()

	oversized := fmt.Sprintf(`{"name":"Jo","email":"jo@example.com","turnstileToken":"tok","message":%q}`,
		strings.Repeat("m", 10001))
	w := postContact(f, oversized)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.JSONEq(t, `{"error":"Request body too large"}`, w.Body.String())
	f.sender.AssertNotCalled(t, "SendContactEmail", mock.Anything, mock.Anything)
}

func TestSubmitContact_MisconfiguredHandler(t *testing.T) {
	cfg := testConfig()
	cfg.Turnstile.Secret = ""
	db, redisMock := redismock.NewClientMock()

	contactHandler := handlers.NewContactHandler(cfg,
		services.NewRateLimitService(db), &mockVerifier{}, &mockEmailSender{}, prometheus.NewRegistry())

	r := router.SetupRouter(router.Dependencies{
		Config:         cfg,
		ContactHandler: contactHandler,
		HealthHandler:  handlers.NewHealthHandler(db, "test"),
		Logger:         logger.GetLogger(),
	})

	body, _ := json.Marshal(validPayload())
	req, _ := http.NewRequest(http.MethodPost, "/v1/contact", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", testOrigin)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}
