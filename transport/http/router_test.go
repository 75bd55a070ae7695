package http_test

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/faucet/adapters/ethsig"
	"github.com/layer-3/faucet/adapters/events"
	"github.com/layer-3/faucet/adapters/store"
	"github.com/layer-3/faucet/adapters/tokenizer"
	"github.com/layer-3/faucet/core"
	"github.com/layer-3/faucet/service"
	transport "github.com/layer-3/faucet/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// stubFaucet stands in for the faucet contract: an address counts as claimed
// once its claim transaction was submitted.
type stubFaucet struct {
	mu         sync.Mutex
	claimed    map[string]bool
	claimCalls int
	err        error
}

func (f *stubFaucet) HasClaimed(_ context.Context, address string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	return f.claimed[address], nil
}

func (f *stubFaucet) Claim(_ context.Context, address string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claimCalls++
	f.claimed[address] = true
	return "0x9fc76417374aa880d4449a1f7f31ec597f00b1f6f3dd2d66f4c9c6c445836d8b", nil
}

func (f *stubFaucet) Status(_ context.Context, address string) (*core.FaucetStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &core.FaucetStatus{
		HasClaimed:   f.claimed[address],
		Balance:      "0",
		FaucetAmount: "100000000000000000000",
		Decimals:     18,
	}, nil
}

type testServer struct {
	router *gin.Engine
	faucet *stubFaucet
	clock  *clock
	key    *ecdsa.PrivateKey
}

func newTestServer(t *testing.T, cfg transport.RouterConfig) *testServer {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	clk := &clock{t: time.Now().Truncate(time.Second)}
	faucet := &stubFaucet{claimed: make(map[string]bool)}
	logger := zap.NewNop()

	authSvc := service.NewAuthService(
		service.DefaultAuthConfig(),
		store.NewMemoryStore(),
		ethsig.NewVerifier(),
		tokenizer.NewJWTTokenizer([]byte("router-test-secret"), tokenizer.WithClock(clk.Now)),
		events.NopPublisher{},
		logger,
		service.WithAuthClock(clk.Now),
	)
	faucetSvc := service.NewFaucetService(faucet, events.NopPublisher{}, logger, time.Second)

	return &testServer{
		router: transport.SetupRouter(authSvc, faucetSvc, cfg, logger),
		faucet: faucet,
		clock:  clk,
		key:    key,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, header http.Header) (int, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp map[string]interface{}
	if w.Body.Len() > 0 && strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w.Code, resp
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

func (s *testServer) signIn(t *testing.T, key *ecdsa.PrivateKey) (int, map[string]interface{}) {
	t.Helper()

	code, resp := s.do(t, http.MethodPost, "/auth/message", map[string]string{"identity": ethsig.Address(s.key)}, nil)
	require.Equal(t, http.StatusOK, code)
	message := resp["message"].(string)

	sig, err := ethsig.Sign(message, key)
	require.NoError(t, err)

	return s.do(t, http.MethodPost, "/auth/signin", map[string]string{"message": message, "signature": sig}, nil)
}

func TestClaimFlow(t *testing.T) {
	s := newTestServer(t, transport.DefaultRouterConfig())
	address := ethsig.Address(s.key)

	code, resp := s.signIn(t, s.key)
	require.Equal(t, http.StatusOK, code, resp)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, address, resp["identity"])
	assert.Equal(t, address, resp["address"])
	token := resp["token"].(string)

	code, resp = s.do(t, http.MethodGet, "/faucet/status", nil, bearer(token))
	require.Equal(t, http.StatusOK, code, resp)
	assert.Equal(t, false, resp["hasClaimed"])
	assert.Equal(t, "100000000000000000000", resp["faucetAmount"])
	assert.Equal(t, float64(18), resp["decimals"])
	assert.Equal(t, []interface{}{}, resp["users"])

	code, resp = s.do(t, http.MethodPost, "/faucet/claim", nil, bearer(token))
	require.Equal(t, http.StatusOK, code, resp)
	assert.Equal(t, true, resp["success"])
	assert.NotEmpty(t, resp["txHash"])

	code, resp = s.do(t, http.MethodPost, "/faucet/claim", nil, bearer(token))
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, true, resp["hasClaimed"])
	assert.Equal(t, 1, s.faucet.claimCalls)

	code, resp = s.do(t, http.MethodGet, "/faucet/status", nil, bearer(token))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, resp["hasClaimed"])
}

func TestSignInWithWrongKey(t *testing.T) {
	s := newTestServer(t, transport.DefaultRouterConfig())

	other, err := crypto.GenerateKey()
	require.NoError(t, err)

	code, resp := s.signIn(t, other)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "signature invalid or message altered", resp["message"])
	assert.NotContains(t, resp, "token")

	code, _ = s.do(t, http.MethodGet, "/faucet/status", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(t, http.MethodPost, "/faucet/claim", nil, bearer("not-a-token"))
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, 0, s.faucet.claimCalls)
}

func TestSignInReplay(t *testing.T) {
	s := newTestServer(t, transport.DefaultRouterConfig())

	_, resp := s.do(t, http.MethodPost, "/auth/message", map[string]string{"address": ethsig.Address(s.key)}, nil)
	message := resp["message"].(string)
	sig, err := ethsig.Sign(message, s.key)
	require.NoError(t, err)
	body := map[string]string{"message": message, "signature": sig}

	code, _ := s.do(t, http.MethodPost, "/auth/signin", body, nil)
	require.Equal(t, http.StatusOK, code)

	code, resp = s.do(t, http.MethodPost, "/auth/signin", body, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "signature invalid or message altered", resp["message"])
}

func TestMessageValidation(t *testing.T) {
	s := newTestServer(t, transport.DefaultRouterConfig())

	tests := []struct {
		name string
		body interface{}
		code int
	}{
		{"missing identity", map[string]string{}, http.StatusBadRequest},
		{"no body", nil, http.StatusBadRequest},
		{"invalid address", map[string]string{"identity": "0xABC"}, http.StatusBadRequest},
		{"identity field", map[string]string{"identity": "0x71C7656EC7ab88b098defB751B7401B5f6d8976F"}, http.StatusOK},
		{"address field", map[string]string{"address": "0x71c7656ec7ab88b098defb751b7401b5f6d8976f"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := s.do(t, http.MethodPost, "/auth/message", tt.body, nil)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.code == http.StatusOK, resp["success"])
			if tt.code == http.StatusOK {
				assert.Contains(t, resp["message"], "0x71C7656EC7ab88b098defB751B7401B5f6d8976F")
			}
		})
	}
}

func TestSignInValidation(t *testing.T) {
	s := newTestServer(t, transport.DefaultRouterConfig())

	for _, body := range []map[string]string{
		{},
		{"message": "hello"},
		{"signature": "0x00"},
	} {
		code, resp := s.do(t, http.MethodPost, "/auth/signin", body, nil)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, false, resp["success"])
	}

	code, _ := s.do(t, http.MethodPost, "/auth/signin", map[string]string{"message": "hello", "signature": "0x00"}, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestAuthMiddleware(t *testing.T) {
	s := newTestServer(t, transport.DefaultRouterConfig())

	code, resp := s.signIn(t, s.key)
	require.Equal(t, http.StatusOK, code)
	token := resp["token"].(string)

	tests := []struct {
		name   string
		header http.Header
		code   int
	}{
		{"missing header", nil, http.StatusUnauthorized},
		{"basic scheme", http.Header{"Authorization": []string{"Basic dXNlcjpwYXNz"}}, http.StatusUnauthorized},
		{"empty bearer", http.Header{"Authorization": []string{"Bearer "}}, http.StatusUnauthorized},
		{"garbage token", bearer("abc.def.ghi"), http.StatusForbidden},
		{"tampered token", bearer(token[:len(token)-8] + "AAAAAAAA"), http.StatusForbidden},
		{"valid token", bearer(token), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := s.do(t, http.MethodGet, "/faucet/status", nil, tt.header)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.code == http.StatusOK, resp["success"])
		})
	}

	s.clock.Advance(time.Hour + time.Minute)
	code, _ = s.do(t, http.MethodGet, "/faucet/status", nil, bearer(token))
	assert.Equal(t, http.StatusForbidden, code)
}

func TestExternalFailure(t *testing.T) {
	s := newTestServer(t, transport.DefaultRouterConfig())

	code, resp := s.signIn(t, s.key)
	require.Equal(t, http.StatusOK, code)
	token := resp["token"].(string)

	s.faucet.err = errors.New("dial tcp 10.0.0.1:8545: connection refused")

	for _, req := range []struct{ method, path string }{
		{http.MethodPost, "/faucet/claim"},
		{http.MethodGet, "/faucet/status"},
	} {
		code, resp := s.do(t, req.method, req.path, nil, bearer(token))
		assert.Equal(t, http.StatusInternalServerError, code, req.path)
		assert.Equal(t, false, resp["success"])
		assert.Contains(t, resp["message"], "connection refused")
	}
	assert.Equal(t, 0, s.faucet.claimCalls)
}

func TestHealthzAndNotFound(t *testing.T) {
	s := newTestServer(t, transport.DefaultRouterConfig())

	code, resp := s.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, true, resp["success"])

	code, resp = s.do(t, http.MethodGet, "/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "route not found", resp["message"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, transport.DefaultRouterConfig())

	s.do(t, http.MethodGet, "/healthz", nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `faucet_http_requests_total{method="GET",path="/healthz",status="200"}`)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, transport.RouterConfig{RateLimitRPS: 0.001, RateLimitBurst: 2})
	body := map[string]string{"identity": "0x71C7656EC7ab88b098defB751B7401B5f6d8976F"}

	for i := 0; i < 2; i++ {
		code, _ := s.do(t, http.MethodPost, "/auth/message", body, nil)
		require.Equal(t, http.StatusOK, code)
	}

	code, resp := s.do(t, http.MethodPost, "/auth/message", body, nil)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, false, resp["success"])

	code, _ = s.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestRateLimitIgnoresForwardedFor(t *testing.T) {
	s := newTestServer(t, transport.RouterConfig{RateLimitRPS: 0.001, RateLimitBurst: 2})
	body := map[string]string{"identity": "0x71C7656EC7ab88b098defB751B7401B5f6d8976F"}

	codes := make([]int, 0, 3)
	for _, ip := range []string{"203.0.113.1", "203.0.113.2", "203.0.113.3"} {
		code, _ := s.do(t, http.MethodPost, "/auth/message", body, http.Header{
			"X-Forwarded-For": []string{ip},
			"X-Real-Ip":       []string{ip},
		})
		codes = append(codes, code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimitTrustedProxy(t *testing.T) {
	s := newTestServer(t, transport.RouterConfig{
		RateLimitRPS:   0.001,
		RateLimitBurst: 1,
		TrustedProxies: []string{"192.0.2.0/24"},
	})
	body := map[string]string{"identity": "0x71C7656EC7ab88b098defB751B7401B5f6d8976F"}

	for _, ip := range []string{"203.0.113.1", "203.0.113.2"} {
		code, _ := s.do(t, http.MethodPost, "/auth/message", body, http.Header{"X-Forwarded-For": []string{ip}})
		assert.Equal(t, http.StatusOK, code, ip)
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, transport.DefaultRouterConfig())

	req := httptest.NewRequest(http.MethodOptions, "/auth/message", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/auth/message", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
