package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/hashscope/hashscope/internal/config"
	"github.com/hashscope/hashscope/internal/logging"
)

const (
	testOwnerWallet = "0x00000000000000000000000000000000000000a1"
	testUserWallet  = "0x00000000000000000000000000000000000000b2"
	testVerifierKey = "test-verifier-key"
)

func testConfig() config.Config {
	return config.Config{
		AppName:         "hashscope-test",
		AppEnv:          "dev",
		Port:            "0",
		JWTSecret:       "test-jwt-secret",
		RefreshSecret:   "test-refresh-secret",
		VerifierKey:     testVerifierKey,
		LedgerOwner:     testOwnerWallet,
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
		ShutdownPeriod:  time.Second,
		IdempotencyTTL:  time.Minute,
		KeyRateLimit:    60,
	}
}

func newTestApp(t *testing.T) (*fiber.App, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	app := fiber.New()
	if err := Setup(app, Deps{Cfg: testConfig(), DB: nil, Cache: cache, Logger: logging.Discard()}); err != nil {
		t.Fatalf("setup routes: %v", err)
	}

	cleanup := func() {
		cache.Close()
		mr.Close()
	}
	return app, cleanup
}

var idemSeq int

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	if method != fiber.MethodGet {
		idemSeq++
		req.Header.Set("Idempotency-Key", fmt.Sprintf("test-%d", idemSeq))
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		decoded = nil
	}
	resp.Body.Close()
	return resp, decoded
}

func registerAndLogin(t *testing.T, app *fiber.App, wallet string) string {
	t.Helper()

	resp, _ := doJSON(t, app, fiber.MethodPost, "/api/v1/users", "", fiber.Map{"wallet_address": wallet})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: got status %d", wallet, resp.StatusCode)
	}

	payload, err := json.Marshal(fiber.Map{"wallet_address": wallet})
	if err != nil {
		t.Fatalf("marshal token request: %v", err)
	}
	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/auth/token", bytes.NewReader(payload))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set("X-Verifier-Key", testVerifierKey)
	idemSeq++
	req.Header.Set("Idempotency-Key", fmt.Sprintf("test-%d", idemSeq))

	resp2, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("token request: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("token for %s: got status %d", wallet, resp2.StatusCode)
	}
	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp2.Body).Decode(&tokenResp); err != nil {
		t.Fatalf("decode token response: %v", err)
	}
	if tokenResp.AccessToken == "" {
		t.Fatal("empty access token")
	}
	return tokenResp.AccessToken
}

func depositFor(t *testing.T, app *fiber.App, token string, amount int64, hashSuffix string) {
	t.Helper()
	txHash := "0x" + strings.Repeat("0", 64-len(hashSuffix)) + hashSuffix
	resp, body := doJSON(t, app, fiber.MethodPost, "/api/v1/deposits/notify", token, fiber.Map{
		"transaction_hash": txHash,
		"amount":           amount,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("deposit notify: got status %d body %v", resp.StatusCode, body)
	}
}

func TestRegisterDepositAndBalance(t *testing.T) {
	app, cleanup := newTestApp(t)
	defer cleanup()

	token := registerAndLogin(t, app, testUserWallet)
	depositFor(t, app, token, 100, "1")

	resp, body := doJSON(t, app, fiber.MethodGet, "/api/v1/users/balance", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("balance: got status %d", resp.StatusCode)
	}
	if got := body["balance"].(float64); got != 100 {
		t.Fatalf("expected balance 100 got %v", got)
	}
}

func TestUnknownWalletCannotGetToken(t *testing.T) {
	app, cleanup := newTestApp(t)
	defer cleanup()

	payload, _ := json.Marshal(fiber.Map{"wallet_address": testUserWallet})
	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/auth/token", bytes.NewReader(payload))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set("X-Verifier-Key", "wrong-key")
	req.Header.Set("Idempotency-Key", "bad-verifier-1")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected %d got %d", http.StatusForbidden, resp.StatusCode)
	}
}

func TestAPIKeyRequiresDeposit(t *testing.T) {
	app, cleanup := newTestApp(t)
	defer cleanup()

	token := registerAndLogin(t, app, testUserWallet)

	resp, _ := doJSON(t, app, fiber.MethodPost, "/api/v1/keys", token, fiber.Map{"name": "first"})
	if resp.StatusCode != http.StatusPaymentRequired {
		t.Fatalf("expected %d got %d", http.StatusPaymentRequired, resp.StatusCode)
	}
}

func TestMeteredDataCallChargesBalance(t *testing.T) {
	app, cleanup := newTestApp(t)
	defer cleanup()

	token := registerAndLogin(t, app, testUserWallet)
	depositFor(t, app, token, 100, "2")

	resp, body := doJSON(t, app, fiber.MethodPost, "/api/v1/keys", token, fiber.Map{"name": "data-key"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create key: got status %d body %v", resp.StatusCode, body)
	}
	keyID := body["key_id"].(string)
	secret := body["secret_key"].(string)

	// Call a metered source. btc-usd charges 5 per call.
	req := httptest.NewRequest(fiber.MethodGet, "/api/v1/data/btc-usd", nil)
	req.Header.Set("X-API-Key", keyID+"."+secret)
	dataResp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("data call: %v", err)
	}
	defer dataResp.Body.Close()
	if dataResp.StatusCode != http.StatusOK {
		t.Fatalf("data call: got status %d", dataResp.StatusCode)
	}
	var quote map[string]any
	if err := json.NewDecoder(dataResp.Body).Decode(&quote); err != nil {
		t.Fatalf("decode quote: %v", err)
	}
	if quote["fee_status"] != "charged" {
		t.Fatalf("expected fee_status charged got %v", quote["fee_status"])
	}
	if fee := quote["fee"].(float64); fee != 5 {
		t.Fatalf("expected fee 5 got %v", fee)
	}

	balResp, balBody := doJSON(t, app, fiber.MethodGet, "/api/v1/users/balance", token, nil)
	if balResp.StatusCode != http.StatusOK {
		t.Fatalf("balance: got status %d", balResp.StatusCode)
	}
	if got := balBody["balance"].(float64); got != 95 {
		t.Fatalf("expected balance 95 after fee got %v", got)
	}

	// Usage history records the charge against the key.
	histResp, histBody := doJSON(t, app, fiber.MethodGet, "/api/v1/keys/"+keyID+"/usage", token, nil)
	if histResp.StatusCode != http.StatusOK {
		t.Fatalf("usage history: got status %d", histResp.StatusCode)
	}
	records := histBody["usage"].([]any)
	if len(records) != 1 {
		t.Fatalf("expected 1 usage record got %d", len(records))
	}
}

func TestDataPlaneSkipsBearerAuth(t *testing.T) {
	app, cleanup := newTestApp(t)
	defer cleanup()

	token := registerAndLogin(t, app, testUserWallet)
	depositFor(t, app, token, 100, "7")

	resp, body := doJSON(t, app, fiber.MethodPost, "/api/v1/keys", token, fiber.Map{"name": "plane"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create key: got status %d body %v", resp.StatusCode, body)
	}
	keyID := body["key_id"].(string)
	secret := body["secret_key"].(string)

	// An API key alone must reach the data plane; no bearer token involved.
	req := httptest.NewRequest(fiber.MethodGet, "/api/v1/data", nil)
	req.Header.Set("X-API-Key", keyID+"."+secret)
	resp2, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("catalog list: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("expected %d got %d", http.StatusOK, resp2.StatusCode)
	}

	// Management routes keep demanding a bearer token.
	for _, path := range []string{"/api/v1/me", "/api/v1/users/balance", "/api/v1/keys"} {
		req := httptest.NewRequest(fiber.MethodGet, path, nil)
		resp, err := app.Test(req, -1)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("GET %s: expected %d got %d", path, http.StatusUnauthorized, resp.StatusCode)
		}
	}
}

func TestDataPlaneRejectsMissingKey(t *testing.T) {
	app, cleanup := newTestApp(t)
	defer cleanup()

	req := httptest.NewRequest(fiber.MethodGet, "/api/v1/data/btc-usd", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected %d got %d", http.StatusUnauthorized, resp.StatusCode)
	}
}

func TestOwnerWithdrawalMovesFunds(t *testing.T) {
	app, cleanup := newTestApp(t)
	defer cleanup()

	userToken := registerAndLogin(t, app, testUserWallet)
	depositFor(t, app, userToken, 100, "3")

	ownerToken := registerAndLogin(t, app, testOwnerWallet)

	resp, body := doJSON(t, app, fiber.MethodPost, "/api/v1/ledger/withdraw", ownerToken, fiber.Map{
		"account": testUserWallet,
		"amount":  40,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("owner withdraw: got status %d body %v", resp.StatusCode, body)
	}
	if got := body["balance"].(float64); got != 60 {
		t.Fatalf("expected remaining balance 60 got %v", got)
	}

	// A non-owner caller is rejected even with a valid session.
	resp2, _ := doJSON(t, app, fiber.MethodPost, "/api/v1/ledger/withdraw", userToken, fiber.Map{
		"account": testUserWallet,
		"amount":  10,
	})
	if resp2.StatusCode != http.StatusForbidden {
		t.Fatalf("expected %d got %d", http.StatusForbidden, resp2.StatusCode)
	}
}

func TestDuplicateDepositHashRejected(t *testing.T) {
	app, cleanup := newTestApp(t)
	defer cleanup()

	token := registerAndLogin(t, app, testUserWallet)
	depositFor(t, app, token, 50, "4")

	txHash := "0x" + strings.Repeat("0", 63) + "4"
	resp, _ := doJSON(t, app, fiber.MethodPost, "/api/v1/deposits/notify", token, fiber.Map{
		"transaction_hash": txHash,
		"amount":           50,
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected %d got %d", http.StatusConflict, resp.StatusCode)
	}
}
