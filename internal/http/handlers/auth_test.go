package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tasklane/server/internal/auth"
	apihttp "github.com/tasklane/server/internal/http"
	"github.com/tasklane/server/internal/http/handlers"
	"github.com/tasklane/server/internal/mail"
	"github.com/tasklane/server/internal/repo/memory"
)

// newTestServer wires the full router against the in-memory store. OTP
// echoing is enabled so flow tests can read codes from responses, the same
// way a developer would with OTP_ECHO=true.
func newTestServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()

	store := memory.NewStore()
	logger := zap.NewNop()

	otpManager := auth.NewOtpManager(store.Users(), "test-salt")
	issuer := auth.NewTokenIssuer("test-secret-at-least-32-characters!!", store.Tokens(), store.Users())
	service := auth.NewService(store.Users(), otpManager, issuer, mail.NewLogNotifier(logger), logger)

	authHandler := handlers.NewAuthHandler(service, true)
	todoHandler := handlers.NewTodoHandler(store.Todos())

	router := apihttp.NewRouter(authHandler, todoHandler, issuer, logger)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, store
}

// doJSON performs a request and decodes the JSON response body into a map.
func doJSON(t *testing.T, method, url, token string, body any) (int, map[string]any) {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, reqBody)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

// registerAndVerify registers a user, verifies the email via the echoed code
// and returns a fresh login token.
func registerAndVerify(t *testing.T, baseURL, name, email, password string) string {
	t.Helper()

	status, body := doJSON(t, http.MethodPost, baseURL+"/register", "", map[string]string{
		"name": name, "email": email,
		"password": password, "password_confirmation": password,
	})
	require.Equal(t, http.StatusCreated, status)

	status, body = doJSON(t, http.MethodPost, baseURL+"/verify-email", "", map[string]string{
		"email": email, "otp": body["otp"].(string),
	})
	require.Equal(t, http.StatusOK, status)
	return body["token"].(string)
}

func TestRegisterVerifyLoginScenario(t *testing.T) {
	server, _ := newTestServer(t)
	base := server.URL

	status, body := doJSON(t, http.MethodPost, base+"/register", "", map[string]string{
		"name": "A", "email": "a@x.com",
		"password": "pw12345678", "password_confirmation": "pw12345678",
	})
	require.Equal(t, http.StatusCreated, status)
	token1 := body["token"].(string)
	otp1 := body["otp"].(string)
	require.NotEmpty(t, token1)
	require.Len(t, otp1, 6)

	user := body["user"].(map[string]any)
	assert.Equal(t, "a@x.com", user["email"])
	assert.Nil(t, user["email_verified_at"])

	// Login before verification is forbidden.
	status, body = doJSON(t, http.MethodPost, base+"/login", "", map[string]string{
		"email": "a@x.com", "password": "pw12345678",
	})
	require.Equal(t, http.StatusForbidden, status)

	status, body = doJSON(t, http.MethodPost, base+"/verify-email", "", map[string]string{
		"email": "a@x.com", "otp": otp1,
	})
	require.Equal(t, http.StatusOK, status)
	token2 := body["token"].(string)
	assert.NotEqual(t, token1, token2)
	assert.NotNil(t, body["user"].(map[string]any)["email_verified_at"])

	status, _ = doJSON(t, http.MethodPost, base+"/login", "", map[string]string{
		"email": "a@x.com", "password": "pw12345678",
	})
	assert.Equal(t, http.StatusOK, status)
}

func TestRegisterValidation(t *testing.T) {
	server, _ := newTestServer(t)
	base := server.URL

	status, body := doJSON(t, http.MethodPost, base+"/register", "", map[string]string{
		"name": "", "email": "not-an-email",
		"password": "short", "password_confirmation": "short",
	})
	require.Equal(t, http.StatusUnprocessableEntity, status)
	errs := body["errors"].(map[string]any)
	assert.Contains(t, errs, "name")
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "password")

	// Mismatched confirmation.
	status, body = doJSON(t, http.MethodPost, base+"/register", "", map[string]string{
		"name": "A", "email": "a@x.com",
		"password": "pw12345678", "password_confirmation": "different12",
	})
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body["errors"].(map[string]any), "password")

	// Duplicate email surfaces as a field error.
	status, _ = doJSON(t, http.MethodPost, base+"/register", "", map[string]string{
		"name": "A", "email": "a@x.com",
		"password": "pw12345678", "password_confirmation": "pw12345678",
	})
	require.Equal(t, http.StatusCreated, status)
	status, body = doJSON(t, http.MethodPost, base+"/register", "", map[string]string{
		"name": "B", "email": "a@x.com",
		"password": "pw12345678", "password_confirmation": "pw12345678",
	})
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body["errors"].(map[string]any), "email")
}

func TestPasswordResetScenario(t *testing.T) {
	server, _ := newTestServer(t)
	base := server.URL
	registerAndVerify(t, base, "A", "a@x.com", "pw12345678")

	status, body := doJSON(t, http.MethodPost, base+"/send-otp", "", map[string]string{"email": "a@x.com"})
	require.Equal(t, http.StatusOK, status)
	otp1 := body["otp"].(string)

	status, body = doJSON(t, http.MethodPost, base+"/send-otp", "", map[string]string{"email": "a@x.com"})
	require.Equal(t, http.StatusOK, status)
	otp2 := body["otp"].(string)

	// The second code replaced the first.
	if otp1 != otp2 {
		status, body = doJSON(t, http.MethodPost, base+"/reset-password", "", map[string]string{
			"email": "a@x.com", "otp": otp1,
			"password": "newpw12345", "password_confirmation": "newpw12345",
		})
		require.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "Invalid OTP", body["message"])
	}

	status, _ = doJSON(t, http.MethodPost, base+"/reset-password", "", map[string]string{
		"email": "a@x.com", "otp": otp2,
		"password": "newpw12345", "password_confirmation": "newpw12345",
	})
	require.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, http.MethodPost, base+"/login", "", map[string]string{
		"email": "a@x.com", "password": "pw12345678",
	})
	assert.Equal(t, http.StatusUnauthorized, status, "old password must stop working")

	status, _ = doJSON(t, http.MethodPost, base+"/login", "", map[string]string{
		"email": "a@x.com", "password": "newpw12345",
	})
	assert.Equal(t, http.StatusOK, status)
}

func TestSendOtp_unknownEmail(t *testing.T) {
	server, _ := newTestServer(t)
	status, body := doJSON(t, http.MethodPost, server.URL+"/send-otp", "", map[string]string{"email": "nobody@x.com"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "User not found", body["message"])
}

func TestUserEndpointRequiresToken(t *testing.T) {
	server, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, server.URL+"/user", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogoutRevokesOnlyPresentedToken(t *testing.T) {
	server, _ := newTestServer(t)
	base := server.URL
	token1 := registerAndVerify(t, base, "A", "a@x.com", "pw12345678")

	status, body := doJSON(t, http.MethodPost, base+"/login", "", map[string]string{
		"email": "a@x.com", "password": "pw12345678",
	})
	require.Equal(t, http.StatusOK, status)
	token2 := body["token"].(string)

	status, _ = doJSON(t, http.MethodPost, base+"/logout", token2, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, http.MethodGet, base+"/user", token2, nil)
	assert.Equal(t, http.StatusUnauthorized, status, "revoked token must stop working")

	status, body = doJSON(t, http.MethodGet, base+"/user", token1, nil)
	require.Equal(t, http.StatusOK, status, "other sessions must survive logout")
	assert.Equal(t, "a@x.com", body["user"].(map[string]any)["email"])
}

func TestDeleteAccount(t *testing.T) {
	server, _ := newTestServer(t)
	base := server.URL
	token := registerAndVerify(t, base, "A", "a@x.com", "pw12345678")

	// A to-do that must disappear with the account.
	status, _ := doJSON(t, http.MethodPost, base+"/to-dos", token, map[string]string{
		"title": "pack boxes", "priority": "low", "status": "pending",
	})
	require.Equal(t, http.StatusCreated, status)

	status, body := doJSON(t, http.MethodPost, base+"/delete-account", token, map[string]string{
		"email": "a@x.com", "password": "wrong-password",
	})
	require.Equal(t, http.StatusUnauthorized, status)

	status, body = doJSON(t, http.MethodPost, base+"/delete-account", token, map[string]string{
		"email": "a@x.com", "password": "pw12345678",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "User deleted successfully", body["message"])

	status, _ = doJSON(t, http.MethodGet, base+"/user", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status, "tokens must not survive deletion")

	status, _ = doJSON(t, http.MethodPost, base+"/login", "", map[string]string{
		"email": "a@x.com", "password": "pw12345678",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestVerifyEmail_badCodes(t *testing.T) {
	server, _ := newTestServer(t)
	base := server.URL

	status, body := doJSON(t, http.MethodPost, base+"/register", "", map[string]string{
		"name": "A", "email": "a@x.com",
		"password": "pw12345678", "password_confirmation": "pw12345678",
	})
	require.Equal(t, http.StatusCreated, status)
	otp := body["otp"].(string)

	// Unknown user: 404 before any OTP comparison.
	status, body = doJSON(t, http.MethodPost, base+"/verify-email", "", map[string]string{
		"email": "nobody@x.com", "otp": otp,
	})
	require.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "User not found", body["message"])

	// Malformed code: field-level validation error.
	status, _ = doJSON(t, http.MethodPost, base+"/verify-email", "", map[string]string{
		"email": "a@x.com", "otp": "12ab56",
	})
	require.Equal(t, http.StatusUnprocessableEntity, status)

	// Wrong code.
	wrong := "000000"
	if wrong == otp {
		wrong = "000001"
	}
	status, body = doJSON(t, http.MethodPost, base+"/verify-email", "", map[string]string{
		"email": "a@x.com", "otp": wrong,
	})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid OTP", body["message"])
}

func TestHealth(t *testing.T) {
	server, _ := newTestServer(t)
	resp, err := http.Get(fmt.Sprintf("%s/health", server.URL))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
