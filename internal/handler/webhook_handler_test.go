package handler_test

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"equilibra/internal/handler"
	"equilibra/internal/service"
)

const testWebhookSecret = "webhook-test-secret"

func signPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func setupWebhookRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	dispatcher := service.NewDispatcher(nil, nil, nil, nil, nil, nil, nil)
	h := handler.NewWebhookHandler(testWebhookSecret, "recall-secret", dispatcher, nil)
	r.POST("/webhooks/github", h.GitHub)
	r.POST("/webhooks/recall", h.Recall)

	return r
}

func TestWebhookHandler_GitHub_ValidSignature(t *testing.T) {
	router := setupWebhookRouter()
	payload := []byte(`{"zen":"Design for failure."}`)

	req, _ := http.NewRequest("POST", "/webhooks/github", bytes.NewReader(payload))
	req.Header.Set("X-Hub-Signature-256", signPayload(testWebhookSecret, payload))
	req.Header.Set("X-GitHub-Event", "ping")
	req.Header.Set("X-GitHub-Delivery", "d-1")

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "ignored_event")
}

func TestWebhookHandler_GitHub_BadSignature(t *testing.T) {
	router := setupWebhookRouter()
	payload := []byte(`{"zen":"Design for failure."}`)

	req, _ := http.NewRequest("POST", "/webhooks/github", bytes.NewReader(payload))
	req.Header.Set("X-Hub-Signature-256", signPayload("wrong-secret", payload))
	req.Header.Set("X-GitHub-Event", "ping")

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestWebhookHandler_GitHub_MissingSignature(t *testing.T) {
	router := setupWebhookRouter()

	req, _ := http.NewRequest("POST", "/webhooks/github", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("X-GitHub-Event", "ping")

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestWebhookHandler_GitHub_MissingEventHeader(t *testing.T) {
	router := setupWebhookRouter()
	payload := []byte(`{}`)

	req, _ := http.NewRequest("POST", "/webhooks/github", bytes.NewReader(payload))
	req.Header.Set("X-Hub-Signature-256", signPayload(testWebhookSecret, payload))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestWebhookHandler_GitHub_UndecodablePayload(t *testing.T) {
	router := setupWebhookRouter()
	payload := []byte(`{"action":"opened"}`)

	req, _ := http.NewRequest("POST", "/webhooks/github", bytes.NewReader(payload))
	req.Header.Set("X-Hub-Signature-256", signPayload(testWebhookSecret, payload))
	req.Header.Set("X-GitHub-Event", "pull_request")

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestWebhookHandler_Recall_BadSecret(t *testing.T) {
	router := setupWebhookRouter()

	req, _ := http.NewRequest("POST", "/webhooks/recall", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("X-Recall-Webhook-Secret", "wrong")

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestWebhookHandler_Recall_IgnoresNonDoneStatus(t *testing.T) {
	router := setupWebhookRouter()
	payload := []byte(`{"event":"bot.status_change","data":{"bot_id":"b1","status":{"code":"in_call_recording"}}}`)

	req, _ := http.NewRequest("POST", "/webhooks/recall", bytes.NewReader(payload))
	req.Header.Set("X-Recall-Webhook-Secret", "recall-secret")

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "ignored")
}
