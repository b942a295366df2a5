package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"funnel_backend/platform/config"
	"funnel_backend/platform/logger"
)

func TestNewClientWithoutURLIsNil(t *testing.T) {
	if c := NewClient(&config.Config{}, logger.Discard()); c != nil {
		t.Fatalf("expected nil client when gateway url is empty")
	}
}

func TestSendMessagePostsNormalizedPhone(t *testing.T) {
	var (
		got        sendMessageRequest
		authHeader string
		deviceID   string
		path       string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		authHeader = r.Header.Get("Authorization")
		deviceID = r.Header.Get("X-Device-Id")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(&config.Config{WhatsAppURL: srv.URL + "/", WhatsAppKey: "user:pass", WhatsAppDeviceID: "dev-1"}, logger.Discard())
	if err := c.SendMessage(context.Background(), "(11) 98765-4321", "Olá"); err != nil {
		t.Fatalf("send: %v", err)
	}

	if path != "/send/message" {
		t.Fatalf("unexpected path %q", path)
	}
	if got.Phone != "5511987654321" || got.Message != "Olá" {
		t.Fatalf("unexpected payload %+v", got)
	}
	if authHeader != "Basic dXNlcjpwYXNz" {
		t.Fatalf("unexpected authorization %q", authHeader)
	}
	if deviceID != "dev-1" {
		t.Fatalf("unexpected device id %q", deviceID)
	}
}

func TestSendMessageRejectsInvalidPhone(t *testing.T) {
	c := NewClient(&config.Config{WhatsAppURL: "http://127.0.0.1:1"}, logger.Discard())
	err := c.SendMessage(context.Background(), "abc", "hi")
	if !errors.Is(err, ErrInvalidPhone) {
		t.Fatalf("expected ErrInvalidPhone, got %v", err)
	}
}

func TestSendMessageReportsGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("device offline"))
	}))
	defer srv.Close()

	c := NewClient(&config.Config{WhatsAppURL: srv.URL}, logger.Discard())
	err := c.SendMessage(context.Background(), "+55 11 98765-4321", "hi")
	if err == nil || !strings.Contains(err.Error(), "502") || !strings.Contains(err.Error(), "device offline") {
		t.Fatalf("expected gateway error, got %v", err)
	}
}

func TestAuthorizationKeepsPreformattedHeader(t *testing.T) {
	if got := authorization("Basic abc"); got != "Basic abc" {
		t.Fatalf("unexpected header %q", got)
	}
}
