package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cleberrangel/leads-admin-api/internal/model"
)

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/leads", func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get(HeaderAdminKey) {
		case "good":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"leads":[{"_id":"1","name":"Amal","contact":"+91 98765 43210","createdAt":"2024-01-01"}]}`))
		case "empty":
			w.Write([]byte(`{}`))
		case "html":
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`<html>bad gateway</html>`))
		case "silent":
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"Invalid admin key"}`))
		}
	})
	mux.HandleFunc("/admin/leads/export", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(HeaderAdminKey) != "good" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"Invalid admin key"}`))
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte("name,country\nAmal,India\n"))
	})
	mux.HandleFunc("/chat", func(w http.ResponseWriter, r *http.Request) {
		var req model.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.Message == "boom" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(model.ChatReply{Reply: "echo: " + req.Message})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestListLeads(t *testing.T) {
	srv := newUpstream(t)
	c := NewLeadsClient(srv.URL+"/", Options{})

	leads, err := c.ListLeads(context.Background(), "good")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(leads) != 1 || leads[0].ID != "1" || leads[0].Name != "Amal" {
		t.Errorf("unexpected leads %+v", leads)
	}

	leads, err = c.ListLeads(context.Background(), "empty")
	if err != nil || leads == nil || len(leads) != 0 {
		t.Errorf("expected empty non-nil slice, got %v %v", leads, err)
	}
}

func TestListLeadsErrors(t *testing.T) {
	srv := newUpstream(t)
	c := NewLeadsClient(srv.URL, Options{})

	tests := []struct {
		key     string
		wantMsg string
	}{
		{"wrong", "Invalid admin key"},
		{"silent", model.MsgUnauthorized},
		{"html", model.MsgServerError},
	}

	for _, tt := range tests {
		_, err := c.ListLeads(context.Background(), tt.key)
		if err == nil {
			t.Fatalf("%s: expected error", tt.key)
		}
		if got := model.CurrentError(err); got != tt.wantMsg {
			t.Errorf("%s: expected %q, got %q (%v)", tt.key, tt.wantMsg, got, err)
		}
	}

	var upstream *model.UpstreamError
	_, err := c.ListLeads(context.Background(), "wrong")
	if !errors.As(err, &upstream) || upstream.Status != http.StatusUnauthorized {
		t.Errorf("expected UpstreamError 401, got %v", err)
	}
	if !errors.Is(err, model.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized in chain")
	}
}

func TestListLeadsTransportFailure(t *testing.T) {
	srv := newUpstream(t)
	url := srv.URL
	srv.Close()

	c := NewLeadsClient(url, Options{Timeout: time.Second})
	_, err := c.ListLeads(context.Background(), "good")
	if !errors.Is(err, model.ErrServer) {
		t.Fatalf("expected ErrServer, got %v", err)
	}
	if model.CurrentError(err) != model.MsgServerError {
		t.Errorf("unexpected message %q", model.CurrentError(err))
	}
}

func TestExportCSV(t *testing.T) {
	srv := newUpstream(t)
	c := NewLeadsClient(srv.URL, Options{})

	data, err := c.ExportCSV(context.Background(), "good")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "name,country\nAmal,India\n" {
		t.Errorf("unexpected csv %q", data)
	}

	_, err = c.ExportCSV(context.Background(), "bad")
	if model.CurrentError(err) != "Invalid admin key" {
		t.Errorf("unexpected error %v", err)
	}

	srv.Close()
	_, err = c.ExportCSV(context.Background(), "good")
	if !errors.Is(err, model.ErrExportFailed) || model.CurrentError(err) != model.MsgExportFailed {
		t.Errorf("expected export failure, got %v", err)
	}
}

func TestChatSend(t *testing.T) {
	srv := newUpstream(t)
	c := NewChatClient(srv.URL+"/chat", Options{})

	reply, err := c.Send(context.Background(), "hello")
	if err != nil || reply != "echo: hello" {
		t.Fatalf("unexpected reply %q, %v", reply, err)
	}

	if _, err := c.Send(context.Background(), "boom"); !errors.Is(err, model.ErrChatFailed) {
		t.Errorf("expected ErrChatFailed, got %v", err)
	}
}

func TestContextCancelled(t *testing.T) {
	srv := newUpstream(t)
	c := NewLeadsClient(srv.URL, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.ListLeads(ctx, "good"); !errors.Is(err, model.ErrServer) {
		t.Errorf("expected ErrServer for cancelled context, got %v", err)
	}
}
