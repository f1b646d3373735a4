package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nidhogg/valet/internal/gateway"
	"github.com/nidhogg/valet/internal/provider"
	"github.com/nidhogg/valet/internal/store"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.Store) {
	t.Helper()
	logger := zap.NewNop()
	st, err := store.New(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	h := NewHandler(st, provider.NewRouter(logger),
		gateway.NewRESTAdapter(logger), gateway.NewGateway(logger), logger)
	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return srv, st
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := srv.Client().Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestListReminders(t *testing.T) {
	srv, st := newTestServer(t)
	target := time.Now().Add(time.Hour)
	if _, err := st.Reminders.Create(store.Reminder{
		Task: "dentist", TargetTime: &target, ConversationID: "test:owner",
	}); err != nil {
		t.Fatal(err)
	}

	resp, err := srv.Client().Get(srv.URL + "/api/reminders")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var reminders []store.Reminder
	if err := json.NewDecoder(resp.Body).Decode(&reminders); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(reminders) != 1 || reminders[0].Task != "dentist" {
		t.Errorf("reminders = %+v", reminders)
	}
}

func TestCancelReminder(t *testing.T) {
	srv, st := newTestServer(t)
	target := time.Now().Add(time.Hour)
	rem, err := st.Reminders.Create(store.Reminder{
		Task: "dentist", TargetTime: &target, ConversationID: "test:owner",
	})
	if err != nil {
		t.Fatal(err)
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/reminders/"+rem.ID, nil)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	got, _ := st.Reminders.FindByID(rem.ID)
	if got.Active {
		t.Error("reminder still active after DELETE")
	}
}

func TestCancelUnknownReminder(t *testing.T) {
	srv, _ := newTestServer(t)
	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/reminders/nope", nil)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestClearMemories(t *testing.T) {
	srv, st := newTestServer(t)
	if _, err := st.Memories.Add(store.Memory{Content: "a fact"}); err != nil {
		t.Fatal(err)
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/memories", nil)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var out map[string]int
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["deleted"] != 1 {
		t.Errorf("deleted = %d", out["deleted"])
	}
	if len(st.Memories.List()) != 0 {
		t.Error("memories not cleared")
	}
}

func TestStatus(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := srv.Client().Get(srv.URL + "/api/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["active_reminders"] != float64(0) {
		t.Errorf("active_reminders = %v", out["active_reminders"])
	}
}
