package webhook

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/micasa-app/micasa/internal/database"
	"github.com/micasa-app/micasa/internal/event"
	"github.com/micasa-app/micasa/internal/store"
)

func setupDispatcherTest(t *testing.T) (*store.WebhookStore, int64) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	u, err := store.NewUserStore(db).Create("maria", "Maria", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return store.NewWebhookStore(db), u.ID
}

// capture records every request a test subscriber endpoint receives.
type capture struct {
	mu       sync.Mutex
	requests []capturedRequest
}

type capturedRequest struct {
	event     string
	signature string
	body      []byte
}

func (c *capture) add(r capturedRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, r)
}

func (c *capture) all() []capturedRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]capturedRequest(nil), c.requests...)
}

func subscriberServer(t *testing.T, status int) (*httptest.Server, *capture) {
	t.Helper()
	cap := &capture{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		cap.add(capturedRequest{
			event:     r.Header.Get("X-Micasa-Event"),
			signature: r.Header.Get("X-Micasa-Signature"),
			body:      body,
		})
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, cap
}

func TestWildcardReceivesEveryEventType(t *testing.T) {
	ws, userID := setupDispatcherTest(t)
	srv, cap := subscriberServer(t, http.StatusOK)

	if _, err := ws.Create("5-12", "all", srv.URL, []string{"*"}, true, "", userID); err != nil {
		t.Fatalf("create webhook: %v", err)
	}

	d := NewDispatcher(ws, slog.Default())
	d.Dispatch("5-12", event.ChoreUpdated, map[string]any{"action": "create"})
	d.Dispatch("5-12", event.ShoppingUpdated, map[string]any{"action": "delete"})
	d.Close()

	got := cap.all()
	if len(got) != 2 {
		t.Fatalf("received %d deliveries, want 2", len(got))
	}
	events := map[string]bool{}
	for _, r := range got {
		events[r.event] = true
	}
	if !events["chore-updated"] || !events["shopping-updated"] {
		t.Fatalf("received events %v, want both types", events)
	}
}

func TestFilteredSubscriptionReceivesOnlyItsType(t *testing.T) {
	ws, userID := setupDispatcherTest(t)
	srv, cap := subscriberServer(t, http.StatusOK)

	if _, err := ws.Create("5-12", "chores-only", srv.URL, []string{"chore-updated"}, true, "", userID); err != nil {
		t.Fatalf("create webhook: %v", err)
	}

	d := NewDispatcher(ws, slog.Default())
	d.Dispatch("5-12", event.ShoppingUpdated, map[string]any{"action": "create"})
	d.Dispatch("5-12", event.ChoreUpdated, map[string]any{"action": "create"})
	d.Close()

	got := cap.all()
	if len(got) != 1 {
		t.Fatalf("received %d deliveries, want 1", len(got))
	}
	if got[0].event != "chore-updated" {
		t.Fatalf("received event %q, want chore-updated", got[0].event)
	}
}

func TestInactiveSubscriptionExcluded(t *testing.T) {
	ws, userID := setupDispatcherTest(t)
	srv, cap := subscriberServer(t, http.StatusOK)

	if _, err := ws.Create("5-12", "off", srv.URL, []string{"*"}, false, "", userID); err != nil {
		t.Fatalf("create webhook: %v", err)
	}

	d := NewDispatcher(ws, slog.Default())
	d.Dispatch("5-12", event.ChoreUpdated, map[string]any{"action": "create"})
	d.Close()

	if got := cap.all(); len(got) != 0 {
		t.Fatalf("inactive subscription received %d deliveries", len(got))
	}
}

func TestOtherHouseholdExcluded(t *testing.T) {
	ws, userID := setupDispatcherTest(t)
	srv, cap := subscriberServer(t, http.StatusOK)

	if _, err := ws.Create("7", "other", srv.URL, []string{"*"}, true, "", userID); err != nil {
		t.Fatalf("create webhook: %v", err)
	}

	d := NewDispatcher(ws, slog.Default())
	d.Dispatch("5-12", event.ChoreUpdated, map[string]any{"action": "create"})
	d.Close()

	if got := cap.all(); len(got) != 0 {
		t.Fatalf("foreign household received %d deliveries", len(got))
	}
}

func TestSignatureHeader(t *testing.T) {
	ws, userID := setupDispatcherTest(t)
	signed, signedCap := subscriberServer(t, http.StatusOK)
	plain, plainCap := subscriberServer(t, http.StatusOK)

	if _, err := ws.Create("5-12", "signed", signed.URL, []string{"*"}, true, "abc", userID); err != nil {
		t.Fatalf("create webhook: %v", err)
	}
	if _, err := ws.Create("5-12", "plain", plain.URL, []string{"*"}, true, "", userID); err != nil {
		t.Fatalf("create webhook: %v", err)
	}

	d := NewDispatcher(ws, slog.Default())
	d.Dispatch("5-12", event.ChoreUpdated, map[string]any{"action": "create"})
	d.Close()

	signedGot := signedCap.all()
	if len(signedGot) != 1 {
		t.Fatalf("signed subscriber received %d deliveries, want 1", len(signedGot))
	}
	want := "sha256=" + Sign("abc", signedGot[0].body)
	if signedGot[0].signature != want {
		t.Fatalf("signature = %q, want %q", signedGot[0].signature, want)
	}

	plainGot := plainCap.all()
	if len(plainGot) != 1 {
		t.Fatalf("plain subscriber received %d deliveries, want 1", len(plainGot))
	}
	if plainGot[0].signature != "" {
		t.Fatalf("subscription without secret sent signature %q", plainGot[0].signature)
	}
}

func TestFailureIsolation(t *testing.T) {
	ws, userID := setupDispatcherTest(t)
	healthy, cap := subscriberServer(t, http.StatusOK)

	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := dead.URL
	dead.Close() // unreachable from now on

	if _, err := ws.Create("5-12", "dead", deadURL, []string{"*"}, true, "", userID); err != nil {
		t.Fatalf("create webhook: %v", err)
	}
	if _, err := ws.Create("5-12", "healthy", healthy.URL, []string{"*"}, true, "", userID); err != nil {
		t.Fatalf("create webhook: %v", err)
	}

	d := NewDispatcher(ws, slog.Default())
	d.Dispatch("5-12", event.ChoreUpdated, map[string]any{"action": "create"})
	d.Close()

	if got := cap.all(); len(got) != 1 {
		t.Fatalf("healthy subscriber received %d deliveries, want 1", len(got))
	}
}

func TestNon2xxIsFailure(t *testing.T) {
	ws, userID := setupDispatcherTest(t)
	srv, cap := subscriberServer(t, http.StatusInternalServerError)

	if _, err := ws.Create("5-12", "flaky", srv.URL, []string{"*"}, true, "", userID); err != nil {
		t.Fatalf("create webhook: %v", err)
	}

	d := NewDispatcher(ws, slog.Default())
	d.Dispatch("5-12", event.ChoreUpdated, map[string]any{"action": "create"})
	d.Close()

	// Exactly one attempt, no retry on failure.
	if got := cap.all(); len(got) != 1 {
		t.Fatalf("subscriber received %d attempts, want exactly 1", len(got))
	}
}

func TestDispatchAfterCloseDropsWork(t *testing.T) {
	ws, userID := setupDispatcherTest(t)
	srv, cap := subscriberServer(t, http.StatusOK)

	if _, err := ws.Create("5", "all", srv.URL, []string{"*"}, true, "", userID); err != nil {
		t.Fatalf("create webhook: %v", err)
	}

	d := NewDispatcher(ws, slog.Default())
	d.Close()

	// Deliveries run detached from the request that triggered them, so
	// one can arrive after shutdown. It must be dropped, not panic.
	d.Dispatch("5", event.ChoreUpdated, map[string]any{"action": "create"})
	d.Close()

	if got := cap.all(); len(got) != 0 {
		t.Fatalf("received %d deliveries after close, want 0", len(got))
	}
}

func TestCloseConcurrentWithDispatch(t *testing.T) {
	ws, userID := setupDispatcherTest(t)
	srv, _ := subscriberServer(t, http.StatusOK)

	if _, err := ws.Create("5-12", "all", srv.URL, []string{"*"}, true, "", userID); err != nil {
		t.Fatalf("create webhook: %v", err)
	}

	d := NewDispatcher(ws, slog.Default())

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Dispatch("5-12", event.ChoreUpdated, map[string]any{"action": "create"})
		}()
	}
	d.Close()
	wg.Wait()
	// Races between enqueue and close resolve to either a delivery or a
	// dropped job; the only failure mode here is a panic.
}

func TestSlowSubscriberTimesOutWithoutRetry(t *testing.T) {
	ws, userID := setupDispatcherTest(t)

	var attempts atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		<-release
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	if _, err := ws.Create("5-12", "slow", srv.URL, []string{"*"}, true, "", userID); err != nil {
		t.Fatalf("create webhook: %v", err)
	}

	d := NewDispatcher(ws, slog.Default(), WithDeliveryTimeout(50*time.Millisecond))
	d.Dispatch("5-12", event.ChoreUpdated, map[string]any{"action": "create"})
	d.Close()

	// Close returning proves the deadline fired while the subscriber was
	// still holding the request open. Failure is terminal.
	if n := attempts.Load(); n != 1 {
		t.Fatalf("slow subscriber saw %d attempts, want exactly 1", n)
	}
}

func TestPayloadShape(t *testing.T) {
	ws, userID := setupDispatcherTest(t)
	srv, cap := subscriberServer(t, http.StatusOK)

	if _, err := ws.Create("5-12", "all", srv.URL, []string{"*"}, true, "", userID); err != nil {
		t.Fatalf("create webhook: %v", err)
	}

	d := NewDispatcher(ws, slog.Default())
	d.Dispatch("5-12", event.ShoppingUpdated, map[string]any{"action": "create", "householdId": "5-12"})
	d.Close()

	got := cap.all()
	if len(got) != 1 {
		t.Fatalf("received %d deliveries, want 1", len(got))
	}

	var body struct {
		Event     string         `json:"event"`
		Timestamp string         `json:"timestamp"`
		Data      map[string]any `json:"data"`
	}
	if err := json.Unmarshal(got[0].body, &body); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if body.Event != "shopping-updated" {
		t.Errorf("event = %q, want shopping-updated", body.Event)
	}
	if body.Timestamp == "" {
		t.Error("timestamp missing")
	}
	if body.Data["householdId"] != "5-12" {
		t.Errorf("data = %v, want householdId 5-12", body.Data)
	}
}
