package realtime

import (
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"github.com/micasa-app/micasa/internal/auth"
)

// mockClient creates a registered Client with no real connection.
func mockClient(hub *Hub, p auth.Principal) *Client {
	c := &Client{
		id:        uuid.NewString(),
		hub:       hub,
		principal: p,
		send:      make(chan []byte, sendBufferSize),
	}
	hub.Register(c)
	return c
}

func paired(id, partner int64) auth.Principal {
	return auth.Principal{UserID: id, PartnerID: &partner}
}

func readFrame(t *testing.T, c *Client) Frame {
	t.Helper()
	select {
	case data := <-c.send:
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			t.Fatalf("unmarshal frame: %v", err)
		}
		return f
	default:
		t.Fatal("no frame queued")
	}
	return Frame{}
}

func TestJoinAuthorized(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub, paired(5, 12))

	c.handleJoin("5-12")

	if got := hub.MemberCount("5-12"); got != 1 {
		t.Fatalf("member count = %d, want 1", got)
	}
	if len(c.send) != 0 {
		t.Fatalf("unexpected frame queued on successful join")
	}
}

func TestJoinUnauthorized(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub, auth.Principal{UserID: 7})

	c.handleJoin("5-12")

	if got := hub.MemberCount("5-12"); got != 0 {
		t.Fatalf("member count = %d, want 0", got)
	}
	frame := readFrame(t, c)
	if frame.Event != EventError {
		t.Fatalf("frame event = %q, want %q", frame.Event, EventError)
	}
	var body map[string]string
	if err := json.Unmarshal(frame.Data, &body); err != nil {
		t.Fatalf("unmarshal error body: %v", err)
	}
	if body["message"] != "Unauthorized household access" {
		t.Fatalf("error message = %q", body["message"])
	}
	// The connection stays registered: refused, not disconnected.
	if hub.ClientCount() != 1 {
		t.Fatalf("client count = %d, want 1", hub.ClientCount())
	}
}

func TestJoinGateRunsEveryAttempt(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub, paired(5, 12))

	c.handleJoin("5-12")
	c.handleJoin("3-4")

	if got := hub.MemberCount("3-4"); got != 0 {
		t.Fatalf("member count for foreign household = %d, want 0", got)
	}
	if f := readFrame(t, c); f.Event != EventError {
		t.Fatalf("second join: frame event = %q, want error", f.Event)
	}
}

func TestBroadcastExcludesOrigin(t *testing.T) {
	hub := NewHub(slog.Default())
	actor := mockClient(hub, paired(5, 12))
	partner := mockClient(hub, paired(12, 5))
	stranger := mockClient(hub, auth.Principal{UserID: 7})

	actor.handleJoin("5-12")
	partner.handleJoin("5-12")
	stranger.handleJoin("7")

	hub.Broadcast("5-12", actor.ID(), "chore-updated", map[string]any{
		"action":      "create",
		"householdId": "5-12",
	})

	if len(actor.send) != 0 {
		t.Error("originating connection received its own echo")
	}
	if len(stranger.send) != 0 {
		t.Error("other household received the broadcast")
	}

	frame := readFrame(t, partner)
	if frame.Event != "chore-updated" {
		t.Fatalf("partner frame event = %q, want chore-updated", frame.Event)
	}
	var body map[string]any
	if err := json.Unmarshal(frame.Data, &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body["householdId"] != "5-12" || body["action"] != "create" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestBroadcastNoOrigin(t *testing.T) {
	hub := NewHub(slog.Default())
	a := mockClient(hub, paired(5, 12))
	b := mockClient(hub, paired(12, 5))
	a.handleJoin("5-12")
	b.handleJoin("5-12")

	hub.Broadcast("5-12", "", "shopping-updated", map[string]any{"action": "delete", "id": 3})

	if len(a.send) != 1 || len(b.send) != 1 {
		t.Fatalf("queued frames = %d/%d, want 1/1", len(a.send), len(b.send))
	}
}

func TestUnregisterLeavesRoom(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub, paired(5, 12))
	c.handleJoin("5-12")

	hub.Unregister(c)

	if got := hub.MemberCount("5-12"); got != 0 {
		t.Fatalf("member count after close = %d, want 0", got)
	}
	// Should not panic
	hub.Unregister(c)
}
