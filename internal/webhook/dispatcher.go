// Package webhook delivers signed mutation notifications to
// externally registered subscriber endpoints.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/micasa-app/micasa/internal/event"
	"github.com/micasa-app/micasa/internal/store"
)

const (
	deliveryTimeout = 5 * time.Second
	defaultWorkers  = 4
	queueSize       = 64
)

// payload is the outbound body shared by every subscriber of an event.
type payload struct {
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
}

// job is one delivery attempt for one subscription. Attempts are
// single-shot: the terminal states are delivered and failed, with no
// retry in between.
type job struct {
	deliveryID string
	webhookID  int64
	url        string
	secret     string
	eventType  event.Type
	body       []byte
}

// Dispatcher fans mutation events out to matching webhook
// subscriptions through a bounded worker pool. It never returns errors
// to callers: deliveries are detached from the request that triggered
// the mutation, and each subscriber's failure is isolated to its own
// delivery.
type Dispatcher struct {
	store      *store.WebhookStore
	httpClient *http.Client
	timeout    time.Duration
	jobs       chan job
	mu         sync.Mutex // guards closed and the enqueue/close race
	closed     bool
	wg         sync.WaitGroup
	logger     *slog.Logger
}

type Option func(*Dispatcher)

// WithHTTPClient overrides the outbound HTTP client, used in tests.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) {
		d.httpClient = c
	}
}

// WithDeliveryTimeout overrides the per-delivery deadline, used in tests.
func WithDeliveryTimeout(t time.Duration) Option {
	return func(d *Dispatcher) {
		d.timeout = t
	}
}

// NewDispatcher creates a Dispatcher and starts its workers.
func NewDispatcher(st *store.WebhookStore, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:      st,
		httpClient: &http.Client{},
		timeout:    deliveryTimeout,
		jobs:       make(chan job, queueSize),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.wg.Add(defaultWorkers)
	for range defaultWorkers {
		go d.worker()
	}
	return d
}

// Close stops accepting work and waits for queued deliveries to finish.
// Safe to call more than once and concurrently with Dispatch: dispatches
// run on goroutines detached from the triggering request, so a late one
// can arrive mid-shutdown and must drop its work rather than panic.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// Dispatch queues one delivery per active subscription of the
// household whose event filter matches eventType (exactly or via the
// "*" wildcard). The serialized body is built once; signatures are
// computed per subscription over those same bytes.
func (d *Dispatcher) Dispatch(householdKey string, eventType event.Type, data any) {
	subs, err := d.store.ListActiveByHousehold(householdKey)
	if err != nil {
		d.logger.Error("load webhook subscriptions", "household", householdKey, "error", err)
		return
	}

	var body []byte
	for _, sub := range subs {
		if !matches(sub.Events, eventType) {
			continue
		}
		if body == nil {
			body, err = json.Marshal(payload{
				Event:     string(eventType),
				Timestamp: time.Now().UTC().Format(time.RFC3339),
				Data:      data,
			})
			if err != nil {
				d.logger.Error("marshal webhook payload", "event", eventType, "error", err)
				return
			}
		}

		d.enqueue(job{
			deliveryID: uuid.NewString(),
			webhookID:  sub.ID,
			url:        sub.URL,
			secret:     sub.Secret,
			eventType:  eventType,
			body:       body,
		})
	}
}

// enqueue queues one job without blocking. The mutex orders enqueues
// against Close: after Close has run, work is dropped, never sent on
// the closed channel.
func (d *Dispatcher) enqueue(j job) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		d.logger.Warn("dispatcher closed, dropping delivery",
			"delivery", j.deliveryID, "webhook", j.webhookID, "event", j.eventType)
		return
	}
	select {
	case d.jobs <- j:
	default:
		d.logger.Error("webhook queue full, dropping delivery",
			"delivery", j.deliveryID, "webhook", j.webhookID, "event", j.eventType)
	}
}

func matches(events []string, eventType event.Type) bool {
	return slices.Contains(events, string(eventType)) || slices.Contains(events, event.Wildcard)
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.jobs {
		d.deliver(j)
	}
}

// deliver POSTs one job to its subscriber with a bounded deadline.
// Timeout, network error, and non-2xx status are all the same terminal
// failure: logged, no retry, no propagation.
func (d *Dispatcher) deliver(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.url, bytes.NewReader(j.body))
	if err != nil {
		d.logFailed(j, err.Error())
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Micasa-Event", string(j.eventType))
	if j.secret != "" {
		req.Header.Set("X-Micasa-Signature", "sha256="+Sign(j.secret, j.body))
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		d.logFailed(j, err.Error())
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		d.logFailed(j, resp.Status)
		return
	}

	d.logger.Info("webhook delivered",
		"delivery", j.deliveryID, "webhook", j.webhookID, "event", j.eventType)
}

func (d *Dispatcher) logFailed(j job, reason string) {
	d.logger.Warn("webhook delivery failed",
		"delivery", j.deliveryID, "webhook", j.webhookID, "event", j.eventType, "reason", reason)
}

// Sign returns the hex HMAC-SHA256 of body under the subscription
// secret, the value carried in the X-Micasa-Signature header.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
