package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/micasa-app/micasa/internal/model"
)

type WebhookStore struct {
	db *sql.DB
}

func NewWebhookStore(db *sql.DB) *WebhookStore {
	return &WebhookStore{db: db}
}

const webhookCols = `id, household_id, name, url, events, is_active, secret, created_by, created_at, updated_at`

func scanWebhook(scanner interface{ Scan(...any) error }) (*model.Webhook, error) {
	var (
		w         model.Webhook
		eventsRaw string
		secret    sql.NullString
	)
	err := scanner.Scan(&w.ID, &w.HouseholdID, &w.Name, &w.URL, &eventsRaw, &w.IsActive, &secret, &w.CreatedBy, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(eventsRaw), &w.Events); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	if w.Events == nil {
		w.Events = []string{}
	}
	w.Secret = secret.String
	return &w, nil
}

func (s *WebhookStore) Create(householdID, name, url string, events []string, isActive bool, secret string, createdBy int64) (*model.Webhook, error) {
	eventsJSON, err := json.Marshal(events)
	if err != nil {
		return nil, fmt.Errorf("encode events: %w", err)
	}

	result, err := s.db.Exec(
		`INSERT INTO webhooks (household_id, name, url, events, is_active, secret, created_by)
		 VALUES (?, ?, ?, ?, ?, NULLIF(?, ''), ?)`,
		householdID, name, url, string(eventsJSON), isActive, secret, createdBy,
	)
	if err != nil {
		return nil, fmt.Errorf("insert webhook: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *WebhookStore) GetByID(id int64) (*model.Webhook, error) {
	row := s.db.QueryRow(`SELECT `+webhookCols+` FROM webhooks WHERE id = ?`, id)
	w, err := scanWebhook(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get webhook: %w", err)
	}
	return w, nil
}

func (s *WebhookStore) ListByHousehold(householdID string) ([]model.Webhook, error) {
	rows, err := s.db.Query(
		`SELECT `+webhookCols+` FROM webhooks WHERE household_id = ? ORDER BY created_at DESC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list webhooks: %w", err)
	}
	defer rows.Close()
	return collectWebhooks(rows)
}

// ListActiveByHousehold returns the household's active subscriptions.
// Event-type filtering happens at the dispatch layer where the
// wildcard semantics live.
func (s *WebhookStore) ListActiveByHousehold(householdID string) ([]model.Webhook, error) {
	rows, err := s.db.Query(
		`SELECT `+webhookCols+` FROM webhooks WHERE household_id = ? AND is_active = 1 ORDER BY created_at DESC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list active webhooks: %w", err)
	}
	defer rows.Close()
	return collectWebhooks(rows)
}

func collectWebhooks(rows *sql.Rows) ([]model.Webhook, error) {
	var webhooks []model.Webhook
	for rows.Next() {
		w, err := scanWebhook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan webhook: %w", err)
		}
		webhooks = append(webhooks, *w)
	}
	return webhooks, rows.Err()
}

func (s *WebhookStore) Update(id int64, name, url string, events []string, isActive bool, secret string) (*model.Webhook, error) {
	eventsJSON, err := json.Marshal(events)
	if err != nil {
		return nil, fmt.Errorf("encode events: %w", err)
	}

	_, err = s.db.Exec(
		`UPDATE webhooks
		 SET name = ?, url = ?, events = ?, is_active = ?, secret = NULLIF(?, ''), updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		name, url, string(eventsJSON), isActive, secret, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update webhook: %w", err)
	}
	return s.GetByID(id)
}

func (s *WebhookStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM webhooks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	return nil
}
