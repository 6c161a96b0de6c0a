package store

import (
	"database/sql"
	"fmt"

	"github.com/micasa-app/micasa/internal/model"
)

type ShoppingStore struct {
	db *sql.DB
}

func NewShoppingStore(db *sql.DB) *ShoppingStore {
	return &ShoppingStore{db: db}
}

const shoppingCols = `id, household_id, item, quantity, category, priority, notes, is_purchased, created_by, purchased_by, purchased_at, created_at, updated_at`

func scanShoppingNote(scanner interface{ Scan(...any) error }) (*model.ShoppingNote, error) {
	var n model.ShoppingNote
	err := scanner.Scan(
		&n.ID, &n.HouseholdID, &n.Item, &n.Quantity, &n.Category, &n.Priority, &n.Notes,
		&n.IsPurchased, &n.CreatedBy, &n.PurchasedBy, &n.PurchasedAt, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *ShoppingStore) Create(householdID, item, quantity, category, priority, notes string, createdBy int64) (*model.ShoppingNote, error) {
	result, err := s.db.Exec(
		`INSERT INTO shopping_notes (household_id, item, quantity, category, priority, notes, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		householdID, item, quantity, category, priority, notes, createdBy,
	)
	if err != nil {
		return nil, fmt.Errorf("insert shopping note: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ShoppingStore) GetByID(id int64) (*model.ShoppingNote, error) {
	row := s.db.QueryRow(`SELECT `+shoppingCols+` FROM shopping_notes WHERE id = ?`, id)
	n, err := scanShoppingNote(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get shopping note: %w", err)
	}
	return n, nil
}

func (s *ShoppingStore) ListByHousehold(householdID string) ([]model.ShoppingNote, error) {
	rows, err := s.db.Query(
		`SELECT `+shoppingCols+` FROM shopping_notes WHERE household_id = ? ORDER BY created_at DESC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list shopping notes: %w", err)
	}
	defer rows.Close()

	var notes []model.ShoppingNote
	for rows.Next() {
		n, err := scanShoppingNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shopping note: %w", err)
		}
		notes = append(notes, *n)
	}
	return notes, rows.Err()
}

func (s *ShoppingStore) Update(id int64, item, quantity, category, priority, notes string) (*model.ShoppingNote, error) {
	_, err := s.db.Exec(
		`UPDATE shopping_notes
		 SET item = ?, quantity = ?, category = ?, priority = ?, notes = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		item, quantity, category, priority, notes, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update shopping note: %w", err)
	}
	return s.GetByID(id)
}

// SetPurchased toggles the purchased flag. Marking purchased records
// who and when; unmarking clears both.
func (s *ShoppingStore) SetPurchased(id int64, purchased bool, userID int64) (*model.ShoppingNote, error) {
	var err error
	if purchased {
		_, err = s.db.Exec(
			`UPDATE shopping_notes
			 SET is_purchased = 1, purchased_by = ?, purchased_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ?`,
			userID, id,
		)
	} else {
		_, err = s.db.Exec(
			`UPDATE shopping_notes
			 SET is_purchased = 0, purchased_by = NULL, purchased_at = NULL, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ?`,
			id,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("set purchased: %w", err)
	}
	return s.GetByID(id)
}

func (s *ShoppingStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM shopping_notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete shopping note: %w", err)
	}
	return nil
}
