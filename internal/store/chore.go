package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/micasa-app/micasa/internal/model"
)

type ChoreStore struct {
	db *sql.DB
}

func NewChoreStore(db *sql.DB) *ChoreStore {
	return &ChoreStore{db: db}
}

const choreCols = `id, household_id, title, description, assigned_to, frequency, due_date, priority, category, is_completed, completed_at, completed_by, created_at, updated_at`

func scanChore(scanner interface{ Scan(...any) error }) (*model.Chore, error) {
	var c model.Chore
	err := scanner.Scan(
		&c.ID, &c.HouseholdID, &c.Title, &c.Description, &c.AssignedTo, &c.Frequency,
		&c.DueDate, &c.Priority, &c.Category, &c.IsCompleted, &c.CompletedAt, &c.CompletedBy,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *ChoreStore) Create(householdID, title, description string, assignedTo int64, frequency string, dueDate time.Time, priority, category string) (*model.Chore, error) {
	result, err := s.db.Exec(
		`INSERT INTO chores (household_id, title, description, assigned_to, frequency, due_date, priority, category)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		householdID, title, description, assignedTo, frequency, dueDate, priority, category,
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChoreStore) GetByID(id int64) (*model.Chore, error) {
	row := s.db.QueryRow(`SELECT `+choreCols+` FROM chores WHERE id = ?`, id)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	return c, nil
}

func (s *ChoreStore) ListByHousehold(householdID string) ([]model.Chore, error) {
	rows, err := s.db.Query(
		`SELECT `+choreCols+` FROM chores WHERE household_id = ? ORDER BY due_date ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	defer rows.Close()

	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}

func (s *ChoreStore) Update(id int64, title, description string, assignedTo int64, frequency string, dueDate time.Time, priority, category string) (*model.Chore, error) {
	_, err := s.db.Exec(
		`UPDATE chores
		 SET title = ?, description = ?, assigned_to = ?, frequency = ?, due_date = ?, priority = ?, category = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		title, description, assignedTo, frequency, dueDate, priority, category, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update chore: %w", err)
	}
	return s.GetByID(id)
}

// SetCompleted marks or unmarks completion, recording who completed.
func (s *ChoreStore) SetCompleted(id int64, completed bool, userID int64) (*model.Chore, error) {
	var err error
	if completed {
		_, err = s.db.Exec(
			`UPDATE chores
			 SET is_completed = 1, completed_by = ?, completed_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ?`,
			userID, id,
		)
	} else {
		_, err = s.db.Exec(
			`UPDATE chores
			 SET is_completed = 0, completed_by = NULL, completed_at = NULL, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ?`,
			id,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("set completed: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChoreStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM chores WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete chore: %w", err)
	}
	return nil
}
