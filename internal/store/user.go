package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/micasa-app/micasa/internal/model"
)

var (
	// ErrUsernameTaken is returned when registering an existing username.
	ErrUsernameTaken = errors.New("username already exists")
	// ErrSelfLink is returned when a user tries to link to themselves.
	ErrSelfLink = errors.New("cannot link to yourself")
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userCols = `id, username, display_name, password_hash, partner_id, created_at, updated_at`

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := scanner.Scan(&u.ID, &u.Username, &u.DisplayName, &u.PasswordHash, &u.PartnerID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *UserStore) Create(username, displayName, passwordHash string) (*model.User, error) {
	existing, err := s.GetByUsername(username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}

	result, err := s.db.Exec(
		`INSERT INTO users (username, display_name, password_hash) VALUES (?, ?, ?)`,
		username, displayName, passwordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByUsername(username string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

// LinkPartner sets partner_id on both rows so the pair's tenant key is
// derivable from either member.
func (s *UserStore) LinkPartner(userID, partnerID int64) error {
	if userID == partnerID {
		return ErrSelfLink
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`UPDATE users SET partner_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		partnerID, userID,
	); err != nil {
		return fmt.Errorf("link partner: %w", err)
	}
	if _, err := tx.Exec(
		`UPDATE users SET partner_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		userID, partnerID,
	); err != nil {
		return fmt.Errorf("link partner reverse: %w", err)
	}

	return tx.Commit()
}
