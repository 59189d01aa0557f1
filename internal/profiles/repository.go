// Package profiles keeps the user profile fields the storefront learns from
// checkout.
package profiles

import (
	"context"
	"database/sql"

	"github.com/joao-fontenele/studyshop/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Backfill copies the checkout student id and name into the user's profile
// where those fields are still empty. Existing values are never overwritten
// and a missing profile is not an error.
func (r *Repository) Backfill(ctx context.Context, userID string, info domain.CustomerInfo) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE profiles
		SET student_id = COALESCE(NULLIF(student_id, ''), $2),
		    full_name = COALESCE(NULLIF(full_name, ''), $3),
		    updated_at = NOW()
		WHERE id = $1 AND (COALESCE(student_id, '') = '' OR COALESCE(full_name, '') = '')
	`, userID, info.StudentID, info.Name)
	return err
}

func (r *Repository) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	p := &domain.Profile{}
	var fullName, phone, studentID sql.NullString

	err := r.db.QueryRowContext(ctx, `
		SELECT id, full_name, phone, student_id
		FROM profiles
		WHERE id = $1
	`, userID).Scan(&p.ID, &fullName, &phone, &studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	p.FullName = fullName.String
	p.Phone = phone.String
	p.StudentID = studentID.String
	return p, nil
}
