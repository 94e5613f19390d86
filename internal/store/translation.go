package store

import (
	"database/sql"
	"time"
)

// Translation represents one recognized gloss stored in the history.
type Translation struct {
	ID        string    `json:"id"`
	Gloss     string    `json:"gloss"`
	Score     float64   `json:"score"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
}

// TranslationRepository provides access to the translation history.
type TranslationRepository struct {
	db *sql.DB
}

// Translations returns the translation repository for this store.
func (s *Store) Translations() *TranslationRepository {
	return &TranslationRepository{db: s.db}
}

// Create inserts a new translation into the history.
func (r *TranslationRepository) Create(tr *Translation) error {
	tr.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO translations (id, gloss, score, model, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		tr.ID, tr.Gloss, tr.Score, tr.Model, tr.CreatedAt,
	)
	return err
}

// ListRecent retrieves the newest translations, newest first. A
// non-positive limit yields an empty list.
func (r *TranslationRepository) ListRecent(limit int) ([]*Translation, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := r.db.Query(
		`SELECT id, gloss, score, model, created_at
		 FROM translations ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var translations []*Translation
	for rows.Next() {
		tr := &Translation{}
		if err := rows.Scan(&tr.ID, &tr.Gloss, &tr.Score, &tr.Model, &tr.CreatedAt); err != nil {
			return nil, err
		}
		translations = append(translations, tr)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return translations, nil
}

// Prune deletes everything beyond the newest keep rows and returns how
// many rows went away. Zero keeps nothing.
func (r *TranslationRepository) Prune(keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}

	result, err := r.db.Exec(
		`DELETE FROM translations WHERE id NOT IN (
			SELECT id FROM translations ORDER BY created_at DESC LIMIT ?
		)`,
		keep,
	)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
