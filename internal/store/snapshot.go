package store

import (
	"database/sql"
	"time"
)

// Snapshot represents a captured still stored on disk.
type Snapshot struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	CreatedAt time.Time `json:"created_at"`
}

// SnapshotRepository provides access to snapshot metadata.
type SnapshotRepository struct {
	db *sql.DB
}

// Snapshots returns the snapshot repository for this store.
func (s *Store) Snapshots() *SnapshotRepository {
	return &SnapshotRepository{db: s.db}
}

// Create inserts a new snapshot record.
func (r *SnapshotRepository) Create(sn *Snapshot) error {
	sn.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO snapshots (id, path, width, height, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		sn.ID, sn.Path, sn.Width, sn.Height, sn.CreatedAt,
	)
	return err
}

// List retrieves all snapshots, newest first.
func (r *SnapshotRepository) List() ([]*Snapshot, error) {
	rows, err := r.db.Query(
		`SELECT id, path, width, height, created_at
		 FROM snapshots ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []*Snapshot
	for rows.Next() {
		sn := &Snapshot{}
		if err := rows.Scan(&sn.ID, &sn.Path, &sn.Width, &sn.Height, &sn.CreatedAt); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, sn)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return snapshots, nil
}

// Delete removes a snapshot record by its ID.
func (r *SnapshotRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM snapshots WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
