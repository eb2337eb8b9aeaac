package store

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/ayusman/moodplayer/internal/mood"
)

var (
	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrExists is returned when creating a frame for a mood that already has one.
	ErrExists = errors.New("already exists")
)

// MediaFrame is the embeddable player shown for a mood.
type MediaFrame struct {
	Mood      mood.Kind
	Title     string
	EmbedURL  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DefaultFrames is the catalog seeded into an empty database.
func DefaultFrames() []MediaFrame {
	titles := map[mood.Kind]string{
		mood.Happy:     "Happy Hits",
		mood.Sad:       "Sad Songs",
		mood.Angry:     "Rage Release",
		mood.Surprised: "Surprise Me",
		mood.Neutral:   "Chill Focus",
		mood.Disgusted: "Cleanse The Palate",
		mood.Fearful:   "Calm Down",
	}

	frames := make([]MediaFrame, 0, len(mood.ClassifierOrder))
	for _, k := range mood.ClassifierOrder {
		frames = append(frames, MediaFrame{
			Mood:     k,
			Title:    titles[k],
			EmbedURL: "https://www.youtube.com/embed?listType=search&list=" + string(k) + "+mood+music",
		})
	}
	return frames
}

// FrameRepository provides CRUD operations for media frames.
type FrameRepository struct {
	db *sql.DB
}

// Frames returns the media-frame repository for this store.
func (s *Store) Frames() *FrameRepository {
	return &FrameRepository{db: s.db}
}

// Create inserts a new frame. It returns ErrExists when the mood already
// has a frame.
func (r *FrameRepository) Create(f *MediaFrame) error {
	now := time.Now()
	f.CreatedAt = now
	f.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO media_frames (mood, title, embed_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		string(f.Mood), f.Title, f.EmbedURL, f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		if isConstraintError(err) {
			return ErrExists
		}
		return err
	}

	return nil
}

// Get retrieves the frame for a mood.
func (r *FrameRepository) Get(kind mood.Kind) (*MediaFrame, error) {
	f := &MediaFrame{}
	var k string

	err := r.db.QueryRow(
		`SELECT mood, title, embed_url, created_at, updated_at
		 FROM media_frames WHERE mood = ?`,
		string(kind),
	).Scan(&k, &f.Title, &f.EmbedURL, &f.CreatedAt, &f.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	f.Mood = mood.Kind(k)
	return f, nil
}

// List retrieves all frames ordered by mood.
func (r *FrameRepository) List() ([]*MediaFrame, error) {
	rows, err := r.db.Query(
		`SELECT mood, title, embed_url, created_at, updated_at
		 FROM media_frames ORDER BY mood`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var frames []*MediaFrame
	for rows.Next() {
		f := &MediaFrame{}
		var k string

		if err := rows.Scan(&k, &f.Title, &f.EmbedURL, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}

		f.Mood = mood.Kind(k)
		frames = append(frames, f)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return frames, nil
}

// Update replaces the title and URL of an existing frame.
func (r *FrameRepository) Update(f *MediaFrame) error {
	f.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		`UPDATE media_frames SET title = ?, embed_url = ?, updated_at = ?
		 WHERE mood = ?`,
		f.Title, f.EmbedURL, f.UpdatedAt, string(f.Mood),
	)
	if err != nil {
		return err
	}

	return requireRow(result)
}

// Delete removes the frame for a mood.
func (r *FrameRepository) Delete(kind mood.Kind) error {
	result, err := r.db.Exec(`DELETE FROM media_frames WHERE mood = ?`, string(kind))
	if err != nil {
		return err
	}

	return requireRow(result)
}

// Seed inserts the given frames when the catalog is empty and returns how
// many were added.
func (r *FrameRepository) Seed(frames []MediaFrame) (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM media_frames`).Scan(&count); err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	now := time.Now()
	for _, f := range frames {
		if _, err := tx.Exec(
			`INSERT INTO media_frames (mood, title, embed_url, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?)`,
			string(f.Mood), f.Title, f.EmbedURL, now, now,
		); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(frames), nil
}

func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func isConstraintError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY")
}
