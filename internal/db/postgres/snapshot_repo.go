package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"Postbox/internal/core/posts"
)

// uniqueViolation is the PostgreSQL error code for a duplicate key
const uniqueViolation = "23505"

type postgresSnapshotRepo struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSnapshotRepository creates a PostgreSQL snapshot repository
// The schema from internal/db/migrations must already be applied
func NewSnapshotRepository(db *sql.DB, logger *slog.Logger) posts.SnapshotRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &postgresSnapshotRepo{db: db, logger: logger}
}

// Save replaces every stored post and comment with the contents of snap in one transaction
func (r *postgresSnapshotRepo) Save(ctx context.Context, snap *posts.Snapshot) error {
	if snap == nil {
		return posts.NewValidationError("snapshot", "snapshot is required")
	}
	stamped := snap.Stamped()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && rollbackErr != sql.ErrTxDone {
			r.logger.Warn("failed to roll back snapshot save", "error", rollbackErr)
		}
	}()

	// post_comments rows go with their posts via ON DELETE CASCADE
	if _, err := tx.ExecContext(ctx, `DELETE FROM posts`); err != nil {
		return fmt.Errorf("failed to clear posts: %w", err)
	}

	for _, post := range stamped.Posts {
		createdAt, err := nullTime(post.CreatedAt)
		if err != nil {
			return fmt.Errorf("post %d: %w", post.ID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO posts (id, content, created_at, likes, dislikes, share_link)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			post.ID, post.Content, createdAt, post.Likes, post.Dislikes, nullString(post.ShareLink),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: post %d: %v", posts.ErrIDCollision, post.ID, err)
			}
			return fmt.Errorf("failed to insert post %d: %w", post.ID, err)
		}

		for _, comment := range post.Comments {
			commentAt, err := nullTime(comment.CreatedAt)
			if err != nil {
				return fmt.Errorf("post %d comment %d: %w", post.ID, comment.Sequence, err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO post_comments (post_id, sequence, text, created_at)
				VALUES ($1, $2, $3, $4)`,
				post.ID, comment.Sequence, comment.Text, commentAt,
			)
			if err != nil {
				if isUniqueViolation(err) {
					return fmt.Errorf("%w: post %d comment %d: %v", posts.ErrIDCollision, post.ID, comment.Sequence, err)
				}
				return fmt.Errorf("failed to insert comment %d of post %d: %w", comment.Sequence, post.ID, err)
			}
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO store_meta (singleton, next_id, rev, saved_at)
		VALUES (TRUE, $1, $2, NOW())
		ON CONFLICT (singleton) DO UPDATE
		SET next_id = EXCLUDED.next_id, rev = EXCLUDED.rev, saved_at = EXCLUDED.saved_at`,
		stamped.NextID, stamped.Rev,
	)
	if err != nil {
		return fmt.Errorf("failed to update store metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}

	r.logger.Debug("snapshot saved", "backend", "postgres", "rev", stamped.Rev, "posts", len(stamped.Posts))
	return nil
}

// Load reads the stored snapshot
// Returns posts.ErrNoSnapshot when nothing has been saved yet
func (r *postgresSnapshotRepo) Load(ctx context.Context) (*posts.Snapshot, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	snap := &posts.Snapshot{}
	err = tx.QueryRowContext(ctx, `SELECT next_id, rev FROM store_meta WHERE singleton`).
		Scan(&snap.NextID, &snap.Rev)
	if err == sql.ErrNoRows {
		return nil, posts.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store metadata: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, content, created_at, likes, dislikes, share_link
		FROM posts
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.Warn("failed to close rows", "error", closeErr)
		}
	}()

	index := make(map[int64]int)
	snap.Posts = []posts.PostRecord{}
	for rows.Next() {
		var rec posts.PostRecord
		var createdAt sql.NullTime
		var shareLink sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Content, &createdAt, &rec.Likes, &rec.Dislikes, &shareLink); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		rec.CreatedAt = formatNullTime(createdAt)
		if shareLink.Valid {
			rec.ShareLink = shareLink.String
		}
		rec.Comments = []posts.CommentRecord{}
		index[rec.ID] = len(snap.Posts)
		snap.Posts = append(snap.Posts, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating posts: %w", err)
	}

	commentRows, err := tx.QueryContext(ctx, `
		SELECT post_id, sequence, text, created_at
		FROM post_comments
		ORDER BY post_id, sequence`)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer func() {
		if closeErr := commentRows.Close(); closeErr != nil {
			r.logger.Warn("failed to close rows", "error", closeErr)
		}
	}()

	for commentRows.Next() {
		var postID int64
		var rec posts.CommentRecord
		var createdAt sql.NullTime
		if err := commentRows.Scan(&postID, &rec.Sequence, &rec.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		rec.CreatedAt = formatNullTime(createdAt)

		i, ok := index[postID]
		if !ok {
			r.logger.Warn("skipping comment without post", "post_id", postID, "sequence", rec.Sequence)
			continue
		}
		snap.Posts[i].Comments = append(snap.Posts[i].Comments, rec)
	}
	if err := commentRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comments: %w", err)
	}

	r.logger.Debug("snapshot loaded", "backend", "postgres", "rev", snap.Rev, "posts", len(snap.Posts))
	return snap, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(s string) (sql.NullTime, error) {
	if s == "" {
		return sql.NullTime{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return sql.NullTime{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return sql.NullTime{Time: t, Valid: true}, nil
}

func formatNullTime(t sql.NullTime) string {
	if !t.Valid {
		return ""
	}
	return t.Time.UTC().Format(time.RFC3339Nano)
}
