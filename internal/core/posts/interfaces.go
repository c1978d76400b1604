package posts

import "context"

// Service defines the post operations consumed by the presentation layer
// Every operation either returns a plain value or a typed failure (ErrNotFound, ErrInvalidInput)
type Service interface {
	// CreatePost stores a new post and returns its id
	// Ids are strictly increasing and never reused
	CreatePost(content string) (int64, error)

	// AddComment appends a comment and returns its 0-based sequence number
	AddComment(postID int64, text string) (int, error)

	// Like increments the like counter and returns the new value
	Like(postID int64) (int64, error)

	// Dislike increments the dislike counter and returns the new value
	Dislike(postID int64) (int64, error)

	// ShareLink returns the post's share link, generating it on first use
	// Repeated calls for the same post return the identical string
	ShareLink(postID int64) (string, error)

	// DeletePost removes the post together with its comments
	DeletePost(postID int64) error

	// ListPosts returns summaries of all live posts in creation order
	ListPosts() []PostSummary

	// GetPost returns a copy of the post including its comments
	GetPost(postID int64) (*PostView, error)

	// Snapshot exports the full store state for persistence
	Snapshot() *Snapshot

	// Restore replaces the store state with a previously exported snapshot
	Restore(snap *Snapshot) error
}

// LinkGenerator derives share links from immutable post attributes
// Implementations must be pure: same input, same output
type LinkGenerator interface {
	Link(id int64, content string) (string, error)
}

// SnapshotRepository persists whole-store snapshots
// Used by the CLI to keep posts across restarts
type SnapshotRepository interface {
	// Load returns the last saved snapshot, or ErrNoSnapshot if nothing was saved
	Load(ctx context.Context) (*Snapshot, error)

	// Save replaces the stored snapshot
	Save(ctx context.Context, snap *Snapshot) error
}
