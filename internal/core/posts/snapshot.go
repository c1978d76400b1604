package posts

import (
	"fmt"
	"time"

	"github.com/bluesky-social/indigo/atproto/syntax"
)

// Snapshot is the exported state of a Store.
// It is the unit saved and loaded by a SnapshotRepository.
type Snapshot struct {
	Rev    string       `json:"rev,omitempty" refmt:"rev"` // TID stamped on save
	Posts  []PostRecord `json:"posts" refmt:"posts"`
	NextID int64        `json:"nextId" refmt:"nextId"`
}

// PostRecord is the serialized form of a post inside a Snapshot
type PostRecord struct {
	Content   string          `json:"content" refmt:"content"`
	CreatedAt string          `json:"createdAt" refmt:"createdAt"` // RFC3339
	ShareLink string          `json:"shareLink,omitempty" refmt:"shareLink"`
	Comments  []CommentRecord `json:"comments" refmt:"comments"`
	ID        int64           `json:"id" refmt:"id"`
	Likes     int64           `json:"likes" refmt:"likes"`
	Dislikes  int64           `json:"dislikes" refmt:"dislikes"`
}

// CommentRecord is the serialized form of a comment inside a PostRecord
type CommentRecord struct {
	Text      string `json:"text" refmt:"text"`
	CreatedAt string `json:"createdAt" refmt:"createdAt"` // RFC3339
	Sequence  int64  `json:"sequence" refmt:"sequence"`
}

// Stamped returns a shallow copy of snap carrying a fresh revision TID
func (snap *Snapshot) Stamped() *Snapshot {
	out := *snap
	out.Rev = syntax.NewTIDNow(0).String()
	return &out
}

// RevTime returns the time encoded in the snapshot revision
func (snap *Snapshot) RevTime() (time.Time, error) {
	tid, err := syntax.ParseTID(snap.Rev)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid snapshot rev %q: %w", snap.Rev, err)
	}
	return tid.Time(), nil
}
