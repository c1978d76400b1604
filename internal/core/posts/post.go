package posts

import (
	"time"
)

// Post is a post held by the Store.
// Content is immutable once created; only comments and reaction counters change.
type Post struct {
	CreatedAt time.Time
	Content   string
	ShareLink string // empty until the first share request
	Comments  []Comment
	ID        int64
	Likes     int64
	Dislikes  int64
}

// Comment is a piece of text attached to a post, ordered by arrival
type Comment struct {
	CreatedAt time.Time `json:"createdAt"`
	Text      string    `json:"text"`
	PostID    int64     `json:"postId"`
	Sequence  int       `json:"sequence"` // 0-based position in the post's comment list
}

// PostSummary is one row of ListPosts
type PostSummary struct {
	Content      string `json:"content"`
	ID           int64  `json:"id"`
	CommentCount int    `json:"commentCount"`
	Likes        int64  `json:"likes"`
	Dislikes     int64  `json:"dislikes"`
}

// PostView is an immutable copy of a post returned by GetPost.
// ShareLink is nil until a link has been generated for the post.
type PostView struct {
	CreatedAt time.Time `json:"createdAt"`
	ShareLink *string   `json:"shareLink,omitempty"`
	Content   string    `json:"content"`
	Comments  []Comment `json:"comments"`
	ID        int64     `json:"id"`
	Likes     int64     `json:"likes"`
	Dislikes  int64     `json:"dislikes"`
}

func (p *Post) summary() PostSummary {
	return PostSummary{
		ID:           p.ID,
		Content:      p.Content,
		CommentCount: len(p.Comments),
		Likes:        p.Likes,
		Dislikes:     p.Dislikes,
	}
}

func (p *Post) view() *PostView {
	comments := make([]Comment, len(p.Comments))
	copy(comments, p.Comments)

	v := &PostView{
		CreatedAt: p.CreatedAt,
		Content:   p.Content,
		Comments:  comments,
		ID:        p.ID,
		Likes:     p.Likes,
		Dislikes:  p.Dislikes,
	}
	if p.ShareLink != "" {
		link := p.ShareLink
		v.ShareLink = &link
	}
	return v
}
