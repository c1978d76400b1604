package posts

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rivo/uniseg"
)

const (
	// MaxContentLength is the maximum post content size in bytes
	MaxContentLength = 100000

	// maxCommentGraphemes is the maximum length for comment text in graphemes
	maxCommentGraphemes = 10000

	// firstPostID is the id handed out by an empty store
	firstPostID int64 = 1
)

// Store is the in-memory registry of posts.
// A single mutex guards all state, so every operation is atomic with respect to the others.
type Store struct {
	linker LinkGenerator
	logger *slog.Logger
	now    func() time.Time
	posts  map[int64]*Post
	order  []int64 // live post ids in creation order
	mu     sync.Mutex
	nextID int64
}

var _ Service = (*Store)(nil)

// NewStore creates an empty post store
// linker and logger may be nil; a Linker rooted at DefaultShareBaseURL and slog.Default() are used instead
func NewStore(linker LinkGenerator, logger *slog.Logger) *Store {
	if linker == nil {
		linker = NewLinker(DefaultShareBaseURL)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		linker: linker,
		logger: logger,
		now:    time.Now,
		posts:  make(map[int64]*Post),
		nextID: firstPostID,
	}
}

// CreatePost stores a new post and returns its id
func (s *Store) CreatePost(content string) (int64, error) {
	content = strings.TrimSpace(content)
	if err := validateContent(content); err != nil {
		s.logger.Warn("post rejected", "error", err)
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	if _, exists := s.posts[id]; exists {
		return 0, fmt.Errorf("%w: id %d is already assigned", ErrIDCollision, id)
	}
	s.nextID++

	s.posts[id] = &Post{
		ID:        id,
		Content:   content,
		CreatedAt: s.now().UTC(),
		Comments:  []Comment{},
	}
	s.order = append(s.order, id)

	s.logger.Debug("post created", "post_id", id, "content_bytes", len(content))
	return id, nil
}

// AddComment appends a comment to a post and returns its 0-based sequence number
func (s *Store) AddComment(postID int64, text string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[postID]
	if !ok {
		return 0, postNotFound(postID)
	}

	text = strings.TrimSpace(text)
	if err := validateCommentText(text); err != nil {
		s.logger.Warn("comment rejected", "post_id", postID, "error", err)
		return 0, err
	}

	seq := len(post.Comments)
	post.Comments = append(post.Comments, Comment{
		PostID:    postID,
		Text:      text,
		Sequence:  seq,
		CreatedAt: s.now().UTC(),
	})

	s.logger.Debug("comment added", "post_id", postID, "sequence", seq)
	return seq, nil
}

// Like increments the like counter of a post
func (s *Store) Like(postID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[postID]
	if !ok {
		return 0, postNotFound(postID)
	}
	post.Likes++

	s.logger.Debug("post liked", "post_id", postID, "likes", post.Likes)
	return post.Likes, nil
}

// Dislike increments the dislike counter of a post
func (s *Store) Dislike(postID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[postID]
	if !ok {
		return 0, postNotFound(postID)
	}
	post.Dislikes++

	s.logger.Debug("post disliked", "post_id", postID, "dislikes", post.Dislikes)
	return post.Dislikes, nil
}

// ShareLink returns the post's share link, generating and caching it on first use
func (s *Store) ShareLink(postID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[postID]
	if !ok {
		return "", postNotFound(postID)
	}
	if post.ShareLink != "" {
		return post.ShareLink, nil
	}

	link, err := s.linker.Link(post.ID, post.Content)
	if err != nil {
		return "", fmt.Errorf("failed to generate share link for post %d: %w", postID, err)
	}
	post.ShareLink = link

	s.logger.Debug("share link generated", "post_id", postID, "link", link)
	return link, nil
}

// DeletePost removes a post and all of its comments
func (s *Store) DeletePost(postID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[postID]; !ok {
		return postNotFound(postID)
	}
	delete(s.posts, postID)
	if i := slices.Index(s.order, postID); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}

	s.logger.Debug("post deleted", "post_id", postID)
	return nil
}

// ListPosts returns summaries of all live posts in creation order
func (s *Store) ListPosts() []PostSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]PostSummary, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.posts[id].summary())
	}
	return out
}

// GetPost returns a copy of a post including its comments
func (s *Store) GetPost(postID int64) (*PostView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[postID]
	if !ok {
		return nil, postNotFound(postID)
	}
	return post.view(), nil
}

// Len returns the number of live posts
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.posts)
}

// Snapshot exports the store state. Rev is left for the repository to stamp.
func (s *Store) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &Snapshot{
		NextID: s.nextID,
		Posts:  make([]PostRecord, 0, len(s.order)),
	}
	for _, id := range s.order {
		p := s.posts[id]
		rec := PostRecord{
			ID:        p.ID,
			Content:   p.Content,
			CreatedAt: formatTime(p.CreatedAt),
			ShareLink: p.ShareLink,
			Likes:     p.Likes,
			Dislikes:  p.Dislikes,
			Comments:  make([]CommentRecord, 0, len(p.Comments)),
		}
		for _, c := range p.Comments {
			rec.Comments = append(rec.Comments, CommentRecord{
				Sequence:  int64(c.Sequence),
				Text:      c.Text,
				CreatedAt: formatTime(c.CreatedAt),
			})
		}
		snap.Posts = append(snap.Posts, rec)
	}
	return snap
}

// Restore replaces the store state with the contents of snap.
// The snapshot is fully validated first; on any error the store is left untouched.
// The next id is raised past every restored id so deleted or restored ids are never handed out again.
func (s *Store) Restore(snap *Snapshot) error {
	if snap == nil {
		return NewValidationError("snapshot", "snapshot is required")
	}

	posts := make(map[int64]*Post, len(snap.Posts))
	order := make([]int64, 0, len(snap.Posts))
	links := make(map[string]int64)
	nextID := max(snap.NextID, firstPostID)

	for _, rec := range snap.Posts {
		post, err := postFromRecord(rec)
		if err != nil {
			return err
		}
		if _, dup := posts[post.ID]; dup {
			return fmt.Errorf("%w: id %d appears twice in snapshot", ErrIDCollision, post.ID)
		}
		if post.ShareLink != "" {
			if owner, dup := links[post.ShareLink]; dup {
				return NewValidationError("shareLink",
					fmt.Sprintf("posts %d and %d share the link %q", owner, post.ID, post.ShareLink))
			}
			links[post.ShareLink] = post.ID
		}
		posts[post.ID] = post
		order = append(order, post.ID)
		nextID = max(nextID, post.ID+1)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.posts = posts
	s.order = order
	s.nextID = nextID

	s.logger.Debug("store restored", "posts", len(order), "next_id", nextID, "rev", snap.Rev)
	return nil
}

func postFromRecord(rec PostRecord) (*Post, error) {
	if rec.ID < firstPostID {
		return nil, NewValidationError("id", fmt.Sprintf("invalid post id %d", rec.ID))
	}
	rec.Content = strings.TrimSpace(rec.Content)
	if err := validateContent(rec.Content); err != nil {
		return nil, err
	}
	if rec.ShareLink != "" && !strings.Contains(rec.ShareLink, fmt.Sprintf("/post/%d/", rec.ID)) {
		return nil, NewValidationError("shareLink",
			fmt.Sprintf("post %d has a share link for another post: %q", rec.ID, rec.ShareLink))
	}
	if rec.Likes < 0 || rec.Dislikes < 0 {
		return nil, NewValidationError("reactions", fmt.Sprintf("post %d has negative reaction counts", rec.ID))
	}
	createdAt, err := parseTime(rec.CreatedAt)
	if err != nil {
		return nil, NewValidationError("createdAt", fmt.Sprintf("post %d: %v", rec.ID, err))
	}

	post := &Post{
		ID:        rec.ID,
		Content:   rec.Content,
		CreatedAt: createdAt,
		ShareLink: rec.ShareLink,
		Likes:     rec.Likes,
		Dislikes:  rec.Dislikes,
		Comments:  make([]Comment, 0, len(rec.Comments)),
	}
	for i, c := range rec.Comments {
		if c.Sequence != int64(i) {
			return nil, NewValidationError("sequence",
				fmt.Sprintf("post %d: comment sequence %d found at position %d", rec.ID, c.Sequence, i))
		}
		text := strings.TrimSpace(c.Text)
		if err := validateCommentText(text); err != nil {
			return nil, err
		}
		commentAt, err := parseTime(c.CreatedAt)
		if err != nil {
			return nil, NewValidationError("createdAt", fmt.Sprintf("post %d comment %d: %v", rec.ID, i, err))
		}
		post.Comments = append(post.Comments, Comment{
			PostID:    rec.ID,
			Text:      text,
			Sequence:  i,
			CreatedAt: commentAt,
		})
	}
	return post, nil
}

func validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return NewValidationError("content", "content is required")
	}
	if len(content) > MaxContentLength {
		return NewValidationError("content",
			fmt.Sprintf("content too long (max %d characters)", MaxContentLength))
	}
	return nil
}

func validateCommentText(text string) error {
	if strings.TrimSpace(text) == "" {
		return NewValidationError("text", "comment text is required")
	}
	if uniseg.GraphemeClusterCount(text) > maxCommentGraphemes {
		return NewValidationError("text",
			fmt.Sprintf("comment too long (max %d graphemes)", maxCommentGraphemes))
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime accepts an empty string as the zero time; older snapshots carry no timestamps
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
