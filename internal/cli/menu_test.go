package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"Postbox/internal/core/posts"
)

type mockSnapshotRepository struct {
	mock.Mock
}

func (m *mockSnapshotRepository) Load(ctx context.Context) (*posts.Snapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*posts.Snapshot), args.Error(1)
}

func (m *mockSnapshotRepository) Save(ctx context.Context, snap *posts.Snapshot) error {
	args := m.Called(ctx, snap)
	return args.Error(0)
}

func runMenu(t *testing.T, svc posts.Service, repo posts.SnapshotRepository, lines ...string) string {
	t.Helper()
	var out bytes.Buffer
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	require.NoError(t, NewMenu(svc, repo, in, &out, nil).Run(context.Background()))
	return out.String()
}

func TestMenu_Session(t *testing.T) {
	store := posts.NewStore(posts.NewLinker("https://share.test"), nil)

	out := runMenu(t, store, nil,
		"1", "hello world",
		"1", "second post",
		"2", "1", "nice",
		"3", "1",
		"3", "1",
		"4", "2",
		"5", "1",
		"7", "2",
		"6",
		"8", "1",
		"9",
	)

	assert.Contains(t, out, "Post created with ID: 1")
	assert.Contains(t, out, "Post created with ID: 2")
	assert.Contains(t, out, "Comment #0 added to post 1.")
	assert.Contains(t, out, "Post 1 now has 2 likes.")
	assert.Contains(t, out, "Post 2 now has 1 dislikes.")
	assert.Contains(t, out, "Sharing post: https://share.test/post/1/")
	assert.Contains(t, out, "Post with ID 2 has been deleted.")
	assert.Contains(t, out, "[1] hello world (comments: 1, likes: 2, dislikes: 0)")
	assert.NotContains(t, out, "[2] second post")
	assert.Contains(t, out, "Share link: https://share.test/post/1/")
	assert.Contains(t, out, "  #0 nice")

	list := store.ListPosts()
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), list[0].ID)
}

func TestMenu_Errors(t *testing.T) {
	store := posts.NewStore(nil, nil)

	out := runMenu(t, store, nil,
		"1", "   ",
		"3", "42",
		"7", "abc",
		"0",
		"6",
		"9",
	)

	assert.Contains(t, out, "Invalid input: validation error (content): content is required")
	assert.Contains(t, out, "Post with ID 42 does not exist.")
	assert.Contains(t, out, `Invalid post ID: "abc"`)
	assert.Contains(t, out, "Invalid choice. Please try again.")
	assert.Contains(t, out, "No posts yet.")
	assert.Equal(t, 0, store.Len())
}

func TestMenu_EOFExits(t *testing.T) {
	store := posts.NewStore(nil, nil)

	var out bytes.Buffer
	err := NewMenu(store, nil, strings.NewReader("1\nunfinished"), &out, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
}

func TestMenu_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := NewMenu(posts.NewStore(nil, nil), nil, strings.NewReader("6\n"), &out, nil).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMenu_SavesAfterMutations(t *testing.T) {
	store := posts.NewStore(nil, nil)
	repo := new(mockSnapshotRepository)
	// create, comment, like, dislike, share, delete
	repo.On("Save", mock.Anything, mock.AnythingOfType("*posts.Snapshot")).Return(nil).Times(6)

	runMenu(t, store, repo,
		"1", "persist",
		"2", "1", "c",
		"3", "1",
		"4", "1",
		"5", "1",
		"6",
		"8", "1",
		"3", "99",
		"7", "1",
		"9",
	)

	repo.AssertExpectations(t)
}

func TestMenu_SaveFailureIsReported(t *testing.T) {
	store := posts.NewStore(nil, nil)
	repo := new(mockSnapshotRepository)
	repo.On("Save", mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()

	out := runMenu(t, store, repo, "1", "hello", "9")

	assert.Contains(t, out, "Post created with ID: 1")
	assert.Contains(t, out, "Warning: failed to save posts: disk full")
	assert.Equal(t, 1, store.Len())
	repo.AssertExpectations(t)
}

func TestMenu_SavedSnapshotMatchesStore(t *testing.T) {
	store := posts.NewStore(nil, nil)
	repo := new(mockSnapshotRepository)

	var saved *posts.Snapshot
	repo.On("Save", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*posts.Snapshot) }).
		Return(nil)

	runMenu(t, store, repo, "1", "a", "1", "b", "7", "1", "9")

	require.NotNil(t, saved)
	assert.Equal(t, int64(3), saved.NextID)
	require.Len(t, saved.Posts, 1)
	assert.Equal(t, "b", saved.Posts[0].Content)
}

func TestMenu_PostAtContentLimit(t *testing.T) {
	store := posts.NewStore(nil, nil)
	content := strings.Repeat("a", posts.MaxContentLength)

	out := runMenu(t, store, nil, "1", content, "9")

	assert.Contains(t, out, "Post created with ID: 1")
	post, err := store.GetPost(1)
	require.NoError(t, err)
	assert.Len(t, post.Content, posts.MaxContentLength)
}

func TestMenu_PostOverContentLimit(t *testing.T) {
	store := posts.NewStore(nil, nil)

	out := runMenu(t, store, nil, "1", strings.Repeat("a", posts.MaxContentLength+1), "9")

	assert.Contains(t, out, "Invalid input: validation error (content): content too long")
	assert.Equal(t, 0, store.Len())
}

func TestMenu_OverlongLineReprompts(t *testing.T) {
	store := posts.NewStore(nil, nil)

	out := runMenu(t, store, nil,
		"1", strings.Repeat("a", maxLineLength+1),
		"1", "after",
		"9",
	)

	assert.Contains(t, out, "Input too long")
	assert.Contains(t, out, "Post created with ID: 1")
	list := store.ListPosts()
	require.Len(t, list, 1)
	assert.Equal(t, "after", list[0].Content)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("terminal gone") }

func TestMenu_ReadErrorIsReturned(t *testing.T) {
	var out bytes.Buffer
	err := NewMenu(posts.NewStore(nil, nil), nil, failingReader{}, &out, nil).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "terminal gone")
}

// collidingService fails every create with an id collision
type collidingService struct {
	posts.Service
}

func (collidingService) CreatePost(string) (int64, error) {
	return 0, fmt.Errorf("%w: id 1 is already assigned", posts.ErrIDCollision)
}

func TestMenu_CollisionIsReported(t *testing.T) {
	repo := new(mockSnapshotRepository)

	out := runMenu(t, collidingService{}, repo, "1", "hello", "9")

	assert.Contains(t, out, "Internal error, post was not changed")
	assert.NotContains(t, out, "Post created")
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}
