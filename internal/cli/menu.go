// Package cli implements the interactive text menu over a post store.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"Postbox/internal/core/posts"
)

// maxLineLength leaves room for a post at the content limit plus surrounding whitespace
const maxLineLength = posts.MaxContentLength + 4096

var errLineTooLong = errors.New("input line too long")

const menuText = `
Select an action:
1. Create a Post
2. Add Comment to a Post
3. Like a Post
4. Dislike a Post
5. Share a Post
6. Display All Posts
7. Delete a Post
8. View a Post
9. Exit
`

// Menu reads one action per line and runs it against the post service.
// When a repository is set, the store is saved after every successful mutation.
type Menu struct {
	svc    posts.Service
	repo   posts.SnapshotRepository
	logger *slog.Logger
	in     *bufio.Reader
	out    io.Writer
	done   bool  // input ended
	err    error // read failure that ended the input, nil on EOF
}

// NewMenu creates a menu reading from in and writing to out
// repo and logger may be nil; without a repository nothing is persisted
func NewMenu(svc posts.Service, repo posts.SnapshotRepository, in io.Reader, out io.Writer, logger *slog.Logger) *Menu {
	if logger == nil {
		logger = slog.Default()
	}
	return &Menu{
		svc:    svc,
		repo:   repo,
		logger: logger,
		in:     bufio.NewReader(in),
		out:    out,
	}
}

// Run loops until the operator exits, input ends, or ctx is canceled
func (m *Menu) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if m.done {
			fmt.Fprintln(m.out)
			return m.err
		}

		fmt.Fprint(m.out, menuText)
		choice, ok := m.ask("Enter your choice: ")
		if !ok {
			continue
		}

		switch choice {
		case "1":
			m.createPost(ctx)
		case "2":
			m.addComment(ctx)
		case "3":
			m.react(ctx, "like", m.svc.Like, "likes")
		case "4":
			m.react(ctx, "dislike", m.svc.Dislike, "dislikes")
		case "5":
			m.share(ctx)
		case "6":
			m.displayPosts()
		case "7":
			m.deletePost(ctx)
		case "8":
			m.viewPost()
		case "9", "q", "quit", "exit":
			return nil
		default:
			fmt.Fprintln(m.out, "Invalid choice. Please try again.")
		}
	}
}

func (m *Menu) createPost(ctx context.Context) {
	content, ok := m.ask("Enter post content: ")
	if !ok {
		return
	}
	id, err := m.svc.CreatePost(content)
	if err != nil {
		m.report(0, err)
		return
	}
	fmt.Fprintf(m.out, "Post created with ID: %d\n", id)
	m.save(ctx)
}

func (m *Menu) addComment(ctx context.Context) {
	id, ok := m.askID("Enter post ID to comment on: ")
	if !ok {
		return
	}
	text, ok := m.ask("Enter your comment: ")
	if !ok {
		return
	}
	seq, err := m.svc.AddComment(id, text)
	if err != nil {
		m.report(id, err)
		return
	}
	fmt.Fprintf(m.out, "Comment #%d added to post %d.\n", seq, id)
	m.save(ctx)
}

func (m *Menu) react(ctx context.Context, verb string, apply func(int64) (int64, error), noun string) {
	id, ok := m.askID(fmt.Sprintf("Enter post ID to %s: ", verb))
	if !ok {
		return
	}
	count, err := apply(id)
	if err != nil {
		m.report(id, err)
		return
	}
	fmt.Fprintf(m.out, "Post %d now has %d %s.\n", id, count, noun)
	m.save(ctx)
}

func (m *Menu) share(ctx context.Context) {
	id, ok := m.askID("Enter post ID to share: ")
	if !ok {
		return
	}
	link, err := m.svc.ShareLink(id)
	if err != nil {
		m.report(id, err)
		return
	}
	fmt.Fprintf(m.out, "Sharing post: %s\n", link)
	// the first share caches the link on the post
	m.save(ctx)
}

func (m *Menu) displayPosts() {
	list := m.svc.ListPosts()
	if len(list) == 0 {
		fmt.Fprintln(m.out, "No posts yet.")
		return
	}
	for _, p := range list {
		fmt.Fprintf(m.out, "[%d] %s (comments: %d, likes: %d, dislikes: %d)\n",
			p.ID, p.Content, p.CommentCount, p.Likes, p.Dislikes)
	}
}

func (m *Menu) deletePost(ctx context.Context) {
	id, ok := m.askID("Enter post ID to delete: ")
	if !ok {
		return
	}
	if err := m.svc.DeletePost(id); err != nil {
		m.report(id, err)
		return
	}
	fmt.Fprintf(m.out, "Post with ID %d has been deleted.\n", id)
	m.save(ctx)
}

func (m *Menu) viewPost() {
	id, ok := m.askID("Enter post ID to view: ")
	if !ok {
		return
	}
	post, err := m.svc.GetPost(id)
	if err != nil {
		m.report(id, err)
		return
	}

	fmt.Fprintf(m.out, "Post %d: %s\n", post.ID, post.Content)
	fmt.Fprintf(m.out, "Likes: %d, Dislikes: %d\n", post.Likes, post.Dislikes)
	if post.ShareLink != nil {
		fmt.Fprintf(m.out, "Share link: %s\n", *post.ShareLink)
	}
	if len(post.Comments) == 0 {
		fmt.Fprintln(m.out, "No comments.")
		return
	}
	fmt.Fprintln(m.out, "Comments:")
	for _, c := range post.Comments {
		fmt.Fprintf(m.out, "  #%d %s\n", c.Sequence, c.Text)
	}
}

func (m *Menu) save(ctx context.Context) {
	if m.repo == nil {
		return
	}
	if err := m.repo.Save(ctx, m.svc.Snapshot()); err != nil {
		m.logger.Error("failed to save posts", "error", err)
		fmt.Fprintf(m.out, "Warning: failed to save posts: %v\n", err)
	}
}

func (m *Menu) report(id int64, err error) {
	switch {
	case posts.IsNotFound(err):
		fmt.Fprintf(m.out, "Post with ID %d does not exist.\n", id)
	case posts.IsValidationError(err):
		fmt.Fprintf(m.out, "Invalid input: %v\n", err)
	case posts.IsCollision(err):
		m.logger.Error("post id collision", "post_id", id, "error", err)
		fmt.Fprintf(m.out, "Internal error, post was not changed: %v\n", err)
	default:
		m.logger.Error("operation failed", "post_id", id, "error", err)
		fmt.Fprintf(m.out, "Error: %v\n", err)
	}
}

// ask prints prompt and reads one trimmed line
// false means the current action is abandoned, either because input ended or the line was too long
func (m *Menu) ask(prompt string) (string, bool) {
	fmt.Fprint(m.out, prompt)
	line, err := m.readLine()
	switch {
	case err == nil:
		return line, true
	case errors.Is(err, errLineTooLong):
		fmt.Fprintf(m.out, "\nInput too long (max %d bytes). Please try again.\n", posts.MaxContentLength)
		return "", false
	case errors.Is(err, io.EOF):
		m.done = true
		return "", false
	default:
		m.done = true
		m.err = fmt.Errorf("failed to read input: %w", err)
		return "", false
	}
}

// readLine reads up to the next newline
// A line over maxLineLength is consumed in full and reported as errLineTooLong
func (m *Menu) readLine() (string, error) {
	var line []byte
	tooLong := false
	for {
		chunk, err := m.in.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(chunk) > maxLineLength {
				tooLong = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil && !(errors.Is(err, io.EOF) && (len(line) > 0 || tooLong)) {
			return "", err
		}
		break
	}
	if tooLong {
		return "", errLineTooLong
	}
	return strings.TrimSpace(string(line)), nil
}

func (m *Menu) askID(prompt string) (int64, bool) {
	raw, ok := m.ask(prompt)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		fmt.Fprintf(m.out, "Invalid post ID: %q\n", raw)
		return 0, false
	}
	return id, true
}
