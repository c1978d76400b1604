package posts

import (
	"fmt"
	"strings"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
)

const (
	// DefaultShareBaseURL is used when no base URL is configured
	DefaultShareBaseURL = "http://myapp.com"

	// fingerprintLength is how many trailing characters of the content CID go into a link
	fingerprintLength = 10
)

// contentPrefix describes the CID computed over post content: CIDv1, raw codec, sha2-256
var contentPrefix = cid.Prefix{
	Version:  1,
	Codec:    cid.Raw,
	MhType:   mh.SHA2_256,
	MhLength: -1,
}

// Linker builds share links of the form <base>/post/<id>/<fingerprint>
// The fingerprint is the tail of the content CID, so a link cannot be guessed from the id alone.
type Linker struct {
	baseURL string
}

// NewLinker creates a share link generator rooted at baseURL
// An empty baseURL falls back to DefaultShareBaseURL
func NewLinker(baseURL string) *Linker {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultShareBaseURL
	}
	return &Linker{baseURL: baseURL}
}

// BaseURL returns the normalized base the links are rooted at
func (l *Linker) BaseURL() string {
	return l.baseURL
}

// Link derives the share link for a post
func (l *Linker) Link(id int64, content string) (string, error) {
	fp, err := ContentFingerprint(content)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/post/%d/%s", l.baseURL, id, fp), nil
}

// ContentFingerprint returns a short, stable fingerprint of content
func ContentFingerprint(content string) (string, error) {
	c, err := contentPrefix.Sum([]byte(content))
	if err != nil {
		return "", fmt.Errorf("failed to hash post content: %w", err)
	}
	s := c.String()
	if len(s) < fingerprintLength {
		return s, nil
	}
	return s[len(s)-fingerprintLength:], nil
}
