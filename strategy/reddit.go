package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/ingestor/dom"
	"github.com/use-agent/ingestor/models"
	"github.com/use-agent/ingestor/page"
	"golang.org/x/net/html"
)

const (
	redditDomain        = "reddit.com"
	postTag             = "shreddit-post"
	commentTreeTag      = "shreddit-comment-tree"
	commentTag          = "shreddit-comment"
	postBodySelector    = `div[slot="text-body"]`
	commentBodySelector = `div[slot="comment"]`
)

// threadIDPattern matches reddit's base-36 thread ids.
var threadIDPattern = regexp.MustCompile(`^[a-z0-9]+$`)

// Reddit extracts a discussion thread together with its loaded comments.
//
// Reddit mounts several posts at once (the open thread plus feed items
// behind it), so every query is scoped to the post element whose permalink
// carries the thread id from the address.
type Reddit struct {
	timeout time.Duration
}

// NewReddit creates the strategy. timeout bounds the wait for the post
// element to be rendered.
func NewReddit(timeout time.Duration) *Reddit {
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	return &Reddit{timeout: timeout}
}

func (r *Reddit) Name() string { return "reddit" }

// Matches accepts thread pages (/r/<sub>/comments/<id>/<slug>/,
// /comments/<id>, /user/<name>/comments/<id>) and rejects single-comment
// permalinks, which render only a fragment of the thread.
func (r *Reddit) Matches(u *url.URL) bool {
	if !page.HostMatches(page.Host(u), redditDomain) {
		return false
	}
	id, permalink := parseThreadPath(u.Path)
	return id != "" && !permalink
}

// parseThreadPath returns the thread id encoded after "/comments/" and
// whether the path points below the thread at a single comment.
func parseThreadPath(path string) (id string, commentPermalink bool) {
	_, rest, ok := strings.Cut(path, "/comments/")
	if !ok {
		return "", false
	}
	var segs []string
	for _, s := range strings.Split(rest, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	if len(segs) == 0 {
		return "", false
	}
	id = strings.ToLower(segs[0])
	if !threadIDPattern.MatchString(id) {
		return "", false
	}
	// <id>/<slug>/<comment-id> and <id>/comment/<comment-id>
	return id, len(segs) >= 3
}

// ThreadID returns the thread id of a reddit address, or "".
func ThreadID(u *url.URL) string {
	id, _ := parseThreadPath(u.Path)
	return id
}

func postSelector(id string) string {
	return fmt.Sprintf(`%s[permalink*="/comments/%s/"]`, postTag, id)
}

func (r *Reddit) Extract(ctx context.Context, sc *Context) (*models.Record, error) {
	id := ThreadID(sc.URL)
	if id == "" {
		return nil, models.NewExtractError(models.ErrCodeMissingIdentifier,
			"could not extract post id from "+sc.URL.Path, nil)
	}

	slog.Debug("reddit: targeting post", "post_id", id)

	sel := postSelector(id)
	if err := sc.Page.WaitFor(ctx, sel, r.timeout); err != nil {
		return nil, models.NewExtractError(models.ErrCodeTargetNotFound,
			fmt.Sprintf("active post element (%s) not found in DOM", id), err)
	}

	doc, err := sc.Page.Snapshot(ctx)
	if err != nil {
		return nil, models.NewExtractError(models.ErrCodeSnapshot, "snapshot failed", err)
	}

	post, err := dom.QueryDeep(doc.Root(), sel)
	if err != nil {
		return nil, err
	}
	if post.Length() == 0 {
		return nil, models.NewExtractError(models.ErrCodeTargetNotFound,
			fmt.Sprintf("post element (%s) detached before snapshot", id), nil)
	}

	title := attr(post, "post-title")
	if title == "" {
		title = doc.Title()
	}

	body, err := r.postBody(sc, post)
	if err != nil {
		return nil, err
	}

	comments, err := r.comments(sc, r.commentTree(post, id))
	if err != nil {
		return nil, err
	}

	rec := models.NewRecord(models.TypeRedditThread, title, body)
	rec.Metadata["post_id"] = id
	rec.Metadata["subreddit"] = attr(post, "subreddit-prefixed-name")
	rec.Metadata["author"] = attr(post, "author")
	if ratio, err := strconv.ParseFloat(attr(post, "upvote-ratio"), 64); err == nil {
		rec.Metadata["upvote_ratio"] = ratio
	}
	if score, err := strconv.Atoi(attr(post, "score")); err == nil {
		rec.Metadata["score"] = score
	}
	rec.Metadata["comment_count"] = len(comments)
	rec.Metadata["comments"] = comments
	return rec, nil
}

// postBody converts the text-body slot of the post. A link or image post
// has none and yields "".
func (r *Reddit) postBody(sc *Context, post *goquery.Selection) (string, error) {
	slot, err := dom.Query(post, postBodySelector)
	if err != nil {
		return "", err
	}
	if slot.Length() == 0 {
		if slot, err = dom.QueryDeep(post, postBodySelector); err != nil {
			return "", err
		}
	}
	if slot.Length() == 0 {
		return "", nil
	}
	inner, err := dom.InnerHTML(slot)
	if err != nil {
		return "", err
	}
	return markdownOf(sc, inner)
}

// commentTree finds the comment tree of the post: first inside the post,
// then among the siblings following it up to the next post. A tree is only
// taken when no other post sits between it and the matched one, and trees
// tagged with another thread's id are skipped.
func (r *Reddit) commentTree(post *goquery.Selection, id string) *goquery.Selection {
	if tree := ownedTree(post, post.Nodes[0], id); tree != nil {
		return tree
	}
	for sib := post.Next(); sib.Length() > 0; sib = sib.Next() {
		if goquery.NodeName(sib) == "template" {
			continue
		}
		if sib.Is(postTag) {
			break
		}
		if other, err := dom.QueryDeep(sib, postTag); err != nil || other.Length() > 0 {
			break
		}
		if sib.Is(commentTreeTag) {
			if treeBelongsTo(sib, id) {
				return sib
			}
			continue
		}
		if tree := ownedTree(sib, post.Nodes[0], id); tree != nil {
			return tree
		}
	}
	return post.FindNodes()
}

// ownedTree returns the first comment tree under scope, shadow roots
// included, that belongs to the thread and is not nested in another post.
func ownedTree(scope *goquery.Selection, post *html.Node, id string) *goquery.Selection {
	trees, err := dom.QueryAllDeep(scope, commentTreeTag)
	if err != nil {
		return nil
	}
	for i := range trees.Nodes {
		tree := trees.Eq(i)
		if insideOtherPost(trees.Nodes[i], scope.Nodes[0], post) || !treeBelongsTo(tree, id) {
			continue
		}
		return tree
	}
	return nil
}

// insideOtherPost reports whether a post other than post encloses n below
// scope.
func insideOtherPost(n, scope, post *html.Node) bool {
	for p := n.Parent; p != nil && p != scope; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == postTag && p != post {
			return true
		}
	}
	return false
}

func treeBelongsTo(tree *goquery.Selection, id string) bool {
	postID, ok := tree.Attr("post-id")
	if !ok || postID == "" {
		return true
	}
	return strings.TrimPrefix(strings.ToLower(postID), "t3_") == id
}

// comments converts every loaded comment of the tree in document order.
// Each body comes from the comment's own content slot, never a reply's.
func (r *Reddit) comments(sc *Context, tree *goquery.Selection) ([]models.Comment, error) {
	comments := []models.Comment{}
	if tree.Length() == 0 {
		return comments, nil
	}
	nodes, err := dom.QueryAll(tree, commentTag)
	if err != nil {
		return nil, err
	}
	for i := range nodes.Nodes {
		c := nodes.Eq(i)
		body, err := r.commentBody(sc, c)
		if err != nil {
			return nil, err
		}
		comments = append(comments, models.Comment{
			Author: attr(c, "author"),
			Score:  optionalInt(attr(c, "score")),
			Body:   body,
			Depth:  atoiOr(attr(c, "depth"), 0),
		})
	}
	return comments, nil
}

func (r *Reddit) commentBody(sc *Context, c *goquery.Selection) (string, error) {
	slots, err := dom.QueryAll(c, commentBodySelector)
	if err != nil {
		return "", err
	}
	for i := range slots.Nodes {
		slot := slots.Eq(i)
		owner := slot.Closest(commentTag)
		if owner.Length() == 0 || owner.Nodes[0] != c.Nodes[0] {
			continue
		}
		inner, err := dom.InnerHTML(slot)
		if err != nil {
			return "", err
		}
		return markdownOf(sc, inner)
	}
	return "", nil
}

func attr(s *goquery.Selection, name string) string {
	v, _ := s.Attr(name)
	return strings.TrimSpace(v)
}

func optionalInt(s string) *int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

func atoiOr(s string, fallback int) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return fallback
}
