package tasks

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/halx/internal/hal"
	"github.com/desertthunder/halx/internal/services"
	"github.com/desertthunder/halx/internal/shared"
	"golang.org/x/time/rate"
)

// APIClient defines the requests the crawler makes.
// This abstraction allows for easier testing and decoupling from concrete implementation.
type APIClient interface {
	Do(ctx context.Context, href string, opts services.RequestOptions) (*services.APIResponse, error)
	ResolveURL(href string) (string, error)
}

// ResourceCacher stores fetched bodies keyed by resolved URL.
type ResourceCacher interface {
	CacheResource(href, kind string, status int, body []byte) error
}

// Edge is a followable relation of a crawled resource.
type Edge struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

// Node is one crawled resource.
type Node struct {
	Href     string        `json:"href"`
	Depth    int           `json:"depth"`
	Parent   string        `json:"parent,omitempty"`
	Status   int           `json:"status"`
	Kind     hal.Kind      `json:"-"`
	Title    string        `json:"title,omitempty"`
	Edges    []Edge        `json:"links,omitempty"`
	Document *hal.Document `json:"-"`
	Body     []byte        `json:"-"`
}

// FetchFailure records a resource that could not be fetched.
type FetchFailure struct {
	Href  string
	Error error
}

// CrawlResult contains every resource reached from the root.
type CrawlResult struct {
	Root     string
	Nodes    []*Node
	Errors   []FetchFailure
	Duration time.Duration
}

// Node looks up a crawled resource by resolved URL.
func (r *CrawlResult) Node(href string) (*Node, bool) {
	for _, n := range r.Nodes {
		if n.Href == href {
			return n, true
		}
	}
	return nil, false
}

type DumpNode struct {
	Href   string `json:"href"`
	Kind   string `json:"kind"`
	Depth  int    `json:"depth"`
	Parent string `json:"parent,omitempty"`
	Status int    `json:"status"`
	Title  string `json:"title,omitempty"`
	Edges  []Edge `json:"links,omitempty"`
}

type DumpData struct {
	Root      string     `json:"root"`
	Resources []DumpNode `json:"resources"`
	Errors    []any      `json:"errors,omitempty"`
}

// Dump returns the link graph in a JSON friendly shape.
func (r *CrawlResult) Dump() DumpData {
	data := DumpData{Root: r.Root, Resources: make([]DumpNode, 0, len(r.Nodes))}
	for _, n := range r.Nodes {
		data.Resources = append(data.Resources, DumpNode{
			Href:   n.Href,
			Kind:   n.Kind.String(),
			Depth:  n.Depth,
			Parent: n.Parent,
			Status: n.Status,
			Title:  n.Title,
			Edges:  n.Edges,
		})
	}
	for _, e := range r.Errors {
		data.Errors = append(data.Errors, map[string]string{"href": e.Href, "error": e.Error.Error()})
	}
	return data
}

// CrawlOpts bounds a crawl.
type CrawlOpts struct {
	MaxDepth          int     // Levels below the root to follow (default: 2)
	RequestsPerSecond float64 // Request rate (default: 5)
	Burst             int     // Limiter burst (default: 1)
	MaxResources      int     // Stop after this many resources (0: unbounded)
}

// CrawlOptsFrom converts crawler configuration.
func CrawlOptsFrom(c shared.CrawlerConfig) CrawlOpts {
	return CrawlOpts{MaxDepth: c.MaxDepth, RequestsPerSecond: c.RequestsPerSecond, Burst: c.Burst}
}

// Crawler walks the hypermedia graph.
type Crawler struct {
	api     APIClient
	cacher  ResourceCacher
	limiter *rate.Limiter
	opts    CrawlOpts
	logger  *log.Logger
}

// NewCrawler creates a crawler. cacher and logger may be nil.
func NewCrawler(api APIClient, cacher ResourceCacher, opts CrawlOpts, logger *log.Logger) *Crawler {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 2
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 5.0
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &Crawler{
		api:     api,
		cacher:  cacher,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		opts:    opts,
		logger:  logger,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (c *Crawler) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

type visit struct {
	href   string
	parent string
	depth  int
}

// Run crawls from root down to depth levels (the configured maximum when depth is
// negative). Only the root failing is an error; other failures are collected.
// A cancelled context returns the partial result with the context error.
func (c *Crawler) Run(ctx context.Context, root string, depth int, progress chan<- ProgressUpdate) (*CrawlResult, error) {
	if c.api == nil {
		return nil, fmt.Errorf("%w: API client not initialized", shared.ErrServiceUnavailable)
	}
	if depth < 0 {
		depth = c.opts.MaxDepth
	}

	start := time.Now()
	rootURL, err := c.api.ResolveURL(root)
	if err != nil {
		return nil, err
	}

	result := &CrawlResult{Root: rootURL, Errors: []FetchFailure{}}

	c.sendProgress(progress, fetchRootUpdate(rootURL))
	rootNode, err := c.fetch(ctx, visit{href: rootURL})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch root: %v", shared.ErrAPIRequest, err)
	}
	result.Nodes = append(result.Nodes, rootNode)

	seen := map[string]bool{rootURL: true}
	queue := c.enqueue(rootNode, depth, rootURL, seen, nil)

	step := 0
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		step++
		total := step + len(queue)

		if c.opts.MaxResources > 0 && len(result.Nodes) >= c.opts.MaxResources {
			c.logger.Debug("crawl limit reached", "resources", len(result.Nodes))
			break
		}

		c.sendProgress(progress, followLinkUpdate(step, total, next.depth, next.href))
		node, err := c.fetch(ctx, next)
		if err != nil {
			if ctx.Err() != nil {
				result.Duration = time.Since(start)
				return result, ctx.Err()
			}
			c.logger.Warn("fetch failed", "href", next.href, "error", err)
			result.Errors = append(result.Errors, FetchFailure{Href: next.href, Error: err})
			c.sendProgress(progress, fetchFailedUpdate(step, total, next.href, err))
			continue
		}

		result.Nodes = append(result.Nodes, node)
		c.sendProgress(progress, fetchedUpdate(step, total, node))
		queue = c.enqueue(node, depth, rootURL, seen, queue)
	}

	c.cache(result, progress)
	result.Duration = time.Since(start)
	return result, nil
}

func (c *Crawler) fetch(ctx context.Context, v visit) (*Node, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.api.Do(ctx, v.href, services.RequestOptions{})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, resp.FetchError()
	}

	body := resp.Body
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}

	doc, err := hal.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrUnrecognizedPayload, err)
	}

	node := &Node{
		Href:     v.href,
		Depth:    v.depth,
		Parent:   v.parent,
		Status:   resp.StatusCode,
		Kind:     doc.Kind,
		Document: doc,
		Body:     body,
	}
	if doc.Resource != nil {
		node.Title = doc.Resource.Title()
		node.Edges = edges(doc.Resource)
	}
	return node, nil
}

// enqueue appends the unseen same-origin edges of node when it is above depth.
func (c *Crawler) enqueue(node *Node, depth int, rootURL string, seen map[string]bool, queue []visit) []visit {
	if node.Depth >= depth {
		return queue
	}
	for _, e := range node.Edges {
		href, err := c.api.ResolveURL(e.Href)
		if err != nil || seen[href] || !sameOrigin(rootURL, href) {
			continue
		}
		seen[href] = true
		queue = append(queue, visit{href: href, parent: node.Href, depth: node.Depth + 1})
	}
	return queue
}

// edges lists non-templated links (self first) and the self links of embedded items.
func edges(r *hal.Resource) []Edge {
	var out []Edge
	for _, rel := range r.Links.Rels() {
		if rel == "curies" {
			continue
		}
		for _, l := range r.Links[rel] {
			if l.Href == "" || l.Templated {
				continue
			}
			out = append(out, Edge{Rel: rel, Href: l.Href})
		}
	}
	for _, rel := range r.EmbeddedRels() {
		for i := range r.Embedded[rel] {
			if self := r.Embedded[rel][i].Self(); self != "" {
				out = append(out, Edge{Rel: rel, Href: self})
			}
		}
	}
	return out
}

func sameOrigin(a, b string) bool {
	ua, errA := url.Parse(a)
	ub, errB := url.Parse(b)
	if errA != nil || errB != nil {
		return false
	}
	return ua.Scheme == ub.Scheme && ua.Host == ub.Host
}

// cache hands every fetched body to the cacher. Failures are logged and skipped.
func (c *Crawler) cache(result *CrawlResult, progress chan<- ProgressUpdate) {
	if c.cacher == nil {
		return
	}
	total := len(result.Nodes)
	for i, n := range result.Nodes {
		c.sendProgress(progress, cacheUpdate(i+1, total, n.Href))
		if err := c.cacher.CacheResource(n.Href, n.Kind.String(), n.Status, n.Body); err != nil {
			c.logger.Warn("failed to cache resource", "href", n.Href, "error", err)
		}
	}
}
