package client

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"realty/catalog/internal/logging"
	"realty/catalog/internal/models"
	"realty/catalog/internal/search"
)

// State is the fetch state of a Controller.
type State int

const (
	StateReady State = iota
	StateLoading
)

func (s State) String() string {
	if s == StateLoading {
		return "loading"
	}
	return "ready"
}

// Navigator receives the URL that reflects the current criteria.
type Navigator interface {
	Navigate(rawURL string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(rawURL string)

func (f NavigatorFunc) Navigate(rawURL string) { f(rawURL) }

// Result is the outcome of the most recent applied fetch.
// Page is nil when Err is set.
type Result struct {
	Criteria search.Criteria
	Page     *models.ListingPage
	Err      error
}

// Controller owns the current search criteria, keeps the navigable URL in
// sync with them and re-fetches results on every change. Only the response
// to the most recently issued fetch is applied.
type Controller struct {
	searcher Searcher
	nav      Navigator
	path     string
	timeout  time.Duration

	mu       sync.Mutex
	criteria search.Criteria
	state    State
	seq      uint64
	result   *Result
	onResult func(Result)
}

// NewController creates a controller in the Ready state with default criteria.
// path is the bare listing path the URL is built on, e.g. "/catalog".
// A zero timeout selects DefaultTimeout.
func NewController(searcher Searcher, nav Navigator, path string, timeout time.Duration) *Controller {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if nav == nil {
		nav = NavigatorFunc(func(string) {})
	}
	return &Controller{
		searcher: searcher,
		nav:      nav,
		path:     path,
		timeout:  timeout,
		criteria: search.DefaultCriteria(),
	}
}

// OnResult registers fn to be called with every applied result.
func (c *Controller) OnResult(fn func(Result)) {
	c.mu.Lock()
	c.onResult = fn
	c.mu.Unlock()
}

func (c *Controller) Criteria() search.Criteria {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.criteria.Clone()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Result returns the last applied result, or nil before the first fetch completes.
func (c *Controller) Result() *Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return nil
	}
	r := *c.result
	return &r
}

// URL returns the navigable URL for the current criteria.
func (c *Controller) URL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.urlFor(c.criteria)
}

// Update applies mutate to a copy of the criteria, moves back to the first
// page and fetches. The returned channel closes once that fetch has finished.
func (c *Controller) Update(mutate func(*search.Criteria)) <-chan struct{} {
	c.mu.Lock()
	next := c.criteria.Clone()
	mutate(&next)
	next = next.WithoutPage()
	return c.begin(next, true)
}

// SetSort changes the sort order.
func (c *Controller) SetSort(key search.SortKey) <-chan struct{} {
	return c.Update(func(cr *search.Criteria) { cr.Sort = key })
}

// SetPage moves to page n keeping every other constraint.
func (c *Controller) SetPage(n int) <-chan struct{} {
	c.mu.Lock()
	next := c.criteria.Clone()
	next.Page = max(n, 1)
	return c.begin(next, true)
}

// Reset restores the default criteria and the bare path.
func (c *Controller) Reset() <-chan struct{} {
	c.mu.Lock()
	return c.begin(search.DefaultCriteria(), true)
}

// Load replaces the criteria wholesale, as when opening a saved search.
func (c *Controller) Load(cr search.Criteria) <-chan struct{} {
	c.mu.Lock()
	return c.begin(cr.Clone().Normalized(), true)
}

// Refresh fetches again for the current criteria.
func (c *Controller) Refresh() <-chan struct{} {
	c.mu.Lock()
	return c.begin(c.criteria.Clone(), false)
}

// Restore adopts the criteria encoded in rawURL after back/forward
// navigation. The URL is not pushed again.
func (c *Controller) Restore(rawURL string) (<-chan struct{}, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	cr, err := search.ParseCriteria(u.Query())
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	return c.begin(cr, false), nil
}

// begin must be called with c.mu held; it releases it.
func (c *Controller) begin(next search.Criteria, navigate bool) <-chan struct{} {
	c.seq++
	seq := c.seq
	c.criteria = next
	c.state = StateLoading
	target := c.urlFor(next)
	c.mu.Unlock()

	if navigate {
		c.nav.Navigate(target)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.fetch(seq, next.Clone())
	}()
	return done
}

func (c *Controller) fetch(seq uint64, cr search.Criteria) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	page, err := c.searcher.Search(ctx, cr)
	if err != nil {
		page = nil
	}

	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		logging.L().Debug().Uint64("seq", seq).Uint64("current", c.seq).Msg("discarding stale search response")
		return
	}
	res := Result{Criteria: cr, Page: page, Err: err}
	c.result = &res
	c.state = StateReady
	onResult := c.onResult
	c.mu.Unlock()

	if err != nil {
		logging.L().Warn().Err(err).Str("query", cr.Encode()).Msg("search failed")
	}
	if onResult != nil {
		onResult(res)
	}
}

func (c *Controller) urlFor(cr search.Criteria) string {
	if q := cr.Encode(); q != "" {
		return c.path + "?" + q
	}
	return c.path
}
