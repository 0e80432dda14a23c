// Package catalog holds the browsable set of listings and the
// loading/error/loaded state the presentation layer renders.
package catalog

import (
	"context"
	"errors"
	"sync"

	"tiendaza/internal/domain"
	applog "tiendaza/internal/log"
	"tiendaza/internal/observe"
	"tiendaza/internal/repos"
)

type Status string

const (
	StatusLoading Status = "loading"
	StatusError   Status = "error"
	StatusLoaded  Status = "loaded"
)

// State is exactly one of Loading, Error(Message) or Loaded(Listings).
type State struct {
	Status   Status           `json:"status"`
	Message  string           `json:"message,omitempty"`
	Listings []domain.Listing `json:"listings"`
}

func Loading() State {
	return State{Status: StatusLoading, Listings: []domain.Listing{}}
}

func Failed(msg string) State {
	return State{Status: StatusError, Message: msg, Listings: []domain.Listing{}}
}

func Loaded(ls []domain.Listing) State {
	out := make([]domain.Listing, len(ls))
	copy(out, ls)
	return State{Status: StatusLoaded, Listings: out}
}

func (s State) clone() State {
	s.Listings = append([]domain.Listing{}, s.Listings...)
	return s
}

const defaultLoadError = "failed to load listings"

// Catalog drives listing loads and searches against a Repository. Every
// LoadAll or Search is numbered when it starts and only the newest one may
// publish its outcome; older completions are dropped.
type Catalog struct {
	repo repos.Repository

	mu     sync.Mutex // guards issued; held while publishing
	issued uint64
	state  *observe.Value[State]

	cacheMu sync.RWMutex
	cache   []domain.Listing // last successfully loaded sequence
}

// New builds a catalog in the Loading state and starts the first load in
// the background.
func New(ctx context.Context, repo repos.Repository) *Catalog {
	c := &Catalog{repo: repo, state: observe.NewValue(Loading())}
	seq := c.begin()
	go c.fetchAll(ctx, seq)
	return c
}

// State returns a copy of the current state.
func (c *Catalog) State() State { return c.state.Get().clone() }

// Subscribe calls fn with the current state and on every transition.
// fn must not issue catalog commands synchronously.
func (c *Catalog) Subscribe(fn func(State)) (cancel func()) {
	return c.state.Subscribe(func(s State) { fn(s.clone()) })
}

// LoadAll refetches every listing. It returns once the outcome is published
// or discarded because a newer request started meanwhile.
func (c *Catalog) LoadAll(ctx context.Context) {
	c.fetchAll(ctx, c.begin())
}

// Search forwards query to the repository as-is. An empty result is a
// Loaded state, not an error.
func (c *Catalog) Search(ctx context.Context, query string) {
	seq := c.begin()
	res, err := c.repo.Search(ctx, query)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.current(seq, "search") {
		return
	}
	if err != nil {
		applog.Error(nil, "catalog.search.error", err, map[string]any{"q": query, "seq": seq})
		// cache keeps the last good sequence for detail lookups
		c.state.Set(Failed(message(err)))
		return
	}
	c.setCache(res)
	c.state.Set(Loaded(res))
}

// GetByID looks the listing up in the last loaded sequence, without I/O.
func (c *Catalog) GetByID(id int64) (domain.Listing, bool) {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()
	for _, l := range c.cache {
		if l.ID == id {
			return l, true
		}
	}
	return domain.Listing{}, false
}

// Detail resolves a listing locally and falls back to the repository for
// ids that are not in the current sequence.
func (c *Catalog) Detail(ctx context.Context, id int64) (domain.Listing, error) {
	if l, ok := c.GetByID(id); ok {
		return l, nil
	}
	return c.repo.FetchByID(ctx, id)
}

// CreateWithImage publishes a listing and refreshes the catalog. A failure
// is returned to the caller and leaves the current state untouched.
func (c *Catalog) CreateWithImage(ctx context.Context, title, description string, price int64, image []byte) (domain.Listing, error) {
	l, err := c.repo.CreateWithImage(ctx, title, description, price, image)
	if err != nil {
		applog.Error(nil, "catalog.publish.error", err, map[string]any{"title": title})
		return domain.Listing{}, err
	}
	applog.Info(nil, "catalog.publish.ok", map[string]any{"id": l.ID})
	c.LoadAll(ctx)
	return l, nil
}

// Update replaces a listing, with the same failure policy as CreateWithImage.
func (c *Catalog) Update(ctx context.Context, id int64, l domain.Listing) (domain.Listing, error) {
	out, err := c.repo.Update(ctx, id, l)
	if err != nil {
		applog.Error(nil, "catalog.update.error", err, map[string]any{"id": id})
		return domain.Listing{}, err
	}
	c.LoadAll(ctx)
	return out, nil
}

func (c *Catalog) Delete(ctx context.Context, id int64) error {
	if err := c.repo.Delete(ctx, id); err != nil {
		applog.Error(nil, "catalog.delete.error", err, map[string]any{"id": id})
		return err
	}
	c.LoadAll(ctx)
	return nil
}

func (c *Catalog) begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued++
	c.state.Set(Loading())
	return c.issued
}

func (c *Catalog) fetchAll(ctx context.Context, seq uint64) {
	res, err := c.repo.FetchAll(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.current(seq, "load") {
		return
	}
	if err != nil {
		applog.Error(nil, "catalog.load.error", err, map[string]any{"seq": seq})
		c.setCache(nil)
		c.state.Set(Failed(message(err)))
		return
	}
	c.setCache(res)
	c.state.Set(Loaded(res))
}

// current reports whether seq is still the newest request. mu must be held.
func (c *Catalog) current(seq uint64, op string) bool {
	if seq == c.issued {
		return true
	}
	applog.Warn(nil, "catalog.result.stale", nil, map[string]any{"op": op, "seq": seq, "latest": c.issued})
	return false
}

func (c *Catalog) setCache(ls []domain.Listing) {
	cp := make([]domain.Listing, len(ls))
	copy(cp, ls)
	c.cacheMu.Lock()
	c.cache = cp
	c.cacheMu.Unlock()
}

func message(err error) string {
	var ne *repos.NetworkError
	if errors.As(err, &ne) && ne.Message != "" {
		return ne.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return defaultLoadError
}
