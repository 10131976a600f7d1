package handler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskr/internal/dashboard"
	"github.com/BuzzLyutic/taskr/internal/remote"
	"github.com/BuzzLyutic/taskr/internal/session"
	"github.com/BuzzLyutic/taskr/internal/ui"
)

// Browser is the state of one user agent. Its mutex is held for a whole
// request so actions of one browser run one at a time.
type Browser struct {
	mu sync.Mutex

	ID        string
	Session   *session.Store
	Dashboard *dashboard.View

	client      remote.Client
	toaster     *ui.Toaster
	router      *ui.Router
	marker      *cookieMarker
	lastSeen    time.Time
	initialised bool
}

// ClientFactory opens a remote connection for a new browser.
type ClientFactory func() remote.Client

type RegistryOptions struct {
	NewClient   ClientFactory
	Scope       dashboard.Scope
	RecoveryURL string
	// IdleTTL is how long an unused browser state is kept.
	IdleTTL time.Duration
	Logger  *zap.Logger
}

// Registry keeps the state of every known browser.
type Registry struct {
	mu       sync.Mutex
	browsers map[string]*Browser

	opts RegistryOptions
	now  func() time.Time
}

func NewRegistry(opts RegistryOptions) *Registry {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Registry{
		browsers: make(map[string]*Browser),
		opts:     opts,
		now:      time.Now,
	}
}

// Acquire returns the browser with the given id, creating it when unknown.
func (r *Registry) Acquire(id string) *Browser {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.browsers[id]
	if !ok {
		b = r.newBrowser(id)
		r.browsers[id] = b
	}
	b.lastSeen = r.now()
	return b
}

// touch marks b as used at the end of a request.
func (r *Registry) touch(b *Browser) {
	r.mu.Lock()
	b.lastSeen = r.now()
	r.mu.Unlock()
}

func (r *Registry) newBrowser(id string) *Browser {
	client := r.opts.NewClient()
	toaster := ui.NewToaster()
	router := ui.NewRouter()
	marker := &cookieMarker{}
	logger := r.opts.Logger.With(zap.String("browser", id))

	store := session.New(session.Options{
		Client:      client,
		Marker:      marker,
		Notifier:    toaster,
		Navigator:   router,
		Logger:      logger,
		RecoveryURL: r.opts.RecoveryURL,
	})
	view := dashboard.New(dashboard.Options{
		Databases: client,
		Scope:     r.opts.Scope,
		Users:     store,
		Notifier:  toaster,
		Navigator: router,
		Logger:    logger,
	})
	return &Browser{
		ID:        id,
		Session:   store,
		Dashboard: view,
		client:    client,
		toaster:   toaster,
		router:    router,
		marker:    marker,
	}
}

// Evict drops browser states idle for longer than the configured TTL. A
// browser locked by a running request is kept.
func (r *Registry) Evict(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.opts.IdleTTL)
	evicted := 0
	for id, b := range r.browsers {
		if err := ctx.Err(); err != nil {
			return evicted, err
		}
		if !b.lastSeen.Before(cutoff) {
			continue
		}
		// занятый браузер обрабатывает запрос
		if !b.mu.TryLock() {
			continue
		}
		delete(r.browsers, id)
		b.mu.Unlock()
		evicted++
	}
	return evicted, nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.browsers)
}
