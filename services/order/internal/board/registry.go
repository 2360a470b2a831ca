package board

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/tableside/services/order/internal/order"
	"github.com/google/uuid"
)

var ErrUnknownRestaurant = errors.New("restaurant not found")

// RestaurantSource confirms a restaurant exists before a board is started
// for it.
type RestaurantSource interface {
	Get(ctx context.Context, id uuid.UUID) (*order.Restaurant, error)
}

type entry struct {
	board    *Board
	lastUsed time.Time
}

// Registry owns one Board per known restaurant, created on first use and
// stopped once nobody has asked for it for Config.IdleAfter.
type Registry struct {
	deps        Deps
	restaurants RestaurantSource
	cfg         Config
	logger      apt.Logger

	mu      sync.Mutex
	boards  map[uuid.UUID]*entry
	closed  bool
	stopJan chan struct{}
	janDone chan struct{}
}

func NewRegistry(deps Deps, restaurants RestaurantSource, cfg Config, logger apt.Logger) *Registry {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Registry{
		deps:        deps,
		restaurants: restaurants,
		cfg:         cfg.withDefaults(),
		logger:      logger,
		boards:      make(map[uuid.UUID]*entry),
	}
}

// AddObserver attaches an observer to boards created from now on.
func (r *Registry) AddObserver(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deps.Observers = append(r.deps.Observers, o)
}

// Board returns the running board for restaurantID, starting one if the
// restaurant exists. Unknown restaurants are ErrUnknownRestaurant.
func (r *Registry) Board(ctx context.Context, restaurantID uuid.UUID) (*Board, error) {
	if b, ok, err := r.running(restaurantID); ok || err != nil {
		return b, err
	}

	if r.restaurants != nil {
		_, err := r.restaurants.Get(ctx, restaurantID)
		if errors.Is(err, order.ErrNotFound) {
			return nil, ErrUnknownRestaurant
		}
		if err != nil {
			return nil, fmt.Errorf("cannot load restaurant %s: %w", restaurantID, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrStopped
	}
	if e, ok := r.boards[restaurantID]; ok {
		e.lastUsed = r.cfg.Now()
		return e.board, nil
	}

	deps := r.deps
	deps.Observers = append([]Observer(nil), r.deps.Observers...)
	b := New(restaurantID, deps, r.cfg, r.logger)
	b.Start()
	r.boards[restaurantID] = &entry{board: b, lastUsed: r.cfg.Now()}
	r.logger.Info("board started", "restaurant_id", restaurantID.String())
	return b, nil
}

func (r *Registry) running(restaurantID uuid.UUID) (*Board, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, false, ErrStopped
	}
	e, ok := r.boards[restaurantID]
	if !ok {
		return nil, false, nil
	}
	e.lastUsed = r.cfg.Now()
	return e.board, true, nil
}

// Len reports how many boards are running.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.boards)
}

// EvictIdle stops boards unused for longer than Config.IdleAfter and
// returns how many were stopped.
func (r *Registry) EvictIdle() int {
	cutoff := r.cfg.Now().Add(-r.cfg.IdleAfter)

	r.mu.Lock()
	var idle []*Board
	for id, e := range r.boards {
		if e.lastUsed.Before(cutoff) {
			idle = append(idle, e.board)
			delete(r.boards, id)
		}
	}
	r.mu.Unlock()

	for _, b := range idle {
		b.Stop()
		r.logger.Info("idle board stopped", "restaurant_id", b.restaurantID.String())
	}
	return len(idle)
}

// Start runs the idle sweep until Stop.
func (r *Registry) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopJan != nil || r.closed {
		return nil
	}
	r.stopJan = make(chan struct{})
	r.janDone = make(chan struct{})
	go r.sweep(r.stopJan, r.janDone)
	return nil
}

func (r *Registry) sweep(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.cfg.IdleAfter / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.EvictIdle()
		case <-stop:
			return
		}
	}
}

func (r *Registry) Stop(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	boards := make([]*Board, 0, len(r.boards))
	for _, e := range r.boards {
		boards = append(boards, e.board)
	}
	r.boards = make(map[uuid.UUID]*entry)
	stop, done := r.stopJan, r.janDone
	r.stopJan = nil
	r.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	for _, b := range boards {
		b.Stop()
	}
	r.logger.Info("boards stopped", "count", len(boards))
	return nil
}
