package services

import (
	"context"
	"sync"
	"time"

	"github.com/cafein/cafein-backend/models"
	"github.com/cafein/cafein-backend/utils"
	"github.com/sirupsen/logrus"
)

type OrderLister interface {
	ListOrders(ctx context.Context, q OrderQuery) (OrderPage, error)
}

type TableLister interface {
	ListTables(ctx context.Context) ([]models.Table, error)
}

// Snapshot is one consistent read of the order page and the table list.
type Snapshot struct {
	Orders    OrderPage      `json:"orders"`
	Tables    []models.Table `json:"tables"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// ReconcileHandlers receive session output. They run on the session
// goroutine and must not call Close.
type ReconcileHandlers struct {
	OnSnapshot func(Snapshot)
	OnError    func(error)
}

// Reconciler mounts live views: each view re-reads orders and tables
// whenever the orders entity changes.
type Reconciler struct {
	feed     *ChangeFeed
	orders   OrderLister
	tables   TableLister
	filter   ChangeFilter
	debounce time.Duration
	log      logrus.FieldLogger
}

func NewReconciler(feed *ChangeFeed, orders OrderLister, tables TableLister, debounce time.Duration, log logrus.FieldLogger) *Reconciler {
	return &Reconciler{
		feed:     feed,
		orders:   orders,
		tables:   tables,
		filter:   OrdersFilter,
		debounce: debounce,
		log:      utils.LoggerOrDefault(log),
	}
}

type ReconcileSession struct {
	r        *Reconciler
	handlers ReconcileHandlers
	sub      *Subscription

	mu    sync.Mutex
	query OrderQuery

	refreshCh chan struct{}
	nowCh     chan struct{}

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// Mount subscribes to the change feed and starts the session. The first
// snapshot is fetched immediately.
func (r *Reconciler) Mount(ctx context.Context, q OrderQuery, h ReconcileHandlers) *ReconcileSession {
	ctx, cancel := context.WithCancel(ctx)
	s := &ReconcileSession{
		r:         r,
		handlers:  h,
		sub:       r.feed.Subscribe(r.filter),
		query:     q.Normalize(),
		refreshCh: make(chan struct{}, 1),
		nowCh:     make(chan struct{}, 1),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go s.run()
	return s
}

// Refresh asks for a refetch. It is coalesced with change events that
// arrive within the debounce window.
func (s *ReconcileSession) Refresh() {
	signal(s.refreshCh)
}

// SetQuery replaces the page query and refetches right away.
func (s *ReconcileSession) SetQuery(q OrderQuery) {
	s.mu.Lock()
	s.query = q.Normalize()
	s.mu.Unlock()
	signal(s.nowCh)
}

func (s *ReconcileSession) Query() OrderQuery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Close unsubscribes, cancels any fetch in flight and waits for the session
// goroutine. No handler runs after Close returns.
func (s *ReconcileSession) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
	})
}

// Done is closed when the session goroutine has exited.
func (s *ReconcileSession) Done() <-chan struct{} {
	return s.done
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (s *ReconcileSession) run() {
	defer close(s.done)
	defer s.sub.Close()

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	arm := func() {
		if s.r.debounce <= 0 {
			s.fetch()
			return
		}
		if timerC != nil {
			return
		}
		timer = time.NewTimer(s.r.debounce)
		timerC = timer.C
	}

	s.fetch()
	for {
		select {
		case <-s.ctx.Done():
			return
		case _, ok := <-s.sub.Events():
			if !ok {
				return
			}
			arm()
		case <-s.refreshCh:
			arm()
		case <-s.nowCh:
			if timer != nil {
				timer.Stop()
				timerC = nil
			}
			s.fetch()
		case <-timerC:
			timerC = nil
			s.fetch()
		}
	}
}

func (s *ReconcileSession) fetch() {
	q := s.Query()

	orders, err := s.r.orders.ListOrders(s.ctx, q)
	if err == nil {
		var tables []models.Table
		tables, err = s.r.tables.ListTables(s.ctx)
		if err == nil {
			s.deliver(Snapshot{Orders: orders, Tables: tables, FetchedAt: time.Now()})
			return
		}
	}

	// Results for a closed session are dropped silently.
	if s.ctx.Err() != nil {
		return
	}
	s.r.log.WithError(err).Warn("Reconcile fetch failed")
	if s.handlers.OnError != nil {
		s.handlers.OnError(err)
	}
}

func (s *ReconcileSession) deliver(snap Snapshot) {
	if s.ctx.Err() != nil || s.handlers.OnSnapshot == nil {
		return
	}
	s.handlers.OnSnapshot(snap)
}
