package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/dante-control/internal/logging"
	"github.com/muurk/dante-control/internal/registry"
)

var (
	// ErrAlreadyRunning is returned by Start when discovery is already active
	ErrAlreadyRunning = errors.New("discovery already running")

	// ErrNetwork is returned by Start when no service family could be browsed
	ErrNetwork = errors.New("mDNS network error")
)

// FamilyStats counts what discovery saw for one service family
type FamilyStats struct {
	Entries   uint64 // entries merged into the registry
	Malformed uint64 // entries discarded by the parser
	Errors    uint64 // browse failures
	Browses   uint64 // browses started, including refreshes
}

// Engine continuously browses the four Dante service families and merges
// what it learns into a registry.
type Engine struct {
	// Browse starts one family browse. Defaults to NewBrowser("").
	Browse BrowseFunc

	// Domain is the mDNS domain browsed. Defaults to ServiceDomain.
	Domain string

	// RefreshInterval is how often each family is browsed again.
	// Zero or negative uses DefaultRefreshInterval.
	RefreshInterval time.Duration

	registry *registry.Registry

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	statsMu sync.Mutex
	stats   map[registry.Family]*FamilyStats
}

// NewEngine creates an engine feeding reg. It does not start browsing.
func NewEngine(reg *registry.Registry) *Engine {
	return &Engine{
		Browse:   NewBrowser(""),
		Domain:   ServiceDomain,
		registry: reg,
		stats:    make(map[registry.Family]*FamilyStats),
	}
}

// Registry returns the registry the engine merges into
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Running reports whether browsing is active
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Start begins browsing every family and returns immediately. It fails with
// ErrNetwork only if no family could be browsed at all. Each family's browse
// is restarted every refresh interval so devices are queried again.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())

	var errs []error
	stops := make(map[registry.Family]context.CancelFunc)
	for _, family := range registry.Families() {
		stop, err := e.browse(ctx, family)
		stops[family] = stop
		if err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) == len(registry.Families()) {
		cancel()
		e.wg.Wait()
		return fmt.Errorf("%w: %w", ErrNetwork, errors.Join(errs...))
	}

	interval := e.refreshInterval()
	for family, stop := range stops {
		e.wg.Add(1)
		go e.refresh(ctx, family, stop, interval)
	}

	e.cancel = cancel
	e.running = true
	logging.Info("Discovery started",
		zap.Int("families", len(registry.Families())-len(errs)),
		zap.Duration("refresh", interval),
	)
	return nil
}

// browse starts one browse of family under a child of ctx. The returned
// function ends that browse; it is valid even when err is set.
func (e *Engine) browse(ctx context.Context, family registry.Family) (context.CancelFunc, error) {
	browseCtx, stop := context.WithCancel(ctx)
	entries := make(chan *zeroconf.ServiceEntry, entryBuffer)

	e.wg.Add(1)
	go e.consume(family, entries)

	e.bump(family, func(s *FamilyStats) { s.Browses++ })
	if err := e.Browse(browseCtx, ServiceType(family), e.domain(), entries); err != nil {
		e.countError(family)
		logging.Error("Browse failed",
			zap.String("family", family.String()),
			zap.Error(err),
		)
		return stop, err
	}
	return stop, nil
}

// refresh restarts the browse of family every interval until ctx is done.
// A fresh browse sends a new multicast query and reports every instance
// again, including ones whose address changed.
func (e *Engine) refresh(ctx context.Context, family registry.Family, stop context.CancelFunc, interval time.Duration) {
	defer e.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			stop()
			return
		case <-ticker.C:
			stop()
			stop, _ = e.browse(ctx, family)
		}
	}
}

func (e *Engine) refreshInterval() time.Duration {
	if e.RefreshInterval <= 0 {
		return DefaultRefreshInterval
	}
	return e.RefreshInterval
}

// Stop cancels browsing and waits for the listeners to exit. The registry is
// left as is. Calling Stop when not running does nothing.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}

	e.cancel()
	e.wg.Wait()
	e.cancel = nil
	e.running = false
	logging.Info("Discovery stopped")
}

// Stats returns a copy of the per-family counters
func (e *Engine) Stats() map[registry.Family]FamilyStats {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()

	out := make(map[registry.Family]FamilyStats, len(e.stats))
	for f, s := range e.stats {
		out[f] = *s
	}
	return out
}

func (e *Engine) domain() string {
	if e.Domain == "" {
		return ServiceDomain
	}
	return e.Domain
}

// consume drains entries until the browse closes the channel
func (e *Engine) consume(family registry.Family, entries <-chan *zeroconf.ServiceEntry) {
	defer e.wg.Done()

	for entry := range entries {
		e.handleEntry(family, entry)
	}
}

func (e *Engine) handleEntry(family registry.Family, entry *zeroconf.ServiceEntry) {
	if entry != nil {
		logging.LogServiceEntry(ServiceType(family), entry.Instance, entry.HostName, entry.Port, entry.Text)
	}

	fact, err := parseServiceEntry(family, entry)
	if err != nil {
		e.bump(family, func(s *FamilyStats) { s.Malformed++ })
		logging.Debug("Discarding service entry",
			zap.String("family", family.String()),
			zap.Error(err),
		)
		return
	}

	created, err := e.registry.Merge(*fact)
	if err != nil {
		e.bump(family, func(s *FamilyStats) { s.Malformed++ })
		return
	}
	e.bump(family, func(s *FamilyStats) { s.Entries++ })

	if created {
		logging.LogDeviceEvent(fact.Name, "discovered",
			zap.String("family", family.String()),
			zap.Strings("addresses", fact.Addresses),
		)
	}
}

func (e *Engine) countError(family registry.Family) {
	e.bump(family, func(s *FamilyStats) { s.Errors++ })
}

func (e *Engine) bump(family registry.Family, fn func(*FamilyStats)) {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()

	s, ok := e.stats[family]
	if !ok {
		s = &FamilyStats{}
		e.stats[family] = s
	}
	fn(s)
}
