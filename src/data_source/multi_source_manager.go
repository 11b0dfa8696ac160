package datasource

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"series-canon/src/helpers"
	"series-canon/src/interfaces"
	"series-canon/src/logger"
	"series-canon/src/models"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// MultiSourceManager drives every configured extract source through the
// engine. Sources run concurrently; extracts of one source run in order.
type MultiSourceManager struct {
	Sources     map[string]interfaces.IExtractSource
	Descriptors map[string]models.MSourceDescriptor
	Runner      interfaces.IExtractRunner
	Logger      *logger.Logger
	mu          sync.RWMutex
	exchanger   interfaces.IDataExchanger
	latest      map[string]models.MRunReport
	ctx         context.Context    // Lifecycle context (derived)
	cancelFunc  context.CancelFunc // To stop the poll loop
}

// -----------------------------------------------------------------------------

func NewMultiSourceManager(
	sources []interfaces.IExtractSource,
	descriptors []models.MSourceDescriptor,
	runner interfaces.IExtractRunner,
	log *logger.Logger,
) *MultiSourceManager {

	m := &MultiSourceManager{
		Sources:     make(map[string]interfaces.IExtractSource),
		Descriptors: make(map[string]models.MSourceDescriptor),
		Runner:      runner,
		Logger:      log,
		latest:      make(map[string]models.MRunReport),
	}

	for _, d := range descriptors {
		m.Descriptors[d.SourceID] = d
	}
	for _, s := range sources {
		m.Sources[s.Name()] = s
	}

	return m
}

// -----------------------------------------------------------------------------

// SetExchanger registers the listener notified after every run.
func (m *MultiSourceManager) SetExchanger(ex interfaces.IDataExchanger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exchanger = ex
}

// -----------------------------------------------------------------------------

// AddSource adds a new source with its descriptor
func (m *MultiSourceManager) AddSource(source interfaces.IExtractSource, desc models.MSourceDescriptor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := source.Name()
	if _, exists := m.Sources[name]; exists {
		return fmt.Errorf("source %s already exists", name)
	}

	m.Sources[name] = source
	m.Descriptors[name] = desc
	m.Logger.Info("Added source: %s", name)
	return nil
}

// -----------------------------------------------------------------------------

// RemoveSource removes a source
func (m *MultiSourceManager) RemoveSource(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.Sources[name]; !exists {
		return fmt.Errorf("source %s not found", name)
	}

	delete(m.Sources, name)
	delete(m.Descriptors, name)
	m.Logger.Info("Removed source: %s", name)
	return nil
}

// -----------------------------------------------------------------------------

// GetSource retrieves a source and its descriptor by name
func (m *MultiSourceManager) GetSource(name string) (interfaces.IExtractSource, models.MSourceDescriptor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	source, exists := m.Sources[name]
	if !exists {
		return nil, models.MSourceDescriptor{}, fmt.Errorf("source %s not found", name)
	}
	desc, ok := m.Descriptors[name]
	if !ok {
		return nil, models.MSourceDescriptor{}, fmt.Errorf("source %s has no descriptor", name)
	}
	return source, desc, nil
}

// -----------------------------------------------------------------------------

// SourceNames returns the sorted names of all sources
func (m *MultiSourceManager) SourceNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.Sources))
	for name := range m.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// -----------------------------------------------------------------------------

// RunSource processes every pending extract of one source in order. An
// extract is acknowledged only after its run completed. A failed run stops
// the source for this round so later extracts never overtake it.
func (m *MultiSourceManager) RunSource(ctx context.Context, name string) ([]models.MRunReport, error) {
	source, desc, err := m.GetSource(name)
	if err != nil {
		return nil, err
	}

	pending, err := source.Pending(ctx)
	if err != nil {
		return nil, err
	}

	var reports []models.MRunReport
	for _, ex := range pending {
		report, err := m.Runner.RunExtract(ctx, desc, ex)
		m.publish(report)
		reports = append(reports, report)
		if err != nil {
			return reports, fmt.Errorf("source %s extract %s: %w", name, ex.Name, err)
		}
		if err := source.Ack(ex); err != nil {
			return reports, err
		}
	}
	return reports, nil
}

// -----------------------------------------------------------------------------

// RunAll runs every source concurrently. One source failing never stops the
// others; all failures are returned combined.
func (m *MultiSourceManager) RunAll(ctx context.Context) (map[string][]models.MRunReport, error) {
	names := m.SourceNames()

	var (
		mu      sync.Mutex
		errs    error
		results = make(map[string][]models.MRunReport, len(names))
	)

	var g errgroup.Group
	for _, name := range names {
		g.Go(func() error {
			reports, err := m.RunSource(ctx, name)
			mu.Lock()
			defer mu.Unlock()
			if len(reports) > 0 {
				results[name] = reports
			}
			if err != nil {
				errs = multierr.Append(errs, err)
				if helpers.IsConfigurationError(err) {
					m.Logger.Error("Source %s is misconfigured: %v", name, err)
				} else {
					m.Logger.Warning("Source %s run failed: %v", name, err)
				}
			}
			return nil
		})
	}
	g.Wait()

	return results, errs
}

// -----------------------------------------------------------------------------

// Start polls all sources every interval until Stop or ctx cancellation.
func (m *MultiSourceManager) Start(parentCtx context.Context, interval time.Duration, wg *sync.WaitGroup) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx != nil {
		return fmt.Errorf("MultiSourceManager is already running")
	}
	if interval <= 0 {
		return fmt.Errorf("invalid poll interval %s", interval)
	}

	ctx, cancel := context.WithCancel(parentCtx)
	m.ctx = ctx
	m.cancelFunc = cancel

	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			m.RunAll(ctx)
			select {
			case <-ctx.Done():
				m.Logger.Info("MultiSourceManager poll loop stopped.")
				return
			case <-ticker.C:
			}
		}
	}()

	m.Logger.Info("MultiSourceManager polling %d sources every %s.", len(m.Sources), interval)
	return nil
}

// -----------------------------------------------------------------------------

// Stop stops the poll loop by cancelling the internal context
func (m *MultiSourceManager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx == nil {
		return nil // Already stopped
	}

	m.Logger.Info("Stopping MultiSourceManager...")
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	m.cancelFunc = nil
	m.ctx = nil
	return nil
}

// -----------------------------------------------------------------------------

// LatestReports returns the most recent report of every source.
func (m *MultiSourceManager) LatestReports() map[string]models.MRunReport {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]models.MRunReport, len(m.latest))
	for k, v := range m.latest {
		out[k] = v
	}
	return out
}

// -----------------------------------------------------------------------------

func (m *MultiSourceManager) publish(report models.MRunReport) {
	m.mu.Lock()
	m.latest[report.Source] = report
	ex := m.exchanger
	reports := make(map[string]models.MRunReport, len(m.latest))
	for k, v := range m.latest {
		reports[k] = v
	}
	m.mu.Unlock()

	if ex == nil {
		return
	}
	ex.Broadcast(models.MLatestData{
		Type:       "RUN",
		Reports:    reports,
		Aggregates: report.Aggregates,
		Timestamp:  time.Now().Unix(),
	})
}
