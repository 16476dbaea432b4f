package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/semmidev/tenantvault/internal/domain"
)

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) log(level, template string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+fmt.Sprintf(template, args...))
}

func (l *recordingLogger) Infof(template string, args ...interface{})  { l.log("INFO", template, args...) }
func (l *recordingLogger) Warnf(template string, args ...interface{})  { l.log("WARN", template, args...) }
func (l *recordingLogger) Errorf(template string, args ...interface{}) { l.log("ERROR", template, args...) }

func (l *recordingLogger) contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

// memDataStore serves rows per table, filtering scoped reads on "org_id".
type memDataStore struct {
	mu      sync.Mutex
	tables  map[string][]map[string]any
	failing map[string]error
	pingErr error
	queries []domain.TableQuery
}

func newMemDataStore() *memDataStore {
	return &memDataStore{
		tables:  map[string][]map[string]any{},
		failing: map[string]error{},
	}
}

func (m *memDataStore) addRows(table, tenantID string, n int) {
	for i := 0; i < n; i++ {
		m.tables[table] = append(m.tables[table], map[string]any{
			"id":     fmt.Sprintf("%s-%s-%d", table, tenantID, i),
			"org_id": tenantID,
		})
	}
}

func (m *memDataStore) ReadTable(ctx context.Context, q domain.TableQuery) ([]domain.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, q)

	if err := m.failing[q.Table]; err != nil {
		return nil, err
	}

	var rows []domain.Row
	for _, raw := range m.tables[q.Table] {
		if q.TenantColumn != "" && raw[q.TenantColumn] != q.TenantID {
			continue
		}
		row := domain.NewRow()
		row.Set("id", raw["id"])
		row.Set("org_id", raw["org_id"])
		rows = append(rows, row)
	}
	return rows, nil
}

func (m *memDataStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.pingErr
}

func (m *memDataStore) GetType() string { return "memory" }

func (m *memDataStore) queryFor(table string) (domain.TableQuery, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.queries {
		if q.Table == table {
			return q, true
		}
	}
	return domain.TableQuery{}, false
}

type memBlobStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	types     map[string]string
	putErr    map[string]error // keyed by tenant id prefix
	deleteErr error
	deleted   []string
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{
		objects: map[string][]byte{},
		types:   map[string]string{},
		putErr:  map[string]error{},
	}
}

func (m *memBlobStore) Put(ctx context.Context, path string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	tenant := strings.SplitN(path, "/", 2)[0]
	if err := m.putErr[tenant]; err != nil {
		return err
	}
	m.objects[path] = append([]byte(nil), data...)
	m.types[path] = contentType
	return nil
}

func (m *memBlobStore) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.objects, path)
	m.deleted = append(m.deleted, path)
	return nil
}

func (m *memBlobStore) has(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[path]
	return ok
}

func (m *memBlobStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

// memRunRepository mirrors the SQL repository, including the one-way status
// transition.
type memRunRepository struct {
	mu          sync.Mutex
	runs        map[string]*domain.BackupRun
	createErr   error
	completeErr error
	deleteErr   error
	stuck       int
	stuckBefore time.Time
}

func newMemRunRepository() *memRunRepository {
	return &memRunRepository{runs: map[string]*domain.BackupRun{}}
}

func (m *memRunRepository) CreateRun(ctx context.Context, run *domain.BackupRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	cp := *run
	m.runs[run.ID] = &cp
	return nil
}

func (m *memRunRepository) CompleteRun(ctx context.Context, runID string, c domain.RunCompletion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.completeErr != nil {
		return m.completeErr
	}
	run, ok := m.runs[runID]
	if !ok || run.Status != domain.RunStatusInProgress {
		return domain.ErrRunNotInProgress
	}
	run.Status = domain.RunStatusCompleted
	run.CompletedAt = &c.CompletedAt
	run.FilePath = &c.FilePath
	run.FileSize = &c.FileSize
	run.RecordsCount = c.RecordsCount
	run.TablesIncluded = c.TablesIncluded
	return nil
}

func (m *memRunRepository) FailRun(ctx context.Context, runID string, message string, failedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok || run.Status != domain.RunStatusInProgress {
		return domain.ErrRunNotInProgress
	}
	run.Status = domain.RunStatusFailed
	run.CompletedAt = &failedAt
	run.ErrorMessage = &message
	return nil
}

func (m *memRunRepository) GetRun(ctx context.Context, runID string) (*domain.BackupRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	cp := *run
	return &cp, nil
}

func (m *memRunRepository) ListPrunable(ctx context.Context, tenantID string, kind domain.RunKind, cutoff time.Time) ([]domain.BackupRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.BackupRun
	for _, run := range m.runs {
		if run.TenantID == tenantID && run.Kind == kind && run.Status.Terminal() && run.StartedAt.Before(cutoff) {
			out = append(out, *run)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func (m *memRunRepository) DeleteRun(ctx context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.runs, runID)
	return nil
}

func (m *memRunRepository) CountStuck(ctx context.Context, startedBefore time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stuckBefore = startedBefore
	return m.stuck, nil
}

func (m *memRunRepository) byTenant(tenantID string) []domain.BackupRun {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.BackupRun
	for _, run := range m.runs {
		if run.TenantID == tenantID {
			out = append(out, *run)
		}
	}
	return out
}

func (m *memRunRepository) seed(run domain.BackupRun) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = &run
}

type scheduleUpdate struct {
	last, next time.Time
}

type memSettingsRepository struct {
	mu        sync.Mutex
	settings  []domain.BackupSettings
	listErr   error
	updateErr error
	updates   map[string]scheduleUpdate
}

func newMemSettingsRepository(settings ...domain.BackupSettings) *memSettingsRepository {
	return &memSettingsRepository{settings: settings, updates: map[string]scheduleUpdate{}}
}

func (m *memSettingsRepository) ListEnabled(ctx context.Context) ([]domain.BackupSettings, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.BackupSettings
	for _, s := range m.settings {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memSettingsRepository) Get(ctx context.Context, tenantID string) (*domain.BackupSettings, error) {
	for _, s := range m.settings {
		if s.TenantID == tenantID {
			cp := s
			return &cp, nil
		}
	}
	return nil, domain.ErrSettingsNotFound
}

func (m *memSettingsRepository) UpdateSchedule(ctx context.Context, tenantID string, lastRunAt, nextRunAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updates[tenantID] = scheduleUpdate{last: lastRunAt, next: nextRunAt}
	return nil
}

func (m *memSettingsRepository) update(tenantID string) (scheduleUpdate, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.updates[tenantID]
	return u, ok
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (n *recordingNotifier) Notify(ctx context.Context, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	return n.err
}

var errUpload = errors.New("upload refused")

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// testEngine wires the use cases over in-memory collaborators.
type testEngine struct {
	data     *memDataStore
	blobs    *memBlobStore
	runs     *memRunRepository
	settings *memSettingsRepository
	logger   *recordingLogger
	backup   *BackupUseCase
	cleanup  *Cleanup
	ledger   *Ledger
}

var testTables = []domain.TableDescriptor{
	{Name: "messages", TenantScoped: true},
	{Name: "tasks", TenantScoped: true},
	{Name: "plans", TenantScoped: false},
}

func newTestEngine(now time.Time, settings ...domain.BackupSettings) *testEngine {
	e := &testEngine{
		data:     newMemDataStore(),
		blobs:    newMemBlobStore(),
		runs:     newMemRunRepository(),
		settings: newMemSettingsRepository(settings...),
		logger:   &recordingLogger{},
	}

	e.ledger = NewLedger(e.runs)
	e.ledger.now = fixedClock(now)

	e.cleanup = NewCleanup(e.runs, e.blobs, e.logger)
	e.cleanup.now = fixedClock(now)

	exporter := NewExporter(e.data, testTables, "org_id", e.logger)
	writer := NewSnapshotWriter(e.blobs, nil, e.logger)

	e.backup = NewBackupUseCase(e.settings, e.ledger, exporter, writer, e.blobs, e.cleanup, e.logger)
	e.backup.now = fixedClock(now)

	return e
}
