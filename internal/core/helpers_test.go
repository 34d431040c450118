package core

import (
	"context"
	"sync"
	"testing"
	"time"
)

// testDefinition is a small AMS-like catalog used across the package tests.
func testDefinition() SystemDefinition {
	return SystemDefinition{
		System: SystemAMS,
		Label:  "Running Dynamics",
		Columns: []ColumnDescriptor{
			{Name: "sscount", Required: true, Kind: KindNumber},
			{Name: "track", Required: true, Kind: KindString},
			{Name: "location", Required: true, Kind: KindString},
			{Name: "latitude", Required: true, Kind: KindString},
			{Name: "longitude", Required: true, Kind: KindString},
			{Name: "ams_ajonopeus", Kind: KindNumber},
			{Name: "oikea_pystysuuntainen_kiihtyvyys", Kind: KindNumber},
			{Name: "vasen_pystysuuntainen_kiihtyvyys", Kind: KindNumber},
		},
	}
}

// registerTestSystem registers testDefinition for the duration of a test.
func registerTestSystem(t *testing.T) SystemDefinition {
	t.Helper()
	Clear()
	def := testDefinition()
	Register(def)
	t.Cleanup(Clear)
	return def
}

const (
	// amsHeader lacks the optional vasen_pystysuuntainen_kiihtyvyys column.
	amsHeader = `"SSCOUNT","Track","Location","Latitude","Longitude","Running Dynamics.Ajonopeus [km/h]","Running Dynamics.Oikea pystysuuntainen kiihtyvyys [m/s^2]"`
	amsRow    = `1,006 LHRP 2,130+0100.25,64.07646857° N,25.4683° E,80.5,0.12`
)

// memStore is an in-memory Store.
type memStore struct {
	mu      sync.Mutex
	saved   []*FileResult
	saveErr error
}

func (m *memStore) SaveFile(_ context.Context, res *FileResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, res)
	return nil
}

func (m *memStore) find(reportID string) *FileResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.saved {
		if r.ReportID == reportID {
			return r
		}
	}
	return nil
}

func (m *memStore) MissingColumns(_ context.Context, reportID string) ([]MissingColumn, error) {
	if r := m.find(reportID); r != nil {
		return r.MissingColumnRecords(), nil
	}
	return nil, nil
}

func (m *memStore) RowErrors(_ context.Context, reportID string) ([]RowErrorRecord, error) {
	if r := m.find(reportID); r != nil {
		return r.RowErrorRecords(), nil
	}
	return nil, nil
}

// countingRecorder counts observed outcomes.
type countingRecorder struct {
	mu     sync.Mutex
	ok     int
	failed int
}

func (c *countingRecorder) ObserveFile(_ *FileResult, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.failed++
		return
	}
	c.ok++
}

// stubLocker grants the lock once free is true.
type stubLocker struct {
	mu       sync.Mutex
	free     bool
	attempts int
	unlocked int
}

func (l *stubLocker) TryLock(_ context.Context, _, _ string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts++
	return l.free, nil
}

func (l *stubLocker) Unlock(_ context.Context, _, _ string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unlocked++
	return nil
}

// leaseLocker is an in-memory lease with expiry, like the store's lock table.
type leaseLocker struct {
	mu          sync.Mutex
	owner       string
	expires     time.Time
	renewals    int
	denyRenewal bool
}

func (l *leaseLocker) TryLock(_ context.Context, _, owner string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	held := l.owner != "" && now.Before(l.expires)
	if held && l.owner != owner {
		return false, nil
	}
	if held {
		if l.denyRenewal {
			return false, nil
		}
		l.renewals++
	}
	l.owner = owner
	l.expires = now.Add(ttl)
	return true, nil
}

func (l *leaseLocker) Unlock(_ context.Context, _, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.owner == owner {
		l.owner = ""
	}
	return nil
}

func (l *leaseLocker) renewCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.renewals
}

// blockingStore holds every SaveFile until release is closed or the
// context ends.
type blockingStore struct {
	memStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingStore() *blockingStore {
	return &blockingStore{entered: make(chan struct{}), release: make(chan struct{})}
}

func (b *blockingStore) SaveFile(ctx context.Context, res *FileResult) error {
	b.once.Do(func() { close(b.entered) })
	select {
	case <-b.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return b.memStore.SaveFile(ctx, res)
}
