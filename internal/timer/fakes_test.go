package timer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ronaldtieu/pomodoro-project/internal/model"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start.UTC()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeSettingsProvider struct {
	mu       sync.Mutex
	settings model.UserSettings
	getErr   error
	gets     int
}

func (p *fakeSettingsProvider) Get(ctx context.Context, userID string) (model.UserSettings, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gets++
	if p.getErr != nil {
		return model.UserSettings{}, p.getErr
	}
	return p.settings, nil
}

func (p *fakeSettingsProvider) Update(ctx context.Context, userID string, patch model.SettingsPatch) (model.UserSettings, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settings = patch.Apply(p.settings)
	return p.settings, nil
}

var errLedgerDown = errors.New("ledger unavailable")

type fakeLedger struct {
	mu        sync.Mutex
	records   map[string]*model.SessionRecord
	order     []string
	createErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{records: make(map[string]*model.SessionRecord)}
}

func (l *fakeLedger) Create(ctx context.Context, record *model.SessionRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.createErr != nil {
		return l.createErr
	}
	clone := *record
	l.records[record.ID] = &clone
	l.order = append(l.order, record.ID)
	return nil
}

func (l *fakeLedger) MarkCompleted(ctx context.Context, id string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	record, ok := l.records[id]
	if !ok || !record.Open() {
		return nil
	}
	completedAt := at
	record.CompletedAt = &completedAt
	return nil
}

func (l *fakeLedger) MarkCancelled(ctx context.Context, id string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	record, ok := l.records[id]
	if !ok || !record.Open() {
		return nil
	}
	cancelledAt := at
	record.CancelledAt = &cancelledAt
	return nil
}

func (l *fakeLedger) UpdateFlags(ctx context.Context, id string, breakTaken, breakSkipped bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if record, ok := l.records[id]; ok {
		record.BreakTaken = breakTaken
		record.BreakSkipped = breakSkipped
	}
	return nil
}

func (l *fakeLedger) Query(ctx context.Context, userID string, filter model.SessionFilter) ([]model.SessionRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	matched := make([]model.SessionRecord, 0)
	for _, id := range l.order {
		record := l.records[id]
		if record.UserID != userID {
			continue
		}
		if filter.Type != "" && record.Type != filter.Type {
			continue
		}
		if filter.CompletedOnly && record.CompletedAt == nil {
			continue
		}
		if filter.From != nil && record.StartedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !record.StartedAt.Before(*filter.To) {
			continue
		}
		matched = append(matched, *record)
	}
	return matched, nil
}

// latest returns the most recently created record.
func (l *fakeLedger) latest() *model.SessionRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.order) == 0 {
		return nil
	}
	record := *l.records[l.order[len(l.order)-1]]
	return &record
}

func (l *fakeLedger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.order)
}

type fakeTaskStore struct {
	mu         sync.Mutex
	increments map[string]int
	err        error
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{increments: make(map[string]int)}
}

func (t *fakeTaskStore) IncrementPomodoroCount(ctx context.Context, taskID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	t.increments[taskID]++
	return nil
}
