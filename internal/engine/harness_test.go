package engine

import (
	"sync"
	"time"

	"github.com/talkbase/wadash/internal/domain"
)

// In-memory stores mirroring the row-level semantics of internal/store.

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeUsers struct {
	mu      sync.Mutex
	byPhone map[string]domain.WaUser
	nextID  int64
	saves   int
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byPhone: make(map[string]domain.WaUser)}
}

func (f *fakeUsers) GetOrCreate(phone string) (*domain.WaUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byPhone[phone]; ok {
		cp := u
		return &cp, nil
	}
	f.nextID++
	u := domain.WaUser{ID: f.nextID, Phone: phone, Classification: domain.ClassNormal}
	f.byPhone[phone] = u
	cp := u
	return &cp, nil
}

func (f *fakeUsers) Save(u *domain.WaUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byPhone[u.Phone] = *u
	f.saves++
	return nil
}

func (f *fakeUsers) ListUnblocked() ([]domain.WaUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.WaUser
	for _, u := range f.byPhone {
		if !u.IsBlocked {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUsers) get(phone string) domain.WaUser {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byPhone[phone]
}

func (f *fakeUsers) put(u domain.WaUser) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID == 0 {
		f.nextID++
		u.ID = f.nextID
	}
	f.byPhone[u.Phone] = u
}

type fakeWindows struct {
	mu      sync.Mutex
	byPhone map[string]domain.RateWindow
	saves   int
}

func newFakeWindows() *fakeWindows {
	return &fakeWindows{byPhone: make(map[string]domain.RateWindow)}
}

func (f *fakeWindows) Load(phone string) (*domain.RateWindow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if w, ok := f.byPhone[phone]; ok {
		cp := w
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeWindows) Save(w *domain.RateWindow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byPhone[w.Phone] = *w
	f.saves++
	return nil
}

type fakeSessions struct {
	mu   sync.Mutex
	rows map[int64]domain.WaSession
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{rows: make(map[int64]domain.WaSession)}
}

func (f *fakeSessions) Save(s *domain.WaSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[s.ID] = *s
	return nil
}

func (f *fakeSessions) List() ([]domain.WaSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.WaSession
	for _, s := range f.rows {
		out = append(out, s)
	}
	return out, nil
}

type fakeSchedules struct {
	mu   sync.Mutex
	msgs map[int64]domain.ScheduledMessage
	rems map[int64]domain.Reminder
}

func newFakeSchedules() *fakeSchedules {
	return &fakeSchedules{
		msgs: make(map[int64]domain.ScheduledMessage),
		rems: make(map[int64]domain.Reminder),
	}
}

func (f *fakeSchedules) DueMessages(now time.Time, limit int) ([]domain.ScheduledMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ScheduledMessage
	for _, m := range f.msgs {
		if m.Status == domain.SchedulePending && !m.ScheduledAt.After(now) {
			out = append(out, m)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeSchedules) DueReminders(now time.Time, limit int) ([]domain.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Reminder
	for _, r := range f.rems {
		if r.Status == domain.ReminderActive && !r.RemindAt.After(now) {
			out = append(out, r)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeSchedules) MarkMessageQueued(id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.msgs[id]
	if !ok || m.Status != domain.SchedulePending {
		return false, nil
	}
	m.Status = domain.ScheduleQueued
	f.msgs[id] = m
	return true, nil
}

func (f *fakeSchedules) MarkReminderQueued(id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rems[id]
	if !ok || r.Status != domain.ReminderActive {
		return false, nil
	}
	r.Status = domain.ScheduleQueued
	f.rems[id] = r
	return true, nil
}

func (f *fakeSchedules) FinishMessage(id int64, status, errMsg string, sentAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.msgs[id]
	if !ok || m.Status != domain.ScheduleQueued {
		return false, nil
	}
	m.Status = status
	m.ErrorMessage = errMsg
	if !sentAt.IsZero() {
		t := sentAt
		m.SentAt = &t
	}
	f.msgs[id] = m
	return true, nil
}

func (f *fakeSchedules) FinishReminder(id int64, status, errMsg string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rems[id]
	if !ok || r.Status != domain.ScheduleQueued {
		return false, nil
	}
	r.Status = status
	r.ErrorMessage = errMsg
	f.rems[id] = r
	return true, nil
}

func (f *fakeSchedules) GetMessage(id int64) (*domain.ScheduledMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.msgs[id]; ok {
		cp := m
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeSchedules) CreateMessage(m *domain.ScheduledMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs[m.ID] = *m
	return nil
}

func (f *fakeSchedules) putMessage(m domain.ScheduledMessage) {
	f.mu.Lock()
	f.msgs[m.ID] = m
	f.mu.Unlock()
}

func (f *fakeSchedules) putReminder(r domain.Reminder) {
	f.mu.Lock()
	f.rems[r.ID] = r
	f.mu.Unlock()
}

func (f *fakeSchedules) message(id int64) domain.ScheduledMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.msgs[id]
}

func (f *fakeSchedules) reminder(id int64) domain.Reminder {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rems[id]
}

func (f *fakeSchedules) pendingMessages() []domain.ScheduledMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ScheduledMessage
	for _, m := range f.msgs {
		if m.Status == domain.SchedulePending {
			out = append(out, m)
		}
	}
	return out
}

type fakeLog struct {
	mu      sync.Mutex
	entries []domain.MessageLog
}

func (f *fakeLog) Append(l *domain.MessageLog) error {
	f.mu.Lock()
	f.entries = append(f.entries, *l)
	f.mu.Unlock()
	return nil
}

func (f *fakeLog) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

func staticSettings(s SecuritySettings) SettingsSource {
	return SettingsFunc(func() SecuritySettings { return s })
}

// registryWith builds a registry preloaded with connected sessions.
func registryWith(sessions ...Session) *SessionRegistry {
	r := NewSessionRegistry(nil)
	for _, s := range sessions {
		r.Register(s)
		_ = r.SetConnected(s.ID, true)
	}
	return r
}
