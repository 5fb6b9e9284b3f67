package dialog

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traty/internal/chat"
	"traty/internal/core"
	"traty/internal/stats"
)

// memStore is an in-memory event store backing both the engine's write
// path and the statistics service in tests.
type memStore struct {
	users   map[int64]core.User
	records []core.ExpenseRecord
	catalog []core.Category
	clock   time.Time
	nextID  int64

	failCreate error
}

func newMemStore() *memStore {
	return &memStore{
		users:   make(map[int64]core.User),
		catalog: core.Catalog,
		clock:   time.Date(2024, 12, 14, 12, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) Categories(_ context.Context) ([]core.Category, error) {
	return m.catalog, nil
}

func (m *memStore) UpsertUser(_ context.Context, id int64, displayName string) error {
	u, ok := m.users[id]
	if !ok {
		u = core.User{ID: id, RegisteredAt: m.clock}
	}
	u.DisplayName = displayName
	m.users[id] = u
	return nil
}

func (m *memStore) GetUser(_ context.Context, id int64) (core.User, error) {
	u, ok := m.users[id]
	if !ok {
		return core.User{}, errors.New("user not found")
	}
	return u, nil
}

func (m *memStore) CreateExpense(_ context.Context, userID int64, amount core.Money, category, description string) (core.ExpenseRecord, error) {
	if m.failCreate != nil {
		return core.ExpenseRecord{}, m.failCreate
	}
	m.clock = m.clock.Add(time.Minute)
	m.nextID++
	rec := core.ExpenseRecord{
		ID:          m.nextID,
		UserID:      userID,
		Amount:      amount,
		Category:    category,
		Description: description,
		CreatedAt:   m.clock,
	}
	if err := rec.Validate(); err != nil {
		return core.ExpenseRecord{}, err
	}
	m.records = append(m.records, rec)
	return rec, nil
}

func (m *memStore) ExpensesByWindow(_ context.Context, userID int64, start, end *time.Time) ([]core.ExpenseRecord, error) {
	var out []core.ExpenseRecord
	for _, r := range m.records {
		if r.UserID != userID {
			continue
		}
		if start != nil && r.CreatedAt.Before(*start) {
			continue
		}
		if end != nil && r.CreatedAt.After(*end) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *memStore) ExpensesByCategory(_ context.Context, userID int64, category string) ([]core.ExpenseRecord, error) {
	var out []core.ExpenseRecord
	for _, r := range m.records {
		if r.UserID == userID && r.Category == category {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) TopExpenses(_ context.Context, userID int64, n int) ([]core.ExpenseRecord, error) {
	var out []core.ExpenseRecord
	for _, r := range m.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			a, b := out[i], out[j]
			if b.Amount.Kopecks > a.Amount.Kopecks ||
				(b.Amount.Kopecks == a.Amount.Kopecks && b.CreatedAt.After(a.CreatedAt)) {
				out[i], out[j] = b, a
			}
		}
	}
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (m *memStore) LatestExpenses(_ context.Context, userID int64, limit int) ([]core.ExpenseRecord, error) {
	var out []core.ExpenseRecord
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		if m.records[i].UserID == userID {
			out = append(out, m.records[i])
		}
	}
	return out, nil
}

type capturingPublisher struct {
	published []core.ExpenseRecord
	fail      error
}

func (p *capturingPublisher) PublishExpenseRecorded(_ context.Context, rec core.ExpenseRecord) error {
	if p.fail != nil {
		return p.fail
	}
	p.published = append(p.published, rec)
	return nil
}

func newTestEngine(store *memStore, pub Publisher) *Engine {
	svc := stats.NewService(store)
	svc.SetClock(func() time.Time { return store.clock })
	return NewEngine(store, svc, pub)
}

func send(t *testing.T, e *Engine, userID int64, text string) chat.Reply {
	t.Helper()
	reply, err := e.Handle(context.Background(), chat.Incoming{
		UserID:      userID,
		DisplayName: "Вася",
		Text:        text,
	})
	require.NoError(t, err)
	return reply
}

func TestEntryFlowEndToEnd(t *testing.T) {
	store := newMemStore()
	pub := &capturingPublisher{}
	e := newTestEngine(store, pub)

	r := send(t, e, 1, chat.LabelAddExpense)
	assert.Equal(t, promptAmount, r.Text)
	assert.Equal(t, chat.BackOnly(), r.Options)

	r = send(t, e, 1, "150,50")
	assert.Equal(t, promptCategory, r.Text)

	r = send(t, e, 1, "🍔 Еда")
	assert.Equal(t, promptDescription, r.Text)

	r = send(t, e, 1, chat.TokenSkip)
	assert.Contains(t, r.Text, "✅ Расход добавлен!")
	assert.Contains(t, r.Text, "150.50 руб.")
	assert.Contains(t, r.Text, "Еда")
	assert.Contains(t, r.Text, "не указано")
	assert.Equal(t, chat.MainMenu(), r.Options)

	require.Len(t, store.records, 1)
	rec := store.records[0]
	assert.Equal(t, int64(15050), rec.Amount.Kopecks)
	assert.Equal(t, "Еда", rec.Category, "glyph must be stripped before storage")
	assert.Equal(t, "", rec.Description)

	require.Len(t, pub.published, 1)
	assert.Equal(t, rec.ID, pub.published[0].ID)

	assert.Equal(t, StateIdle, e.Sessions().Snapshot(1).State)

	// The committed amount shows up in today's summary.
	r = send(t, e, 1, chat.LabelToday)
	assert.Contains(t, r.Text, "150.50 руб.")
}

func TestAmountValidationReprompts(t *testing.T) {
	e := newTestEngine(newMemStore(), nil)

	send(t, e, 1, chat.LabelAddExpense)

	r := send(t, e, 1, "abc")
	assert.Equal(t, msgBadAmount, r.Text)
	assert.Equal(t, StateAwaitingAmount, e.Sessions().Snapshot(1).State)

	r = send(t, e, 1, "0")
	assert.Equal(t, msgAmountPositive, r.Text)

	r = send(t, e, 1, "-5")
	assert.Equal(t, msgAmountPositive, r.Text)

	// Retries are unbounded; a valid amount still advances.
	r = send(t, e, 1, "99")
	assert.Equal(t, promptCategory, r.Text)
}

func TestBackNavigationRoundTrip(t *testing.T) {
	store := newMemStore()
	e := newTestEngine(store, nil)

	send(t, e, 1, chat.LabelAddExpense)
	send(t, e, 1, "100")
	send(t, e, 1, "🏠 Дом")

	// Back from description returns to category.
	r := send(t, e, 1, chat.TokenBack)
	assert.Equal(t, promptCategory, r.Text)
	assert.Equal(t, StateAwaitingCategory, e.Sessions().Snapshot(1).State)

	send(t, e, 1, "🍔 Еда")
	send(t, e, 1, "обед")

	require.Len(t, store.records, 1)
	assert.Equal(t, "Еда", store.records[0].Category, "only the latest category commits")
	assert.Equal(t, "обед", store.records[0].Description)
}

func TestBackFromCategoryReturnsToAmount(t *testing.T) {
	store := newMemStore()
	e := newTestEngine(store, nil)

	send(t, e, 1, chat.LabelAddExpense)
	send(t, e, 1, "100")

	r := send(t, e, 1, chat.TokenBack)
	assert.Equal(t, promptAmount, r.Text)

	send(t, e, 1, "250")
	send(t, e, 1, "🏠 Дом")
	send(t, e, 1, chat.TokenSkip)

	require.Len(t, store.records, 1)
	assert.Equal(t, int64(25000), store.records[0].Amount.Kopecks, "re-entered amount wins")
}

func TestCancelClearsSession(t *testing.T) {
	store := newMemStore()
	e := newTestEngine(store, nil)

	send(t, e, 1, chat.LabelAddExpense)
	send(t, e, 1, "500")

	// Back to amount, then back again: terminal cancel.
	send(t, e, 1, chat.TokenBack)
	r := send(t, e, 1, chat.TokenBack)
	assert.Equal(t, msgCancelled, r.Text)

	s := e.Sessions().Snapshot(1)
	assert.Equal(t, StateIdle, s.State)
	assert.False(t, s.Draft.AmountSet, "cancel must drop the collected amount")
	assert.Empty(t, s.Draft.Category)
	assert.Empty(t, store.records, "nothing may persist before the commit point")
}

func TestUnrecognizedIdleText(t *testing.T) {
	e := newTestEngine(newMemStore(), nil)

	r := send(t, e, 1, "что-нибудь непонятное")
	assert.Equal(t, msgUnrecognized, r.Text)
	assert.Equal(t, StateIdle, e.Sessions().Snapshot(1).State)
}

func TestMonthLabelSharedAcrossMenus(t *testing.T) {
	store := newMemStore()
	e := newTestEngine(store, nil)

	send(t, e, 1, chat.LabelAddExpense)
	send(t, e, 1, "100")
	send(t, e, 1, "🍔 Еда")
	send(t, e, 1, chat.TokenSkip)

	// The statistics menu reuses the main menu's month label, so the same
	// input must produce the month summary from either menu.
	require.Equal(t, chat.LabelMonth, chat.LabelStatsMonth)

	send(t, e, 1, chat.LabelStatistics)
	r := send(t, e, 1, chat.LabelStatsMonth)
	assert.Contains(t, r.Text, "Расходы за текущий месяц")
	assert.Contains(t, r.Text, "100.00 руб.")

	r = send(t, e, 1, chat.LabelMonth)
	assert.Contains(t, r.Text, "Расходы за текущий месяц")
}

func TestCategoryKeyboardComesFromStore(t *testing.T) {
	store := newMemStore()
	store.catalog = []core.Category{
		{Name: "Книги", Glyph: "📚"},
		{Name: "Спорт", Glyph: "🏋️"},
	}
	e := newTestEngine(store, nil)

	send(t, e, 1, chat.LabelAddExpense)
	r := send(t, e, 1, "100")
	assert.Equal(t, chat.CategoryMenu(store.catalog), r.Options)
	assert.Contains(t, r.Options[0], "📚 Книги")

	send(t, e, 1, chat.TokenBack)
	send(t, e, 1, chat.TokenBack)
	r = send(t, e, 1, chat.LabelByCategory)
	assert.Equal(t, chat.CategoryFilterMenu(store.catalog), r.Options)
}

func TestDateRangeFlow(t *testing.T) {
	store := newMemStore()
	e := newTestEngine(store, nil)

	// Two records on known dates via the entry flow.
	send(t, e, 1, chat.LabelAddExpense)
	send(t, e, 1, "100")
	send(t, e, 1, "🍔 Еда")
	send(t, e, 1, chat.TokenSkip)

	r := send(t, e, 1, chat.LabelByDate)
	assert.Equal(t, promptDateRange, r.Text)

	r = send(t, e, 1, "не даты вовсе")
	assert.Equal(t, msgBadRange, r.Text)
	assert.Equal(t, StateAwaitingDateRange, e.Sessions().Snapshot(1).State, "malformed input re-prompts in place")

	r = send(t, e, 1, "01.12.2024-31.12.2024")
	assert.Contains(t, r.Text, "Расходы за период 01.12.2024-31.12.2024")
	assert.Contains(t, r.Text, "100.00 руб.")
	assert.Equal(t, StateIdle, e.Sessions().Snapshot(1).State)
}

func TestDateRangeBackCancelsWithoutQuery(t *testing.T) {
	e := newTestEngine(newMemStore(), nil)

	send(t, e, 1, chat.LabelByDate)
	r := send(t, e, 1, chat.TokenBack)
	assert.Equal(t, msgDetailMenu, r.Text)
	assert.Equal(t, StateIdle, e.Sessions().Snapshot(1).State)
}

func TestCategoryFilterFlow(t *testing.T) {
	store := newMemStore()
	e := newTestEngine(store, nil)

	send(t, e, 1, chat.LabelAddExpense)
	send(t, e, 1, "300")
	send(t, e, 1, "🍔 Еда")
	send(t, e, 1, chat.TokenSkip)
	send(t, e, 1, chat.LabelAddExpense)
	send(t, e, 1, "200")
	send(t, e, 1, "🏠 Дом")
	send(t, e, 1, chat.TokenSkip)

	r := send(t, e, 1, chat.LabelByCategory)
	assert.Equal(t, promptCategoryFilter, r.Text)
	assert.Equal(t, chat.CategoryFilterMenu(core.Catalog), r.Options)

	r = send(t, e, 1, "🍔 Еда")
	assert.Contains(t, r.Text, "Расходы: Еда")
	assert.Contains(t, r.Text, "300.00 руб.")
	assert.NotContains(t, r.Text, "Дом")
	assert.Equal(t, StateIdle, e.Sessions().Snapshot(1).State)

	send(t, e, 1, chat.LabelByCategory)
	r = send(t, e, 1, chat.LabelAllCategories)
	assert.Contains(t, r.Text, "Все расходы")
	assert.Contains(t, r.Text, "Еда")
	assert.Contains(t, r.Text, "Дом")
}

func TestIdleGlyphTextFiltersCategory(t *testing.T) {
	store := newMemStore()
	e := newTestEngine(store, nil)

	send(t, e, 1, chat.LabelAddExpense)
	send(t, e, 1, "150")
	send(t, e, 1, "🍔 Еда")
	send(t, e, 1, chat.TokenSkip)

	r := send(t, e, 1, "🍔 Еда")
	assert.Contains(t, r.Text, "Расходы: Еда")
	assert.Contains(t, r.Text, "150.00 руб.")
}

func TestLargestRanking(t *testing.T) {
	store := newMemStore()
	e := newTestEngine(store, nil)

	for _, amount := range []string{"10", "50", "50", "5"} {
		send(t, e, 1, chat.LabelAddExpense)
		send(t, e, 1, amount)
		send(t, e, 1, "🍔 Еда")
		send(t, e, 1, chat.TokenSkip)
	}

	rep, err := e.reports.Largest(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, len(rep.Records) >= 2)
	assert.Equal(t, int64(5000), rep.Records[0].Amount.Kopecks)
	assert.Equal(t, int64(5000), rep.Records[1].Amount.Kopecks)
	assert.True(t, rep.Records[0].CreatedAt.After(rep.Records[1].CreatedAt),
		"amount ties break most recent first")
}

func TestStoreFailureKeepsSession(t *testing.T) {
	store := newMemStore()
	e := newTestEngine(store, nil)

	send(t, e, 1, chat.LabelAddExpense)
	send(t, e, 1, "150")
	send(t, e, 1, "🍔 Еда")

	store.failCreate = errors.New("disk full")
	reply, err := e.Handle(context.Background(), chat.Incoming{UserID: 1, Text: "обед"})
	require.Error(t, err)
	assert.Equal(t, msgStoreFailure, reply.Text)

	// Pre-call state preserved: the same input can be retried manually.
	s := e.Sessions().Snapshot(1)
	assert.Equal(t, StateAwaitingDescription, s.State)
	assert.True(t, s.Draft.AmountSet)
	assert.Equal(t, "Еда", s.Draft.Category)

	store.failCreate = nil
	r := send(t, e, 1, "обед")
	assert.Contains(t, r.Text, "✅")
	require.Len(t, store.records, 1)
	assert.Equal(t, "обед", store.records[0].Description)
}

func TestPublisherFailureDoesNotFailCommit(t *testing.T) {
	store := newMemStore()
	pub := &capturingPublisher{fail: errors.New("broker down")}
	e := newTestEngine(store, pub)

	send(t, e, 1, chat.LabelAddExpense)
	send(t, e, 1, "100")
	send(t, e, 1, "🍔 Еда")
	r := send(t, e, 1, chat.TokenSkip)

	assert.Contains(t, r.Text, "✅")
	require.Len(t, store.records, 1)
}

func TestStartRegistersUser(t *testing.T) {
	store := newMemStore()
	e := newTestEngine(store, nil)

	r := send(t, e, 7, chat.CommandStart)
	assert.Contains(t, r.Text, "Вася")
	assert.Equal(t, chat.MainMenu(), r.Options)

	u, ok := store.users[7]
	require.True(t, ok)
	assert.Equal(t, "Вася", u.DisplayName)

	// Second start refreshes the name without duplicating anything.
	_, err := e.Handle(context.Background(), chat.Incoming{UserID: 7, DisplayName: "Василий", Text: chat.CommandStart})
	require.NoError(t, err)
	assert.Equal(t, "Василий", store.users[7].DisplayName)
	assert.Len(t, store.users, 1)
}

func TestUsersAreIsolated(t *testing.T) {
	store := newMemStore()
	e := newTestEngine(store, nil)

	send(t, e, 1, chat.LabelAddExpense)
	send(t, e, 2, chat.LabelAddExpense)
	send(t, e, 1, "100")
	send(t, e, 2, "999")
	send(t, e, 1, "🍔 Еда")
	send(t, e, 2, "🏠 Дом")
	send(t, e, 1, chat.TokenSkip)
	send(t, e, 2, chat.TokenSkip)

	require.Len(t, store.records, 2)
	byUser := map[int64]core.ExpenseRecord{}
	for _, rec := range store.records {
		byUser[rec.UserID] = rec
	}
	assert.Equal(t, int64(10000), byUser[1].Amount.Kopecks)
	assert.Equal(t, "Еда", byUser[1].Category)
	assert.Equal(t, int64(99900), byUser[2].Amount.Kopecks)
	assert.Equal(t, "Дом", byUser[2].Category)
}

func TestWeekSummaryAfterBoundary(t *testing.T) {
	store := newMemStore()
	e := newTestEngine(store, nil)

	// Clock starts Saturday 2024-12-14; record lands that day.
	send(t, e, 1, chat.LabelAddExpense)
	send(t, e, 1, "100")
	send(t, e, 1, "🍔 Еда")
	send(t, e, 1, chat.TokenSkip)

	r := send(t, e, 1, chat.LabelWeek)
	assert.Contains(t, r.Text, "100.00 руб.")

	// After the Sunday boundary the record drops out of the week window.
	store.clock = time.Date(2024, 12, 16, 12, 0, 0, 0, time.UTC)
	r = send(t, e, 1, chat.LabelWeek)
	assert.True(t, strings.Contains(r.Text, "0.00 руб."), "got %q", r.Text)
	assert.Contains(t, r.Text, "Расходов нет")
}
