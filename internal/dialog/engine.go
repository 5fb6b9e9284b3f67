// Package dialog drives the multi-step chat dialogue: entry and query
// flows as a finite state machine over per-user sessions, with free-text
// classification for the idle state.
package dialog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"traty/internal/chat"
	"traty/internal/core"
	"traty/internal/stats"
)

// Store is the slice of the event store the dialogue works with: the write
// path plus the seeded catalog backing the category keyboards.
type Store interface {
	UpsertUser(ctx context.Context, id int64, displayName string) error
	GetUser(ctx context.Context, id int64) (core.User, error)
	CreateExpense(ctx context.Context, userID int64, amount core.Money, category, description string) (core.ExpenseRecord, error)
	Categories(ctx context.Context) ([]core.Category, error)
}

// Reporter produces the aggregated views the query flows render.
type Reporter interface {
	Today(ctx context.Context, userID int64) (stats.Report, error)
	Week(ctx context.Context, userID int64) (stats.Report, error)
	Month(ctx context.Context, userID int64) (stats.Report, error)
	Range(ctx context.Context, userID int64, start, end time.Time) (stats.Report, error)
	ByCategory(ctx context.Context, userID int64, category string) (stats.Report, error)
	Largest(ctx context.Context, userID int64) (stats.Report, error)
	All(ctx context.Context, userID int64) (stats.Report, error)
}

// Publisher announces committed expenses downstream. May be nil.
type Publisher interface {
	PublishExpenseRecorded(ctx context.Context, rec core.ExpenseRecord) error
}

// Engine handles one inbound message at a time per user, advancing that
// user's session and producing the reply the transport should send.
type Engine struct {
	store     Store
	reports   Reporter
	publisher Publisher
	sessions  *Registry
}

func NewEngine(store Store, reports Reporter, publisher Publisher) *Engine {
	return &Engine{
		store:     store,
		reports:   reports,
		publisher: publisher,
		sessions:  NewRegistry(),
	}
}

// Sessions exposes the session registry for inspection.
func (e *Engine) Sessions() *Registry {
	return e.sessions
}

// Handle processes one inbound message. The user's session lock is held for
// the entire transition, store call included, so a single user's messages
// are strictly serialized. A non-nil error always comes with a user-facing
// fallback reply; the session is left in its pre-call state on store
// failure so the same input can simply be retried.
func (e *Engine) Handle(ctx context.Context, msg chat.Incoming) (chat.Reply, error) {
	var (
		reply chat.Reply
		err   error
	)
	e.sessions.Do(msg.UserID, func(s *Session) {
		switch s.State {
		case StateAwaitingAmount:
			reply = e.onAmount(ctx, s, msg.Text)
		case StateAwaitingCategory:
			reply = e.onCategory(s, msg.Text)
		case StateAwaitingDescription:
			reply, err = e.onDescription(ctx, s, msg.UserID, msg.Text)
		case StateAwaitingDateRange:
			reply, err = e.onDateRange(ctx, s, msg.UserID, msg.Text)
		case StateAwaitingCategoryFilter:
			reply, err = e.onCategoryFilter(ctx, s, msg.UserID, msg.Text)
		default:
			reply, err = e.onIdle(ctx, s, msg)
		}
	})
	return reply, err
}

// onIdle routes root-menu input: commands, menu labels, then the free-text
// classifier.
func (e *Engine) onIdle(ctx context.Context, s *Session, msg chat.Incoming) (chat.Reply, error) {
	switch msg.Text {
	case chat.CommandStart:
		if err := e.store.UpsertUser(ctx, msg.UserID, msg.DisplayName); err != nil {
			return chat.Reply{Text: msgQueryFailure, Options: chat.MainMenu()},
				fmt.Errorf("register user: %w", err)
		}
		return chat.Reply{Text: welcomeText(msg.DisplayName), Options: chat.MainMenu()}, nil

	case chat.CommandHelp, chat.LabelHelp:
		return chat.Reply{Text: helpText(), Options: chat.MainMenu()}, nil

	case chat.LabelAddExpense:
		s.State = StateAwaitingAmount
		return chat.Reply{Text: promptAmount, Options: chat.BackOnly()}, nil

	case chat.LabelStatistics:
		return chat.Reply{Text: msgStatsMenu, Options: chat.StatisticsMenu()}, nil

	case chat.LabelStatsDetail:
		return chat.Reply{Text: msgDetailMenu, Options: chat.DetailMenu()}, nil

	case chat.LabelBackToStats:
		return chat.Reply{Text: msgStatsMenu, Options: chat.StatisticsMenu()}, nil

	case chat.LabelToday, chat.LabelStatsToday:
		return e.periodReply(ctx, msg.UserID, "📊 Расходы за сегодня", e.reports.Today, false)

	case chat.LabelWeek, chat.LabelStatsWeek:
		return e.periodReply(ctx, msg.UserID, "📆 Расходы за неделю", e.reports.Week, true)

	case chat.LabelMonth: // shared by the main and statistics menus
		return e.periodReply(ctx, msg.UserID, "📈 Расходы за текущий месяц", e.reports.Month, true)

	case chat.LabelAllExpenses:
		return e.itemizedReply(ctx, msg.UserID, "📋 Все расходы", e.reports.All)

	case chat.LabelLargest:
		return e.itemizedReply(ctx, msg.UserID, "💰 Самые крупные расходы", e.reports.Largest)

	case chat.LabelByDate:
		s.State = StateAwaitingDateRange
		return chat.Reply{Text: promptDateRange, Options: chat.BackOnly()}, nil

	case chat.LabelByCategory:
		s.State = StateAwaitingCategoryFilter
		return chat.Reply{Text: promptCategoryFilter, Options: chat.CategoryFilterMenu(e.categoryOptions(ctx))}, nil

	case chat.LabelSettings:
		return chat.Reply{Text: settingsText, Options: chat.SettingsMenu()}, nil

	case chat.LabelProfile:
		return e.profileReply(ctx, msg.UserID)

	case chat.TokenBack:
		return chat.Reply{Text: msgMainMenu, Options: chat.MainMenu()}, nil
	}

	return e.onFreeText(ctx, msg.UserID, msg.Text)
}

// onFreeText handles idle input that matched no menu label.
func (e *Engine) onFreeText(ctx context.Context, userID int64, text string) (chat.Reply, error) {
	c := Classify(text)
	switch c.Kind {
	case KindCurrentMonth:
		return e.periodReply(ctx, userID, "📈 Расходы за текущий месяц", e.reports.Month, true)

	case KindDateRange:
		rep, err := e.reports.Range(ctx, userID, c.Start, c.End)
		if err != nil {
			return chat.Reply{Text: msgQueryFailure, Options: chat.MainMenu()},
				fmt.Errorf("range report: %w", err)
		}
		title := fmt.Sprintf("📅 Расходы за период %s-%s",
			c.Start.Format("02.01.2006"), c.End.Format("02.01.2006"))
		return chat.Reply{Text: renderSummary(title, rep.Summary, true), Options: chat.MainMenu()}, nil

	case KindCategoryFilter:
		return e.categoryReply(ctx, userID, core.StripGlyph(text))
	}

	return chat.Reply{Text: msgUnrecognized, Options: chat.MainMenu()}, nil
}

// onAmount validates the amount step. Parse failures re-prompt without
// limit; back cancels the whole entry.
func (e *Engine) onAmount(ctx context.Context, s *Session, text string) chat.Reply {
	if text == chat.TokenBack {
		s.Reset()
		return chat.Reply{Text: msgCancelled, Options: chat.MainMenu()}
	}

	amount, err := core.ParseAmount(text)
	if err != nil {
		if looksNumeric(text) {
			return chat.Reply{Text: msgAmountPositive, Options: chat.BackOnly()}
		}
		return chat.Reply{Text: msgBadAmount, Options: chat.BackOnly()}
	}

	s.Draft.Amount = amount
	s.Draft.AmountSet = true
	s.State = StateAwaitingCategory
	return chat.Reply{Text: promptCategory, Options: chat.CategoryMenu(e.categoryOptions(ctx))}
}

// looksNumeric distinguishes "entered a number that failed validation"
// from "entered something that is not a number", purely to pick the more
// helpful re-prompt.
func looksNumeric(text string) bool {
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',', r == '-', r == '+', r == ' ':
		default:
			return false
		}
	}
	return len(text) > 0
}

// onCategory accepts any text as the category after stripping the leading
// display glyph; back returns to the amount step.
func (e *Engine) onCategory(s *Session, text string) chat.Reply {
	if text == chat.TokenBack {
		s.State = StateAwaitingAmount
		return chat.Reply{Text: promptAmount, Options: chat.BackOnly()}
	}

	s.Draft.Category = core.StripGlyph(text)
	s.Draft.CategorySet = true
	s.State = StateAwaitingDescription
	return chat.Reply{Text: promptDescription, Options: chat.DescriptionMenu()}
}

// onDescription is the commit point: the collected triple becomes a
// persisted record, or nothing does.
func (e *Engine) onDescription(ctx context.Context, s *Session, userID int64, text string) (chat.Reply, error) {
	switch text {
	case chat.TokenBack:
		s.Draft.Category = ""
		s.Draft.CategorySet = false
		s.State = StateAwaitingCategory
		return chat.Reply{Text: promptCategory, Options: chat.CategoryMenu(e.categoryOptions(ctx))}, nil
	case chat.TokenSkip:
		text = ""
	}

	rec, err := e.store.CreateExpense(ctx, userID, s.Draft.Amount, s.Draft.Category, text)
	if err != nil {
		if errors.Is(err, core.ErrInvalidAmount) || errors.Is(err, core.ErrEmptyCategory) {
			// Degenerate draft (e.g. a category stripped down to nothing):
			// return to the category step instead of surfacing a technical
			// error.
			s.Draft.Category = ""
			s.Draft.CategorySet = false
			s.State = StateAwaitingCategory
			return chat.Reply{Text: promptCategory, Options: chat.CategoryMenu(e.categoryOptions(ctx))}, nil
		}
		// Session keeps its pre-call state so the user can retry the same
		// input; data loss must be visible, not swallowed.
		return chat.Reply{Text: msgStoreFailure, Options: chat.DescriptionMenu()},
			fmt.Errorf("commit expense: %w", err)
	}

	if e.publisher != nil {
		if err := e.publisher.PublishExpenseRecorded(ctx, rec); err != nil {
			slog.ErrorContext(ctx, "Failed to publish expense event",
				"id", rec.ID, "user_id", rec.UserID, "error", err)
		}
	}

	s.Reset()
	return chat.Reply{Text: committedText(rec), Options: chat.MainMenu()}, nil
}

// onDateRange resolves the custom-period query flow.
func (e *Engine) onDateRange(ctx context.Context, s *Session, userID int64, text string) (chat.Reply, error) {
	if text == chat.TokenBack {
		s.Reset()
		return chat.Reply{Text: msgDetailMenu, Options: chat.DetailMenu()}, nil
	}

	c := Classify(text)
	switch c.Kind {
	case KindCurrentMonth:
		s.Reset()
		return e.periodReply(ctx, userID, "📈 Расходы за текущий месяц", e.reports.Month, true)
	case KindDateRange:
		rep, err := e.reports.Range(ctx, userID, c.Start, c.End)
		if err != nil {
			return chat.Reply{Text: msgQueryFailure, Options: chat.BackOnly()},
				fmt.Errorf("range report: %w", err)
		}
		s.Reset()
		title := fmt.Sprintf("📅 Расходы за период %s-%s",
			c.Start.Format("02.01.2006"), c.End.Format("02.01.2006"))
		return chat.Reply{Text: renderSummary(title, rep.Summary, true), Options: chat.MainMenu()}, nil
	}

	return chat.Reply{Text: msgBadRange, Options: chat.BackOnly()}, nil
}

// onCategoryFilter resolves the by-category query flow.
func (e *Engine) onCategoryFilter(ctx context.Context, s *Session, userID int64, text string) (chat.Reply, error) {
	switch text {
	case chat.TokenBack:
		s.Reset()
		return chat.Reply{Text: msgDetailMenu, Options: chat.DetailMenu()}, nil
	case chat.LabelAllCategories:
		s.Reset()
		return e.itemizedReply(ctx, userID, "📋 Все расходы", e.reports.All)
	}

	category := core.StripGlyph(text)
	reply, err := e.categoryReply(ctx, userID, category)
	if err != nil {
		return reply, err
	}
	s.Reset()
	return reply, nil
}

// categoryOptions reads the seeded catalog for the category keyboards. The
// built-in catalog covers a failed store read; a broken keyboard would
// strand the user mid-flow.
func (e *Engine) categoryOptions(ctx context.Context) []core.Category {
	cats, err := e.store.Categories(ctx)
	if err != nil || len(cats) == 0 {
		slog.WarnContext(ctx, "Falling back to built-in category catalog", "error", err)
		return core.Catalog
	}
	return cats
}

func (e *Engine) periodReply(ctx context.Context, userID int64, title string,
	query func(context.Context, int64) (stats.Report, error), withPercents bool) (chat.Reply, error) {
	rep, err := query(ctx, userID)
	if err != nil {
		return chat.Reply{Text: msgQueryFailure, Options: chat.MainMenu()},
			fmt.Errorf("period report: %w", err)
	}
	return chat.Reply{Text: renderSummary(title, rep.Summary, withPercents), Options: chat.MainMenu()}, nil
}

func (e *Engine) itemizedReply(ctx context.Context, userID int64, title string,
	query func(context.Context, int64) (stats.Report, error)) (chat.Reply, error) {
	rep, err := query(ctx, userID)
	if err != nil {
		return chat.Reply{Text: msgQueryFailure, Options: chat.MainMenu()},
			fmt.Errorf("itemized report: %w", err)
	}
	return chat.Reply{Text: renderItemized(title, rep), Options: chat.MainMenu()}, nil
}

func (e *Engine) categoryReply(ctx context.Context, userID int64, category string) (chat.Reply, error) {
	rep, err := e.reports.ByCategory(ctx, userID, category)
	if err != nil {
		return chat.Reply{Text: msgQueryFailure, Options: chat.MainMenu()},
			fmt.Errorf("category report: %w", err)
	}
	return chat.Reply{Text: renderItemized("📁 Расходы: "+category, rep), Options: chat.MainMenu()}, nil
}

func (e *Engine) profileReply(ctx context.Context, userID int64) (chat.Reply, error) {
	u, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return chat.Reply{Text: msgQueryFailure, Options: chat.SettingsMenu()},
			fmt.Errorf("get user: %w", err)
	}
	text := fmt.Sprintf("👤 Профиль\n\nИмя: %s\nЗарегистрирован: %s",
		u.DisplayName, u.RegisteredAt.Format("02.01.2006"))
	return chat.Reply{Text: text, Options: chat.SettingsMenu()}, nil
}
