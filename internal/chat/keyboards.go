package chat

import "traty/internal/core"

// Menu labels and universal tokens. These are the only string literals the
// dialogue logic matches on; everything else is free text.
const (
	LabelAddExpense = "💸 Добавить расход"
	LabelStatistics = "📊 Статистика"
	LabelToday      = "📅 Сегодня"
	LabelWeek       = "📆 Неделя"
	LabelMonth      = "📈 Месяц"
	LabelSettings   = "⚙️ Настройки"
	LabelHelp       = "ℹ️ Помощь"

	LabelStatsToday = "📊 Сегодня"
	LabelStatsWeek  = "📅 Неделя"
	// The statistics menu reuses the main-menu month label verbatim, so the
	// dispatch needs only one case for it.
	LabelStatsMonth  = LabelMonth
	LabelStatsDetail = "📋 Детализация"

	LabelAllExpenses = "📋 Все расходы"
	LabelByDate      = "📅 По дате"
	LabelByCategory  = "📁 По категории"
	LabelLargest     = "💰 Самые крупные"
	LabelBackToStats = "↩️ Назад в статистику"

	LabelAllCategories = "📋 Все категории"

	LabelProfile = "👤 Мой профиль"

	TokenBack = "↩️ Назад"
	TokenSkip = "Пропустить"

	// KeywordCurrentMonth is the free-text shortcut for a current-month
	// date period, compared case-insensitively.
	KeywordCurrentMonth = "Месяц"

	CommandStart = "/start"
	CommandHelp  = "/help"
)

// MainMenu is the root keyboard.
func MainMenu() [][]string {
	return [][]string{
		{LabelAddExpense, LabelStatistics},
		{LabelToday, LabelWeek},
		{LabelMonth, LabelSettings},
		{LabelHelp},
	}
}

// StatisticsMenu offers the aggregate views plus the itemized detail menu.
func StatisticsMenu() [][]string {
	return [][]string{
		{LabelStatsToday, LabelStatsWeek},
		{LabelStatsMonth, LabelStatsDetail},
		{TokenBack},
	}
}

// DetailMenu offers the itemized views.
func DetailMenu() [][]string {
	return [][]string{
		{LabelAllExpenses, LabelByDate},
		{LabelByCategory, LabelLargest},
		{LabelBackToStats},
	}
}

// CategoryMenu lays out the category catalog three per row, glyph first.
func CategoryMenu(cats []core.Category) [][]string {
	return categoryRows(cats, TokenBack)
}

// CategoryFilterMenu is the catalog plus the all-categories escape.
func CategoryFilterMenu(cats []core.Category) [][]string {
	return categoryRows(cats, LabelAllCategories, TokenBack)
}

func categoryRows(cats []core.Category, tail ...string) [][]string {
	var rows [][]string
	row := make([]string, 0, 3)
	for _, c := range cats {
		row = append(row, c.Label())
		if len(row) == 3 {
			rows = append(rows, row)
			row = make([]string, 0, 3)
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return append(rows, tail)
}

// DescriptionMenu offers skip and back while a description is awaited.
func DescriptionMenu() [][]string {
	return [][]string{{TokenSkip}, {TokenBack}}
}

// BackOnly is the single-row back keyboard.
func BackOnly() [][]string {
	return [][]string{{TokenBack}}
}

// SettingsMenu is the settings screen keyboard.
func SettingsMenu() [][]string {
	return [][]string{
		{LabelProfile, "📊 Лимиты"},
		{"🔔 Уведомления", TokenBack},
	}
}
