package dialog

import (
	"fmt"
	"strings"

	"traty/internal/core"
	"traty/internal/stats"
)

// User-facing message texts. The transport sends them verbatim; option
// sets come from the chat package.
const (
	promptAmount         = "💵 Введи сумму расхода:"
	promptCategory       = "📁 Выбери категорию:"
	promptDescription    = "📝 Введи описание (или нажми «Пропустить»):"
	promptDateRange      = "📅 Введи период в виде 01.12.2024-15.12.2024 или «Месяц»:"
	promptCategoryFilter = "📁 Выбери категорию для фильтра:"

	msgMainMenu   = "Главное меню:"
	msgStatsMenu  = "📊 Выбери тип статистики:"
	msgDetailMenu = "📋 Выбери вид детализации:"

	msgCancelled      = "❌ Операция отменена"
	msgBadAmount      = "❌ Пожалуйста, введи корректную сумму (например: 150.50):"
	msgAmountPositive = "❌ Сумма должна быть положительной. Попробуй снова:"
	msgBadRange       = "❌ Неверный формат периода. Пример: 01.12.2024-15.12.2024 или «Месяц»:"
	msgUnrecognized   = "🤔 Не понял. Воспользуйся кнопками меню 👇"
	msgStoreFailure   = "⚠️ Не удалось сохранить расход. Попробуй ещё раз."
	msgQueryFailure   = "⚠️ Не удалось получить данные. Попробуй ещё раз."

	settingsText = "⚙️ Настройки\n\nЗдесь ты можешь настроить бота под себя"
)

func welcomeText(name string) string {
	return fmt.Sprintf(`👋 Привет, %s!

Я помогу вести учёт твоих расходов.

Возможности:
• 💸 Быстрое добавление расходов
• 📊 Статистика за день, неделю и месяц
• 📋 Детализация по категориям и периодам

Нажми «💸 Добавить расход», чтобы начать!`, name)
}

func helpText() string {
	return `ℹ️ Помощь

Основные кнопки:
• 💸 Добавить расход — пошаговая запись расхода
• 📊 Статистика — обзор расходов
• 📅 Сегодня / 📆 Неделя / 📈 Месяц — быстрые сводки

Как добавить расход:
1. Нажми «💸 Добавить расход»
2. Введи сумму
3. Выбери категорию
4. Добавь описание (необязательно)

Для начала работы нажми /start`
}

func formatMoney(m core.Money) string {
	return fmt.Sprintf("%.2f", m.Rubles())
}

func committedText(rec core.ExpenseRecord) string {
	desc := rec.Description
	if desc == "" {
		desc = "не указано"
	}
	return fmt.Sprintf(`✅ Расход добавлен!

💵 Сумма: %s руб.
📁 Категория: %s
📝 Описание: %s`, formatMoney(rec.Amount), rec.Category, desc)
}

// renderSummary renders a total with per-category breakdown, optionally
// annotating each category with its share of the total.
func renderSummary(title string, s core.Summary, withPercents bool) string {
	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "💵 Общая сумма: %s руб.\n", formatMoney(s.Total))

	if len(s.ByCategory) == 0 {
		b.WriteString("\n📝 Расходов нет")
		return b.String()
	}

	b.WriteString("\nПо категориям:\n")
	for _, ca := range s.ByCategory {
		if withPercents {
			fmt.Fprintf(&b, "• %s: %s руб. (%.1f%%)\n",
				ca.Name, formatMoney(ca.Amount), core.Percentage(ca.Amount, s.Total))
		} else {
			fmt.Fprintf(&b, "• %s: %s руб.\n", ca.Name, formatMoney(ca.Amount))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderItemized renders records one per line with a closing total.
func renderItemized(title string, rep stats.Report) string {
	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n\n")

	if len(rep.Records) == 0 {
		b.WriteString("📝 Расходов нет")
		return b.String()
	}

	for _, rec := range rep.Records {
		fmt.Fprintf(&b, "• %s — %s руб., %s",
			rec.CreatedAt.Format("02.01.2006"), formatMoney(rec.Amount), rec.Category)
		if rec.Description != "" {
			fmt.Fprintf(&b, " (%s)", rec.Description)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\n💵 Итого: %s руб.", formatMoney(rep.Summary.Total))
	return b.String()
}
