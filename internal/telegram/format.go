package telegram

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/smarttransit/internal/model"
)

// Message texts sent to the chat.
const (
	DefaultTestMessage = "Тестовое сообщение от системы SmartTransit"
	HealthCheckMessage = "🔧 Проверка связи от системы SmartTransit\nБот доступен и готов к работе!"
)

// DisplayTimeLayout is how timestamps are rendered in chat messages.
const DisplayTimeLayout = "02.01.2006, 15:04:05"

// FormatStatistics renders a statistics snapshot as an HTML chat message.
func FormatStatistics(stats model.Statistics, now time.Time) string {
	serverTime := stats.ServerTime
	if serverTime == "" {
		serverTime = now.Format(DisplayTimeLayout)
	}
	systemStatus := stats.SystemStatus
	if systemStatus == "" {
		systemStatus = "operational"
	}
	apiStatus := "⚠️ Тестовый режим"
	if stats.APIStatus == "online" {
		apiStatus = "✅ Онлайн"
	}

	var b strings.Builder
	b.WriteString("🚌 <b>Статистика системы SmartTransit</b>\n")
	fmt.Fprintf(&b, "📅 %s\n\n", serverTime)
	b.WriteString("📊 <b>Основные показатели:</b>\n")
	fmt.Fprintf(&b, "├─ Автобусов: %d\n", stats.Buses)
	fmt.Fprintf(&b, "├─ Остановок: %d\n", stats.Stops)
	fmt.Fprintf(&b, "├─ Пассажиров за день: %d\n", stats.PassengersToday)
	fmt.Fprintf(&b, "├─ Всего пассажиров: %d\n", stats.TotalPassengersToday)
	fmt.Fprintf(&b, "└─ Система: %s\n\n", systemStatus)
	fmt.Fprintf(&b, "📍 <b>Статус:</b> %s\n\n", apiStatus)
	b.WriteString("<i>Отправлено автоматически системой мониторинга</i>")
	return strings.TrimSpace(b.String())
}

// FormatTestMessage renders the connectivity test sent after a successful
// identity check.
func FormatTestMessage(bot model.BotProfile, now time.Time) string {
	return strings.TrimSpace(fmt.Sprintf(`
🚌 <b>Тестовое сообщение от SmartTransit</b>

✅ Система управления пассажиропотоком
📅 %s
🔧 Тест связи прошел успешно!

<i>Бот готов к работе и будет отправлять:</i>
• Уведомления о событиях
• Статистику работы
• Экстренные оповещения
• Отчеты и аналитику

<code>Бот: %s (@%s)</code>
`, now.Format(DisplayTimeLayout), bot.FirstName, bot.Username))
}
