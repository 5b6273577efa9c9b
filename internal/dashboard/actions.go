package dashboard

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/smarttransit/internal/model"
	"github.com/Veraticus/smarttransit/internal/monitor"
	"github.com/Veraticus/smarttransit/internal/report"
	"github.com/Veraticus/smarttransit/internal/service"
	"github.com/Veraticus/smarttransit/internal/storage"
	"github.com/Veraticus/smarttransit/internal/telegram"
)

// alertPreviewLength is how much of an alert is kept in the history line.
const alertPreviewLength = 50

// SendTest sends the connectivity test message.
func (a *App) SendTest(ctx context.Context) telegram.Result {
	result := a.dispatcher().SendTest(ctx)
	a.record(ctx, result, "🔄 Тестовое сообщение отправлено", "Тестовое сообщение отправлено в Telegram")
	return result
}

// SendStatistics collects and sends the system statistics.
func (a *App) SendStatistics(ctx context.Context) (model.Statistics, telegram.Result) {
	stats, result := a.dispatcher().SendStatistics(ctx)
	a.record(ctx, result, "📊 Статистика отправлена", "Статистика отправлена в Telegram")
	return stats, result
}

// SendAlert sends a free-form alert.
func (a *App) SendAlert(ctx context.Context, message string) telegram.Result {
	result := a.dispatcher().SendAlert(ctx, message)
	line := "🚨 Оповещение: " + storage.Truncate(message, alertPreviewLength)
	a.record(ctx, result, line, "Оповещение отправлено в Telegram")
	return result
}

// CheckStatus runs one status check immediately.
func (a *App) CheckStatus(ctx context.Context) monitor.Snapshot {
	if a.deps.Monitor == nil {
		return monitor.Snapshot{Status: monitor.StatusUnknown}
	}
	a.deps.Monitor.Check(ctx)
	return a.deps.Monitor.Snapshot()
}

// GenerateReport builds and stores a report of kind t.
func (a *App) GenerateReport(ctx context.Context, t report.Type) (model.Report, error) {
	gen := report.NewGenerator(a.deps.Client, a.deps.Reports, report.WithNotifier(a.deps.Notifier))
	return gen.Generate(ctx, t)
}

// DeleteReport removes a report from the local history.
func (a *App) DeleteReport(ctx context.Context, id string) error {
	if err := a.deps.Reports.Remove(ctx, id); err != nil {
		a.deps.Notifier.Notify(service.LevelError, fmt.Sprintf("Не удалось удалить отчет: %v", err))
		return err
	}
	a.deps.Notifier.Notify(service.LevelSuccess, "Отчет удален")
	return nil
}

func (a *App) dispatcher() *telegram.Dispatcher {
	return a.deps.Dispatcher
}

// record appends the outcome of a dispatch to the message history and
// notifies the operator.
func (a *App) record(ctx context.Context, result telegram.Result, sentLine, sentNotice string) {
	line, status := sentLine, storage.StatusSent
	if !result.Success {
		line, status = "❌ "+result.ErrorText(), storage.StatusFailed
		a.deps.Notifier.Notify(service.LevelError, "Ошибка: "+result.ErrorText())
	} else {
		a.deps.Notifier.Notify(service.LevelSuccess, sentNotice)
	}

	if _, err := a.deps.Messages.Append(ctx, line, status); err != nil {
		slog.Warn("Failed to record message", "error", err)
	}
}
