package report

import (
	"context"
	"time"

	"github.com/Veraticus/smarttransit/internal/model"
	"github.com/Veraticus/smarttransit/internal/storage"
)

// SeedSamples fills an empty report history with two example reports.
// It returns the number of reports added.
func SeedSamples(ctx context.Context, store *storage.ReportStore, now time.Time) (int, error) {
	if len(store.List()) > 0 {
		return 0, nil
	}

	samples := []model.Report{
		{
			Type:      string(Daily),
			Name:      "Суточный отчет по пассажиропотоку",
			Content:   "Пример суточного отчета с данными за сегодняшний день.",
			CreatedAt: now.Add(-24 * time.Hour),
			Status:    model.ReportCompleted,
			Size:      "1.2 KB",
		},
		{
			Type:      string(Weekly),
			Name:      "Недельный анализ работы транспорта",
			Content:   "Анализ работы за прошлую неделю с рекомендациями по оптимизации.",
			CreatedAt: now.Add(-7 * 24 * time.Hour),
			Status:    model.ReportCompleted,
			Size:      "2.5 KB",
		},
	}

	for i, r := range samples {
		if _, err := store.Add(ctx, r); err != nil {
			return i, err
		}
	}
	return len(samples), nil
}
