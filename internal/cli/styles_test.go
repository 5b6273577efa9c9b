package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/smarttransit/internal/service"
)

func TestRenderTable(t *testing.T) {
	out := RenderTable([]string{"ID", "Модель"}, [][]string{
		{"1", "ПАЗ-3205"},
		{"22", "МАЗ-103"},
	})

	lines := strings.Split(out, "\n")
	assert.GreaterOrEqual(t, len(lines), 3)
	assert.Contains(t, out, "ПАЗ-3205")
	assert.Contains(t, out, "22")

	var rowLines []string
	for _, l := range lines {
		if strings.Contains(l, "ПАЗ-3205") || strings.Contains(l, "МАЗ-103") {
			rowLines = append(rowLines, l)
		}
	}
	if assert.Len(t, rowLines, 2) {
		assert.Equal(t, strings.Index(rowLines[0], "ПАЗ"), strings.Index(rowLines[1], "МАЗ"))
	}
}

func TestRenderTable_Empty(t *testing.T) {
	out := RenderTable([]string{"ID"}, nil)

	assert.Contains(t, out, "Нет данных")
}

func TestNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewNotifier(&buf)

	n.Notify(service.LevelSuccess, "Bus added")
	n.Notify(service.LevelError, "POST /buses failed")

	out := buf.String()
	assert.Contains(t, out, SuccessIcon+" Bus added")
	assert.Contains(t, out, ErrorIcon+" POST /buses failed")
	assert.Equal(t, 2, strings.Count(out, "\n"))
}

func TestFormatLevel_DefaultsToInfo(t *testing.T) {
	assert.Contains(t, FormatLevel(service.Level("debug"), "hello"), InfoIcon)
}
