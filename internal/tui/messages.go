package tui

import (
	"time"

	"github.com/Veraticus/smarttransit/internal/dashboard"
	"github.com/Veraticus/smarttransit/internal/monitor"
	"github.com/Veraticus/smarttransit/internal/service"
)

// navigateMsg asks the model to switch sections.
type navigateMsg struct {
	section dashboard.Section
}

// sectionLoadedMsg carries a finished section load.
type sectionLoadedMsg struct {
	err  error
	view dashboard.View
	gen  uint64
}

// tickMsg drives the periodic dashboard refresh.
type tickMsg time.Time

// snapshotMsg carries a status monitor check.
type snapshotMsg monitor.Snapshot

// noticeMsg is a transient operator notification.
type noticeMsg struct {
	level   service.Level
	message string
}

// actionDoneMsg reports that a background action finished.
type actionDoneMsg struct{}
