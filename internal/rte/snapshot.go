package rte

import (
	"time"

	"github.com/roach88/scormrte/internal/datamodel"
	"github.com/roach88/scormrte/internal/errorstate"
)

// Snapshot is the persisted form of a session.
type Snapshot struct {
	SessionID  string              `json:"sessionId"`
	Timestamp  time.Time           `json:"timestamp"`
	Data       datamodel.Data      `json:"data"`
	ErrorState errorstate.Snapshot `json:"errorState"`
	LaunchMode string              `json:"launchMode"`
	BrowseMode bool                `json:"browseMode"`
}

// Snapshot captures the full data model and error register.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		SessionID:  e.sessionID,
		Timestamp:  e.clock.Now(),
		Data:       e.dm.AllData(),
		ErrorState: e.es.Snapshot(),
		LaunchMode: e.launch.Mode,
		BrowseMode: e.dm.InBrowseMode(),
	}
}
