package datamodel

import (
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

// DefaultBrowseTimeout is the browse-mode inactivity timeout.
const DefaultBrowseTimeout = 30 * time.Minute

// maxBrowseOperations bounds the browse operation log.
const maxBrowseOperations = 1000

// BrowseOptions configures CreateBrowseSessionData.
type BrowseOptions struct {
	// SessionID is reused as the browse session id when set.
	SessionID string

	// Timeout is the inactivity timeout. Zero means DefaultBrowseTimeout.
	Timeout time.Duration
}

// BrowseOperation is one entry of the browse operation log.
type BrowseOperation struct {
	Operation string    `json:"operation"`
	Element   string    `json:"element"`
	Timestamp time.Time `json:"timestamp"`
}

// BrowseSession is the non-persistent state of a browse-mode attempt.
type BrowseSession struct {
	ID           string            `json:"id"`
	StartTime    time.Time         `json:"startTime"`
	LastActivity time.Time         `json:"lastActivity"`
	Timeout      time.Duration     `json:"timeout"`
	TempData     map[string]string `json:"tempData"`
	Operations   []BrowseOperation `json:"operations"`
}

// ExpiresAt is when the session ends unless another operation arrives.
func (s *BrowseSession) ExpiresAt() time.Time {
	return s.LastActivity.Add(s.Timeout)
}

func (s *BrowseSession) clone() BrowseSession {
	out := *s
	out.TempData = maps.Clone(s.TempData)
	out.Operations = slices.Clone(s.Operations)
	return out
}

// CreateBrowseSessionData starts a browse session, replacing any existing
// one, and arms the inactivity timer.
func (m *DataModel) CreateBrowseSessionData(opts BrowseOptions) BrowseSession {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultBrowseTimeout
	}
	id := opts.SessionID
	if id == "" {
		id = "browse_" + uuid.NewString()
	}

	m.browseMu.Lock()
	defer m.browseMu.Unlock()

	if m.browseTimer != nil {
		m.browseTimer.Stop()
	}
	now := m.clock.Now()
	m.browse = &BrowseSession{
		ID:           id,
		StartTime:    now,
		LastActivity: now,
		Timeout:      timeout,
		TempData:     map[string]string{},
	}
	m.browseTimer = m.clock.AfterFunc(timeout, m.expireBrowseSession)

	m.logger.Info("browse session created", "browse_session", id, "timeout", timeout)
	return m.browse.clone()
}

// DestroyBrowseSessionData ends the browse session, if any.
func (m *DataModel) DestroyBrowseSessionData() {
	m.browseMu.Lock()
	defer m.browseMu.Unlock()

	if m.browseTimer != nil {
		m.browseTimer.Stop()
		m.browseTimer = nil
	}
	if m.browse != nil {
		m.logger.Info("browse session destroyed", "browse_session", m.browse.ID)
		m.browse = nil
	}
}

// BrowseSession returns a copy of the active browse session.
func (m *DataModel) BrowseSession() (BrowseSession, bool) {
	m.browseMu.Lock()
	defer m.browseMu.Unlock()

	if m.browse == nil {
		return BrowseSession{}, false
	}
	return m.browse.clone(), true
}

// InBrowseMode reports whether the attempt runs in browse mode.
func (m *DataModel) InBrowseMode() bool {
	m.browseMu.Lock()
	active := m.browse != nil
	m.browseMu.Unlock()
	return active || m.values["cmi.mode"] == "browse"
}

// ShouldPersistData reports whether the attempt may be persisted.
func (m *DataModel) ShouldPersistData() bool {
	return !m.memoryOnly && !m.InBrowseMode()
}

// touchBrowse logs an operation and restarts the inactivity timer.
func (m *DataModel) touchBrowse(op, element string) {
	m.browseMu.Lock()
	defer m.browseMu.Unlock()

	if m.browse == nil {
		return
	}
	now := m.clock.Now()
	m.browse.LastActivity = now
	m.browse.Operations = append(m.browse.Operations, BrowseOperation{Operation: op, Element: element, Timestamp: now})
	if n := len(m.browse.Operations); n > maxBrowseOperations {
		m.browse.Operations = slices.Delete(m.browse.Operations, 0, n-maxBrowseOperations)
	}
	if m.browseTimer != nil {
		m.browseTimer.Reset(m.browse.Timeout)
	}
}

func (m *DataModel) recordBrowseWrite(element, value string) {
	m.browseMu.Lock()
	defer m.browseMu.Unlock()

	if m.browse != nil {
		m.browse.TempData[element] = value
	}
}

// expireBrowseSession runs on the timer goroutine. A timer that fired while
// touchBrowse held the lock finds a later deadline and leaves the session
// alone; the timer touchBrowse re-armed handles the real expiry.
func (m *DataModel) expireBrowseSession() {
	m.browseMu.Lock()
	defer m.browseMu.Unlock()

	if m.browse == nil {
		return
	}
	if m.clock.Now().Before(m.browse.ExpiresAt()) {
		return
	}
	m.logger.Info("browse session expired after inactivity",
		"browse_session", m.browse.ID,
		"idle", m.clock.Now().Sub(m.browse.LastActivity),
	)
	m.browse = nil
	m.browseTimer = nil
}
