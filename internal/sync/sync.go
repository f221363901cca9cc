// Package sync implements the Synchroniser (D): initial bootstrap,
// periodic and on-demand refresh against the remote Jira tenant, and
// the background scheduler that drives refresh_updated on a timer.
package sync

import (
	gosync "sync"
	"time"

	"github.com/google/uuid"

	"github.com/s-d-m/local-jira/internal/logging"
	"github.com/s-d-m/local-jira/internal/remote"
	"github.com/s-d-m/local-jira/internal/store"
)

// State is the Synchroniser's current activity, readable through
// Status. The Dispatcher does not read it and sends no status messages.
type State int

const (
	Idle State = iota
	Running
	Errored
)

// Status is the process-wide sync status (one tenant, so one record,
// unlike the prior per-source map).
type Status struct {
	State    State
	LastSync time.Time
	Err      error
	// RunID identifies the refresh cycle currently in flight (or the
	// last one that ran), so log lines from the same cycle can be
	// correlated even though refresh touches many issues concurrently.
	RunID string
}

// ChangeKind distinguishes an update to an already-known issue from a
// previously invisible issue newly entering the cache.
type ChangeKind int

const (
	ChangeUpdated ChangeKind = iota
	ChangeNew
)

// Notification is emitted on the Synchroniser's Notifications channel
// whenever applying a payload produced a non-empty diff, for the
// Request Dispatcher to forward as an unsolicited message.
type Notification struct {
	Kind     ChangeKind
	IssueKey string
}

// Synchroniser owns bootstrap, refresh_updated, refresh_issue and
// full_issue_scan against one configured remote tenant.
type Synchroniser struct {
	store    store.Store
	remote   *remote.Client
	projects []string
	log      logging.Logger

	notifications chan Notification
	triggerCh     chan struct{}
	stopCh        chan struct{}

	mu                 gosync.Mutex
	status             Status
	bootstrapped       bool
	maxAttachmentBytes int64
}

// defaultMaxAttachmentBytes is used when the caller never sets one via
// SetMaxAttachmentBytes; it mirrors internal/config's own default so a
// Synchroniser built without a loaded Config still behaves sanely.
const defaultMaxAttachmentBytes = 25 * 1024 * 1024

// New creates a Synchroniser targeting the given projects over client,
// backed by s.
func New(s store.Store, client *remote.Client, projects []string, log logging.Logger) *Synchroniser {
	if log == nil {
		log = logging.NoOp()
	}
	return &Synchroniser{
		store:              s,
		remote:             client,
		projects:           projects,
		log:                log,
		notifications:      make(chan Notification, 64),
		triggerCh:          make(chan struct{}, 1),
		stopCh:             make(chan struct{}),
		maxAttachmentBytes: defaultMaxAttachmentBytes,
	}
}

// SetMaxAttachmentBytes overrides the size cap FetchAttachmentContent
// enforces before downloading an attachment's body from the remote
// tenant. Call it once, before serving requests.
func (s *Synchroniser) SetMaxAttachmentBytes(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > 0 {
		s.maxAttachmentBytes = n
	}
}

// Notifications returns the channel the Request Dispatcher consumes to
// emit unsolicited messages.
func (s *Synchroniser) Notifications() <-chan Notification {
	return s.notifications
}

// Status returns a snapshot of the current sync status.
func (s *Synchroniser) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Synchroniser) setRunning() {
	runID := uuid.NewString()
	s.mu.Lock()
	s.status = Status{State: Running, LastSync: s.status.LastSync, RunID: runID}
	s.mu.Unlock()
	s.log.Info("synchronisation run starting", "run_id", runID)
}

func (s *Synchroniser) setIdle() {
	s.mu.Lock()
	s.status = Status{State: Idle, LastSync: time.Now(), RunID: s.status.RunID}
	s.mu.Unlock()
}

func (s *Synchroniser) setErrored(err error) {
	s.mu.Lock()
	runID := s.status.RunID
	s.status = Status{State: Errored, LastSync: s.status.LastSync, Err: err, RunID: runID}
	s.mu.Unlock()
	s.log.Error(err, "synchronisation attempt failed", "run_id", runID)
}

func (s *Synchroniser) notify(n Notification) {
	select {
	case s.notifications <- n:
	default:
		s.log.Info("dropping notification, channel full", "kind", n.Kind, "issue", n.IssueKey)
	}
}
