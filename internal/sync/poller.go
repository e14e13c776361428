package sync

import (
	"context"
	"io"
	"log/slog"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/inboxdesk/internal/model"
	"github.com/nhle/inboxdesk/internal/store"
)

// SyncState represents the current state of the inbox refresh.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

// SyncStatus holds the refresh state of the inbox.
type SyncStatus struct {
	State    SyncState
	LastSync time.Time
	Error    error
}

// InboxResultMsg is a tea.Msg sent when an inbox refresh completes. On
// success the store already holds the new snapshot.
type InboxResultMsg struct {
	Count     int
	NewCount  int
	Error     error
	Completed time.Time
}

// InboxFetcher lists the unified inbox.
type InboxFetcher interface {
	ListEmails(ctx context.Context, folder string) ([]model.EmailSummary, error)
}

// Options configures a Poller.
type Options struct {
	Folder string
	// Interval between automatic refreshes. Zero disables them; the
	// inbox is then only fetched at start and on Refresh.
	Interval time.Duration
	// Timeout bounds a single fetch.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Poller refreshes the inbox snapshot in the background.
type Poller struct {
	fetcher   InboxFetcher
	store     store.Store
	opts      Options
	status    SyncStatus
	resultCh  chan InboxResultMsg
	triggerCh chan struct{}
	stopCh    chan struct{}
	mu        gosync.Mutex
	running   bool
}

// New creates a new Poller that writes into s.
func New(fetcher InboxFetcher, s store.Store, opts Options) *Poller {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Poller{
		fetcher:   fetcher,
		store:     s,
		opts:      opts,
		resultCh:  make(chan InboxResultMsg, 16),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// Start launches the polling goroutine and returns a command that
// delivers the first InboxResultMsg.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	go p.loop()

	return p.waitForResult()
}

// Stop halts the polling goroutine.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	close(p.stopCh)
	p.running = false
}

// Refresh requests an immediate fetch. Requests made while one is already
// queued are coalesced.
func (p *Poller) Refresh() tea.Cmd {
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
	return nil
}

// Status returns the current refresh status.
func (p *Poller) Status() SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Poller) loop() {
	var tick <-chan time.Time
	if p.opts.Interval > 0 {
		ticker := time.NewTicker(p.opts.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	p.fetchAndStore()

	for {
		select {
		case <-p.stopCh:
			return
		case <-tick:
			p.fetchAndStore()
		case <-p.triggerCh:
			p.fetchAndStore()
		}
	}
}

// fetchAndStore performs a single fetch, replaces the store snapshot and
// sends the outcome on the result channel.
func (p *Poller) fetchAndStore() {
	p.setStatus(SyncRunning, nil)

	ctx, cancel := context.WithTimeout(context.Background(), p.opts.Timeout)
	defer cancel()

	emails, err := p.fetcher.ListEmails(ctx, p.opts.Folder)
	if err != nil {
		p.opts.Logger.Warn("inbox refresh failed", "folder", p.opts.Folder, "error", err)
		p.setStatus(SyncError, err)
		p.sendResult(InboxResultMsg{Error: err, Completed: time.Now()})
		return
	}

	// Count entries not present in the previous snapshot. If it cannot
	// be read nothing is reported as new.
	previous, err := p.store.GetEmails(ctx, store.EmailFilter{})
	if err != nil {
		p.opts.Logger.Warn("reading previous inbox snapshot failed", "error", err)
		previous = nil
	}
	known := make(map[string]bool, len(previous))
	for _, e := range previous {
		known[emailKey(e)] = true
	}
	newCount := 0
	if len(previous) > 0 {
		for _, e := range emails {
			if !known[emailKey(e)] {
				newCount++
			}
		}
	}

	if err := p.store.ReplaceInbox(ctx, emails); err != nil {
		p.setStatus(SyncError, err)
		p.sendResult(InboxResultMsg{Error: err, Completed: time.Now()})
		return
	}

	p.opts.Logger.Debug("inbox refreshed", "folder", p.opts.Folder, "count", len(emails), "new", newCount)
	p.setStatus(SyncIdle, nil)
	p.sendResult(InboxResultMsg{
		Count:     len(emails),
		NewCount:  newCount,
		Completed: time.Now(),
	})
}

func emailKey(e model.EmailSummary) string {
	return string(e.Platform) + "/" + e.ID
}

func (p *Poller) setStatus(state SyncState, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.State = state
	p.status.Error = err
	if state == SyncIdle && err == nil {
		p.status.LastSync = time.Now()
	}
}

// sendResult sends an InboxResultMsg without blocking.
func (p *Poller) sendResult(msg InboxResultMsg) {
	select {
	case p.resultCh <- msg:
	default:
	}
}

func (p *Poller) waitForResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-p.resultCh
		if !ok {
			return nil
		}
		return result
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next refresh
// result. Call it after handling each InboxResultMsg to keep listening.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}
