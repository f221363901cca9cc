package protocol

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/s-d-m/local-jira/internal/logging"
	"github.com/s-d-m/local-jira/internal/model"
	"github.com/s-d-m/local-jira/internal/render"
	"github.com/s-d-m/local-jira/internal/store"
	"github.com/s-d-m/local-jira/internal/sync"
)

// Dispatcher is the Request Dispatcher (F): it reads request frames
// from an input stream, spawns one goroutine per request, and
// serialises every reply line through a single output mutex.
type Dispatcher struct {
	store    store.Store
	synch    *sync.Synchroniser
	renderer *render.Adapter
	projects []string
	log      logging.Logger

	outMu sync.Mutex
	out   io.Writer

	mu          sync.Mutex
	inFlight    int
	draining    bool
	drainTokens []string

	cancel   context.CancelFunc
	exitOnce sync.Once
	exitCh   chan struct{}
}

// New creates a Dispatcher over s, synch and renderer, for the given
// configured project keys (used to resolve SYNCHRONISE_ALL's scope).
func New(s store.Store, synch *sync.Synchroniser, renderer *render.Adapter, projects []string, log logging.Logger) *Dispatcher {
	if log == nil {
		log = logging.NoOp()
	}
	return &Dispatcher{
		store:    s,
		synch:    synch,
		renderer: renderer,
		projects: projects,
		log:      log,
		exitCh:   make(chan struct{}),
	}
}

// Run reads request frames from in, writes reply frames to out, and
// forwards Synchroniser notifications as unsolicited "_" messages,
// until the client requests an exit, the input ends, or ctx is
// cancelled. When the input ends while EXIT_SERVER_AFTER_REQUESTS is
// draining, it waits for that exit to complete. It returns once the
// process may terminate cleanly.
func (d *Dispatcher) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.out = out

	go d.forwardNotifications(ctx)

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			d.handleLine(ctx, line)
			select {
			case <-d.exitCh:
				return
			default:
			}
		}
	}()

	select {
	case <-readDone:
		if d.isDraining() {
			select {
			case <-d.exitCh:
			case <-ctx.Done():
			}
		}
	case <-d.exitCh:
	case <-ctx.Done():
	}
	return nil
}

func (d *Dispatcher) handleLine(ctx context.Context, line string) {
	req, err := ParseRequest(line)
	if err != nil {
		d.log.Info("rejecting malformed request", "line", line, "reason", err.Error())
		d.writeLine(EncodeUnsolicitedError(err.Error()))
		return
	}

	switch req.Verb {
	case ExitServerNow:
		d.handleExitNow(req)
	case ExitServerAfterRequests:
		d.handleExitAfterRequests(req)
	default:
		if d.isDraining() {
			d.writeLine(EncodeError(req.Token, "server draining, no new requests accepted"))
			d.writeLine(EncodeFinished(req.Token))
			return
		}
		d.beginRequest()
		go func() {
			defer d.endRequest()
			d.writeLine(EncodeACK(req.Token))
			d.dispatch(ctx, req)
			d.writeLine(EncodeFinished(req.Token))
		}()
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, req Request) {
	switch req.Verb {
	case FetchTicket:
		d.handleFetchTicket(ctx, req)
	case FetchTicketList:
		d.handleFetchTicketList(ctx, req)
	case FetchTicketKeyValueFields:
		d.handleFetchFields(ctx, req)
	case FetchAttachmentListForTicket:
		d.handleFetchAttachmentList(ctx, req)
	case FetchAttachmentContent:
		d.handleFetchAttachmentContent(ctx, req)
	case SynchroniseTicket:
		d.handleSynchroniseTicket(ctx, req)
	case SynchroniseUpdated:
		d.handleSynchroniseUpdated(ctx, req)
	case SynchroniseAll:
		d.handleSynchroniseAll(ctx, req)
	default:
		d.writeLine(EncodeError(req.Token, fmt.Sprintf("unknown verb %s", req.Verb)))
	}
}

// --- exit handling ---

func (d *Dispatcher) isDraining() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.draining
}

func (d *Dispatcher) beginRequest() {
	d.mu.Lock()
	d.inFlight++
	d.mu.Unlock()
}

// endRequest decrements the in-flight count and, if draining and the
// count has just reached zero, emits FINISHED for every queued
// EXIT_SERVER_AFTER_REQUESTS token and lets the process terminate.
func (d *Dispatcher) endRequest() {
	d.mu.Lock()
	d.inFlight--
	var tokens []string
	if d.draining && d.inFlight == 0 {
		tokens = d.drainTokens
		d.drainTokens = nil
	}
	d.mu.Unlock()

	for _, t := range tokens {
		d.writeLine(EncodeFinished(t))
	}
	if len(tokens) > 0 {
		d.triggerExit()
	}
}

func (d *Dispatcher) handleExitAfterRequests(req Request) {
	d.writeLine(EncodeACK(req.Token))

	d.mu.Lock()
	d.draining = true
	d.drainTokens = append(d.drainTokens, req.Token)
	immediate := d.inFlight == 0
	var tokens []string
	if immediate {
		tokens = d.drainTokens
		d.drainTokens = nil
	}
	d.mu.Unlock()

	for _, t := range tokens {
		d.writeLine(EncodeFinished(t))
	}
	if immediate {
		d.triggerExit()
	}
}

func (d *Dispatcher) handleExitNow(req Request) {
	d.log.Info("exiting immediately, cancelling in-flight requests")
	d.writeLine(EncodeACK(req.Token))
	if d.cancel != nil {
		d.cancel()
	}
	for {
		d.mu.Lock()
		inFlight := d.inFlight
		d.mu.Unlock()
		if inFlight == 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	d.writeLine(EncodeFinished(req.Token))
	d.triggerExit()
}

func (d *Dispatcher) triggerExit() {
	d.exitOnce.Do(func() { close(d.exitCh) })
}

// --- output ---

func (d *Dispatcher) writeLine(line string) {
	d.outMu.Lock()
	defer d.outMu.Unlock()
	fmt.Fprintln(d.out, line)
}

func (d *Dispatcher) forwardNotifications(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-d.synch.Notifications():
			if !ok {
				return
			}
			kind := "updated_issue"
			if n.Kind == sync.ChangeNew {
				kind = "new_issue"
			}
			d.writeLine(EncodeResult(UnsolicitedToken, kind+" "+n.IssueKey))
		}
	}
}

// --- handlers: fetch + synchronise-on-read ---

func (d *Dispatcher) handleFetchTicket(ctx context.Context, req Request) {
	key, format, err := parseKeyFormat(req.Params)
	if err != nil {
		d.writeLine(EncodeError(req.Token, err.Error()))
		return
	}

	before, err := d.renderer.Render(ctx, key, format)
	if err != nil {
		d.writeLine(EncodeError(req.Token, err.Error()))
		return
	}
	d.writeLine(EncodeResult(req.Token, B64String(before)))

	if err := d.synch.RefreshIssue(ctx, key); err != nil {
		d.writeLine(EncodeError(req.Token, err.Error()))
		return
	}

	after, err := d.renderer.Render(ctx, key, format)
	if err != nil {
		d.writeLine(EncodeError(req.Token, err.Error()))
		return
	}
	if after != before {
		d.writeLine(EncodeResult(req.Token, B64String(after)))
	}
}

func (d *Dispatcher) handleFetchTicketList(ctx context.Context, req Request) {
	before, err := d.listAllKeys(ctx)
	if err != nil {
		d.writeLine(EncodeError(req.Token, err.Error()))
		return
	}
	d.writeLine(EncodeResult(req.Token, strings.Join(before, ",")))

	if err := d.synch.RefreshUpdated(ctx); err != nil {
		d.writeLine(EncodeError(req.Token, err.Error()))
		return
	}

	after, err := d.listAllKeys(ctx)
	if err != nil {
		d.writeLine(EncodeError(req.Token, err.Error()))
		return
	}
	if !sameStrings(before, after) {
		d.writeLine(EncodeResult(req.Token, strings.Join(after, ",")))
	}
}

func (d *Dispatcher) handleFetchFields(ctx context.Context, req Request) {
	if len(req.Params) != 1 || req.Params[0] == "" {
		d.writeLine(EncodeError(req.Token, "FETCH_TICKET_KEY_VALUE_FIELDS requires exactly one ticket key"))
		return
	}
	key := req.Params[0]

	before, err := d.store.GetFields(ctx, key)
	if err != nil {
		d.writeLine(EncodeError(req.Token, err.Error()))
		return
	}
	d.writeLine(EncodeResult(req.Token, encodeFieldBag(before)))

	if err := d.synch.RefreshIssue(ctx, key); err != nil {
		d.writeLine(EncodeError(req.Token, err.Error()))
		return
	}

	after, err := d.store.GetFields(ctx, key)
	if err != nil {
		d.writeLine(EncodeError(req.Token, err.Error()))
		return
	}
	if encodeFieldBag(before) != encodeFieldBag(after) {
		d.writeLine(EncodeResult(req.Token, encodeFieldBag(after)))
	}
}

func (d *Dispatcher) handleFetchAttachmentList(ctx context.Context, req Request) {
	if len(req.Params) != 1 || req.Params[0] == "" {
		d.writeLine(EncodeError(req.Token, "FETCH_ATTACHMENT_LIST_FOR_TICKET requires exactly one ticket key"))
		return
	}
	key := req.Params[0]

	before, err := d.store.ListAttachments(ctx, key)
	if err != nil {
		d.writeLine(EncodeError(req.Token, err.Error()))
		return
	}
	d.writeLine(EncodeResult(req.Token, encodeAttachmentList(before)))

	if err := d.synch.RefreshIssue(ctx, key); err != nil {
		d.writeLine(EncodeError(req.Token, err.Error()))
		return
	}

	after, err := d.store.ListAttachments(ctx, key)
	if err != nil {
		d.writeLine(EncodeError(req.Token, err.Error()))
		return
	}
	if encodeAttachmentList(before) != encodeAttachmentList(after) {
		d.writeLine(EncodeResult(req.Token, encodeAttachmentList(after)))
	}
}

func (d *Dispatcher) handleFetchAttachmentContent(ctx context.Context, req Request) {
	if len(req.Params) != 1 || req.Params[0] == "" {
		d.writeLine(EncodeError(req.Token, "FETCH_ATTACHMENT_CONTENT requires exactly one uuid"))
		return
	}
	uuid := req.Params[0]

	blob, err := d.synch.FetchAttachmentContent(ctx, uuid)
	if err != nil {
		d.writeLine(EncodeError(req.Token, err.Error()))
		return
	}
	d.writeLine(EncodeResult(req.Token, B64(blob)))
}

// --- handlers: synchronise ---

func (d *Dispatcher) handleSynchroniseTicket(ctx context.Context, req Request) {
	if len(req.Params) != 1 || req.Params[0] == "" {
		d.writeLine(EncodeError(req.Token, "SYNCHRONISE_TICKET requires exactly one ticket key"))
		return
	}
	d.writeLine(EncodeResult(req.Token, "synchronisation started"))
	if err := d.synch.RefreshIssue(ctx, req.Params[0]); err != nil {
		d.writeLine(EncodeError(req.Token, err.Error()))
		return
	}
	d.writeLine(EncodeResult(req.Token, "synchronisation finished"))
}

func (d *Dispatcher) handleSynchroniseUpdated(ctx context.Context, req Request) {
	d.writeLine(EncodeResult(req.Token, "synchronisation started"))
	if err := d.synch.RefreshUpdated(ctx); err != nil {
		d.writeLine(EncodeError(req.Token, err.Error()))
		return
	}
	d.writeLine(EncodeResult(req.Token, "synchronisation finished"))
}

func (d *Dispatcher) handleSynchroniseAll(ctx context.Context, req Request) {
	d.writeLine(EncodeResult(req.Token, "synchronisation started"))
	for _, project := range d.projects {
		if err := d.synch.FullIssueScan(ctx, project); err != nil {
			d.writeLine(EncodeError(req.Token, err.Error()))
			return
		}
	}
	d.writeLine(EncodeResult(req.Token, "synchronisation finished"))
}

// --- payload encoding helpers ---

func (d *Dispatcher) listAllKeys(ctx context.Context) ([]string, error) {
	summaries, err := d.store.ListIssueKeys(ctx, "")
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(summaries))
	for _, s := range summaries {
		keys = append(keys, s.Key)
	}
	sort.Strings(keys)
	return keys, nil
}

func sameStrings(a, b []string) bool {
	return strings.Join(a, ",") == strings.Join(b, ",")
}

// encodeFieldBag renders a FieldBag as "field1:b64(v1),field2:b64(v2),…"
// with keys sorted for a stable comparison between before/after snapshots.
func encodeFieldBag(bag store.FieldBag) string {
	keys := make([]string, 0, len(bag))
	for k := range bag {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+":"+B64String(bag[k]))
	}
	return strings.Join(parts, ",")
}

// encodeAttachmentList renders "uuid:b64(filename),…" sorted by uuid.
func encodeAttachmentList(attachments []model.Attachment) string {
	sorted := append([]model.Attachment(nil), attachments...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].UUID < sorted[j].UUID })

	parts := make([]string, 0, len(sorted))
	for _, a := range sorted {
		parts = append(parts, a.UUID+":"+B64String(a.Filename))
	}
	return strings.Join(parts, ",")
}

func parseKeyFormat(params []string) (key string, format model.Format, err error) {
	if len(params) != 2 || params[0] == "" || params[1] == "" {
		return "", "", fmt.Errorf("FETCH_TICKET requires <key>,<MARKDOWN|HTML>")
	}
	switch model.Format(params[1]) {
	case model.FormatMarkdown, model.FormatHTML:
		return params[0], model.Format(params[1]), nil
	default:
		return "", "", fmt.Errorf("unknown format %q", params[1])
	}
}
