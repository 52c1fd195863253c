package session

import (
	"encoding/json"
	"math"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	mcperrors "github.com/crosswire-ai/mcp-go/pkg/errors"
	"github.com/crosswire-ai/mcp-go/pkg/protocol"
)

// pendingResult is what a waiter receives when its call settles.
type pendingResult struct {
	resp *protocol.Response
	err  error
}

// pendingCall is one in-flight outbound request. The channel is buffered so
// settling never blocks on the waiter.
type pendingCall struct {
	id     int64
	key    string
	method string
	ch     chan pendingResult
	timer  Timer
}

// pendingTable correlates outbound request ids with their waiters. Ids come
// from an atomic counter and are unique for the session's lifetime. An entry
// is removed from the table under the mutex before its result is delivered,
// so every call settles at most once: whichever of response, timeout,
// cancellation, or disconnect claims the entry first wins, and the rest find
// nothing.
type pendingTable struct {
	clock  Clock
	nextID atomic.Int64

	mu     sync.Mutex
	calls  map[string]*pendingCall
	closed bool
}

func newPendingTable(clock Clock) *pendingTable {
	return &pendingTable{
		clock: clock,
		calls: make(map[string]*pendingCall),
	}
}

// register allocates an id, inserts a waiter, and arms its deadline timer.
// A timeout of zero means no deadline. Registration fails once the table is
// closed, so no request can slip in behind a disconnect.
func (p *pendingTable) register(method string, timeout time.Duration) (*pendingCall, error) {
	id := p.nextID.Add(1)
	call := &pendingCall{
		id:     id,
		key:    strconv.FormatInt(id, 10),
		method: method,
		ch:     make(chan pendingResult, 1),
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, mcperrors.NewDisconnectedError()
	}
	p.calls[call.key] = call
	if timeout > 0 {
		call.timer = p.clock.AfterFunc(timeout, func() {
			p.reject(call.key, mcperrors.NewTimeoutError(method, timeout))
		})
	}
	return call, nil
}

// resolve settles the call matching the response id. It reports whether a
// waiter was found; a late or unknown id resolves nothing.
func (p *pendingTable) resolve(id interface{}, resp *protocol.Response) bool {
	key, ok := normalizeID(id)
	if !ok {
		return false
	}
	call := p.take(key)
	if call == nil {
		return false
	}
	call.ch <- pendingResult{resp: resp}
	return true
}

// reject settles the call with an error instead of a response.
func (p *pendingTable) reject(key string, err error) bool {
	call := p.take(key)
	if call == nil {
		return false
	}
	call.ch <- pendingResult{err: err}
	return true
}

// remove abandons a call without settling it. Used when the waiter stops
// waiting on its own (context cancellation, send failure); a late response
// for the id is then dropped.
func (p *pendingTable) remove(key string) bool {
	return p.take(key) != nil
}

// take claims the entry for key, stopping its timer. The caller becomes the
// sole owner of the call.
func (p *pendingTable) take(key string) *pendingCall {
	p.mu.Lock()
	call, ok := p.calls[key]
	if ok {
		delete(p.calls, key)
	}
	p.mu.Unlock()

	if !ok {
		return nil
	}
	if call.timer != nil {
		call.timer.Stop()
	}
	return call
}

// rejectAll settles every pending call with err and closes the table. Only
// the first invocation does anything; each waiter is rejected exactly once.
func (p *pendingTable) rejectAll(err error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	calls := p.calls
	p.calls = make(map[string]*pendingCall)
	p.mu.Unlock()

	for _, call := range calls {
		if call.timer != nil {
			call.timer.Stop()
		}
		call.ch <- pendingResult{err: err}
	}
}

// len reports the number of in-flight calls.
func (p *pendingTable) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// normalizeID maps a wire-echoed response id onto the table's string key
// space. Ids leave as JSON numbers and usually come back as float64 after
// decoding; integral floats must land on the same key the request
// registered under.
func normalizeID(id interface{}) (string, bool) {
	switch v := id.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case int64:
		return strconv.FormatInt(v, 10), true
	case int:
		return strconv.Itoa(v), true
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return strconv.FormatInt(int64(v), 10), true
		}
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case json.Number:
		return v.String(), true
	default:
		return "", false
	}
}
