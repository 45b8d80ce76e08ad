// Package client consumes a job's progress stream and survives transient
// network failures without reconnecting after the job is done.
package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type State string

const (
	StateIdle         State = "idle"
	StateConnecting   State = "connecting"
	StateOpen         State = "open"
	StateReconnecting State = "reconnecting"
	StateClosed       State = "closed" // sticky, nothing leaves it
)

// errStreamDone marks a read loop that ended because a terminal event was
// handled, as opposed to a transport failure.
var errStreamDone = errors.New("stream finished")

type Options struct {
	HTTPClient *http.Client    // no Timeout; the stream is long-lived
	Backoff    []time.Duration // reconnect delay sequence, default 1,2,4,8,10,10s
	MaxRetries int             // consecutive transport errors tolerated, default 6
	Logger     *zerolog.Logger
}

// StreamClient subscribes to one job's progress stream. Exactly one
// connection attempt is in flight at a time; reconnects are scheduled on a
// retained, cancellable timer so a stale timer can never fire after the
// session has logically ended.
type StreamClient struct {
	baseURL string
	jobID   string
	httpc   *http.Client
	backoff []time.Duration
	maxTry  int
	log     zerolog.Logger

	mu           sync.Mutex
	state        State
	jobCompleted bool // sticky: set on complete/error event, never reset
	destroyed    bool // sticky: set by Destroy
	attempts     int
	timer        *time.Timer // pending reconnect, nil when none
	cancel       context.CancelFunc
	cb           Callbacks

	doneOnce sync.Once
	done     chan struct{}

	jitter func() time.Duration // overridable in tests
}

func New(baseURL, jobID string, cb Callbacks, opts Options) *StreamClient {
	httpc := opts.HTTPClient
	if httpc == nil {
		httpc = &http.Client{}
	}
	backoff := opts.Backoff
	if len(backoff) == 0 {
		backoff = defaultBackoff
	}
	maxTry := opts.MaxRetries
	if maxTry <= 0 {
		maxTry = len(backoff)
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("component", "StreamClient").Str("job_id", jobID).Logger()
	}
	return &StreamClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		jobID:   jobID,
		httpc:   httpc,
		backoff: backoff,
		maxTry:  maxTry,
		log:     logger,
		state:   StateIdle,
		cb:      cb,
		done:    make(chan struct{}),
		jitter: func() time.Duration {
			// Small random jitter avoids synchronized retry storms.
			return time.Duration(rand.Int63n(int64(200 * time.Millisecond)))
		},
	}
}

// Start opens the subscription asynchronously.
func (c *StreamClient) Start() {
	go c.connect()
}

// Done is closed once the client reaches the closed state for any reason.
func (c *StreamClient) Done() <-chan struct{} { return c.done }

func (c *StreamClient) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Destroy tears the client down: flags first, then the pending timer, then
// the handlers, then the connection. Late-firing events find nothing to
// trigger.
func (c *StreamClient) Destroy() {
	c.mu.Lock()
	c.destroyed = true
	c.clearTimerLocked()
	c.cb = Callbacks{}
	cancel := c.cancel
	c.state = StateClosed
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.closeDone()
}

// connect dials the stream and runs the read loop. Every path that can
// trigger a connection attempt re-checks the sticky flags first.
func (c *StreamClient) connect() {
	c.mu.Lock()
	if c.jobCompleted || c.destroyed {
		c.mu.Unlock()
		return
	}
	c.state = StateConnecting
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.mu.Unlock()

	url := fmt.Sprintf("%s/jobs/%s/stream", c.baseURL, c.jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.transportError(err)
		return
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.transportError(err)
		return
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		c.transportError(fmt.Errorf("unexpected status %s", resp.Status))
		return
	}

	c.mu.Lock()
	if c.jobCompleted || c.destroyed {
		c.mu.Unlock()
		resp.Body.Close()
		return
	}
	c.state = StateOpen
	c.attempts = 0 // a successful connection resets the backoff sequence
	c.mu.Unlock()
	c.log.Debug().Msg("stream connected")

	err = c.readLoop(resp.Body)
	resp.Body.Close()
	if errors.Is(err, errStreamDone) {
		return
	}
	c.transportError(err)
}

// readLoop parses the event stream: "event:" and "data:" lines form an
// event, a blank line dispatches it, comment lines are dropped.
func (c *StreamClient) readLoop(body io.Reader) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 4096), 256*1024)

	var event string
	var data strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if event != "" || data.Len() > 0 {
				if done := c.dispatch(event, data.String()); done {
					return errStreamDone
				}
			}
			event = ""
			data.Reset()
		case strings.HasPrefix(line, ":"):
			// heartbeat comment, non-data
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return io.ErrUnexpectedEOF
}

// dispatch handles one parsed event and reports whether it was terminal.
func (c *StreamClient) dispatch(event, data string) bool {
	c.mu.Lock()
	if c.jobCompleted || c.destroyed {
		c.mu.Unlock()
		return true
	}
	cb := c.cb
	c.mu.Unlock()

	switch event {
	case "open":
		if cb.OnOpen != nil {
			cb.OnOpen(c.jobID)
		}
	case "progress":
		var ev ProgressEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			c.log.Warn().Err(err).Msg("bad progress payload")
			return false
		}
		if cb.OnProgress != nil {
			cb.OnProgress(ev)
		}
	case "complete":
		var ev CompleteEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			c.log.Warn().Err(err).Msg("bad complete payload")
			ev = CompleteEvent{Status: "succeeded", Progress: 100}
		}
		c.finish()
		if cb.OnComplete != nil {
			cb.OnComplete(ev)
		}
		return true
	case "error":
		var ev ErrorEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			c.log.Warn().Err(err).Msg("bad error payload")
			ev = ErrorEvent{Status: "failed", ErrorCode: "unknown"}
		}
		c.finish()
		if cb.OnError != nil {
			cb.OnError(ev)
		}
		return true
	default:
		c.log.Debug().Str("event", event).Msg("ignoring unknown event")
	}
	return false
}

// finish marks the job done. The pending reconnect timer is cleared before
// the connection is closed; the other order loses a race where an already
// scheduled reconnect reopens a finished job.
func (c *StreamClient) finish() {
	c.mu.Lock()
	c.jobCompleted = true
	c.clearTimerLocked()
	cancel := c.cancel
	c.state = StateClosed
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.closeDone()
}

// transportError handles a low-level connection problem: a drop, a dial
// failure, an unexpected status. There is no payload to parse. Once the job
// is completed or the client destroyed these are ignored entirely.
func (c *StreamClient) transportError(err error) {
	c.mu.Lock()
	if c.jobCompleted || c.destroyed {
		c.mu.Unlock()
		return
	}

	if c.attempts >= c.maxTry {
		cb := c.cb
		c.state = StateClosed
		c.mu.Unlock()
		c.log.Warn().Err(err).Msg("stream retries exhausted")
		if cb.OnConnectionLost != nil {
			cb.OnConnectionLost(err)
		}
		c.closeDone()
		return
	}

	delay := backoffDelay(c.attempts, c.backoff) + c.jitter()
	c.attempts++
	c.state = StateReconnecting
	c.timer = time.AfterFunc(delay, func() {
		// Re-check at the top of the scheduled callback itself: the job may
		// have finished while the timer was pending.
		c.mu.Lock()
		c.timer = nil
		if c.jobCompleted || c.destroyed {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
		c.connect()
	})
	attempt := c.attempts
	c.mu.Unlock()

	c.log.Debug().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("stream reconnect scheduled")
}

func (c *StreamClient) clearTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *StreamClient) closeDone() {
	c.doneOnce.Do(func() { close(c.done) })
}
