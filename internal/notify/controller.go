package notify

import (
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Category tags a notification for presentation. Callers may define their own.
type Category string

const (
	CategorySuccess Category = "success"
	CategoryDanger  Category = "danger"
	CategoryWarning Category = "warning"
	CategoryInfo    Category = "info"
)

// DefaultDuration is how long a notification stays visible.
const DefaultDuration = 3 * time.Second

// Notification is a single transient message.
type Notification struct {
	Text      string
	Category  Category
	CreatedAt time.Time
}

// State of the controller.
type State int

const (
	Idle State = iota
	Visible
)

func (s State) String() string {
	if s == Visible {
		return "visible"
	}
	return "idle"
}

// Timer is the subset of *time.Timer the controller needs.
type Timer interface {
	Stop() bool
}

// AfterFunc arms f to run once after d.
type AfterFunc func(d time.Duration, f func()) Timer

// Listener receives every state change. visible is false when the controller
// went idle, in which case n is the zero Notification.
type Listener func(n Notification, visible bool)

// Controller owns the single notification slot and its dismiss timer.
type Controller struct {
	mu        sync.Mutex
	duration  time.Duration
	afterFunc AfterFunc
	now       func() time.Time
	logger    *zap.Logger

	current Notification
	visible bool
	timer   Timer
	gen     uint64

	listeners map[int]Listener
	nextID    int
}

// Option configures a Controller.
type Option func(*Controller)

// WithDuration overrides the auto-dismiss delay. Non-positive values keep the default.
func WithDuration(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.duration = d
		}
	}
}

// WithAfterFunc replaces time.AfterFunc, mainly for tests.
func WithAfterFunc(fn AfterFunc) Option {
	return func(c *Controller) {
		if fn != nil {
			c.afterFunc = fn
		}
	}
}

// WithClock replaces time.Now for CreatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger used for flash tracing.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewController builds an idle controller.
func NewController(opts ...Option) *Controller {
	c := &Controller{
		duration: DefaultDuration,
		afterFunc: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
		now:       time.Now,
		logger:    zap.NewNop(),
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Show replaces whatever is displayed with text and re-arms the dismiss
// timer. Empty text behaves like Clear.
func (c *Controller) Show(text string, category Category) {
	if strings.TrimSpace(text) == "" {
		c.Clear()
		return
	}

	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.stopTimerLocked()
	c.current = Notification{Text: text, Category: category, CreatedAt: c.now()}
	c.visible = true
	c.timer = c.afterFunc(c.duration, func() { c.expire(gen) })
	n := c.current
	listeners := c.listenersLocked()
	c.mu.Unlock()

	for _, l := range listeners {
		l(n, true)
	}
}

// Flash mirrors Show with a plain string category and traces the message.
func (c *Controller) Flash(message, category string) {
	c.logger.Debug("flash", zap.String("category", category), zap.String("message", message))
	c.Show(message, Category(category))
}

// Clear dismisses the current notification. Calling it while idle is a no-op.
func (c *Controller) Clear() {
	c.mu.Lock()
	if !c.visible {
		c.mu.Unlock()
		return
	}
	c.gen++
	c.stopTimerLocked()
	c.current = Notification{}
	c.visible = false
	listeners := c.listenersLocked()
	c.mu.Unlock()

	for _, l := range listeners {
		l(Notification{}, false)
	}
}

// Current returns the visible notification, if any.
func (c *Controller) Current() (Notification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current, c.visible
}

// State reports Idle or Visible.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.visible {
		return Visible
	}
	return Idle
}

// Subscribe registers l for state changes and returns a function removing it.
func (c *Controller) Subscribe(l Listener) (cancel func()) {
	if l == nil {
		return func() {}
	}
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = l
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// expire runs from the timer. A stale generation means the notification it
// was armed for has already been replaced or cleared.
func (c *Controller) expire(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || !c.visible {
		c.mu.Unlock()
		return
	}
	c.gen++
	c.timer = nil
	c.current = Notification{}
	c.visible = false
	listeners := c.listenersLocked()
	c.mu.Unlock()

	for _, l := range listeners {
		l(Notification{}, false)
	}
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) listenersLocked() []Listener {
	if len(c.listeners) == 0 {
		return nil
	}
	ids := make([]int, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]Listener, len(ids))
	for i, id := range ids {
		out[i] = c.listeners[id]
	}
	return out
}
