package notify

import (
	"sync"
	"time"

	"go-jobscout/internal/models"
)

// DefaultDeliveryTimeout is how long the jobs batch and the final event wait
// for a reader before the Channel gives up on it.
const DefaultDeliveryTimeout = 10 * time.Second

// Channel delivers notifications as Events on a buffered channel. Status and
// progress events are dropped when the buffer is full. The jobs batch and the
// final event wait for a reader up to the delivery timeout; a Channel whose
// reader misses that deadline is closed.
//
// The events channel itself is never closed; readers select on Done.
type Channel struct {
	events chan Event
	done   chan struct{}
	once   sync.Once
	now    func() time.Time
	wait   time.Duration

	mu      sync.Mutex
	runID   string
	dropped int
}

func NewChannel(buffer int) *Channel {
	if buffer < 0 {
		buffer = 0
	}
	return &Channel{
		events: make(chan Event, buffer),
		done:   make(chan struct{}),
		now:    time.Now,
		wait:   DefaultDeliveryTimeout,
	}
}

// SetDeliveryTimeout changes how long blocking events wait for a reader.
// Zero or less restores the default.
func (c *Channel) SetDeliveryTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultDeliveryTimeout
	}
	c.mu.Lock()
	c.wait = d
	c.mu.Unlock()
}

func (c *Channel) Events() <-chan Event {
	return c.events
}

// Done is closed once Close has been called.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Close stops delivery and releases any blocked sender. Safe to call twice.
func (c *Channel) Close() {
	c.once.Do(func() { close(c.done) })
}

// Dropped reports how many events were discarded because nobody was reading.
func (c *Channel) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

func (c *Channel) StartRun(runID string) {
	c.mu.Lock()
	c.runID = runID
	c.mu.Unlock()
}

func (c *Channel) event(kind Kind) Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Event{RunID: c.runID, Kind: kind, At: c.now()}
}

func (c *Channel) offer(ev Event) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.events <- ev:
	default:
		c.mu.Lock()
		c.dropped++
		c.mu.Unlock()
	}
}

// deliver blocks until ev is received, the Channel is closed, or the delivery
// timeout passes. A timeout drops ev and closes the Channel.
func (c *Channel) deliver(ev Event) bool {
	c.mu.Lock()
	wait := c.wait
	c.mu.Unlock()

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-c.done:
		return false
	case c.events <- ev:
		return true
	case <-timer.C:
		c.mu.Lock()
		c.dropped++
		c.mu.Unlock()
		c.Close()
		return false
	}
}

func (c *Channel) StatusMessage(text string) {
	ev := c.event(KindStatus)
	ev.Message = text
	c.offer(ev)
}

func (c *Channel) ProgressPercent(percent int) {
	ev := c.event(KindProgress)
	ev.Percent = clampPercent(percent)
	c.offer(ev)
}

func (c *Channel) JobsFound(jobs []models.JobRecord) {
	c.jobsFound(jobs)
}

func (c *Channel) jobsFound(jobs []models.JobRecord) bool {
	ev := c.event(KindJobs)
	ev.Jobs = append([]models.JobRecord(nil), jobs...)
	ev.Message = "jobs found"
	return c.deliver(ev)
}

func (c *Channel) Finished(success bool, message string) {
	c.finished(success, message)
}

func (c *Channel) finished(success bool, message string) bool {
	ev := c.event(KindFinished)
	ev.Success = success
	ev.Message = message
	return c.deliver(ev)
}

// Hub is a Notifier that copies every call to any number of subscribed
// Channels, so several watchers can follow the same run. Subscribers that stop
// reading are dropped once a blocking event times out on them.
type Hub struct {
	buffer int
	wait   time.Duration

	mu    sync.Mutex
	runID string
	subs  map[*Channel]struct{}
}

func NewHub(buffer int) *Hub {
	return &Hub{buffer: buffer, wait: DefaultDeliveryTimeout, subs: make(map[*Channel]struct{})}
}

// SetDeliveryTimeout applies to channels subscribed afterwards.
func (h *Hub) SetDeliveryTimeout(d time.Duration) {
	h.mu.Lock()
	h.wait = d
	h.mu.Unlock()
}

// Subscribe returns a Channel receiving everything from now on. Release it
// with Unsubscribe.
func (h *Hub) Subscribe() *Channel {
	c := NewChannel(h.buffer)
	h.mu.Lock()
	c.SetDeliveryTimeout(h.wait)
	c.StartRun(h.runID)
	h.subs[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *Hub) Unsubscribe(c *Channel) {
	h.mu.Lock()
	delete(h.subs, c)
	h.mu.Unlock()
	c.Close()
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) channels() []*Channel {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Channel, 0, len(h.subs))
	for c := range h.subs {
		out = append(out, c)
	}
	return out
}

func (h *Hub) StartRun(runID string) {
	h.mu.Lock()
	h.runID = runID
	h.mu.Unlock()
	for _, c := range h.channels() {
		c.StartRun(runID)
	}
}

func (h *Hub) StatusMessage(text string) {
	for _, c := range h.channels() {
		c.StatusMessage(text)
	}
}

func (h *Hub) ProgressPercent(percent int) {
	for _, c := range h.channels() {
		c.ProgressPercent(percent)
	}
}

// broadcast runs send on every subscriber at once and unsubscribes the ones
// it could not reach.
func (h *Hub) broadcast(send func(c *Channel) bool) {
	var wg sync.WaitGroup
	for _, c := range h.channels() {
		wg.Add(1)
		go func(c *Channel) {
			defer wg.Done()
			if !send(c) {
				h.Unsubscribe(c)
			}
		}(c)
	}
	wg.Wait()
}

func (h *Hub) JobsFound(jobs []models.JobRecord) {
	h.broadcast(func(c *Channel) bool { return c.jobsFound(jobs) })
}

func (h *Hub) Finished(success bool, message string) {
	h.broadcast(func(c *Channel) bool { return c.finished(success, message) })
}
