// Package metrics provides per-slave dispatch counters.
//
// The Collector accumulates counters over the life of one dispatch loop. It
// is a leaf package with no internal dependencies.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters.
type Snapshot struct {
	// Command cycles
	CommandsProcessed int64
	ProtocolErrors    int64
	ResourceErrors    int64
	FatalErrors       int64

	// Invocations
	ActionsInvoked int64
	ActionFailures int64
	ScopeDeclines  int64

	// Transfer
	DescriptorsReceived int64
	DescriptorsReleased int64
	BytesIn             int64
	BytesOut            int64

	// Dimensions (informational, set at construction)
	Slave string
	User  string
}

// ToMap renders the snapshot as log fields.
func (s Snapshot) ToMap() map[string]any {
	return map[string]any{
		"slave":                s.Slave,
		"user":                 s.User,
		"commands_processed":   s.CommandsProcessed,
		"protocol_errors":      s.ProtocolErrors,
		"resource_errors":      s.ResourceErrors,
		"fatal_errors":         s.FatalErrors,
		"actions_invoked":      s.ActionsInvoked,
		"action_failures":      s.ActionFailures,
		"scope_declines":       s.ScopeDeclines,
		"descriptors_received": s.DescriptorsReceived,
		"descriptors_released": s.DescriptorsReleased,
		"bytes_in":             s.BytesIn,
		"bytes_out":            s.BytesOut,
	}
}

// Collector accumulates dispatch counters.
// Thread-safe via sync.Mutex. All methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	commandsProcessed int64
	protocolErrors    int64
	resourceErrors    int64
	fatalErrors       int64

	actionsInvoked int64
	actionFailures int64
	scopeDeclines  int64

	descriptorsReceived int64
	descriptorsReleased int64
	bytesIn             int64
	bytesOut            int64

	slave string
	user  string
}

// NewCollector creates a Collector labelled with the slave name and user.
func NewCollector(slave, user string) *Collector {
	return &Collector{slave: slave, user: user}
}

// add must only be called on a non-nil Collector.
func (c *Collector) add(counter *int64, n int64) {
	c.mu.Lock()
	*counter += n
	c.mu.Unlock()
}

// --- Command cycles ---

// IncCommandProcessed records a completed command cycle (reply written).
func (c *Collector) IncCommandProcessed() {
	if c == nil {
		return
	}
	c.add(&c.commandsProcessed, 1)
}

// IncProtocolError records a frame rejected during validation.
func (c *Collector) IncProtocolError() {
	if c == nil {
		return
	}
	c.add(&c.protocolErrors, 1)
}

// IncResourceError records a frame rejected because buffers could not grow.
func (c *Collector) IncResourceError() {
	if c == nil {
		return
	}
	c.add(&c.resourceErrors, 1)
}

// IncFatalError records a failure that ended the dispatch loop.
func (c *Collector) IncFatalError() {
	if c == nil {
		return
	}
	c.add(&c.fatalErrors, 1)
}

// --- Invocations ---

// IncActionInvoked records an action invocation.
func (c *Collector) IncActionInvoked() {
	if c == nil {
		return
	}
	c.add(&c.actionsInvoked, 1)
}

// IncActionFailure records an action returning a negative result.
func (c *Collector) IncActionFailure() {
	if c == nil {
		return
	}
	c.add(&c.actionFailures, 1)
}

// IncScopeDecline records a pre-invocation hook refusing to run an action.
func (c *Collector) IncScopeDecline() {
	if c == nil {
		return
	}
	c.add(&c.scopeDeclines, 1)
}

// --- Transfer ---

// IncDescriptorReceived records a descriptor passed with a command.
func (c *Collector) IncDescriptorReceived() {
	if c == nil {
		return
	}
	c.add(&c.descriptorsReceived, 1)
}

// IncDescriptorReleased records a passed descriptor closed because no
// action took ownership of it.
func (c *Collector) IncDescriptorReleased() {
	if c == nil {
		return
	}
	c.add(&c.descriptorsReleased, 1)
}

// AddBytesIn records blob bytes read from the controller.
func (c *Collector) AddBytesIn(n int) {
	if c == nil {
		return
	}
	c.add(&c.bytesIn, int64(n))
}

// AddBytesOut records blob bytes written to the controller.
func (c *Collector) AddBytesOut(n int) {
	if c == nil {
		return
	}
	c.add(&c.bytesOut, int64(n))
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		CommandsProcessed: c.commandsProcessed,
		ProtocolErrors:    c.protocolErrors,
		ResourceErrors:    c.resourceErrors,
		FatalErrors:       c.fatalErrors,

		ActionsInvoked: c.actionsInvoked,
		ActionFailures: c.actionFailures,
		ScopeDeclines:  c.scopeDeclines,

		DescriptorsReceived: c.descriptorsReceived,
		DescriptorsReleased: c.descriptorsReleased,
		BytesIn:             c.bytesIn,
		BytesOut:            c.bytesOut,

		Slave: c.slave,
		User:  c.user,
	}
}
