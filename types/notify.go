//nolint:revive // types is a common Go package naming convention
package types

// Notification is an asynchronous event sent from the slave to the
// controller over the notification channel.
type Notification struct {
	// Magic is always NotifyMagic.
	Magic uint32 `msgpack:"magic"`
	// Opcode identifies the event; its meaning belongs to the backend.
	Opcode uint32 `msgpack:"opcode"`
	// Seq increases by one for every notification sent on a channel,
	// starting at 1.
	Seq uint64 `msgpack:"seq"`
}
