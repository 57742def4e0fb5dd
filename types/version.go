//nolint:revive // types is a common Go package naming convention
package types

// Version is the canonical project version.
const Version = "0.3.0"

// ProtocolVersion is the command/reply wire protocol revision. It changes
// whenever the header layout or a magic constant changes.
const ProtocolVersion = 1
