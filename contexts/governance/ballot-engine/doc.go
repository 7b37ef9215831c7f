// Package ballotengine implements the permissioned voting engine inside the
// governance context.
//
// The module owns the election lifecycle (setup, open window, closed), the
// admin-gated voter roll and proposal catalog, weighted ballot processing
// with exactly-once voting, and deterministic winner reporting. It keeps
// business rules in application/domain layers and isolates infrastructure
// concerns behind ports and adapters.
package ballotengine
