// Package port implements typed attachment points on pipeline stages and the
// protocol that connects them.
//
// Every stage owns two groups: an InputPorts group and an OutputPorts group.
// Ports are only ever created by their group, so each port's owner handle is
// always valid. An OutputPort may be connected to at most one InputPort and
// vice versa; connecting ports whose owners live in different scopes fails
// before any state changes.
//
// Before execution, metadata flows along connections via DeliverMD/ReceiveMD
// and input preconditions record MetaDataErrors on their ports. During
// execution, payloads flow via Deliver/Receive and are cached in a strong slot
// plus an optional, evictable secondary tier owned by the Environment.
//
// Topology changes are expected from a single coordinating goroutine; reads
// (RawData, MetaData, Errors, listener dispatch) are safe from workers.
package port
