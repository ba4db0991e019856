package modules

// EventName identifies one of the named events the wallet backend's event
// bus exposes (spec.md §6).
type EventName string

const (
	EventTransaction EventName = "transaction"
	EventIncomingTx  EventName = "incomingtx"
	EventOutgoingTx  EventName = "outgoingtx"
	EventFusionTx    EventName = "fusiontx"
	EventSync        EventName = "sync"
	EventDesync      EventName = "desync"
)

// SyncEvent is the payload for EventSync/EventDesync.
type SyncEvent struct {
	WalletHeight  uint64
	NetworkHeight uint64
}
