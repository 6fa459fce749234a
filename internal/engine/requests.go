package engine

import "duplexmatch/internal/common"

// requestKind tags an engineRequest, the same way
// saiputravu-Exchange/internal/net/messages.go tags its wire messages
// with a MessageType — except this tag never leaves the process, so
// there is no byte-level encode/decode step.
type requestKind uint8

const (
	reqSubmit requestKind = iota
	reqCancel
	reqModify
)

// engineRequest is one command enqueued onto the engine's SPSC queue.
// Only the fields relevant to Kind are populated.
type engineRequest struct {
	kind requestKind

	order common.Order // reqSubmit

	symbolID uint32 // reqCancel, reqModify
	orderID  uint64 // reqCancel, reqModify
	newPrice int64  // reqModify
	newQty   uint64 // reqModify
}
