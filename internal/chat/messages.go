// Package chat defines the boundary with the chat transport: the inbound
// message shape the core consumes, the reply shape it produces, and the
// fixed label vocabulary shared with the user-facing keyboards. The
// transport renders Options however it likes; the core only proposes the
// logical option set for the next step.
package chat

// Incoming is one inbound user message as delivered by the transport.
type Incoming struct {
	UserID      int64
	DisplayName string
	Text        string
}

// Reply is what the core hands back to the transport: response text plus
// the suggested-reply options appropriate to the next dialogue state. Each
// inner slice is one row of options.
type Reply struct {
	Text    string
	Options [][]string
}
