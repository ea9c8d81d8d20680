package domain

// FrameStatusComplete marks the final frame of a successful stream.
const FrameStatusComplete = "complete"

// Frame is one unit of a streaming turn response. Exactly one of the
// open, chunk, close or error shapes is populated.
type Frame struct {
	MessageID string  `json:"message_id,omitempty"`
	Chunk     *string `json:"chunk,omitempty"`
	Status    string  `json:"status,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// OpenFrame announces the id of the pre-created assistant message.
func OpenFrame(messageID string) Frame {
	return Frame{MessageID: messageID}
}

// ChunkFrame carries one incremental delta.
func ChunkFrame(delta string) Frame {
	return Frame{Chunk: &delta}
}

// CloseFrame signals stream completion.
func CloseFrame(messageID string) Frame {
	return Frame{Status: FrameStatusComplete, MessageID: messageID}
}

// ErrorFrame signals a failed stream.
func ErrorFrame(msg string) Frame {
	return Frame{Error: msg}
}
