package kernel

import "context"

// Submitter executes one text command on a kernel backend. Implementations
// must deliver messages to onMessage synchronously and in arrival order, one
// call per message, and return only once the backend reports the submission
// complete. onMessage must not block or perform long-running work.
type Submitter interface {
	Submit(ctx context.Context, code string, onMessage func(Message)) error
}
