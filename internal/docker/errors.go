package docker

import (
	"fmt"
	"strings"
)

// ConnectionError means the daemon is unreachable or incompatible. It is
// fatal to the whole invocation; nothing retries a failed connect.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to Docker: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// PullError is a provisioning failure for one image reference.
type PullError struct {
	Ref string
	Err error
}

func (e *PullError) Error() string {
	return fmt.Sprintf("failed to pull image %s: %v", e.Ref, e.Err)
}

func (e *PullError) Unwrap() error { return e.Err }

// NetworkError is a provisioning failure for one named network.
type NetworkError struct {
	Name string
	Err  error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("failed to provision network %s: %v", e.Name, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// OperationError is a create/stop/restart/remove call that failed against
// the daemon, always attached to the specific item it was operating on.
type OperationError struct {
	Op   string
	Name string
	Err  error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Name, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// CreateAllError reports an aborted ordered creation: which item failed and
// which items were never attempted because of the fail-fast policy.
type CreateAllError struct {
	Failed       string
	NotAttempted []string
	Err          error
}

func (e *CreateAllError) Error() string {
	if len(e.NotAttempted) == 0 {
		return fmt.Sprintf("failed to start %s: %v", e.Failed, e.Err)
	}
	return fmt.Sprintf("failed to start %s (never attempted: %s): %v",
		e.Failed, strings.Join(e.NotAttempted, ", "), e.Err)
}

func (e *CreateAllError) Unwrap() error { return e.Err }
