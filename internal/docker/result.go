package docker

// Outcome classifies a per-item reconciliation result.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeSkipped
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "error"
	}
}

// Result is the outcome of one operation on one requested item. Multi-item
// operations produce exactly one Result per requested name, never merged.
type Result struct {
	Name    string
	Outcome Outcome
	Message string
	Err     error
}

func success(name, message string) Result {
	return Result{Name: name, Outcome: OutcomeSuccess, Message: message}
}

func skipped(name, message string) Result {
	return Result{Name: name, Outcome: OutcomeSkipped, Message: message}
}

func failed(name string, err error) Result {
	return Result{Name: name, Outcome: OutcomeError, Message: err.Error(), Err: err}
}

// Failed reports whether any result in the batch is an error.
func Failed(results []Result) bool {
	for _, r := range results {
		if r.Outcome == OutcomeError {
			return true
		}
	}
	return false
}
