package command

// FailureKind classifies a reference resolution failure.
type FailureKind int

const (
	// FailureNotFound means the token did not resolve to any entity via
	// any classification branch.
	FailureNotFound FailureKind = iota
	// FailureAccountNoSystem means a platform account exists for the token
	// but no system is linked to it.
	FailureAccountNoSystem
)

func (k FailureKind) String() string {
	switch k {
	case FailureAccountNoSystem:
		return "account_no_system"
	default:
		return "not_found"
	}
}

// ResolveError is the typed failure result of a reference resolver. The
// message is user-facing and rendered verbatim; resolvers never panic on
// bad input.
type ResolveError struct {
	Kind    FailureKind
	Message string
}

func (e *ResolveError) Error() string {
	return e.Message
}
