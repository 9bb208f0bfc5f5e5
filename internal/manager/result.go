package manager

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is wrapped by results that reference an unknown label,
	// segment or pairing.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyAssigned is wrapped by results that would link a pair that is
	// already linked.
	ErrAlreadyAssigned = errors.New("already assigned")
	// ErrInvalid is wrapped by results for malformed requests, such as an
	// empty or duplicate custom label ID.
	ErrInvalid = errors.New("invalid request")
)

// Kind classifies the outcome of a manual operation.
type Kind int

const (
	KindOK Kind = iota
	KindNotFound
	KindAlreadyAssigned
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindNotFound:
		return "not found"
	case KindAlreadyAssigned:
		return "already assigned"
	case KindInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// RemovalNote records a segment that an operation detached from a label as
// a side effect.
type RemovalNote struct {
	TextID    string `json:"text"`
	SegmentID int    `json:"segment"`
}

func (n RemovalNote) String() string {
	return fmt.Sprintf("segment %d removed from %s", n.SegmentID, n.TextID)
}

// Result is returned by every manual operation. A failed operation changed
// nothing.
type Result struct {
	Success    bool
	Message    string
	Kind       Kind
	Err        error
	Reassigned bool
	Removed    []RemovalNote
}

func succeed(format string, args ...any) Result {
	return Result{Success: true, Kind: KindOK, Message: fmt.Sprintf(format, args...)}
}

func fail(kind Kind, sentinel error, format string, args ...any) Result {
	msg := fmt.Sprintf(format, args...)
	return Result{
		Kind:    kind,
		Message: msg,
		Err:     fmt.Errorf("%s: %w", msg, sentinel),
	}
}
