// Package chainerrors defines the error taxonomy shared by the gateway and
// the contract services.
package chainerrors

import (
	"errors"
	"fmt"
	"strings"
)

// Kinds. Every *Error carries exactly one.
var (
	ErrChainCallFailed = errors.New("chain call failed")
	ErrChainReadFailed = errors.New("chain read failed")
	ErrInvalidSplit    = errors.New("invalid revenue split")
	ErrNotFound        = errors.New("not found")
)

// Causes recognised in revert reasons. They refine ErrChainCallFailed and are
// never detected locally.
var (
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrAlreadyApproved     = errors.New("already approved")
	ErrAlreadyExecuted     = errors.New("already executed")
	ErrDuplicateSubmission = errors.New("duplicate submission")
)

// Error is a failure annotated with the operation that produced it.
type Error struct {
	Op     string
	Kind   error
	Cause  error
	Reason string
	TxHash string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.TxHash != "" {
		b.WriteString(" (tx ")
		b.WriteString(e.TxHash)
		b.WriteString(")")
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches both the kind and the cause, so a revert rejected because the
// transaction was executed satisfies ErrChainCallFailed and ErrAlreadyExecuted.
func (e *Error) Is(target error) bool {
	return target == e.Kind || (e.Cause != nil && target == e.Cause)
}

// ErrNotSent marks a transport failure that happened before the signed
// transaction was handed to the node.
var ErrNotSent = errors.New("transaction not sent")

type notSentError struct {
	err error
}

func (e *notSentError) Error() string        { return e.err.Error() }
func (e *notSentError) Unwrap() error        { return e.err }
func (e *notSentError) Is(target error) bool { return target == ErrNotSent }

// NotSent marks err as raised before broadcast. Failures not marked this way
// may have reached the node.
func NotSent(err error) error {
	if err == nil {
		return nil
	}
	return &notSentError{err: err}
}

// RevertError is returned by the transport when the node rejects or reverts
// a call. Reason is the decoded revert string when one was available.
type RevertError struct {
	Reason string
	TxHash string
	Err    error
}

func (e *RevertError) Error() string {
	if e.Reason != "" {
		return "execution reverted: " + e.Reason
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "execution reverted"
}

func (e *RevertError) Unwrap() error {
	return e.Err
}

// CallFailed wraps err as ErrChainCallFailed for op, carrying the revert
// reason verbatim and classifying it when it names a known cause.
func CallFailed(op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return WithOp(op, err)
	}
	out := &Error{Op: op, Kind: ErrChainCallFailed, Err: err}
	var revert *RevertError
	if errors.As(err, &revert) {
		out.Reason = revert.Reason
		out.TxHash = revert.TxHash
	}
	reason := out.Reason
	if reason == "" {
		reason = err.Error()
	}
	out.Cause = Classify(reason)
	return out
}

// ReadFailed wraps err as ErrChainReadFailed for op.
func ReadFailed(op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return WithOp(op, err)
	}
	out := &Error{Op: op, Kind: ErrChainReadFailed, Err: err}
	var revert *RevertError
	if errors.As(err, &revert) {
		out.Reason = revert.Reason
	}
	return out
}

// InvalidSplit reports a share set rejected before any network call.
func InvalidSplit(op, format string, args ...any) error {
	return &Error{Op: op, Kind: ErrInvalidSplit, Reason: fmt.Sprintf(format, args...)}
}

// Duplicate reports an idempotency key that was already used.
func Duplicate(op, key, txHash string) error {
	return &Error{
		Op:     op,
		Kind:   ErrChainCallFailed,
		Cause:  ErrDuplicateSubmission,
		Reason: fmt.Sprintf("idempotency key %q already used", key),
		TxHash: txHash,
	}
}

// WithOp prefixes the operation of a taxonomy error with op. Other errors
// are wrapped with fmt.Errorf.
func WithOp(op string, err error) error {
	if err == nil || op == "" {
		return err
	}
	var e *Error
	if errors.As(err, &e) {
		annotated := *e
		if annotated.Op == "" {
			annotated.Op = op
		} else if !strings.HasPrefix(annotated.Op, op) {
			annotated.Op = op + ": " + annotated.Op
		}
		return &annotated
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Classify maps a revert reason to a known cause, or nil.
func Classify(reason string) error {
	r := strings.ToLower(reason)
	switch {
	case strings.Contains(r, "insufficient funds"), strings.Contains(r, "insufficient balance"):
		return ErrInsufficientFunds
	case strings.Contains(r, "already approved"):
		return ErrAlreadyApproved
	case strings.Contains(r, "already executed"):
		return ErrAlreadyExecuted
	default:
		return nil
	}
}
