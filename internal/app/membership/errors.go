package membership

import (
	"errors"
	"fmt"
)

// Kind discriminates membership failures.
type Kind string

const (
	KindAlreadyInGroup           Kind = "AlreadyInGroup"
	KindUserNotFound             Kind = "UserNotFound"
	KindGroupNotFound            Kind = "GroupNotFound"
	KindNotAMember               Kind = "NotAMember"
	KindCannotRemoveSelf         Kind = "CannotRemoveSelf"
	KindLastAdminCannotBeRemoved Kind = "LastAdminCannotBeRemoved"
	KindCommitFailed             Kind = "CommitFailed"
	KindForbidden                Kind = "Forbidden"
	KindGroupExists              Kind = "GroupExists"
	KindInvalidInput             Kind = "InvalidInput"
	// The store cannot run transactions at all. Retrying never helps.
	KindTransactionsUnsupported  Kind = "TransactionsUnsupported"
)

// Error is the result of a rejected membership operation. Every error
// returned by Service is an *Error.
type Error struct {
	Kind Kind
	Msg  string
	// GroupID names the group involved, e.g. the conflicting group for
	// AlreadyInGroup.
	GroupID string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the sentinels below work
// with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrAlreadyInGroup           = &Error{Kind: KindAlreadyInGroup, Msg: "user already belongs to a group"}
	ErrUserNotFound             = &Error{Kind: KindUserNotFound, Msg: "user not found"}
	ErrGroupNotFound            = &Error{Kind: KindGroupNotFound, Msg: "group not found"}
	ErrNotAMember               = &Error{Kind: KindNotAMember, Msg: "user is not a member of this group"}
	ErrCannotRemoveSelf         = &Error{Kind: KindCannotRemoveSelf, Msg: "admins cannot remove themselves"}
	ErrLastAdminCannotBeRemoved = &Error{Kind: KindLastAdminCannotBeRemoved, Msg: "the last admin cannot be removed"}
	ErrCommitFailed             = &Error{Kind: KindCommitFailed, Msg: "the change could not be saved"}
	ErrForbidden                = &Error{Kind: KindForbidden, Msg: "only a group admin may do this"}
	ErrGroupExists              = &Error{Kind: KindGroupExists, Msg: "the referenced group exists"}
	ErrInvalidInput             = &Error{Kind: KindInvalidInput, Msg: "invalid input"}
	ErrTransactionsUnsupported  = &Error{Kind: KindTransactionsUnsupported, Msg: "the store cannot apply changes atomically"}
)

// KindOf returns the kind of a membership error, or "" for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Retryable reports whether the caller may retry after re-reading state.
// Only commit failures qualify; precondition failures need a different
// request.
func Retryable(err error) bool {
	return KindOf(err) == KindCommitFailed
}

func fail(base *Error, groupID string, cause error) *Error {
	return &Error{Kind: base.Kind, Msg: base.Msg, GroupID: groupID, Err: cause}
}

func failf(base *Error, groupID, format string, args ...any) *Error {
	return &Error{Kind: base.Kind, Msg: fmt.Sprintf(format, args...), GroupID: groupID}
}
