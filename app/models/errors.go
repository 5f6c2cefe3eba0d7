package models

import (
	"errors"
	"fmt"
)

// Kind classifies failures so the API layer can pick a status code.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindCommentNotFound
	KindSelfInteraction
	KindDuplicateReaction
	KindNotReacted
	KindExpiredPost
	KindStoreUnavailable
	KindInvalidCredential
	KindConflict
)

var kindNames = map[Kind]string{
	KindUnknown:           "internal",
	KindValidation:        "validation",
	KindNotFound:          "not_found",
	KindCommentNotFound:   "comment_not_found",
	KindSelfInteraction:   "self_interaction",
	KindDuplicateReaction: "duplicate_reaction",
	KindNotReacted:        "not_reacted",
	KindExpiredPost:       "expired_post",
	KindStoreUnavailable:  "store_unavailable",
	KindInvalidCredential: "invalid_credential",
	KindConflict:          "conflict",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a classified failure. Message is safe to show to clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind, so errors.Is(err, ErrExpired)
// style checks work against the helpers below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// KindOf extracts the kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Kind sentinels for errors.Is.
var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrCommentNotFound   = &Error{Kind: KindCommentNotFound}
	ErrSelfInteraction   = &Error{Kind: KindSelfInteraction}
	ErrDuplicateReaction = &Error{Kind: KindDuplicateReaction}
	ErrNotReacted        = &Error{Kind: KindNotReacted}
	ErrExpiredPost       = &Error{Kind: KindExpiredPost}
	ErrStoreUnavailable  = &Error{Kind: KindStoreUnavailable}
	ErrInvalidCredential = &Error{Kind: KindInvalidCredential}
	ErrConflict          = &Error{Kind: KindConflict}
)

func NewError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Validation(msg string) *Error { return NewError(KindValidation, msg) }

func NotFound(msg string) *Error { return NewError(KindNotFound, msg) }

func InvalidCredential(msg string) *Error { return NewError(KindInvalidCredential, msg) }

// StoreUnavailable wraps an infrastructure failure.
func StoreUnavailable(err error) *Error {
	return &Error{Kind: KindStoreUnavailable, Message: "storage temporarily unavailable", Err: err}
}
