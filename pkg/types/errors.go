// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies conversion failures.
type ErrorKind string

const (
	// KindDocumentRead: the source could not be opened or parsed. Fatal.
	KindDocumentRead ErrorKind = "document_read"
	// KindLayout: geometry was missing or non-finite.
	KindLayout ErrorKind = "layout"
	// KindResourceWrite: the output container could not be written. Fatal.
	KindResourceWrite ErrorKind = "resource_write"
	// KindDecode: a single element failed to decode. Reported as a warning.
	KindDecode ErrorKind = "decode"
)

// ErrEncrypted is wrapped by the DocumentReadError returned for encrypted sources.
var ErrEncrypted = errors.New("document is encrypted")

// Error is a classified conversion error.
type Error struct {
	Kind    ErrorKind
	Page    int // 0 when not tied to a page
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Kind) + ": " + e.Message
	if e.Page > 0 {
		msg = fmt.Sprintf("%s: page %d: %s", e.Kind, e.Page, e.Message)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// DocumentReadError reports an unreadable, corrupt, or encrypted source.
func DocumentReadError(message string, err error) *Error {
	return &Error{Kind: KindDocumentRead, Message: message, Err: err}
}

// LayoutError reports missing or non-finite geometry on a page.
func LayoutError(page int, message string) *Error {
	return &Error{Kind: KindLayout, Page: page, Message: message}
}

// ResourceWriteError reports a failure writing the output container.
func ResourceWriteError(message string, err error) *Error {
	return &Error{Kind: KindResourceWrite, Message: message, Err: err}
}

// IsKind reports whether err or any error it wraps is an *Error of kind k.
func IsKind(err error, k ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}

// DecodeWarning records one element that was skipped because it could not
// be decoded. Warnings never abort a conversion.
type DecodeWarning struct {
	Page int `json:"page" yaml:"page"`

	// Element is "glyph", "image", or "content".
	Element string `json:"element" yaml:"element"`

	// Ordinal is the element's position on the page in source order.
	Ordinal int    `json:"ordinal" yaml:"ordinal"`
	Reason  string `json:"reason" yaml:"reason"`
}

func (w DecodeWarning) String() string {
	return fmt.Sprintf("page %d %s %d: %s", w.Page, w.Element, w.Ordinal, w.Reason)
}
