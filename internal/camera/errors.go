package camera

import (
	"context"
	"errors"
	"os"
	"strings"
	"syscall"
)

// ErrorKind classifies camera and pipeline failures
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindPermissionDenied
	KindDeviceNotFound
	KindDeviceBusy
	KindConstraintsNotSatisfiable
	KindCaptureNotReady
	KindDetectionTransientFailure
)

func (k ErrorKind) String() string {
	switch k {
	case KindPermissionDenied:
		return "permission_denied"
	case KindDeviceNotFound:
		return "device_not_found"
	case KindDeviceBusy:
		return "device_busy"
	case KindConstraintsNotSatisfiable:
		return "constraints_not_satisfiable"
	case KindCaptureNotReady:
		return "capture_not_ready"
	case KindDetectionTransientFailure:
		return "detection_transient_failure"
	default:
		return "unknown"
	}
}

const messagePrefix = "Camera access failed. "

// DetectionFailedMessage is shown when device enumeration fails
const DetectionFailedMessage = "Unable to detect cameras. Please check permissions."

var kindMessages = map[ErrorKind]string{
	KindPermissionDenied:          messagePrefix + "Please allow camera permissions and refresh the page.",
	KindDeviceNotFound:            messagePrefix + "No camera found. Please connect a camera.",
	KindDeviceBusy:                messagePrefix + "Camera is being used by another app. Please close other camera apps.",
	KindConstraintsNotSatisfiable: messagePrefix + "Camera settings not supported. Trying lower resolution...",
	KindCaptureNotReady:           "Camera not ready for capture.",
	KindDetectionTransientFailure: "Card detection failed for this frame.",
	KindUnknown:                   messagePrefix + "Please check camera permissions and try again.",
}

// MessageFor returns the user-facing message for a kind
func MessageFor(kind ErrorKind) string {
	if msg, ok := kindMessages[kind]; ok {
		return msg
	}
	return kindMessages[KindUnknown]
}

// Error is a classified camera failure carrying a user-facing message
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match on kind alone, e.g. errors.Is(err, ErrCaptureNotReady)
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Err == nil && t.Kind == e.Kind
}

// ErrCaptureNotReady is returned by capture without an active stream or surface
var ErrCaptureNotReady = &Error{Kind: KindCaptureNotReady, Message: MessageFor(KindCaptureNotReady)}

// NewError wraps err with the given kind and its standard message
func NewError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Message: MessageFor(kind), Err: err}
}

// Wrap classifies err and returns it as an *Error. Existing *Error values pass through.
func Wrap(err error) *Error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	return NewError(Classify(err), err)
}

// KindOf returns the kind of err, classifying raw errors
func KindOf(err error) ErrorKind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return Classify(err)
}

// Classify maps a raw driver error to a kind. Errno values are checked first,
// then message keywords from most to least specific.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindUnknown
	case errors.Is(err, os.ErrPermission), errors.Is(err, syscall.EACCES), errors.Is(err, syscall.EPERM):
		return KindPermissionDenied
	case errors.Is(err, syscall.EBUSY):
		return KindDeviceBusy
	case errors.Is(err, os.ErrNotExist), errors.Is(err, syscall.ENOENT), errors.Is(err, syscall.ENODEV):
		return KindDeviceNotFound
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, permissionKeywords):
		return KindPermissionDenied
	case containsAny(msg, busyKeywords):
		return KindDeviceBusy
	case containsAny(msg, constraintKeywords):
		return KindConstraintsNotSatisfiable
	case containsAny(msg, notFoundKeywords):
		return KindDeviceNotFound
	}
	return KindUnknown
}

var (
	permissionKeywords = []string{"notallowederror", "permission", "denied", "not allowed"}
	busyKeywords       = []string{"notreadableerror", "busy", "in use", "could not start"}
	constraintKeywords = []string{"overconstrainederror", "overconstrained", "constraint", "unsupported resolution"}
	notFoundKeywords   = []string{"notfounderror", "not found", "no such device", "no device", "no camera"}
)

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
