package helpers

import (
	"errors"
	"fmt"
	"sync"

	"series-canon/src/logger"
)

// -----------------------------------------------------------------------------
// Error Kinds
// -----------------------------------------------------------------------------

type ErrorKind string

const (
	KindMalformedRecord    ErrorKind = "malformed_record"
	KindValidityViolation  ErrorKind = "validity_violation"
	KindAlignmentViolation ErrorKind = "alignment_violation"
	KindConfigurationError ErrorKind = "configuration_error"
	KindMergeConflict      ErrorKind = "merge_conflict"
)

// Sentinels for errors.Is checks against a SeriesCanonError of the same kind.
var (
	ErrMalformedRecord    = &SeriesCanonError{Kind: KindMalformedRecord}
	ErrValidityViolation  = &SeriesCanonError{Kind: KindValidityViolation}
	ErrAlignmentViolation = &SeriesCanonError{Kind: KindAlignmentViolation}
	ErrConfiguration      = &SeriesCanonError{Kind: KindConfigurationError}
	ErrMergeConflict      = &SeriesCanonError{Kind: KindMergeConflict}
)

// Malformed row reasons.
const (
	ReasonNotJSON          = "not_json"
	ReasonBadTimestamp     = "bad_timestamp"
	ReasonMissingValue     = "missing_value"
	ReasonNonNumericValue  = "non_numeric_value"
	ReasonNonFiniteValue   = "non_finite_value"
	ReasonMissingMetric    = "missing_metric"
	ReasonMissingTimestamp = "missing_timestamp"
)

// -----------------------------------------------------------------------------
// Custom Error Type
// -----------------------------------------------------------------------------

type SeriesCanonError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *SeriesCanonError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *SeriesCanonError) Unwrap() error {
	return e.Cause
}

// Is matches any SeriesCanonError of the same kind.
func (e *SeriesCanonError) Is(target error) bool {
	t, ok := target.(*SeriesCanonError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// -----------------------------------------------------------------------------

func NewMalformedRecord(reason string, cause error) *SeriesCanonError {
	return &SeriesCanonError{Kind: KindMalformedRecord, Message: reason, Cause: cause}
}

func NewAlignmentViolation(format string, args ...interface{}) *SeriesCanonError {
	return &SeriesCanonError{Kind: KindAlignmentViolation, Message: fmt.Sprintf(format, args...)}
}

func NewConfigurationError(format string, args ...interface{}) *SeriesCanonError {
	return &SeriesCanonError{Kind: KindConfigurationError, Message: fmt.Sprintf(format, args...)}
}

func NewMergeConflict(format string, args ...interface{}) *SeriesCanonError {
	return &SeriesCanonError{Kind: KindMergeConflict, Message: fmt.Sprintf(format, args...)}
}

// -----------------------------------------------------------------------------

// KindOf returns the kind of the first SeriesCanonError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var sce *SeriesCanonError
	if errors.As(err, &sce) {
		return sce.Kind, true
	}
	return "", false
}

// IsConfigurationError reports whether err is a ConfigurationError.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// -----------------------------------------------------------------------------
// Error Handler
// -----------------------------------------------------------------------------

// ErrorHandler counts and logs recovered errors by kind. It never aborts.
type ErrorHandler struct {
	Logger *logger.Logger
	mu     sync.Mutex
	counts map[ErrorKind]int
	other  int
}

func NewErrorHandler(log *logger.Logger) *ErrorHandler {
	if log == nil {
		log = logger.NewLogger(nil, "ErrorHandler")
	}
	return &ErrorHandler{
		Logger: log,
		counts: make(map[ErrorKind]int),
	}
}

// -----------------------------------------------------------------------------

func (e *ErrorHandler) ResetErrorCount() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.counts = make(map[ErrorKind]int)
	e.other = 0
}

// -----------------------------------------------------------------------------

// Count returns how many errors of the given kind were handled.
func (e *ErrorHandler) Count(kind ErrorKind) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counts[kind]
}

// -----------------------------------------------------------------------------

// Handle records err under its kind. Merge conflicts and per-record errors
// log as warnings; everything else logs as an error.
func (e *ErrorHandler) Handle(err error, context string) {
	if err == nil {
		return
	}

	kind, ok := KindOf(err)

	e.mu.Lock()
	if ok {
		e.counts[kind]++
	} else {
		e.other++
	}
	e.mu.Unlock()

	switch kind {
	case KindMergeConflict, KindMalformedRecord, KindAlignmentViolation, KindValidityViolation:
		e.Logger.Warning("%s in %s: %v", kind, context, err)
	default:
		e.Logger.Error("Error in %s: %v", context, err)
	}
}
