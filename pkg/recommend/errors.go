package recommend

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure. Every kind aborts the request.
type Kind int

const (
	KindInputValidation Kind = iota + 1
	KindConfiguration
	KindComputation
)

var (
	ErrInputValidation = errors.New("invalid recommendation input")
	ErrConfiguration   = errors.New("model artifacts are inconsistent")
	ErrComputation     = errors.New("numeric failure in recommendation pipeline")
)

// Pipeline stages, used in errors and metrics.
const (
	StageAssemble = "assemble"
	StageClassify = "classify"
	StageSelect   = "select"
	StageForecast = "forecast"
	StageScore    = "score"
	StageRank     = "rank"
)

func (k Kind) String() string {
	switch k {
	case KindInputValidation:
		return "input_validation"
	case KindConfiguration:
		return "configuration"
	case KindComputation:
		return "computation"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindInputValidation:
		return ErrInputValidation
	case KindConfiguration:
		return ErrConfiguration
	case KindComputation:
		return ErrComputation
	default:
		return nil
	}
}

// Error is the single structured reason a recommendation request failed.
type Error struct {
	Kind  Kind
	Stage string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed at %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the kind sentinels.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

func newError(kind Kind, stage string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Err: err}
}

func inputErr(stage string, format string, args ...interface{}) *Error {
	return newError(KindInputValidation, stage, fmt.Errorf(format, args...))
}

func configErr(stage string, format string, args ...interface{}) *Error {
	return newError(KindConfiguration, stage, fmt.Errorf(format, args...))
}

func computeErr(stage string, format string, args ...interface{}) *Error {
	return newError(KindComputation, stage, fmt.Errorf(format, args...))
}

func IsInputValidation(err error) bool {
	return errors.Is(err, ErrInputValidation)
}

func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func IsComputation(err error) bool {
	return errors.Is(err, ErrComputation)
}

// AsError extracts the pipeline error from err, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
