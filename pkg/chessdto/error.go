package chessdto

import (
	"context"
	"errors"

	"github.com/park285/cheese-arena/internal/chess"
)

const (
	CodeIllegalMove       = "illegal_move"
	CodeNoHistory         = "no_history"
	CodeInvalidPosition   = "invalid_position"
	CodeMatchFinished     = "match_finished"
	CodeNotYourTurn       = "not_your_turn"
	CodeNotAITurn         = "not_ai_turn"
	CodeNoDrawOffer       = "no_draw_offer"
	CodeNotFound          = "match_not_found"
	CodeDuplicate         = "duplicate_match"
	CodeConcurrentUpdate  = "concurrent_update"
	CodeAnalysisInactive  = "analysis_inactive"
	CodeInvalidTransition = "invalid_transition"
	CodeTimeout           = "timeout"
	CodeCanceled          = "canceled"
	CodeInternal          = "internal"
)

type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "chess service error"
}

type coded interface {
	error
	Code() string
	Retryable() bool
}

// FromError 는 내부 오류를 소비자용 코드로 바꾼다. nil 이면 nil.
func FromError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var de DomainError
	if errors.As(err, &de) {
		return &de
	}
	var c coded
	if errors.As(err, &c) {
		return &DomainError{Code: c.Code(), Message: err.Error(), Retryable: c.Retryable()}
	}
	switch {
	case errors.Is(err, chess.ErrIllegalMove):
		return &DomainError{Code: CodeIllegalMove, Message: err.Error()}
	case errors.Is(err, chess.ErrNoHistory):
		return &DomainError{Code: CodeNoHistory, Message: err.Error()}
	case errors.Is(err, chess.ErrInvalidPosition):
		return &DomainError{Code: CodeInvalidPosition, Message: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return &DomainError{Code: CodeTimeout, Message: err.Error(), Retryable: true}
	case errors.Is(err, context.Canceled):
		return &DomainError{Code: CodeCanceled, Message: err.Error(), Retryable: true}
	}
	return &DomainError{Code: CodeInternal, Message: err.Error()}
}
