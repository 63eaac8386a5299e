package match

import "github.com/park285/cheese-arena/pkg/chessdto"

// matchError 는 소비자용 코드를 함께 가진 센티넬 오류.
type matchError struct {
	code      string
	msg       string
	retryable bool
}

func (e *matchError) Error() string   { return e.msg }
func (e *matchError) Code() string    { return e.code }
func (e *matchError) Retryable() bool { return e.retryable }

var (
	ErrMatchFinished    error = &matchError{code: chessdto.CodeMatchFinished, msg: "match already finished"}
	ErrNotHumanTurn     error = &matchError{code: chessdto.CodeNotYourTurn, msg: "side to move is not a human player"}
	ErrNotAITurn        error = &matchError{code: chessdto.CodeNotAITurn, msg: "side to move is not an AI player"}
	ErrNoDrawOffer      error = &matchError{code: chessdto.CodeNoDrawOffer, msg: "no pending draw offer from the opponent"}
	ErrSnapshotNotFound error = &matchError{code: chessdto.CodeNotFound, msg: "match snapshot not found"}
	ErrDuplicateRecord  error = &matchError{code: chessdto.CodeDuplicate, msg: "match already recorded"}
	ErrConcurrentUpdate error = &matchError{code: chessdto.CodeConcurrentUpdate, msg: "match changed concurrently", retryable: true}
	ErrAnalysisInactive error = &matchError{code: chessdto.CodeAnalysisInactive, msg: "analysis mode is not active"}
)

func (e *TransitionError) Code() string    { return chessdto.CodeInvalidTransition }
func (e *TransitionError) Retryable() bool { return false }
