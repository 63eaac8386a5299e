package chess

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/park285/cheese-arena/internal/chess/rules"
	"github.com/park285/cheese-arena/internal/domain"
)

var (
	ErrIllegalMove     = errors.New("illegal move")
	ErrNoHistory       = errors.New("no move to undo")
	ErrInvalidPosition = errors.New("invalid position")
)

// MoveError 는 거부된 입력과 이유를 담는다. errors.Is(err, ErrIllegalMove) 가 참이다.
type MoveError struct {
	Input  string
	Reason string
}

func (e *MoveError) Error() string {
	return fmt.Sprintf("illegal move %q: %s", e.Input, e.Reason)
}

func (e *MoveError) Unwrap() error { return ErrIllegalMove }

// Oracle 은 합법수 생성과 종국 판정을 맡는 규칙 엔진.
type Oracle interface {
	Turn() domain.Color
	LegalMoves() []domain.Move
	Apply(from, to domain.Square, promo domain.PieceType) (domain.Move, error)
	Undo() error
	Resolve(text string) (domain.Square, domain.Square, domain.PieceType, error)
	Status() domain.GameStatus
	InCheck() bool
	Board() domain.Board
	FEN() string
	SAN() []string
	PGN() string
	Opening() (code, title string)
}

// OracleFactory 는 FEN 으로 새 규칙 엔진을 만든다. 빈 문자열은 표준 시작 국면.
type OracleFactory func(fen string) (Oracle, error)

func defaultOracle(fen string) (Oracle, error) {
	g, err := rules.FromFEN(fen)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// CapturedPieces 는 잡힌 기물을 잡힌 쪽 색 기준으로 순서대로 모은다.
type CapturedPieces struct {
	White []domain.PieceType `json:"white"`
	Black []domain.PieceType `json:"black"`
}

func (c CapturedPieces) Of(color domain.Color) []domain.PieceType {
	if color == domain.Black {
		return c.Black
	}
	return c.White
}

// Value 는 color 쪽이 잃은 기물 가치 합.
func (c CapturedPieces) Value(color domain.Color) int {
	total := 0
	for _, pt := range c.Of(color) {
		total += int(pieceValue(pt))
	}
	return total
}

func (c CapturedPieces) clone() CapturedPieces {
	return CapturedPieces{White: slices.Clone(c.White), Black: slices.Clone(c.Black)}
}

// GameEngine 은 살아있는 국면 하나와 수순, 잡은 기물 장부를 가진다.
// 한 번에 한 소유자만 건드린다.
type GameEngine struct {
	oracle   Oracle
	factory  OracleFactory
	startFEN string
	history  []domain.Move
	captured CapturedPieces
	lastMove *domain.Move
}

func NewGameEngine(fen string) (*GameEngine, error) {
	return NewGameEngineWith(defaultOracle, fen)
}

func NewGameEngineWith(factory OracleFactory, fen string) (*GameEngine, error) {
	if factory == nil {
		factory = defaultOracle
	}
	o, err := factory(strings.TrimSpace(fen))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPosition, err)
	}
	return &GameEngine{oracle: o, factory: factory, startFEN: strings.TrimSpace(fen)}, nil
}

// MakeMove 는 실패하면 상태를 바꾸지 않는다. promo 를 생략한 승격은 퀸.
func (e *GameEngine) MakeMove(from, to domain.Square, promo domain.PieceType) (domain.Move, error) {
	mv, err := e.oracle.Apply(from, to, promo)
	if err != nil {
		return domain.Move{}, &MoveError{Input: from.String() + to.String() + promo.String(), Reason: reasonOf(err)}
	}
	e.record(mv)
	return mv, nil
}

func (e *GameEngine) MakeMoveUCI(code string) (domain.Move, error) {
	from, to, promo, err := domain.ParseUCI(code)
	if err != nil {
		return domain.Move{}, &MoveError{Input: code, Reason: err.Error()}
	}
	mv, err := e.MakeMove(from, to, promo)
	if err != nil {
		return domain.Move{}, &MoveError{Input: code, Reason: reasonOf(err)}
	}
	return mv, nil
}

// MakeMoveText 는 UCI 와 SAN 을 모두 받는다.
func (e *GameEngine) MakeMoveText(text string) (domain.Move, error) {
	from, to, promo, err := e.oracle.Resolve(text)
	if err != nil {
		return domain.Move{}, &MoveError{Input: text, Reason: "unrecognized move"}
	}
	mv, err := e.MakeMove(from, to, promo)
	if err != nil {
		return domain.Move{}, &MoveError{Input: text, Reason: reasonOf(err)}
	}
	return mv, nil
}

func (e *GameEngine) record(mv domain.Move) {
	e.history = append(e.history, mv)
	if mv.IsCapture() {
		if mv.Color == domain.White {
			e.captured.Black = append(e.captured.Black, mv.Captured)
		} else {
			e.captured.White = append(e.captured.White, mv.Captured)
		}
	}
	last := mv
	e.lastMove = &last
}

func (e *GameEngine) UndoMove() (domain.Move, error) {
	n := len(e.history)
	if n == 0 {
		return domain.Move{}, ErrNoHistory
	}
	if err := e.oracle.Undo(); err != nil {
		return domain.Move{}, fmt.Errorf("%w: %v", ErrNoHistory, err)
	}
	mv := e.history[n-1]
	e.history = e.history[:n-1]
	if mv.IsCapture() {
		if mv.Color == domain.White {
			e.captured.Black = popPiece(e.captured.Black)
		} else {
			e.captured.White = popPiece(e.captured.White)
		}
	}
	if len(e.history) == 0 {
		e.history = nil
		e.lastMove = nil
	} else {
		last := e.history[len(e.history)-1]
		e.lastMove = &last
	}
	return mv, nil
}

func popPiece(s []domain.PieceType) []domain.PieceType {
	if len(s) <= 1 {
		return nil
	}
	return s[:len(s)-1]
}

// probe 는 수를 두고 fn 을 실행한 뒤 어떤 경로로 빠져나가든 되돌린다.
func (e *GameEngine) probe(mv domain.Move, fn func() float64) float64 {
	if _, err := e.MakeMove(mv.From, mv.To, mv.Promotion); err != nil {
		panic(fmt.Sprintf("chess: probe %s rejected: %v", mv.UCI(), err))
	}
	defer func() {
		if _, err := e.UndoMove(); err != nil {
			panic(fmt.Sprintf("chess: probe %s undo: %v", mv.UCI(), err))
		}
	}()
	return fn()
}

func (e *GameEngine) LegalMoves() []domain.Move {
	return e.oracle.LegalMoves()
}

func (e *GameEngine) LegalMovesFrom(sq domain.Square) []domain.Move {
	var out []domain.Move
	for _, mv := range e.oracle.LegalMoves() {
		if mv.From == sq {
			out = append(out, mv)
		}
	}
	return out
}

func (e *GameEngine) IsValidMove(from, to domain.Square) bool {
	for _, mv := range e.oracle.LegalMoves() {
		if mv.From == from && mv.To == to {
			return true
		}
	}
	return false
}

func (e *GameEngine) Status() domain.GameStatus { return e.oracle.Status() }

func (e *GameEngine) IsGameOver() bool { return e.oracle.Status().Terminal() }

func (e *GameEngine) IsCheck() bool { return e.oracle.InCheck() }

func (e *GameEngine) IsCheckmate() bool { return e.oracle.Status() == domain.GameCheckmate }

func (e *GameEngine) IsStalemate() bool { return e.oracle.Status() == domain.GameStalemate }

// IsDraw 는 스테일메이트를 포함한 모든 무승부.
func (e *GameEngine) IsDraw() bool {
	switch e.oracle.Status() {
	case domain.GameStalemate, domain.GameThreefoldRepetition, domain.GameInsufficientMaterial, domain.GameDraw:
		return true
	}
	return false
}

func (e *GameEngine) IsThreefoldRepetition() bool {
	return e.oracle.Status() == domain.GameThreefoldRepetition
}

func (e *GameEngine) IsInsufficientMaterial() bool {
	return e.oracle.Status() == domain.GameInsufficientMaterial
}

func (e *GameEngine) DrawReason() domain.DrawReason {
	switch e.oracle.Status() {
	case domain.GameStalemate:
		return domain.DrawStalemate
	case domain.GameThreefoldRepetition:
		return domain.DrawThreefoldRepetition
	case domain.GameInsufficientMaterial:
		return domain.DrawInsufficientMaterial
	case domain.GameDraw:
		return domain.DrawFiftyMoveRule
	}
	return domain.DrawNone
}

// Clone 은 시작 국면부터 수순을 다시 두어 완전히 독립된 엔진을 만든다.
func (e *GameEngine) Clone() *GameEngine {
	o, err := e.factory(e.startFEN)
	if err != nil {
		panic(fmt.Sprintf("chess: clone start position: %v", err))
	}
	c := &GameEngine{oracle: o, factory: e.factory, startFEN: e.startFEN}
	for _, mv := range e.history {
		if _, err := c.MakeMove(mv.From, mv.To, mv.Promotion); err != nil {
			panic(fmt.Sprintf("chess: clone replay %s: %v", mv.UCI(), err))
		}
	}
	return c
}

// MoveCount 는 현재 수 번호(1부터).
func (e *GameEngine) MoveCount() int { return len(e.history)/2 + 1 }

func (e *GameEngine) Ply() int { return len(e.history) }

func (e *GameEngine) CapturedPieces() CapturedPieces { return e.captured.clone() }

func (e *GameEngine) BoardSnapshot() domain.Board { return e.oracle.Board() }

func (e *GameEngine) PieceAt(sq domain.Square) domain.Piece {
	b := e.oracle.Board()
	return b.At(sq)
}

// KingSquare 는 킹이 없으면 NoSquare.
func (e *GameEngine) KingSquare(color domain.Color) domain.Square {
	b := e.oracle.Board()
	return kingSquare(&b, color)
}

func kingSquare(b *domain.Board, color domain.Color) domain.Square {
	for i, p := range b {
		if p.Type == domain.King && p.Color == color {
			return domain.Square(i)
		}
	}
	return domain.NoSquare
}

func (e *GameEngine) History() []domain.Move { return slices.Clone(e.history) }

func (e *GameEngine) LastMove() (domain.Move, bool) {
	if e.lastMove == nil {
		return domain.Move{}, false
	}
	return *e.lastMove, true
}

func (e *GameEngine) Turn() domain.Color { return e.oracle.Turn() }

func (e *GameEngine) FEN() string { return e.oracle.FEN() }

func (e *GameEngine) StartFEN() string { return e.startFEN }

func (e *GameEngine) PGN() string { return e.oracle.PGN() }

func (e *GameEngine) SAN() []string { return e.oracle.SAN() }

func (e *GameEngine) Opening() (string, string) { return e.oracle.Opening() }

// LoadPosition 은 실패하면 기존 상태를 그대로 둔다.
func (e *GameEngine) LoadPosition(fen string) error {
	o, err := e.factory(strings.TrimSpace(fen))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPosition, err)
	}
	e.reset(o, strings.TrimSpace(fen))
	return nil
}

// LoadPGN 은 기보의 수순을 다시 두어 수순과 잡은 기물 장부까지 복원한다.
func (e *GameEngine) LoadPGN(pgn string) error {
	start, codes, err := rules.ParsePGN(pgn)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPosition, err)
	}
	next, err := NewGameEngineWith(e.factory, start)
	if err != nil {
		return err
	}
	for _, code := range codes {
		if _, err := next.MakeMoveUCI(code); err != nil {
			return fmt.Errorf("%w: replay: %v", ErrInvalidPosition, err)
		}
	}
	*e = *next
	return nil
}

func (e *GameEngine) Reset() {
	o, err := e.factory("")
	if err != nil {
		panic(fmt.Sprintf("chess: reset: %v", err))
	}
	e.reset(o, "")
}

func (e *GameEngine) reset(o Oracle, fen string) {
	e.oracle = o
	e.startFEN = fen
	e.history = nil
	e.captured = CapturedPieces{}
	e.lastMove = nil
}

func reasonOf(err error) string {
	var me *MoveError
	if errors.As(err, &me) {
		return me.Reason
	}
	if errors.Is(err, rules.ErrIllegal) {
		return "not legal in this position"
	}
	return err.Error()
}
