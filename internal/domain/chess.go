package domain

import (
	"fmt"
	"strings"
	"time"
)

type Color string

const (
	White Color = "white"
	Black Color = "black"
)

func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) Valid() bool {
	return c == White || c == Black
}

// Sign 는 백 +1, 흑 -1.
func (c Color) Sign() float64 {
	if c == Black {
		return -1
	}
	return 1
}

func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return White, nil
	case "black", "b":
		return Black, nil
	}
	return "", fmt.Errorf("unknown color %q", s)
}

type PieceType uint8

const (
	NoPieceType PieceType = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

func (p PieceType) String() string {
	switch p {
	case Pawn:
		return "p"
	case Knight:
		return "n"
	case Bishop:
		return "b"
	case Rook:
		return "r"
	case Queen:
		return "q"
	case King:
		return "k"
	}
	return ""
}

func ParsePieceType(s string) (PieceType, bool) {
	switch strings.ToLower(s) {
	case "p":
		return Pawn, true
	case "n":
		return Knight, true
	case "b":
		return Bishop, true
	case "r":
		return Rook, true
	case "q":
		return Queen, true
	case "k":
		return King, true
	}
	return NoPieceType, false
}

type Piece struct {
	Type  PieceType `json:"type"`
	Color Color     `json:"color"`
}

func (p Piece) Empty() bool { return p.Type == NoPieceType }

// Square 는 a1=0 ... h8=63.
type Square int8

const NoSquare Square = -1

func NewSquare(file, rank int) Square {
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return NoSquare
	}
	return Square(rank*8 + file)
}

func ParseSquare(s string) (Square, error) {
	if len(s) != 2 {
		return NoSquare, fmt.Errorf("invalid square %q", s)
	}
	file := int(s[0]) - 'a'
	rank := int(s[1]) - '1'
	sq := NewSquare(file, rank)
	if sq == NoSquare {
		return NoSquare, fmt.Errorf("invalid square %q", s)
	}
	return sq, nil
}

func (s Square) File() int { return int(s) % 8 }
func (s Square) Rank() int { return int(s) / 8 }

func (s Square) Valid() bool { return s >= 0 && s < 64 }

func (s Square) String() string {
	if !s.Valid() {
		return "-"
	}
	return string([]byte{byte('a' + s.File()), byte('1' + s.Rank())})
}

// Move 는 한 번 만들어지면 바뀌지 않는다. 비교는 == 로 충분하다.
type Move struct {
	From      Square    `json:"from"`
	To        Square    `json:"to"`
	Promotion PieceType `json:"promotion,omitempty"`
	Color     Color     `json:"color"`
	Captured  PieceType `json:"captured,omitempty"`
}

func (m Move) UCI() string {
	return m.From.String() + m.To.String() + m.Promotion.String()
}

func (m Move) IsCapture() bool { return m.Captured != NoPieceType }

func (m Move) String() string { return m.UCI() }

// ParseUCI 는 e2e4 / e7e8q 형태만 받는다. 색과 포획 정보는 채우지 않는다.
func ParseUCI(code string) (from, to Square, promo PieceType, err error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if len(code) != 4 && len(code) != 5 {
		return NoSquare, NoSquare, NoPieceType, fmt.Errorf("invalid move code %q", code)
	}
	if from, err = ParseSquare(code[0:2]); err != nil {
		return NoSquare, NoSquare, NoPieceType, err
	}
	if to, err = ParseSquare(code[2:4]); err != nil {
		return NoSquare, NoSquare, NoPieceType, err
	}
	if len(code) == 5 {
		p, ok := ParsePieceType(code[4:])
		if !ok || p == Pawn || p == King {
			return NoSquare, NoSquare, NoPieceType, fmt.Errorf("invalid promotion in %q", code)
		}
		promo = p
	}
	return from, to, promo, nil
}

// Board 는 Square 인덱스 순서의 64칸 스냅샷.
type Board [64]Piece

func (b *Board) At(sq Square) Piece {
	if !sq.Valid() {
		return Piece{}
	}
	return b[sq]
}

type Result string

const (
	NoResult Result = ""
	WhiteWin Result = "1-0"
	BlackWin Result = "0-1"
	Draw     Result = "1/2-1/2"
)

func WinFor(c Color) Result {
	if c == White {
		return WhiteWin
	}
	return BlackWin
}

// Winner 는 무승부나 미결이면 빈 값.
func (r Result) Winner() Color {
	switch r {
	case WhiteWin:
		return White
	case BlackWin:
		return Black
	}
	return ""
}

// Final 은 종료된 대국이 가질 수 있는 결과인지.
func (r Result) Final() bool {
	switch r {
	case WhiteWin, BlackWin, Draw:
		return true
	}
	return false
}

// PGN 결과 토큰. 미결은 "*".
func (r Result) PGN() string {
	if r == NoResult {
		return "*"
	}
	return string(r)
}

type MatchStatus string

const (
	StatusWaiting  MatchStatus = "WAITING"
	StatusPlaying  MatchStatus = "PLAYING"
	StatusPaused   MatchStatus = "PAUSED"
	StatusFinished MatchStatus = "FINISHED"

	// 결과 없이 닫힌 대국. Finished 와 달리 Result 가 비어 있다.
	StatusAborted MatchStatus = "ABORTED"
)

// Closed 는 더 이상 수를 둘 수 없는 상태인지.
func (s MatchStatus) Closed() bool {
	return s == StatusFinished || s == StatusAborted
}

// GameStatus 는 현재 국면의 규칙상 상태.
type GameStatus string

const (
	GamePlaying              GameStatus = "playing"
	GameCheck                GameStatus = "check"
	GameCheckmate            GameStatus = "checkmate"
	GameStalemate            GameStatus = "stalemate"
	GameThreefoldRepetition  GameStatus = "threefold_repetition"
	GameInsufficientMaterial GameStatus = "insufficient_material"
	GameDraw                 GameStatus = "draw"
)

func (s GameStatus) Terminal() bool {
	switch s {
	case GameCheckmate, GameStalemate, GameThreefoldRepetition, GameInsufficientMaterial, GameDraw:
		return true
	}
	return false
}

type DrawReason string

const (
	DrawNone                 DrawReason = ""
	DrawStalemate            DrawReason = "stalemate"
	DrawThreefoldRepetition  DrawReason = "threefold_repetition"
	DrawInsufficientMaterial DrawReason = "insufficient_material"
	DrawFiftyMoveRule        DrawReason = "fifty_move_rule"
	DrawAgreement            DrawReason = "agreement"
	DrawOther                DrawReason = "other"
)

// EndReason 은 아카이브 기록용 종료 사유.
type EndReason string

const (
	EndCheckmate EndReason = "checkmate"
	EndResign    EndReason = "resign"
	EndTimeout   EndReason = "timeout"
	EndDraw      EndReason = "draw"
	EndAborted   EndReason = "aborted"
)

type MatchRecord struct {
	ID               string
	WhitePlayer      string
	BlackPlayer      string
	TimeControl      string
	Result           Result
	EndReason        EndReason
	DrawReason       DrawReason
	MovesUCI         []string
	MovesSAN         []string
	PGN              string
	FinalFEN         string
	Opening          string
	StartedAt        time.Time
	EndedAt          time.Time
	Duration         time.Duration
	WhiteRatingDelta int
	BlackRatingDelta int
}
