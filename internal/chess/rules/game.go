// Package rules 는 corentings/chess 위에 얹은 합법수/종국 판정 어댑터.
package rules

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"

	"github.com/park285/cheese-arena/internal/domain"
)

var (
	ErrIllegal    = errors.New("rules: illegal move")
	ErrNoPrevious = errors.New("rules: nothing to undo")
	ErrBadFEN     = errors.New("rules: invalid fen")
	ErrBadPGN     = errors.New("rules: invalid pgn")
)

// Game 은 현재 국면과 되돌리기용 이전 국면 스택을 가진다.
type Game struct {
	cur      *nchess.Game
	prev     []*nchess.Game
	startFEN string
	custom   bool
}

func New() *Game {
	g := nchess.NewGame()
	return &Game{cur: g, startFEN: g.FEN()}
}

// FromFEN 은 빈 문자열이면 표준 시작 국면을 쓴다.
func FromFEN(fen string) (*Game, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" {
		return New(), nil
	}
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFEN, err)
	}
	g := nchess.NewGame(opt)
	start := g.FEN()
	return &Game{cur: g, startFEN: start, custom: start != nchess.NewGame().FEN()}, nil
}

// ParsePGN 은 기보를 읽어 시작 FEN 과 UCI 수순을 돌려준다.
func ParsePGN(pgn string) (string, []string, error) {
	if strings.TrimSpace(pgn) == "" {
		return "", nil, fmt.Errorf("%w: empty", ErrBadPGN)
	}
	opt, err := nchess.PGN(strings.NewReader(pgn))
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrBadPGN, err)
	}
	g := nchess.NewGame(opt)
	positions := g.Positions()
	moves := g.Moves()
	if len(positions) == 0 {
		return "", nil, fmt.Errorf("%w: no positions", ErrBadPGN)
	}
	notation := nchess.UCINotation{}
	codes := make([]string, 0, len(moves))
	for i, mv := range moves {
		if i >= len(positions) {
			break
		}
		codes = append(codes, notation.Encode(positions[i], mv))
	}
	return positions[0].String(), codes, nil
}

func (g *Game) StartFEN() string { return g.startFEN }

func (g *Game) Turn() domain.Color {
	return fromColor(g.cur.Position().Turn())
}

func (g *Game) LegalMoves() []domain.Move {
	pos := g.cur.Position()
	valid := pos.ValidMoves()
	out := make([]domain.Move, 0, len(valid))
	for _, mv := range valid {
		out = append(out, describe(pos, mv.S1(), mv.S2(), mv.Promo(), mv.HasTag(nchess.EnPassant)))
	}
	return out
}

// Apply 는 from/to/promo 가 합법수 목록에 있을 때만 국면을 바꾼다.
// 승격 기물을 생략하면 퀸으로 본다.
func (g *Game) Apply(from, to domain.Square, promo domain.PieceType) (domain.Move, error) {
	if !from.Valid() || !to.Valid() {
		return domain.Move{}, fmt.Errorf("%w: bad square", ErrIllegal)
	}
	pos := g.cur.Position()
	s1, s2 := toSquare(from), toSquare(to)
	var (
		found  bool
		result domain.Move
	)
	for _, mv := range pos.ValidMoves() {
		if mv.S1() != s1 || mv.S2() != s2 {
			continue
		}
		p := fromPieceType(mv.Promo())
		if p != promo && (promo != domain.NoPieceType || p != domain.Queen) {
			continue
		}
		result = describe(pos, mv.S1(), mv.S2(), mv.Promo(), mv.HasTag(nchess.EnPassant))
		found = true
		break
	}
	if !found {
		return domain.Move{}, fmt.Errorf("%w: %s%s%s", ErrIllegal, from, to, promo)
	}

	decoded, err := nchess.UCINotation{}.Decode(pos, result.UCI())
	if err != nil {
		return domain.Move{}, fmt.Errorf("%w: decode %s: %v", ErrIllegal, result.UCI(), err)
	}
	next := g.cur.Clone()
	if err := next.Move(decoded, nil); err != nil {
		return domain.Move{}, fmt.Errorf("%w: %s: %v", ErrIllegal, result.UCI(), err)
	}
	g.prev = append(g.prev, g.cur)
	g.cur = next
	return result, nil
}

// Resolve 는 UCI 를 먼저 보고 안 되면 SAN 으로 해석한다.
func (g *Game) Resolve(text string) (domain.Square, domain.Square, domain.PieceType, error) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return domain.NoSquare, domain.NoSquare, domain.NoPieceType, fmt.Errorf("%w: empty input", ErrIllegal)
	}
	if from, to, promo, err := domain.ParseUCI(raw); err == nil {
		return from, to, promo, nil
	}
	mv, err := nchess.AlgebraicNotation{}.Decode(g.cur.Position(), raw)
	if err != nil || mv == nil {
		return domain.NoSquare, domain.NoSquare, domain.NoPieceType, fmt.Errorf("%w: %q", ErrIllegal, raw)
	}
	return fromSquare(mv.S1()), fromSquare(mv.S2()), fromPieceType(mv.Promo()), nil
}

func (g *Game) Undo() error {
	n := len(g.prev)
	if n == 0 {
		return ErrNoPrevious
	}
	g.cur = g.prev[n-1]
	g.prev[n-1] = nil
	g.prev = g.prev[:n-1]
	return nil
}

// Status 판정 순서: 체크메이트, 스테일메이트, 반복, 기물 부족, 기타 무승부, 체크.
func (g *Game) Status() domain.GameStatus {
	pos := g.cur.Position()
	switch pos.Status() {
	case nchess.Checkmate:
		return domain.GameCheckmate
	case nchess.Stalemate:
		return domain.GameStalemate
	}
	switch g.cur.Method() {
	case nchess.FivefoldRepetition:
		return domain.GameThreefoldRepetition
	case nchess.InsufficientMaterial:
		return domain.GameInsufficientMaterial
	case nchess.SeventyFiveMoveRule:
		return domain.GameDraw
	}
	draw := false
	for _, m := range g.cur.EligibleDraws() {
		switch m {
		case nchess.ThreefoldRepetition:
			return domain.GameThreefoldRepetition
		case nchess.FiftyMoveRule:
			draw = true
		}
	}
	if draw {
		return domain.GameDraw
	}
	if g.InCheck() {
		return domain.GameCheck
	}
	return domain.GamePlaying
}

func (g *Game) InCheck() bool {
	pos := g.cur.Position()
	if pos.Status() == nchess.Checkmate {
		return true
	}
	moves := g.cur.Moves()
	if n := len(moves); n > 0 {
		return moves[n-1].HasTag(nchess.Check)
	}
	return kingAttacked(pos)
}

func (g *Game) Board() domain.Board {
	var b domain.Board
	board := g.cur.Position().Board()
	for file := nchess.FileA; file <= nchess.FileH; file++ {
		for rank := nchess.Rank1; rank <= nchess.Rank8; rank++ {
			sq := nchess.NewSquare(file, rank)
			piece := board.Piece(sq)
			if piece == nchess.NoPiece {
				continue
			}
			b[fromSquare(sq)] = domain.Piece{Type: fromPieceType(piece.Type()), Color: fromColor(piece.Color())}
		}
	}
	return b
}

func (g *Game) FEN() string { return g.cur.FEN() }

// SAN 은 지금까지 둔 수의 표준 기보 표기.
func (g *Game) SAN() []string {
	positions := g.cur.Positions()
	moves := g.cur.Moves()
	notation := nchess.AlgebraicNotation{}
	out := make([]string, 0, len(moves))
	for i, mv := range moves {
		if i >= len(positions) {
			break
		}
		out = append(out, notation.Encode(positions[i], mv))
	}
	return out
}

func (g *Game) PGN() string {
	clone := g.cur.Clone()
	if g.custom {
		clone.AddTagPair("SetUp", "1")
		clone.AddTagPair("FEN", g.startFEN)
	}
	return strings.TrimSpace(clone.String())
}

var ecoBook = sync.OnceValue(opening.NewBookECO)

// Opening 은 현재 수순에 맞는 ECO 코드와 이름. 없으면 빈 문자열.
func (g *Game) Opening() (string, string) {
	if g.custom {
		return "", ""
	}
	book := ecoBook()
	if book == nil {
		return "", ""
	}
	if eco := book.Find(g.cur.Moves()); eco != nil {
		return eco.Code(), eco.Title()
	}
	return "", ""
}

func describe(pos *nchess.Position, s1, s2 nchess.Square, promo nchess.PieceType, enPassant bool) domain.Move {
	board := pos.Board()
	mv := domain.Move{
		From:      fromSquare(s1),
		To:        fromSquare(s2),
		Promotion: fromPieceType(promo),
		Color:     fromColor(pos.Turn()),
	}
	switch {
	case enPassant:
		mv.Captured = domain.Pawn
	default:
		if target := board.Piece(s2); target != nchess.NoPiece {
			mv.Captured = fromPieceType(target.Type())
		}
	}
	return mv
}

// kingAttacked 는 둔 수가 없을 때만 쓴다. 차례를 뒤집은 국면에서 상대가 킹 칸으로 갈 수 있는지 본다.
func kingAttacked(pos *nchess.Position) bool {
	fields := strings.Fields(pos.String())
	if len(fields) < 4 {
		return false
	}
	king := nchess.NoSquare
	board := pos.Board()
	turn := pos.Turn()
	for sq := nchess.A1; sq <= nchess.H8; sq++ {
		p := board.Piece(sq)
		if p.Type() == nchess.King && p.Color() == turn {
			king = sq
			break
		}
	}
	if king == nchess.NoSquare {
		return false
	}
	if fields[1] == "w" {
		fields[1] = "b"
	} else {
		fields[1] = "w"
	}
	fields[2], fields[3] = "-", "-"
	opt, err := nchess.FEN(strings.Join(fields, " "))
	if err != nil {
		return false
	}
	for _, mv := range nchess.NewGame(opt).Position().ValidMoves() {
		if mv.S2() == king {
			return true
		}
	}
	return false
}

func toSquare(sq domain.Square) nchess.Square {
	return nchess.NewSquare(nchess.File(sq.File()), nchess.Rank(sq.Rank()))
}

func fromSquare(sq nchess.Square) domain.Square {
	return domain.NewSquare(int(sq.File()), int(sq.Rank()))
}

func fromColor(c nchess.Color) domain.Color {
	if c == nchess.Black {
		return domain.Black
	}
	return domain.White
}

func fromPieceType(p nchess.PieceType) domain.PieceType {
	switch p {
	case nchess.Pawn:
		return domain.Pawn
	case nchess.Knight:
		return domain.Knight
	case nchess.Bishop:
		return domain.Bishop
	case nchess.Rook:
		return domain.Rook
	case nchess.Queen:
		return domain.Queen
	case nchess.King:
		return domain.King
	}
	return domain.NoPieceType
}
