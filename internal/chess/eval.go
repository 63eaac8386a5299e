package chess

import "github.com/park285/cheese-arena/internal/domain"

const (
	MateScore = 10000.0

	centerBonus         = 0.1
	kingSafetyPenalty   = 0.5
	kingSafetyMoveLimit = 20
	mobilityWeight      = 0.01
)

var pieceValues = [...]float64{
	domain.NoPieceType: 0,
	domain.Pawn:        1,
	domain.Knight:      3,
	domain.Bishop:      3,
	domain.Rook:        5,
	domain.Queen:       9,
	domain.King:        0,
}

// d4, e4, d5, e5
var centerSquares = [...]domain.Square{27, 28, 35, 36}

// 킹이 초반에 머물러도 되는 파일: c, e, g
var kingHomeFiles = [...]int{2, 4, 6}

func pieceValue(pt domain.PieceType) float64 {
	if int(pt) >= len(pieceValues) {
		return 0
	}
	return pieceValues[pt]
}

// Evaluate 는 백 기준 점수. 체크메이트는 둘 차례인 쪽이 진 것으로 본다.
func Evaluate(e *GameEngine, level int) float64 {
	switch status := e.Status(); {
	case status == domain.GameCheckmate:
		if e.Turn() == domain.White {
			return -MateScore
		}
		return MateScore
	case status.Terminal():
		return 0
	}

	board := e.BoardSnapshot()
	score := materialScore(&board)
	if level >= 2 {
		score += centerScore(&board)
	}
	if level >= 3 {
		if e.MoveCount() < kingSafetyMoveLimit {
			score += kingSafetyScore(&board)
		}
		score += float64(len(e.LegalMoves())) * mobilityWeight * e.Turn().Sign()
	}
	return score
}

func materialScore(b *domain.Board) float64 {
	score := 0.0
	for _, p := range b {
		if p.Empty() {
			continue
		}
		score += pieceValue(p.Type) * p.Color.Sign()
	}
	return score
}

func centerScore(b *domain.Board) float64 {
	score := 0.0
	for _, sq := range centerSquares {
		if p := b.At(sq); !p.Empty() {
			score += centerBonus * p.Color.Sign()
		}
	}
	return score
}

// kingSafetyScore 는 홈 랭크를 떠났거나 c/e/g 파일이 아닌 킹에 감점한다.
func kingSafetyScore(b *domain.Board) float64 {
	score := 0.0
	if sq := kingSquare(b, domain.White); sq != domain.NoSquare && exposedKing(sq, 0) {
		score -= kingSafetyPenalty
	}
	if sq := kingSquare(b, domain.Black); sq != domain.NoSquare && exposedKing(sq, 7) {
		score += kingSafetyPenalty
	}
	return score
}

func exposedKing(sq domain.Square, homeRank int) bool {
	if sq.Rank() != homeRank {
		return true
	}
	for _, f := range kingHomeFiles {
		if sq.File() == f {
			return false
		}
	}
	return true
}
