package chess

import (
	"math/rand"

	"go.uber.org/zap"

	"github.com/park285/cheese-arena/internal/chess/openingbook"
	"github.com/park285/cheese-arena/internal/domain"
)

// bookMaxPly 부터는 책을 보지 않고 탐색한다.
const bookMaxPly = 24

// BookSource 는 국면별 오프닝 북 후보를 준다.
type BookSource interface {
	Moves(fen string) ([]openingbook.Result, error)
}

func (s *Searcher) bookMove(e *GameEngine, r *rand.Rand) (domain.Move, bool) {
	if s.book == nil || e.Ply() >= bookMaxPly {
		return domain.Move{}, false
	}
	cands, err := s.book.Moves(e.FEN())
	if err != nil {
		s.logger.Warn("book_lookup_failed", zap.String("fen", e.FEN()), zap.Error(err))
		return domain.Move{}, false
	}
	return pickBookMove(e, cands, r)
}

// pickBookMove 는 합법수와 맞는 후보 중 가중치 비례로 하나를 고른다.
func pickBookMove(e *GameEngine, cands []openingbook.Result, r *rand.Rand) (domain.Move, bool) {
	legal := e.LegalMoves()
	var (
		moves   []domain.Move
		weights []int
		total   int
	)
	for _, c := range cands {
		mv, ok := matchLegal(e, legal, c.Move)
		if !ok {
			continue
		}
		moves = append(moves, mv)
		weights = append(weights, int(c.Weight))
		total += int(c.Weight)
	}
	if len(moves) == 0 {
		return domain.Move{}, false
	}
	if total == 0 {
		return moves[0], true
	}
	n := r.Intn(total)
	for i, w := range weights {
		if n < w {
			return moves[i], true
		}
		n -= w
	}
	return moves[len(moves)-1], true
}

func matchLegal(e *GameEngine, legal []domain.Move, code string) (domain.Move, bool) {
	find := func(code string) (domain.Move, bool) {
		for _, mv := range legal {
			if mv.UCI() == code {
				return mv, true
			}
		}
		return domain.Move{}, false
	}
	if mv, ok := find(code); ok {
		return mv, true
	}
	alias, ok := openingbook.CastlingAlias(code)
	if !ok {
		return domain.Move{}, false
	}
	from, _, _, err := domain.ParseUCI(code)
	if err != nil || e.PieceAt(from).Type != domain.King {
		return domain.Move{}, false
	}
	return find(alias)
}
