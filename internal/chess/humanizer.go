package chess

import (
	"math/rand"

	"github.com/park285/cheese-arena/internal/domain"
)

const jitterScale = 100

// randomShortcut 는 가장 약한 단계에서 탐색을 건너뛰고 아무 합법수나 고른다.
func randomShortcut(p DifficultyProfile, moves []domain.Move, r *rand.Rand) (domain.Move, bool) {
	if p.Level != MinLevel || len(moves) == 0 {
		return domain.Move{}, false
	}
	if r.Float64() >= p.Randomness {
		return domain.Move{}, false
	}
	return moves[r.Intn(len(moves))], true
}

func jitter(p DifficultyProfile, r *rand.Rand) float64 {
	return (r.Float64() - 0.5) * p.Randomness * jitterScale
}

// pickBest 는 보정 점수가 엄격히 가장 큰 후보를 고른다. 동점이면 앞의 것.
// 지터는 열거 순서대로 뽑는다.
func pickBest(p DifficultyProfile, scores []float64, r *rand.Rand) (int, float64) {
	best := -1
	bestScore := 0.0
	for i, s := range scores {
		adjusted := s + jitter(p, r)
		if best < 0 || adjusted > bestScore {
			best = i
			bestScore = adjusted
		}
	}
	return best, bestScore
}
