package chess

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/park285/cheese-arena/internal/domain"
)

// scoreRootParallel 은 워커마다 엔진 복제본 하나를 주고 루트 수를 나눠 평가한다.
// 점수는 인덱스 자리에 쓰므로 결과는 순차 탐색과 같다.
func (s *Searcher) scoreRootParallel(ctx context.Context, e *GameEngine, p DifficultyProfile, moves []domain.Move, workers int) ([]float64, int64, error) {
	if workers > len(moves) {
		workers = len(moves)
	}
	mover := e.Turn()
	scores := make([]float64, len(moves))
	var nodes atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	jobs := make(chan int)

	g.Go(func() error {
		defer close(jobs)
		for i := range moves {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		clone := e.Clone()
		g.Go(func() error {
			st := &searchState{ctx: ctx, level: p.Level, prune: s.prune}
			defer func() { nodes.Add(st.nodes) }()
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					return err
				}
				v, err := st.scoreMove(clone, moves[i], p.MaxDepth-1)
				if err != nil {
					return err
				}
				scores[i] = v * mover.Sign()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nodes.Load(), err
	}
	return scores, nodes.Load(), nil
}
