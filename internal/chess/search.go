package chess

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-arena/internal/domain"
)

type SearchOptions struct {
	Seed int64
	// Workers 가 0 이면 프로필 값을 쓴다.
	Workers int
	// DisablePruning 은 같은 값을 내는 전수 탐색. 비교 검증용.
	DisablePruning bool
	// Book 이 있으면 초반에는 탐색 전에 책 수를 쓴다.
	Book   BookSource
	Logger *zap.Logger
}

type SearchResult struct {
	Move     domain.Move
	Score    float64
	Adjusted float64
	Nodes    int64
	Depth    int
	Random   bool
	Book     bool
	Duration time.Duration
}

// Searcher 는 고정 깊이 미니맥스 + 알파베타 탐색기.
type Searcher struct {
	randMu  sync.Mutex
	rand    *rand.Rand
	workers int
	prune   bool
	book    BookSource
	logger  *zap.Logger
}

func NewSearcher(opts SearchOptions) *Searcher {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Searcher{
		rand:    rand.New(rand.NewSource(seed)),
		workers: opts.Workers,
		prune:   !opts.DisablePruning,
		book:    opts.Book,
		logger:  logger,
	}
}

func (s *Searcher) random() *rand.Rand {
	s.randMu.Lock()
	seed := s.rand.Int63()
	s.randMu.Unlock()
	return rand.New(rand.NewSource(seed))
}

func (s *Searcher) SetRandomSeed(seed int64) {
	s.randMu.Lock()
	s.rand = rand.New(rand.NewSource(seed))
	s.randMu.Unlock()
}

// SelectMove 는 둘 수를 고른다. 합법수가 없으면 ok=false.
// 엔진은 호출 전후로 같은 상태여야 하며, 종국이 아닌데 합법수가 없으면 panic.
func (s *Searcher) SelectMove(ctx context.Context, e *GameEngine, p DifficultyProfile) (SearchResult, bool, error) {
	if err := ValidateProfile(p); err != nil {
		return SearchResult{}, false, err
	}
	start := time.Now()
	r := s.random()

	moves := e.LegalMoves()
	if len(moves) == 0 {
		if !e.IsGameOver() {
			panic(fmt.Sprintf("chess: no legal moves in non-terminal position %s", e.FEN()))
		}
		return SearchResult{}, false, nil
	}

	if mv, ok := randomShortcut(p, moves, r); ok {
		res := SearchResult{Move: mv, Random: true, Duration: time.Since(start)}
		s.logSelect(p, res)
		return res, true, nil
	}

	if mv, ok := s.bookMove(e, r); ok {
		res := SearchResult{Move: mv, Book: true, Duration: time.Since(start)}
		s.logSelect(p, res)
		return res, true, nil
	}

	scores, nodes, err := s.scoreRoot(ctx, e, p, moves)
	if err != nil {
		return SearchResult{}, false, err
	}
	idx, adjusted := pickBest(p, scores, r)
	res := SearchResult{
		Move:     moves[idx],
		Score:    scores[idx],
		Adjusted: adjusted,
		Nodes:    nodes,
		Depth:    p.MaxDepth,
		Duration: time.Since(start),
	}
	s.logSelect(p, res)
	return res, true, nil
}

func (s *Searcher) logSelect(p DifficultyProfile, res SearchResult) {
	s.logger.Debug("search_select",
		zap.Int("level", p.Level),
		zap.Int("depth", res.Depth),
		zap.String("move", res.Move.UCI()),
		zap.Bool("random", res.Random),
		zap.Bool("book", res.Book),
		zap.Int64("nodes", res.Nodes),
		zap.Float64("score", res.Score),
		zap.Duration("took", res.Duration),
	)
}

// scoreRoot 는 각 루트 수를 둔 쪽 관점의 점수로 돌려준다.
func (s *Searcher) scoreRoot(ctx context.Context, e *GameEngine, p DifficultyProfile, moves []domain.Move) ([]float64, int64, error) {
	workers := s.workers
	if workers == 0 {
		workers = p.Workers
	}
	if workers > 1 && len(moves) > 1 {
		return s.scoreRootParallel(ctx, e, p, moves, workers)
	}

	mover := e.Turn()
	scores := make([]float64, len(moves))
	st := &searchState{ctx: ctx, level: p.Level, prune: s.prune}
	for i, mv := range moves {
		if err := ctx.Err(); err != nil {
			return nil, st.nodes, err
		}
		v, err := st.scoreMove(e, mv, p.MaxDepth-1)
		if err != nil {
			return nil, st.nodes, err
		}
		scores[i] = v * mover.Sign()
	}
	return scores, st.nodes, nil
}

// Minimax 는 현재 국면의 백 기준 값과 방문 노드 수를 돌려준다.
func Minimax(e *GameEngine, depth, level int, prune bool) (float64, int64) {
	st := &searchState{level: level, prune: prune}
	v := st.minimax(e, depth, math.Inf(-1), math.Inf(1))
	return v, st.nodes
}

// cancelCheckMask 노드마다 한 번 ctx 를 본다.
const cancelCheckMask = 255

// searchCanceled 는 트리 깊은 곳에서 취소를 루트까지 올리는 panic 값.
type searchCanceled struct{ err error }

type searchState struct {
	ctx   context.Context // nil 이면 취소 검사를 하지 않는다
	level int
	prune bool
	nodes int64
}

// scoreMove 는 루트 수 하나를 평가한다. 취소되면 probe 가 수를 되돌린 뒤 ctx 오류를 돌려준다.
func (st *searchState) scoreMove(e *GameEngine, mv domain.Move, depth int) (v float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			c, ok := r.(searchCanceled)
			if !ok {
				panic(r)
			}
			v, err = 0, c.err
		}
	}()
	v = e.probe(mv, func() float64 {
		return st.minimax(e, depth, math.Inf(-1), math.Inf(1))
	})
	return v, nil
}

func (st *searchState) incNodes() {
	st.nodes++
	if st.ctx == nil || st.nodes&cancelCheckMask != 0 {
		return
	}
	if err := st.ctx.Err(); err != nil {
		panic(searchCanceled{err: err})
	}
}

// minimax 에서 백은 최대화, 흑은 최소화한다.
func (st *searchState) minimax(e *GameEngine, depth int, alpha, beta float64) float64 {
	st.incNodes()
	if depth <= 0 || e.IsGameOver() {
		return Evaluate(e, st.level)
	}
	moves := e.LegalMoves()
	if len(moves) == 0 {
		panic(fmt.Sprintf("chess: no legal moves in non-terminal position %s", e.FEN()))
	}

	if e.Turn() == domain.White {
		best := math.Inf(-1)
		for _, mv := range moves {
			v := e.probe(mv, func() float64 { return st.minimax(e, depth-1, alpha, beta) })
			best = math.Max(best, v)
			if st.prune {
				alpha = math.Max(alpha, v)
				if beta <= alpha {
					break
				}
			}
		}
		return best
	}

	best := math.Inf(1)
	for _, mv := range moves {
		v := e.probe(mv, func() float64 { return st.minimax(e, depth-1, alpha, beta) })
		best = math.Min(best, v)
		if st.prune {
			beta = math.Min(beta, v)
			if beta <= alpha {
				break
			}
		}
	}
	return best
}
