package chess

import (
	"math"
	"testing"

	"github.com/park285/cheese-arena/internal/domain"
)

func approxEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestEvaluateStartPosition(t *testing.T) {
	e := newTestEngine(t, "")
	board := e.BoardSnapshot()
	if got := materialScore(&board); got != 0 {
		t.Fatalf("material = %v want 0", got)
	}
	if got := Evaluate(e, 1); got != 0 {
		t.Fatalf("level 1 = %v want 0", got)
	}
	if got := Evaluate(e, 2); got != 0 {
		t.Fatalf("level 2 = %v want 0", got)
	}
	// 20 legal moves for white
	if got := Evaluate(e, 3); !approxEqual(got, 0.2) {
		t.Fatalf("level 3 = %v want 0.2", got)
	}
}

func TestEvaluateCheckmateSign(t *testing.T) {
	whiteMated := newTestEngine(t, "", "f2f3", "e7e5", "g2g4", "d8h4")
	for level := MinLevel; level <= MaxLevel; level++ {
		if got := Evaluate(whiteMated, level); got != -MateScore {
			t.Fatalf("white mated level %d = %v want %v", level, got, -MateScore)
		}
	}

	blackMated := newTestEngine(t, "", "e2e4", "e7e5", "f1c4", "b8c6", "d1h5", "g8f6", "h5f7")
	for level := MinLevel; level <= MaxLevel; level++ {
		if got := Evaluate(blackMated, level); got != MateScore {
			t.Fatalf("black mated level %d = %v want %v", level, got, MateScore)
		}
	}
}

func TestEvaluateDrawIsZero(t *testing.T) {
	stalemate := newTestEngine(t, "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	if got := Evaluate(stalemate, 5); got != 0 {
		t.Fatalf("stalemate = %v want 0 despite queen up", got)
	}
}

func TestEvaluateMaterialAndCenter(t *testing.T) {
	// 백: 퀸(d4) 킹(g1). 흑: 룩(e5) 킹(g8).
	e := newTestEngine(t, "6k1/8/8/4r3/3Q4/8/8/6K1 w - - 0 1")
	if got := Evaluate(e, 1); !approxEqual(got, 4) {
		t.Fatalf("level 1 = %v want 4", got)
	}
	// 중앙 d4 +0.1, e5 -0.1 상쇄
	if got := Evaluate(e, 2); !approxEqual(got, 4) {
		t.Fatalf("level 2 = %v want 4", got)
	}
}

func TestKingSafetyHeuristic(t *testing.T) {
	cases := []struct {
		name  string
		white string
		black string
		want  float64
	}{
		{name: "home squares", white: "e1", black: "e8", want: 0},
		{name: "castled", white: "g1", black: "c8", want: 0},
		{name: "white on f1", white: "f1", black: "g8", want: -0.5},
		{name: "white walked up", white: "e2", black: "e8", want: -0.5},
		{name: "black off rank", white: "c1", black: "g7", want: 0.5},
		{name: "both exposed", white: "d2", black: "h8", want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var b domain.Board
			b[sq(t, tc.white)] = domain.Piece{Type: domain.King, Color: domain.White}
			b[sq(t, tc.black)] = domain.Piece{Type: domain.King, Color: domain.Black}
			if got := kingSafetyScore(&b); !approxEqual(got, tc.want) {
				t.Fatalf("kingSafetyScore = %v want %v", got, tc.want)
			}
		})
	}
}

func TestKingSafetyOnlyEarly(t *testing.T) {
	// 킹 f1, 흑 킹 g8: 초반이면 -0.5 감점.
	fen := "6k1/p7/8/8/8/8/P7/5K2 w - - 0 1"
	early := newTestEngine(t, fen)
	mobility := float64(len(early.LegalMoves())) * mobilityWeight
	if got := Evaluate(early, 3); !approxEqual(got, -0.5+mobility) {
		t.Fatalf("early = %v want %v", got, -0.5+mobility)
	}
	late := newTestEngine(t, fen)
	late.history = make([]domain.Move, 2*kingSafetyMoveLimit)
	if late.MoveCount() < kingSafetyMoveLimit {
		t.Fatalf("MoveCount = %d", late.MoveCount())
	}
	if got := Evaluate(late, 3); !approxEqual(got, mobility) {
		t.Fatalf("late = %v want %v", got, mobility)
	}
}

func TestMobilitySignFollowsSideToMove(t *testing.T) {
	e := newTestEngine(t, "", "e2e4")
	n := float64(len(e.LegalMoves()))
	// 백 e4 폰이 중앙(+0.1), 흑 차례라 기동성은 음수.
	want := 0.1 - n*mobilityWeight
	if got := Evaluate(e, 3); !approxEqual(got, want) {
		t.Fatalf("Evaluate = %v want %v", got, want)
	}
}
