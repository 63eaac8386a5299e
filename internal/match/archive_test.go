package match

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/park285/cheese-arena/internal/domain"
)

func finishedRecord(t *testing.T, id string) domain.MatchRecord {
	t.Helper()
	m, now := newTestMatch(t, Config{ID: id})
	play(t, m, "e4", "e5")
	now.Advance(time.Minute)
	if err := m.Resign(domain.White); err != nil {
		t.Fatalf("Resign: %v", err)
	}
	rec, err := m.Record()
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	return rec
}

func TestMemoryArchive(t *testing.T) {
	a := NewMemoryArchive()
	ctx := context.Background()
	first := finishedRecord(t, "a-1")
	second := finishedRecord(t, "a-2")
	for _, rec := range []domain.MatchRecord{first, second} {
		if err := a.Save(ctx, rec); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	if err := a.Save(ctx, first); !errors.Is(err, ErrDuplicateRecord) {
		t.Fatalf("duplicate err = %v", err)
	}
	got, err := a.Get(ctx, "a-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Result != domain.BlackWin || got.EndReason != domain.EndResign {
		t.Fatalf("record = %+v", got)
	}
	got.MovesUCI[0] = "tampered"
	again, _ := a.Get(ctx, "a-1")
	if again.MovesUCI[0] != "e2e4" {
		t.Fatalf("archive leaked internal slice")
	}
	recent, err := a.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 1 || recent[0].ID != "a-2" {
		t.Fatalf("recent = %+v", recent)
	}
	if _, err := a.Get(ctx, "missing"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Fatalf("missing err = %v", err)
	}
}

func TestBuildPGNFromCustomPosition(t *testing.T) {
	rec := domain.MatchRecord{
		WhitePlayer: "Al \"The Rook\"",
		BlackPlayer: "Bo",
		Result:      domain.BlackWin,
		EndReason:   domain.EndCheckmate,
		MovesSAN:    []string{"Ra1#"},
		EndedAt:     time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
	}
	pgn := BuildPGN(rec, "r5k1/8/8/8/8/8/5PPP/6K1 b - - 0 40")
	for _, want := range []string{
		"[Date \"2024.03.09\"]",
		"[White \"Al \\\"The Rook\\\"\"]",
		"[SetUp \"1\"]",
		"[FEN \"r5k1/8/8/8/8/8/5PPP/6K1 b - - 0 40\"]",
		"40... Ra1# 0-1",
	} {
		if !strings.Contains(pgn, want) {
			t.Fatalf("PGN missing %q:\n%s", want, pgn)
		}
	}
}

func TestBuildPGNOpeningTags(t *testing.T) {
	rec := domain.MatchRecord{Opening: "B20 Sicilian Defense", MovesSAN: []string{"e4", "c5", "Nf3"}}
	pgn := BuildPGN(rec, "")
	if !strings.Contains(pgn, "[ECO \"B20\"]") || !strings.Contains(pgn, "[Opening \"Sicilian Defense\"]") {
		t.Fatalf("opening tags missing:\n%s", pgn)
	}
	if !strings.HasSuffix(pgn, "1. e4 c5 2. Nf3 *") {
		t.Fatalf("movetext:\n%s", pgn)
	}
	if strings.Contains(pgn, "SetUp") {
		t.Fatalf("standard start must not carry SetUp")
	}
}

// CHESS_TEST_DATABASE_URL 이 있을 때만 실제 Postgres 로 확인한다.
func TestPostgresArchive(t *testing.T) {
	dsn := os.Getenv("CHESS_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("CHESS_TEST_DATABASE_URL not set")
	}
	a, err := NewPostgresArchive(dsn)
	if err != nil {
		t.Fatalf("NewPostgresArchive: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	ctx := context.Background()
	rec := finishedRecord(t, "pg-"+time.Now().Format("150405.000000"))
	if err := a.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := a.Save(ctx, rec); !errors.Is(err, ErrDuplicateRecord) {
		t.Fatalf("duplicate err = %v", err)
	}
	got, err := a.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.PGN != rec.PGN || len(got.MovesSAN) != 2 {
		t.Fatalf("got %+v", got)
	}
}
