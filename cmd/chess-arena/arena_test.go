package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/park285/cheese-arena/internal/adapter/chesspresenter"
	"github.com/park285/cheese-arena/internal/chessbuilder"
	"github.com/park285/cheese-arena/internal/config"
	"github.com/park285/cheese-arena/internal/domain"
	"github.com/park285/cheese-arena/internal/msgcat"
)

func testConfig(white, black string) *config.AppConfig {
	return &config.AppConfig{
		TimeControl:   "none",
		WhitePlayer:   white,
		BlackPlayer:   black,
		SessionTTLSec: 60,
		HistoryLimit:  10,
		RandomSeed:    7,
		SearchWorkers: 1,
	}
}

func newTestArena(t *testing.T, cfg *config.AppConfig) (*arena, *bytes.Buffer) {
	t.Helper()
	deps, err := chessbuilder.New(cfg, nil)
	if err != nil {
		t.Fatalf("chessbuilder.New: %v", err)
	}
	t.Cleanup(func() { _ = deps.Close() })
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat.New: %v", err)
	}
	var out bytes.Buffer
	a := newArena(deps, chesspresenter.NewFormatter(cat), chesspresenter.NewPresenter(&out), nil)
	if err := a.open(context.Background(), ""); err != nil {
		t.Fatalf("open: %v", err)
	}
	return a, &out
}

func steps(t *testing.T, a *arena, lines ...string) {
	t.Helper()
	for _, line := range lines {
		if !a.step(context.Background(), line) {
			t.Fatalf("step(%q) requested quit", line)
		}
	}
}

func TestArenaHumanVsAIAndUndo(t *testing.T) {
	a, out := newTestArena(t, testConfig("human:alice", "beginner"))
	steps(t, a, "e4")
	if ply := a.m.State().Ply; ply != 2 {
		t.Fatalf("ply after AI reply = %d", ply)
	}
	if !strings.Contains(out.String(), "1. e4 (e2e4)") || !strings.Contains(out.String(), "깊이") {
		t.Fatalf("output = %q", out.String())
	}
	steps(t, a, "undo")
	if ply := a.m.State().Ply; ply != 0 {
		t.Fatalf("ply after undo = %d", ply)
	}
	if !strings.Contains(out.String(), "2수 무르기") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestArenaIllegalMove(t *testing.T) {
	a, out := newTestArena(t, testConfig("human", "human"))
	steps(t, a, "e5")
	if !strings.Contains(out.String(), "둘 수 없는 수") {
		t.Fatalf("output = %q", out.String())
	}
	if a.m.State().Ply != 0 {
		t.Fatalf("illegal move must not change the position")
	}
}

func TestArenaCheckmateIsArchived(t *testing.T) {
	a, out := newTestArena(t, testConfig("human:alice", "human:bob"))
	steps(t, a, "f3", "e5", "g4", "d8h4")
	if a.m.Status() != domain.StatusFinished || a.m.Result() != domain.BlackWin {
		t.Fatalf("status=%s result=%s", a.m.Status(), a.m.Result())
	}
	if !strings.Contains(out.String(), "체크메이트") {
		t.Fatalf("output = %q", out.String())
	}
	recs, err := a.deps.Archive.Recent(context.Background(), 5)
	if err != nil || len(recs) != 1 {
		t.Fatalf("archive = %v, %v", recs, err)
	}
	out.Reset()
	steps(t, a, "history")
	if !strings.Contains(out.String(), "⬛ 흑승 alice vs bob") {
		t.Fatalf("history = %q", out.String())
	}
	out.Reset()
	steps(t, a, "show "+recs[0].ID)
	if !strings.Contains(out.String(), "2. g4 Qh4") {
		t.Fatalf("game = %q", out.String())
	}
	out.Reset()
	steps(t, a, "e4")
	if !strings.Contains(out.String(), "이미 끝난 대국") {
		t.Fatalf("move after finish = %q", out.String())
	}
}

func TestArenaSelfPlayStopsAtMaxPlies(t *testing.T) {
	cfg := testConfig("beginner", "beginner")
	cfg.MaxPlies = 4
	a, _ := newTestArena(t, cfg)
	a.runAI(context.Background())
	if a.m.Status() != domain.StatusAborted || a.m.EndReason() != domain.EndAborted {
		t.Fatalf("status=%s reason=%s", a.m.Status(), a.m.EndReason())
	}
	if ply := a.m.State().Ply; ply != 4 {
		t.Fatalf("ply = %d", ply)
	}
	recs, _ := a.deps.Archive.Recent(context.Background(), 5)
	if len(recs) != 0 {
		t.Fatalf("aborted match must not be archived: %v", recs)
	}
}

func TestArenaDrawAgainstLosingAI(t *testing.T) {
	cfg := testConfig("human", "beginner")
	cfg.StartFEN = "4k3/8/8/8/8/8/8/3QK3 w - - 0 1"
	a, _ := newTestArena(t, cfg)
	steps(t, a, "draw")
	if a.m.Result() != domain.Draw {
		t.Fatalf("result = %s", a.m.Result())
	}
	recs, _ := a.deps.Archive.Recent(context.Background(), 5)
	if len(recs) != 1 || recs[0].DrawReason != domain.DrawAgreement {
		t.Fatalf("archive = %+v", recs)
	}
}

func TestArenaAnalysisLeavesMatchAlone(t *testing.T) {
	a, out := newTestArena(t, testConfig("human", "human"))
	steps(t, a, "analysis", "e4", "e5")
	if a.m.State().Ply != 0 {
		t.Fatalf("analysis moves leaked into the match")
	}
	if !strings.Contains(out.String(), "4 . . . . P . . .") {
		t.Fatalf("analysis board = %q", out.String())
	}
	steps(t, a, "exit", "e4")
	if a.m.State().Ply != 1 {
		t.Fatalf("ply = %d", a.m.State().Ply)
	}
}

func TestArenaQuit(t *testing.T) {
	a, _ := newTestArena(t, testConfig("human", "human"))
	if a.step(context.Background(), "quit") {
		t.Fatalf("quit must stop the loop")
	}
	if a.m.Status() != domain.StatusPaused {
		t.Fatalf("status = %s", a.m.Status())
	}
}

func TestArenaResumeFromRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	cfg := testConfig("human:alice", "beginner")
	cfg.RedisURL = fmt.Sprintf("redis://%s/0", mr.Addr())

	a, _ := newTestArena(t, cfg)
	steps(t, a, "e4")
	id := a.m.ID()
	a.suspend()

	st, err := a.deps.Store.Load(context.Background(), id)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st.Ply != 2 || st.Clock.Status != domain.StatusPaused {
		t.Fatalf("stored = ply %d status %s", st.Ply, st.Clock.Status)
	}

	b, _ := newTestArena(t, cfg)
	if err := b.open(context.Background(), id); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if b.m.ID() != id || b.m.Status() != domain.StatusPlaying || b.m.State().Ply != 2 {
		t.Fatalf("resumed id=%s status=%s ply=%d", b.m.ID(), b.m.Status(), b.m.State().Ply)
	}
	steps(t, b, "d4")
	if st, _ := b.deps.Store.Load(context.Background(), id); st.Ply != 4 {
		t.Fatalf("stored ply after resume = %d", st.Ply)
	}
}

func TestReadLines(t *testing.T) {
	var got []string
	for line := range readLines(strings.NewReader("e4\nstatus\n")) {
		got = append(got, line)
	}
	if strings.Join(got, ",") != "e4,status" {
		t.Fatalf("lines = %v", got)
	}
}
