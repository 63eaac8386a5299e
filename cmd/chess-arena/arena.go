package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-arena/internal/adapter/chesspresenter"
	"github.com/park285/cheese-arena/internal/chess"
	"github.com/park285/cheese-arena/internal/chessbuilder"
	"github.com/park285/cheese-arena/internal/domain"
	"github.com/park285/cheese-arena/internal/match"
)

const (
	flagCheckInterval = 200 * time.Millisecond
	shutdownTimeout   = 3 * time.Second
)

// arena 는 한 번에 한 대국을 진행하는 터미널 세션.
type arena struct {
	deps   *chessbuilder.Deps
	f      *chesspresenter.Formatter
	p      *chesspresenter.Presenter
	logger *zap.Logger

	m        *match.Match
	savedPly int
	settled  bool
}

func newArena(deps *chessbuilder.Deps, f *chesspresenter.Formatter, p *chesspresenter.Presenter, logger *zap.Logger) *arena {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &arena{deps: deps, f: f, p: p, logger: logger}
}

// open 은 새 대국을 시작하거나 resumeID 의 저장본을 이어받는다.
func (a *arena) open(ctx context.Context, resumeID string) error {
	if resumeID = strings.TrimSpace(resumeID); resumeID != "" {
		return a.resume(ctx, resumeID)
	}
	m, err := a.deps.NewMatch()
	if err != nil {
		return fmt.Errorf("new match: %w", err)
	}
	if err := m.Start(); err != nil {
		return fmt.Errorf("start match: %w", err)
	}
	if a.deps.Store != nil {
		if err := a.deps.Store.Create(ctx, m.State()); err != nil {
			return fmt.Errorf("create match: %w", err)
		}
	}
	a.m, a.savedPly, a.settled = m, 0, false
	a.show(a.f.Start(m.Snapshot()))
	a.settle(ctx)
	return nil
}

func (a *arena) resume(ctx context.Context, id string) error {
	if a.deps.Store == nil {
		return errors.New("resume requires REDIS_URL")
	}
	st, err := a.deps.Store.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("load match %s: %w", id, err)
	}
	m, err := match.Restore(st, match.Config{Searcher: a.deps.Searcher, Logger: a.logger.Named("match")})
	if err != nil {
		return err
	}
	if m.Status() == domain.StatusPaused {
		if err := m.Resume(); err != nil {
			return err
		}
	}
	a.m, a.savedPly, a.settled = m, st.Ply, false
	a.logger.Info("match_resumed", zap.String("match_id", id), zap.Int("ply", st.Ply))
	a.show(a.f.Start(m.Snapshot()))
	a.settle(ctx)
	return nil
}

// run 은 입력, 시계 감시, 종료 신호를 한 루프에서 처리한다.
func (a *arena) run(ctx context.Context, lines <-chan string) error {
	ticker := time.NewTicker(flagCheckInterval)
	defer ticker.Stop()

	a.runAI(ctx)
	a.prompt()
	for {
		select {
		case <-ctx.Done():
			a.suspend()
			return ctx.Err()
		case <-ticker.C:
			if a.m.CheckFlag() {
				a.settle(ctx)
				a.prompt()
			}
		case line, ok := <-lines:
			if !ok {
				a.suspend()
				return nil
			}
			if !a.step(ctx, line) {
				return nil
			}
			a.prompt()
		}
	}
}

// step 은 명령 하나를 처리하고 AI 차례를 이어서 둔다. false 면 종료.
func (a *arena) step(ctx context.Context, line string) bool {
	if !a.handle(ctx, line) {
		return false
	}
	a.runAI(ctx)
	return true
}

func (a *arena) handle(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	if eng, err := a.m.Analysis(); err == nil {
		if a.handleAnalysis(eng, cmd, fields[0]) {
			return true
		}
	}

	switch cmd {
	case "help", "?":
		a.show(a.f.Help())
	case "quit":
		a.suspend()
		return false
	case "new":
		if !a.m.Status().Closed() {
			if err := a.m.Abort(); err != nil {
				a.showErr(err)
				return true
			}
			a.settle(ctx)
		}
		if err := a.open(ctx, ""); err != nil {
			a.showErr(err)
		}
	case "board":
		a.show(chesspresenter.Board(a.m.FEN()))
	case "fen":
		a.show(a.m.FEN())
	case "status":
		snap := a.m.Snapshot()
		a.show(chesspresenter.Board(snap.FEN))
		a.show(a.f.Status(snap))
	case "moves":
		if len(args) == 0 {
			a.show(a.f.Help())
			return true
		}
		moves, err := a.m.LegalMovesFrom(args[0])
		if err != nil {
			a.showErr(err)
			return true
		}
		a.show(a.f.LegalMoves(args[0], moves))
	case "undo":
		a.undo(ctx)
	case "resign":
		color, ok := a.humanColor()
		if !ok {
			a.showErr(match.ErrNotHumanTurn)
			return true
		}
		if err := a.m.Resign(color); err != nil {
			a.showErr(err)
		}
		a.settle(ctx)
	case "abort":
		if err := a.m.Abort(); err != nil {
			a.showErr(err)
		}
		a.settle(ctx)
	case "draw":
		a.offerDraw(ctx)
	case "accept":
		offer := a.m.PendingDrawOffer()
		if err := a.m.AcceptDraw(offer.Opponent()); err != nil {
			a.showErr(err)
			return true
		}
		a.settle(ctx)
	case "decline":
		offer := a.m.PendingDrawOffer()
		if err := a.m.DeclineDraw(offer.Opponent()); err != nil {
			a.showErr(err)
			return true
		}
		a.show(a.f.DrawDeclined(false))
		a.settle(ctx)
	case "pause":
		if err := a.m.Pause(); err != nil {
			a.showErr(err)
			return true
		}
		a.show(a.f.Pause())
		a.settle(ctx)
	case "resume":
		if err := a.m.Resume(); err != nil {
			a.showErr(err)
			return true
		}
		a.show(a.f.Resume())
		a.settle(ctx)
	case "analysis":
		eng := a.m.EnterAnalysis()
		a.show(a.f.AnalysisEnter())
		a.show(chesspresenter.Board(eng.FEN()))
	case "history":
		a.history(ctx, args)
	case "show":
		if len(args) == 0 {
			a.show(a.f.Help())
			return true
		}
		rec, err := a.deps.Archive.Get(ctx, args[0])
		if err != nil {
			a.showErr(err)
			return true
		}
		a.show(a.f.Game(chesspresenter.ToMatchSummary(rec)))
	case "profiles":
		a.show(a.f.Profiles(chesspresenter.ToProfiles(chess.Profiles())))
	default:
		sum, err := a.m.Play(fields[0])
		if err != nil {
			a.showErr(err)
			return true
		}
		a.show(a.f.Move(sum))
		a.settle(ctx)
	}
	return true
}

// handleAnalysis 는 분석 모드에서 가로채는 명령을 처리한다. 가로챘으면 true.
func (a *arena) handleAnalysis(eng *chess.GameEngine, cmd, raw string) bool {
	switch cmd {
	case "exit":
		if err := a.m.ExitAnalysis(); err != nil {
			a.showErr(err)
		}
		a.show(a.f.AnalysisExit())
	case "board":
		a.show(chesspresenter.Board(eng.FEN()))
	case "fen":
		a.show(eng.FEN())
	case "undo":
		if _, err := eng.UndoMove(); err != nil {
			a.showErr(err)
			return true
		}
		a.show(chesspresenter.Board(eng.FEN()))
	case "help", "?", "quit", "status", "history", "show", "profiles", "resign", "abort", "pause", "resume", "new", "moves":
		return false
	default:
		if _, err := eng.MakeMoveText(raw); err != nil {
			a.showErr(err)
			return true
		}
		a.show(chesspresenter.Board(eng.FEN()))
	}
	return true
}

// runAI 는 사람 차례가 되거나 대국이 끝날 때까지 AI 수를 둔다.
func (a *arena) runAI(ctx context.Context) {
	for ctx.Err() == nil {
		if a.m.Status() != domain.StatusPlaying || a.m.HumanToMove() {
			return
		}
		snap := a.m.Snapshot()
		player := snap.White
		if snap.Turn == string(domain.Black) {
			player = snap.Black
		}
		a.show(a.f.Thinking(player))
		sum, err := a.m.PlayAI(ctx)
		if errors.Is(err, match.ErrConcurrentUpdate) {
			continue
		}
		if err != nil {
			if ctx.Err() == nil {
				a.showErr(err)
			}
			return
		}
		a.show(a.f.Move(sum))
		a.settle(ctx)
	}
}

// undo 는 AI 상대라면 AI 의 응수까지 함께 되돌린다.
func (a *arena) undo(ctx context.Context) {
	mv, err := a.m.Undo()
	if err != nil {
		a.showErr(err)
		return
	}
	count := 1
	if !a.m.Player(mv.Color).Human && a.m.Player(mv.Color.Opponent()).Human {
		if _, err := a.m.Undo(); err == nil {
			count++
		}
	}
	a.show(a.f.Undo(count))
	a.settle(ctx)
}

func (a *arena) offerDraw(ctx context.Context) {
	color, ok := a.humanColor()
	if !ok {
		a.showErr(match.ErrNotHumanTurn)
		return
	}
	if err := a.m.OfferDraw(color); err != nil {
		a.showErr(err)
		return
	}
	a.show(a.f.DrawOffered(string(color)))
	if a.m.Player(color.Opponent()).Human {
		a.settle(ctx)
		return
	}
	accepted, err := a.m.AnswerDrawAI()
	if err != nil {
		a.showErr(err)
		return
	}
	if !accepted {
		a.show(a.f.DrawDeclined(true))
	}
	a.settle(ctx)
}

func (a *arena) history(ctx context.Context, args []string) {
	limit := a.deps.History
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			limit = n
		}
	}
	recs, err := a.deps.Archive.Recent(ctx, limit)
	if err != nil {
		a.showErr(err)
		return
	}
	a.show(a.f.History(chesspresenter.ToMatchSummaries(recs)))
}

// humanColor 는 명령을 낸 사람의 색. 둘 다 사람이면 둘 차례인 쪽.
func (a *arena) humanColor() (domain.Color, bool) {
	turn := a.m.Turn()
	if a.m.Player(turn).Human {
		return turn, true
	}
	if a.m.Player(turn.Opponent()).Human {
		return turn.Opponent(), true
	}
	return "", false
}

// settle 은 상태가 바뀐 뒤마다 불린다. 수 제한, 저장, 종료 기록을 맡는다.
func (a *arena) settle(ctx context.Context) {
	if a.deps.MaxPlies > 0 && a.m.Status() == domain.StatusPlaying && a.m.State().Ply >= a.deps.MaxPlies {
		a.logger.Info("match_max_plies", zap.String("match_id", a.m.ID()), zap.Int("max_plies", a.deps.MaxPlies))
		if err := a.m.Abort(); err != nil {
			a.showErr(err)
		}
	}
	a.persist(ctx)
	status := a.m.Status()
	if a.settled || !status.Closed() {
		return
	}
	a.settled = true
	a.show(a.f.Finish(a.m.Snapshot()))

	// 결과 없이 닫힌 대국은 기록하지 않는다.
	if status == domain.StatusFinished {
		a.archive(ctx)
	}
	if a.deps.Store != nil {
		if err := a.deps.Store.Delete(ctx, a.m.ID()); err != nil {
			a.logger.Warn("match_store_delete_failed", zap.String("match_id", a.m.ID()), zap.Error(err))
		}
	}
}

func (a *arena) archive(ctx context.Context) {
	rec, err := a.m.Record()
	if err != nil {
		a.logger.Error("match_record_failed", zap.String("match_id", a.m.ID()), zap.Error(err))
		return
	}
	if err := a.deps.Archive.Save(ctx, rec); err != nil {
		if errors.Is(err, match.ErrDuplicateRecord) {
			return
		}
		a.logger.Error("match_archive_failed", zap.String("match_id", rec.ID), zap.Error(err))
		return
	}
	a.logger.Info("match_archived",
		zap.String("match_id", rec.ID),
		zap.String("result", rec.Result.PGN()),
		zap.String("end_reason", string(rec.EndReason)),
	)
}

func (a *arena) persist(ctx context.Context) {
	if a.deps.Store == nil {
		return
	}
	st := a.m.State()
	if err := a.deps.Store.Save(ctx, st, a.savedPly); err != nil {
		a.logger.Warn("match_persist_failed", zap.String("match_id", st.ID), zap.Int("ply", st.Ply), zap.Error(err))
		return
	}
	a.savedPly = st.Ply
}

// suspend 는 종료 전에 진행 중인 대국을 멈추고 저장한다. 이어 두기 전까지 시계가 흐르지 않는다.
func (a *arena) suspend() {
	if a.m == nil || a.m.Status() != domain.StatusPlaying {
		return
	}
	if err := a.m.Pause(); err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.persist(ctx)
	a.logger.Info("match_suspended", zap.String("match_id", a.m.ID()))
}

func (a *arena) prompt() {
	if a.m.Status().Closed() {
		_ = a.p.Prompt("> ")
		return
	}
	_ = a.p.Prompt(a.f.Prompt(a.m.Snapshot()))
}

func (a *arena) show(text string) { _ = a.p.Show(text) }

func (a *arena) showErr(err error) { a.show(a.f.Error(err)) }

func readLines(r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			out <- sc.Text()
		}
	}()
	return out
}
