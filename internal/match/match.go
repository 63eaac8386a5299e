package match

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/cheese-arena/internal/chess"
	"github.com/park285/cheese-arena/internal/domain"
	"github.com/park285/cheese-arena/pkg/chessdto"
)

type Config struct {
	// ID 가 비면 UUID 를 새로 만든다.
	ID          string
	White       Player
	Black       Player
	TimeControl TimeControl
	StartFEN    string
	Rated       bool
	Searcher    *chess.Searcher
	Logger      *zap.Logger
	Now         func() time.Time
}

// Match 는 엔진과 시계를 소유하고 사람과 AI 의 수를 같은 경로로 확정한다.
type Match struct {
	mu sync.Mutex

	id    string
	white Player
	black Player
	rated bool

	engine   *chess.GameEngine
	clock    *Clock
	searcher *chess.Searcher
	logger   *zap.Logger
	now      func() time.Time

	endReason  domain.EndReason
	drawReason domain.DrawReason
	drawOffer  domain.Color
	analysis   *chess.GameEngine
}

func NewMatch(cfg Config) (*Match, error) {
	engine, err := chess.NewGameEngine(cfg.StartFEN)
	if err != nil {
		return nil, err
	}
	return newMatch(cfg, engine), nil
}

func newMatch(cfg Config, engine *chess.GameEngine) *Match {
	id := strings.TrimSpace(cfg.ID)
	if id == "" {
		id = uuid.NewString()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	searcher := cfg.Searcher
	if searcher == nil {
		searcher = chess.NewSearcher(chess.SearchOptions{Logger: logger})
	}
	white, black := cfg.White, cfg.Black
	if white.Name == "" {
		white = HumanPlayer("White")
	}
	if black.Name == "" {
		black = HumanPlayer("Black")
	}
	return &Match{
		id:       id,
		white:    white,
		black:    black,
		rated:    cfg.Rated,
		engine:   engine,
		clock:    NewClock(cfg.TimeControl, now),
		searcher: searcher,
		logger:   logger.With(zap.String("match_id", id)),
		now:      now,
	}
}

func (m *Match) ID() string { return m.id }

func (m *Match) Player(color domain.Color) Player {
	if color == domain.Black {
		return m.black
	}
	return m.white
}

func (m *Match) Turn() domain.Color {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.Turn()
}

func (m *Match) Status() domain.MatchStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clock.Status()
}

func (m *Match) Result() domain.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clock.Result()
}

func (m *Match) EndReason() domain.EndReason {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.endReason
}

func (m *Match) FEN() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.FEN()
}

// HumanToMove 는 진행 중이고 둘 차례가 사람이면 true.
func (m *Match) HumanToMove() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clock.Status() == domain.StatusPlaying && m.Player(m.engine.Turn()).Human
}

func (m *Match) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.transition("start", m.clock.Start); err != nil {
		return err
	}
	m.logger.Info("match_start",
		zap.String("white", m.white.Name),
		zap.String("black", m.black.Name),
		zap.String("time_control", m.clock.TimeControl().String()),
		zap.String("fen", m.engine.FEN()),
	)
	// 시작 국면이 이미 종국일 수 있다.
	m.finishIfOver()
	return nil
}

func (m *Match) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transition("pause", m.clock.Pause)
}

func (m *Match) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transition("resume", m.clock.Resume)
}

func (m *Match) transition(op string, fn func() error) error {
	if err := fn(); err != nil {
		m.logger.Warn("clock_transition_rejected", zap.String("op", op), zap.String("status", string(m.clock.Status())))
		return err
	}
	return nil
}

func (m *Match) requirePlaying(op string) error {
	switch m.clock.Status() {
	case domain.StatusFinished, domain.StatusAborted:
		return ErrMatchFinished
	case domain.StatusPlaying:
		return nil
	}
	m.logger.Warn("clock_transition_rejected", zap.String("op", op), zap.String("status", string(m.clock.Status())))
	return &TransitionError{From: m.clock.Status(), Op: op}
}

// Play 는 사람 차례의 수를 UCI 또는 SAN 으로 받아 확정한다.
func (m *Match) Play(text string) (chessdto.MoveSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requirePlaying("move"); err != nil {
		return chessdto.MoveSummary{}, err
	}
	if !m.Player(m.engine.Turn()).Human {
		return chessdto.MoveSummary{}, ErrNotHumanTurn
	}
	mv, err := m.engine.MakeMoveText(text)
	if err != nil {
		return chessdto.MoveSummary{}, err
	}
	return m.commit(mv, nil), nil
}

// PlayAI 는 복제본에서 탐색해 잠금 없이 생각하고, 국면이 그대로일 때만 확정한다.
func (m *Match) PlayAI(ctx context.Context) (chessdto.MoveSummary, error) {
	m.mu.Lock()
	if err := m.requirePlaying("ai_move"); err != nil {
		m.mu.Unlock()
		return chessdto.MoveSummary{}, err
	}
	player := m.Player(m.engine.Turn())
	if player.Human {
		m.mu.Unlock()
		return chessdto.MoveSummary{}, ErrNotAITurn
	}
	profile, err := player.Profile()
	if err != nil {
		m.mu.Unlock()
		return chessdto.MoveSummary{}, err
	}
	work := m.engine.Clone()
	ply := m.engine.Ply()
	m.mu.Unlock()

	res, ok, err := m.searcher.SelectMove(ctx, work, profile)
	if err != nil {
		return chessdto.MoveSummary{}, fmt.Errorf("select move: %w", err)
	}
	if !ok {
		return chessdto.MoveSummary{}, ErrMatchFinished
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clock.Closed() {
		return chessdto.MoveSummary{}, ErrMatchFinished
	}
	if m.engine.Ply() != ply {
		return chessdto.MoveSummary{}, ErrConcurrentUpdate
	}
	mv, err := m.engine.MakeMove(res.Move.From, res.Move.To, res.Move.Promotion)
	if err != nil {
		return chessdto.MoveSummary{}, err
	}
	search := &chessdto.SearchSummary{
		Level:    profile.Level,
		Depth:    res.Depth,
		Score:    res.Score,
		Nodes:    res.Nodes,
		Random:   res.Random,
		Book:     res.Book,
		Duration: res.Duration,
	}
	return m.commit(mv, search), nil
}

// commit 은 확정된 수마다 시계를 정확히 한 번 갱신한다.
func (m *Match) commit(mv domain.Move, search *chessdto.SearchSummary) chessdto.MoveSummary {
	if m.drawOffer != "" && m.drawOffer != mv.Color {
		m.drawOffer = ""
	}
	flagged := m.clock.UpdateTime(mv.Color)
	san := m.lastSAN()
	code, title := m.engine.Opening()
	m.logger.Info("match_move",
		zap.Int("ply", m.engine.Ply()),
		zap.String("color", string(mv.Color)),
		zap.String("uci", mv.UCI()),
		zap.String("san", san),
		zap.Duration("white_left", m.clock.Stored(domain.White)),
		zap.Duration("black_left", m.clock.Stored(domain.Black)),
		zap.String("opening", openingLabel(code, title)),
	)
	if flagged {
		m.endReason = domain.EndTimeout
		m.logFinish()
	} else {
		m.finishIfOver()
	}
	snap := m.snapshot()
	return chessdto.MoveSummary{
		Move:     moveDTO(mv, san),
		Search:   search,
		Finished: m.clock.Finished(),
		State:    &snap,
	}
}

// finishIfOver 는 종국 국면이면 결과를 확정한다.
func (m *Match) finishIfOver() {
	if m.clock.Closed() {
		return
	}
	st := m.engine.Status()
	if !st.Terminal() {
		return
	}
	var result domain.Result
	if st == domain.GameCheckmate {
		result = domain.WinFor(m.engine.Turn().Opponent())
		m.endReason = domain.EndCheckmate
	} else {
		result = domain.Draw
		m.endReason = domain.EndDraw
		m.drawReason = m.engine.DrawReason()
	}
	if err := m.clock.Finish(result); err != nil {
		return
	}
	m.drawOffer = ""
	m.logFinish()
}

func (m *Match) logFinish() {
	m.logger.Info("match_finish",
		zap.String("result", string(m.clock.Result())),
		zap.String("reason", string(m.endReason)),
		zap.String("draw_reason", string(m.drawReason)),
		zap.Int("plies", m.engine.Ply()),
		zap.Duration("elapsed", m.clock.Elapsed()),
	)
}

// CheckFlag 는 둘 차례의 시간이 다 됐으면 대국을 끝낸다.
func (m *Match) CheckFlag() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.clock.CheckFlag(m.engine.Turn()) {
		return false
	}
	m.endReason = domain.EndTimeout
	m.drawOffer = ""
	m.logFinish()
	return true
}

func (m *Match) Undo() (domain.Move, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clock.Closed() {
		return domain.Move{}, ErrMatchFinished
	}
	mv, err := m.engine.UndoMove()
	if err != nil {
		return domain.Move{}, err
	}
	m.drawOffer = ""
	return mv, nil
}

func (m *Match) Resign(color domain.Color) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clock.Closed() {
		return ErrMatchFinished
	}
	if err := m.clock.Resign(color); err != nil {
		return err
	}
	m.endReason = domain.EndResign
	m.drawOffer = ""
	m.logFinish()
	return nil
}

// Abort 는 결과 없이 대국을 닫는다.
func (m *Match) Abort() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clock.Closed() {
		return ErrMatchFinished
	}
	if err := m.clock.Abort(); err != nil {
		return err
	}
	m.endReason = domain.EndAborted
	m.drawOffer = ""
	m.logFinish()
	return nil
}

func (m *Match) OfferDraw(color domain.Color) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requirePlaying("offer_draw"); err != nil {
		return err
	}
	m.drawOffer = color
	return nil
}

// AcceptDraw 는 상대가 낸 제안이 남아 있을 때만 무승부로 끝낸다.
func (m *Match) AcceptDraw(color domain.Color) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clock.Closed() {
		return ErrMatchFinished
	}
	if m.drawOffer == "" || m.drawOffer != color.Opponent() {
		return ErrNoDrawOffer
	}
	if err := m.clock.Finish(domain.Draw); err != nil {
		return err
	}
	m.endReason = domain.EndDraw
	m.drawReason = domain.DrawAgreement
	m.drawOffer = ""
	m.logFinish()
	return nil
}

func (m *Match) DeclineDraw(color domain.Color) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.drawOffer == "" || m.drawOffer != color.Opponent() {
		return ErrNoDrawOffer
	}
	m.drawOffer = ""
	return nil
}

// drawAcceptMargin 이하로 밀린 AI 는 무승부 제안을 받는다.
const drawAcceptMargin = -1.0

// AnswerDrawAI 는 AI 가 받은 제안을 정적 평가로 수락하거나 거절한다.
func (m *Match) AnswerDrawAI() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clock.Closed() {
		return false, ErrMatchFinished
	}
	if m.drawOffer == "" {
		return false, ErrNoDrawOffer
	}
	side := m.drawOffer.Opponent()
	player := m.Player(side)
	if player.Human {
		return false, ErrNotAITurn
	}
	profile, err := player.Profile()
	if err != nil {
		return false, err
	}
	score := chess.Evaluate(m.engine, profile.Level) * side.Sign()
	if score > drawAcceptMargin {
		m.drawOffer = ""
		m.logger.Info("draw_declined",
			zap.String("color", string(side)),
			zap.Float64("score", score),
		)
		return false, nil
	}
	if err := m.clock.Finish(domain.Draw); err != nil {
		return false, err
	}
	m.endReason = domain.EndDraw
	m.drawReason = domain.DrawAgreement
	m.drawOffer = ""
	m.logFinish()
	return true, nil
}

func (m *Match) PendingDrawOffer() domain.Color {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drawOffer
}

// LegalMovesFrom 은 square 의 기물이 둘 수 있는 수를 UCI 로 돌려준다.
func (m *Match) LegalMovesFrom(square string) ([]string, error) {
	sq, err := domain.ParseSquare(strings.ToLower(strings.TrimSpace(square)))
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	moves := m.engine.LegalMovesFrom(sq)
	out := make([]string, len(moves))
	for i, mv := range moves {
		out[i] = mv.UCI()
	}
	return out, nil
}

// EnterAnalysis 는 현재 국면의 독립 복제본을 연다. 본 대국과 시계는 건드리지 않는다.
func (m *Match) EnterAnalysis() *chess.GameEngine {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analysis = m.engine.Clone()
	return m.analysis
}

func (m *Match) Analysis() (*chess.GameEngine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.analysis == nil {
		return nil, ErrAnalysisInactive
	}
	return m.analysis, nil
}

func (m *Match) ExitAnalysis() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.analysis == nil {
		return ErrAnalysisInactive
	}
	m.analysis = nil
	return nil
}

func (m *Match) Snapshot() chessdto.MatchSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

func (m *Match) snapshot() chessdto.MatchSnapshot {
	code, title := m.engine.Opening()
	hist := m.engine.History()
	uci := make([]string, len(hist))
	for i, mv := range hist {
		uci[i] = mv.UCI()
	}
	san := m.engine.SAN()
	captured := m.engine.CapturedPieces()
	turn := m.engine.Turn()
	snap := chessdto.MatchSnapshot{
		ID:         m.id,
		Status:     string(m.clock.Status()),
		GameStatus: string(m.engine.Status()),
		Result:     m.clock.Result().PGN(),
		EndReason:  string(m.endReason),
		DrawReason: string(m.drawReason),
		Turn:       string(turn),
		FEN:        m.engine.FEN(),
		MovesSAN:   san,
		MovesUCI:   uci,
		MoveCount:  m.engine.MoveCount(),
		Check:      m.engine.IsCheck(),
		Material: chessdto.MaterialScore{
			White: captured.Value(domain.Black),
			Black: captured.Value(domain.White),
		},
		Captured: chessdto.CapturedPieces{
			White: pieceNames(captured.Of(domain.White)),
			Black: pieceNames(captured.Of(domain.Black)),
		},
		Clock: chessdto.ClockDTO{
			TimeControl: m.clock.TimeControl().String(),
			White:       m.clockFor(domain.White, turn),
			Black:       m.clockFor(domain.Black, turn),
			Elapsed:     m.clock.Elapsed(),
			Untimed:     m.clock.TimeControl().Untimed(),
		},
		White:     playerDTO(m.white),
		Black:     playerDTO(m.black),
		Opening:   openingLabel(code, title),
		DrawOffer: string(m.drawOffer),
		Analysis:  m.analysis != nil,
		Rated:     m.rated,
	}
	if last, ok := m.engine.LastMove(); ok {
		d := moveDTO(last, lastOf(san))
		snap.LastMove = &d
	}
	return snap
}

// clockFor 는 둘 차례인 쪽만 실시간으로 깎아 보여준다.
func (m *Match) clockFor(color, turn domain.Color) time.Duration {
	if color == turn {
		return m.clock.Remaining(color)
	}
	return m.clock.Stored(color)
}

func (m *Match) lastSAN() string {
	return lastOf(m.engine.SAN())
}

// Record 는 종료된 대국의 아카이브 레코드를 만든다.
func (m *Match) Record() (domain.MatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.clock.Finished() {
		return domain.MatchRecord{}, &TransitionError{From: m.clock.Status(), Op: "record"}
	}
	hist := m.engine.History()
	uci := make([]string, len(hist))
	for i, mv := range hist {
		uci[i] = mv.UCI()
	}
	code, title := m.engine.Opening()
	rec := domain.MatchRecord{
		ID:          m.id,
		WhitePlayer: m.white.Name,
		BlackPlayer: m.black.Name,
		TimeControl: m.clock.TimeControl().String(),
		Result:      m.clock.Result(),
		EndReason:   m.endReason,
		DrawReason:  m.drawReason,
		MovesUCI:    uci,
		MovesSAN:    m.engine.SAN(),
		FinalFEN:    m.engine.FEN(),
		Opening:     openingLabel(code, title),
		StartedAt:   m.clock.StartedAt(),
		EndedAt:     m.clock.EndedAt(),
		Duration:    m.clock.Elapsed(),
	}
	if m.rated && rec.Result != domain.NoResult {
		ws := scoreFor(rec.Result, domain.White)
		rec.WhiteRatingDelta = EloDelta(m.white.Rating, m.black.Rating, ws)
		rec.BlackRatingDelta = EloDelta(m.black.Rating, m.white.Rating, 1-ws)
	}
	rec.PGN = BuildPGN(rec, m.engine.StartFEN())
	return rec, nil
}

func scoreFor(r domain.Result, color domain.Color) float64 {
	switch r.Winner() {
	case color:
		return 1
	case "":
		return 0.5
	}
	return 0
}

// State 는 저장소에 쓰는 재구성 가능한 형태.
type State struct {
	ID         string            `json:"id"`
	White      Player            `json:"white"`
	Black      Player            `json:"black"`
	Rated      bool              `json:"rated"`
	StartFEN   string            `json:"start_fen,omitempty"`
	MovesUCI   []string          `json:"moves_uci"`
	Ply        int               `json:"ply"`
	Clock      ClockState        `json:"clock"`
	EndReason  domain.EndReason  `json:"end_reason,omitempty"`
	DrawReason domain.DrawReason `json:"draw_reason,omitempty"`
	DrawOffer  domain.Color      `json:"draw_offer,omitempty"`
}

func (m *Match) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	hist := m.engine.History()
	uci := make([]string, len(hist))
	for i, mv := range hist {
		uci[i] = mv.UCI()
	}
	return State{
		ID:         m.id,
		White:      m.white,
		Black:      m.black,
		Rated:      m.rated,
		StartFEN:   m.engine.StartFEN(),
		MovesUCI:   uci,
		Ply:        len(uci),
		Clock:      m.clock.Snapshot(),
		EndReason:  m.endReason,
		DrawReason: m.drawReason,
		DrawOffer:  m.drawOffer,
	}
}

// Restore 는 저장된 수순을 다시 두어 대국을 복원한다. cfg 의 ID, 선수, 시간 설정은 무시된다.
func Restore(st State, cfg Config) (*Match, error) {
	engine, err := chess.NewGameEngine(st.StartFEN)
	if err != nil {
		return nil, fmt.Errorf("restore %s: %w", st.ID, err)
	}
	for i, code := range st.MovesUCI {
		if _, err := engine.MakeMoveUCI(code); err != nil {
			return nil, fmt.Errorf("restore %s: ply %d: %w", st.ID, i+1, err)
		}
	}
	cfg.ID = st.ID
	cfg.White = st.White
	cfg.Black = st.Black
	cfg.Rated = st.Rated
	m := newMatch(cfg, engine)
	clock, err := RestoreClock(st.Clock, m.now)
	if err != nil {
		return nil, fmt.Errorf("restore %s: %w", st.ID, err)
	}
	m.clock = clock
	m.endReason = st.EndReason
	m.drawReason = st.DrawReason
	m.drawOffer = st.DrawOffer
	return m, nil
}

func openingLabel(code, title string) string {
	return strings.TrimSpace(code + " " + title)
}

func lastOf(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[len(s)-1]
}

func moveDTO(mv domain.Move, san string) chessdto.MoveDTO {
	d := chessdto.MoveDTO{
		UCI:   mv.UCI(),
		SAN:   san,
		From:  mv.From.String(),
		To:    mv.To.String(),
		Color: string(mv.Color),
	}
	if mv.Promotion != domain.NoPieceType {
		d.Promotion = mv.Promotion.String()
	}
	if mv.Captured != domain.NoPieceType {
		d.Captured = mv.Captured.String()
	}
	return d
}

func pieceNames(ps []domain.PieceType) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.String()
	}
	return out
}

func playerDTO(p Player) chessdto.PlayerDTO {
	d := chessdto.PlayerDTO{Name: p.Name, Human: p.Human, Rating: p.Rating}
	if prof, err := p.Profile(); err == nil {
		pd := ProfileDTO(prof)
		d.Level = &pd
	}
	return d
}

func ProfileDTO(p chess.DifficultyProfile) chessdto.ProfileDTO {
	return chessdto.ProfileDTO{
		Level:      p.Level,
		Name:       p.Name,
		Elo:        p.Elo,
		MaxDepth:   p.MaxDepth,
		Randomness: p.Randomness,
	}
}

// IsRetryable 은 다시 시도하면 성공할 수 있는 오류인지 본다.
func IsRetryable(err error) bool {
	var me *matchError
	return errors.As(err, &me) && me.retryable
}
