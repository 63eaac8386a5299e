package chesspresenter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/park285/cheese-arena/internal/msgcat"
	"github.com/park285/cheese-arena/pkg/chessdto"
)

const (
	capturedRecentLimit = 3
	recentMovesLimit    = 4
)

// Formatter 는 대국 DTO 를 터미널용 텍스트로 만든다. 문구는 msgcat 에서 가져온다.
type Formatter struct {
	cat *msgcat.Catalog
}

func NewFormatter(cat *msgcat.Catalog) *Formatter {
	return &Formatter{cat: cat}
}

func (f *Formatter) text(key string, data any) string {
	if f == nil || f.cat == nil {
		return key
	}
	return f.cat.Text(key, data)
}

func (f *Formatter) Help() string {
	return strings.TrimRight(f.text("help", nil), "\n")
}

func (f *Formatter) Start(s chessdto.MatchSnapshot) string {
	var sb strings.Builder
	sb.WriteString(f.text("start", map[string]any{
		"White":       s.White.Name,
		"Black":       s.Black.Name,
		"TimeControl": s.Clock.TimeControl,
	}))
	sb.WriteByte('\n')
	sb.WriteString(Board(s.FEN))
	return sb.String()
}

func (f *Formatter) Prompt(s chessdto.MatchSnapshot) string {
	if s.Analysis {
		return f.text("analysis.prompt", nil)
	}
	return f.text("prompt", map[string]any{"Turn": colorLabel(s.Turn)})
}

func (f *Formatter) Thinking(p chessdto.PlayerDTO) string {
	return f.text("move.thinking", map[string]any{"Name": p.Name})
}

// Move 는 확정된 한 수와 (AI 라면) 탐색 요약을 한 줄로 만든다.
func (f *Formatter) Move(sum chessdto.MoveSummary) string {
	ply := 0
	if sum.State != nil {
		ply = len(sum.State.MovesUCI)
	}
	san := sum.Move.SAN
	if san == "" {
		san = sum.Move.UCI
	}
	data := map[string]any{
		"Number": moveNumber(ply, sum.Move.Color),
		"SAN":    san,
		"UCI":    sum.Move.UCI,
	}
	if sum.Search == nil {
		return f.text("move.human", data)
	}
	data["Depth"] = sum.Search.Depth
	data["Nodes"] = sum.Search.Nodes
	data["Elapsed"] = formatGameDuration(sum.Search.Duration)
	data["Random"] = sum.Search.Random
	data["Book"] = sum.Search.Book
	return f.text("move.ai", data)
}

func (f *Formatter) Status(s chessdto.MatchSnapshot) string {
	return strings.TrimRight(f.text("status", map[string]any{
		"Status":     statusLabel(s.Status),
		"MoveCount":  s.MoveCount,
		"Turn":       colorLabel(s.Turn),
		"Check":      s.Check,
		"WhiteClock": formatClock(s.Clock.White, s.Clock.Untimed),
		"BlackClock": formatClock(s.Clock.Black, s.Clock.Untimed),
		"Recent":     formatRecentMoves(s.MovesSAN),
		"Material":   formatMaterial(s.Material),
		"Captured":   formatCaptured(s.Captured),
		"Opening":    s.Opening,
	}), "\n")
}

// Finish 는 종료 사유별 문구. 진행 중이면 빈 문자열.
func (f *Formatter) Finish(s chessdto.MatchSnapshot) string {
	switch s.Status {
	case "ABORTED":
		return f.text("finish.aborted", nil)
	case "FINISHED":
	default:
		return ""
	}
	data := map[string]any{
		"Result": s.Result,
		"Winner": winnerName(s),
		"Loser":  loserName(s),
		"Reason": drawReasonLabel(s.DrawReason),
	}
	switch s.EndReason {
	case "checkmate":
		return f.text("finish.checkmate", data)
	case "resign":
		return f.text("finish.resign", data)
	case "timeout":
		return f.text("finish.timeout", data)
	default:
		return f.text("finish.draw", data)
	}
}

func (f *Formatter) DrawOffered(color string) string {
	return f.text("draw.offered", map[string]any{"Color": colorLabel(color)})
}

func (f *Formatter) DrawDeclined(byAI bool) string {
	if byAI {
		return f.text("draw.ai_declined", nil)
	}
	return f.text("draw.declined", nil)
}

func (f *Formatter) Undo(count int) string {
	return f.text("undo", map[string]any{"Count": count})
}

func (f *Formatter) Pause() string  { return f.text("pause", nil) }
func (f *Formatter) Resume() string { return f.text("resume", nil) }

func (f *Formatter) AnalysisEnter() string { return f.text("analysis.enter", nil) }
func (f *Formatter) AnalysisExit() string  { return f.text("analysis.exit", nil) }

func (f *Formatter) History(games []chessdto.MatchSummary) string {
	if len(games) == 0 {
		return f.text("history.empty", nil)
	}
	var sb strings.Builder
	sb.WriteString(f.text("history.header", nil))
	for _, g := range games {
		sb.WriteString("\n• ")
		sb.WriteString(f.text("history.item", map[string]any{
			"Badge":    formatResultBadge(g.Result),
			"White":    g.White,
			"Black":    g.Black,
			"Result":   g.Result,
			"Reason":   endReasonLabel(g.EndReason),
			"Plies":    g.Plies,
			"Duration": formatGameDuration(g.Duration),
		}))
		sb.WriteString("\n  ")
		sb.WriteString(g.ID)
	}
	return sb.String()
}

func (f *Formatter) Game(g chessdto.MatchSummary) string {
	var sb strings.Builder
	sb.WriteString(f.text("history.detail", map[string]any{"ID": g.ID}))
	sb.WriteByte('\n')
	fmt.Fprintf(&sb, "• 결과: %s %s (%s)\n", formatResultBadge(g.Result), g.Result, endReasonLabel(g.EndReason))
	fmt.Fprintf(&sb, "• 대국자: %s vs %s\n", g.White, g.Black)
	if g.TimeControl != "" {
		fmt.Fprintf(&sb, "• 시간: %s\n", g.TimeControl)
	}
	if g.Opening != "" {
		fmt.Fprintf(&sb, "• 오프닝: %s\n", g.Opening)
	}
	if !g.EndedAt.IsZero() {
		fmt.Fprintf(&sb, "• 종료: %s\n", formatShortTime(g.EndedAt))
	}
	if g.Duration > 0 {
		fmt.Fprintf(&sb, "• 소요 시간: %s\n", formatGameDuration(g.Duration))
	}
	if g.PGN != "" {
		sb.WriteString("\n")
		sb.WriteString(strings.TrimSpace(g.PGN))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (f *Formatter) Profiles(ps []chessdto.ProfileDTO) string {
	var sb strings.Builder
	sb.WriteString(f.text("profiles.header", nil))
	for _, p := range ps {
		sb.WriteString("\n• ")
		sb.WriteString(f.text("profiles.item", map[string]any{
			"Level":      p.Level,
			"Name":       p.Name,
			"Elo":        p.Elo,
			"MaxDepth":   p.MaxDepth,
			"Randomness": strconv.FormatFloat(p.Randomness, 'f', -1, 64),
		}))
	}
	return sb.String()
}

// LegalMoves 는 한 칸에서 둘 수 있는 수 목록.
func (f *Formatter) LegalMoves(square string, moves []string) string {
	if len(moves) == 0 {
		return fmt.Sprintf("%s: 둘 수 있는 수가 없습니다.", square)
	}
	return fmt.Sprintf("%s: %s", square, strings.Join(moves, " "))
}

func (f *Formatter) Error(err error) string {
	de := chessdto.FromError(err)
	if de == nil {
		return ""
	}
	return f.text("error", map[string]any{"Message": errorMessage(de)})
}

func errorMessage(de *chessdto.DomainError) string {
	switch de.Code {
	case chessdto.CodeIllegalMove:
		return "둘 수 없는 수입니다: " + de.Message
	case chessdto.CodeNotYourTurn:
		return "지금은 AI 차례입니다."
	case chessdto.CodeMatchFinished:
		return "이미 끝난 대국입니다."
	case chessdto.CodeNoHistory:
		return "무를 수가 없습니다."
	case chessdto.CodeNoDrawOffer:
		return "받을 무승부 제안이 없습니다."
	case chessdto.CodeAnalysisInactive:
		return "분석 모드가 아닙니다."
	case chessdto.CodeNotFound:
		return "대국을 찾을 수 없습니다."
	}
	return de.Message
}

// Board 는 FEN 배치를 백이 아래인 8x8 텍스트 판으로 그린다. 대문자가 백.
func Board(fen string) string {
	placement, _, _ := strings.Cut(strings.TrimSpace(fen), " ")
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return fen
	}
	var sb strings.Builder
	for i, rank := range ranks {
		sb.WriteString(strconv.Itoa(8 - i))
		for _, r := range rank {
			if r >= '1' && r <= '8' {
				for n := 0; n < int(r-'0'); n++ {
					sb.WriteString(" .")
				}
				continue
			}
			sb.WriteByte(' ')
			sb.WriteRune(r)
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("  a b c d e f g h")
	return sb.String()
}

// moveNumber 는 ply 수(이 수 포함) 기준 "12." 또는 "12...".
func moveNumber(ply int, color string) string {
	n := (ply + 1) / 2
	if n < 1 {
		n = 1
	}
	if color == "black" {
		return strconv.Itoa(n) + "..."
	}
	return strconv.Itoa(n) + "."
}

func colorLabel(c string) string {
	switch c {
	case "white":
		return "백"
	case "black":
		return "흑"
	}
	return c
}

func statusLabel(s string) string {
	switch s {
	case "WAITING":
		return "대기"
	case "PLAYING":
		return "진행"
	case "PAUSED":
		return "일시정지"
	case "FINISHED":
		return "종료"
	case "ABORTED":
		return "중단"
	}
	return s
}

func winnerName(s chessdto.MatchSnapshot) string {
	switch s.Result {
	case "1-0":
		return "백 " + s.White.Name
	case "0-1":
		return "흑 " + s.Black.Name
	}
	return ""
}

func loserName(s chessdto.MatchSnapshot) string {
	switch s.Result {
	case "1-0":
		return "흑 " + s.Black.Name
	case "0-1":
		return "백 " + s.White.Name
	}
	return ""
}

func drawReasonLabel(r string) string {
	switch r {
	case "stalemate":
		return "스테일메이트"
	case "threefold_repetition":
		return "3회 반복"
	case "insufficient_material":
		return "기물 부족"
	case "fifty_move_rule":
		return "50수 규칙"
	case "agreement":
		return "합의"
	case "":
		return "-"
	}
	return r
}

func endReasonLabel(r string) string {
	switch r {
	case "checkmate":
		return "체크메이트"
	case "resign":
		return "기권"
	case "timeout":
		return "시간패"
	case "draw":
		return "무승부"
	case "aborted":
		return "중단"
	}
	return r
}

func formatRecentMoves(moves []string) string {
	if len(moves) == 0 {
		return "-"
	}
	if len(moves) <= recentMovesLimit {
		return strings.Join(moves, " ")
	}
	return "… " + strings.Join(moves[len(moves)-recentMovesLimit:], " ")
}

func formatResultBadge(result string) string {
	switch strings.TrimSpace(result) {
	case "1-0":
		return "⬜ 백승"
	case "0-1":
		return "⬛ 흑승"
	case "1/2-1/2":
		return "🤝 무"
	default:
		return "▫️ 미결"
	}
}

func formatShortTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatGameDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}

// formatClock 은 m:ss, 10초 미만은 소수 첫째 자리까지.
func formatClock(d time.Duration, untimed bool) string {
	if untimed {
		return "∞"
	}
	if d < 0 {
		d = 0
	}
	if d < 10*time.Second {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	d = d.Truncate(time.Second)
	return fmt.Sprintf("%d:%02d", int(d/time.Minute), int(d%time.Minute/time.Second))
}

func formatMaterial(score chessdto.MaterialScore) string {
	var parts []string
	if score.White > 0 {
		parts = append(parts, fmt.Sprintf("백 +%d", score.White))
	}
	if score.Black > 0 {
		parts = append(parts, fmt.Sprintf("흑 +%d", score.Black))
	}
	if len(parts) == 0 {
		return "없음"
	}
	return strings.Join(parts, " / ")
}

// formatCaptured 는 잡힌 기물을 최근 것부터 몇 개만 보여준다.
func formatCaptured(captured chessdto.CapturedPieces) string {
	white := formatCapturedSequence(recentPieces(captured.White, capturedRecentLimit))
	black := formatCapturedSequence(recentPieces(captured.Black, capturedRecentLimit))
	if white == "" && black == "" {
		return ""
	}
	var parts []string
	if white != "" {
		parts = append(parts, "백 "+white)
	}
	if black != "" {
		parts = append(parts, "흑 "+black)
	}
	return strings.Join(parts, " / ")
}

func formatCapturedSequence(order []string) string {
	if len(order) == 0 {
		return ""
	}
	tokens := make([]string, 0, len(order))
	for _, token := range order {
		if symbol := capturedSymbol(token); symbol != "" {
			tokens = append(tokens, symbol)
		}
	}
	return strings.Join(tokens, " ")
}

func capturedSymbol(piece string) string {
	switch strings.ToLower(strings.TrimSpace(piece)) {
	case "queen", "q":
		return "Q"
	case "rook", "r":
		return "R"
	case "bishop", "b":
		return "B"
	case "knight", "n":
		return "N"
	case "pawn", "p":
		return "P"
	case "":
		return ""
	default:
		return strings.ToUpper(string([]rune(piece)[0]))
	}
}

func recentPieces(order []string, limit int) []string {
	if len(order) == 0 || limit <= 0 {
		return nil
	}
	if len(order) > limit {
		order = order[len(order)-limit:]
	}
	result := make([]string, len(order))
	for i := range order {
		result[i] = order[len(order)-1-i]
	}
	return result
}
