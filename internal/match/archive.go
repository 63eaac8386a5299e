package match

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/cheese-arena/internal/domain"
)

// Archive 는 종료된 대국의 영구 기록.
type Archive interface {
	Save(ctx context.Context, rec domain.MatchRecord) error
	Get(ctx context.Context, id string) (domain.MatchRecord, error)
	Recent(ctx context.Context, limit int) ([]domain.MatchRecord, error)
	Close() error
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS chess_matches (
	match_id        TEXT PRIMARY KEY,
	white_player    TEXT NOT NULL,
	black_player    TEXT NOT NULL,
	time_control    TEXT NOT NULL,
	result          TEXT NOT NULL,
	end_reason      TEXT NOT NULL,
	draw_reason     TEXT NOT NULL DEFAULT '',
	moves_uci       JSONB NOT NULL,
	moves_san       JSONB NOT NULL,
	pgn             TEXT NOT NULL,
	final_fen       TEXT NOT NULL,
	opening         TEXT NOT NULL DEFAULT '',
	started_at      TIMESTAMPTZ,
	ended_at        TIMESTAMPTZ,
	duration_ms     BIGINT NOT NULL DEFAULT 0,
	white_delta     INTEGER NOT NULL DEFAULT 0,
	black_delta     INTEGER NOT NULL DEFAULT 0
)`

type PostgresArchive struct {
	db *sql.DB
}

func NewPostgresArchive(databaseURL string) (*PostgresArchive, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &PostgresArchive{db: db}, nil
}

func (a *PostgresArchive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *PostgresArchive) Save(ctx context.Context, rec domain.MatchRecord) error {
	movesUCI, err := json.Marshal(nonNil(rec.MovesUCI))
	if err != nil {
		return fmt.Errorf("marshal moves_uci: %w", err)
	}
	movesSAN, err := json.Marshal(nonNil(rec.MovesSAN))
	if err != nil {
		return fmt.Errorf("marshal moves_san: %w", err)
	}

	const query = `
		INSERT INTO chess_matches (
			match_id, white_player, black_player, time_control,
			result, end_reason, draw_reason, moves_uci, moves_san,
			pgn, final_fen, opening, started_at, ended_at,
			duration_ms, white_delta, black_delta
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9::jsonb, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (match_id) DO NOTHING`

	res, err := a.db.ExecContext(ctx, query,
		rec.ID, rec.WhitePlayer, rec.BlackPlayer, rec.TimeControl,
		rec.Result.PGN(), string(rec.EndReason), string(rec.DrawReason), movesUCI, movesSAN,
		rec.PGN, rec.FinalFEN, rec.Opening, nullTime(rec.StartedAt), nullTime(rec.EndedAt),
		rec.Duration.Milliseconds(), rec.WhiteRatingDelta, rec.BlackRatingDelta,
	)
	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrDuplicateRecord
	}
	return nil
}

const selectColumns = `
	match_id, white_player, black_player, time_control,
	result, end_reason, draw_reason, moves_uci, moves_san,
	pgn, final_fen, opening, started_at, ended_at,
	duration_ms, white_delta, black_delta`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (domain.MatchRecord, error) {
	var (
		rec        domain.MatchRecord
		result     string
		endReason  string
		drawReason string
		uciJSON    []byte
		sanJSON    []byte
		startedAt  sql.NullTime
		endedAt    sql.NullTime
		durationMS int64
	)
	if err := row.Scan(
		&rec.ID, &rec.WhitePlayer, &rec.BlackPlayer, &rec.TimeControl,
		&result, &endReason, &drawReason, &uciJSON, &sanJSON,
		&rec.PGN, &rec.FinalFEN, &rec.Opening, &startedAt, &endedAt,
		&durationMS, &rec.WhiteRatingDelta, &rec.BlackRatingDelta,
	); err != nil {
		return domain.MatchRecord{}, err
	}
	if err := json.Unmarshal(uciJSON, &rec.MovesUCI); err != nil {
		return domain.MatchRecord{}, fmt.Errorf("decode moves_uci: %w", err)
	}
	if err := json.Unmarshal(sanJSON, &rec.MovesSAN); err != nil {
		return domain.MatchRecord{}, fmt.Errorf("decode moves_san: %w", err)
	}
	if result != "*" {
		rec.Result = domain.Result(result)
	}
	rec.EndReason = domain.EndReason(endReason)
	rec.DrawReason = domain.DrawReason(drawReason)
	rec.StartedAt = startedAt.Time
	rec.EndedAt = endedAt.Time
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	return rec, nil
}

func (a *PostgresArchive) Get(ctx context.Context, id string) (domain.MatchRecord, error) {
	row := a.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM chess_matches WHERE match_id = $1`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.MatchRecord{}, ErrSnapshotNotFound
	}
	if err != nil {
		return domain.MatchRecord{}, fmt.Errorf("select match: %w", err)
	}
	return rec, nil
}

func (a *PostgresArchive) Recent(ctx context.Context, limit int) ([]domain.MatchRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := a.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM chess_matches ORDER BY ended_at DESC NULLS LAST LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("select matches: %w", err)
	}
	defer rows.Close()
	out := make([]domain.MatchRecord, 0, limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// MemoryArchive 는 DB 가 없을 때 쓰는 개발용 구현.
type MemoryArchive struct {
	mu   sync.RWMutex
	byID map[string]domain.MatchRecord
	seq  map[string]int
	next int
}

func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{
		byID: make(map[string]domain.MatchRecord),
		seq:  make(map[string]int),
	}
}

func (a *MemoryArchive) Save(ctx context.Context, rec domain.MatchRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.byID[rec.ID]; ok {
		return ErrDuplicateRecord
	}
	a.next++
	a.seq[rec.ID] = a.next
	a.byID[rec.ID] = cloneRecord(rec)
	return nil
}

func (a *MemoryArchive) Get(ctx context.Context, id string) (domain.MatchRecord, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	rec, ok := a.byID[id]
	if !ok {
		return domain.MatchRecord{}, ErrSnapshotNotFound
	}
	return cloneRecord(rec), nil
}

// Recent 는 종료 시각 내림차순, 같으면 나중에 저장된 순.
func (a *MemoryArchive) Recent(ctx context.Context, limit int) ([]domain.MatchRecord, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	items := make([]domain.MatchRecord, 0, len(a.byID))
	for _, rec := range a.byID {
		items = append(items, rec)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].EndedAt.Equal(items[j].EndedAt) {
			return items[i].EndedAt.After(items[j].EndedAt)
		}
		return a.seq[items[i].ID] > a.seq[items[j].ID]
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	for i := range items {
		items[i] = cloneRecord(items[i])
	}
	return items, nil
}

func (a *MemoryArchive) Close() error { return nil }

func cloneRecord(rec domain.MatchRecord) domain.MatchRecord {
	rec.MovesUCI = append([]string(nil), rec.MovesUCI...)
	rec.MovesSAN = append([]string(nil), rec.MovesSAN...)
	return rec
}

// BuildPGN 은 헤더와 번호 매긴 SAN 수순으로 PGN 을 만든다.
func BuildPGN(rec domain.MatchRecord, startFEN string) string {
	var b strings.Builder
	date := rec.EndedAt
	if date.IsZero() {
		date = time.Now()
	}
	pgnResult := rec.Result.PGN()
	b.WriteString("[Event \"Cheese Arena\"]\n")
	b.WriteString("[Site \"local\"]\n")
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString(fmt.Sprintf("[White \"%s\"]\n", sanitizePGN(rec.WhitePlayer)))
	b.WriteString(fmt.Sprintf("[Black \"%s\"]\n", sanitizePGN(rec.BlackPlayer)))
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n", pgnResult))
	if strings.TrimSpace(rec.TimeControl) != "" {
		b.WriteString(fmt.Sprintf("[TimeControl \"%s\"]\n", sanitizePGN(rec.TimeControl)))
	}
	if rec.EndReason != "" {
		b.WriteString(fmt.Sprintf("[Termination \"%s\"]\n", sanitizePGN(string(rec.EndReason))))
	}
	if rec.Opening != "" {
		code, title, _ := strings.Cut(rec.Opening, " ")
		b.WriteString(fmt.Sprintf("[ECO \"%s\"]\n", sanitizePGN(code)))
		if title != "" {
			b.WriteString(fmt.Sprintf("[Opening \"%s\"]\n", sanitizePGN(title)))
		}
	}
	number, blackFirst := 1, false
	if startFEN = strings.TrimSpace(startFEN); startFEN != "" {
		b.WriteString("[SetUp \"1\"]\n")
		b.WriteString(fmt.Sprintf("[FEN \"%s\"]\n", sanitizePGN(startFEN)))
		number, blackFirst = fenMoveNumber(startFEN)
	}
	b.WriteString("\n")

	moves := rec.MovesSAN
	if blackFirst && len(moves) > 0 {
		b.WriteString(fmt.Sprintf("%d... %s ", number, strings.TrimSpace(moves[0])))
		moves = moves[1:]
		number++
	}
	for i := 0; i < len(moves); i += 2 {
		b.WriteString(fmt.Sprintf("%d. %s", number+i/2, strings.TrimSpace(moves[i])))
		if i+1 < len(moves) {
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(moves[i+1]))
		}
		b.WriteString(" ")
	}
	b.WriteString(pgnResult)
	return b.String()
}

// fenMoveNumber 는 FEN 의 수 번호와 흑 차례 여부. 읽을 수 없으면 1, false.
func fenMoveNumber(fen string) (int, bool) {
	fields := strings.Fields(fen)
	blackFirst := len(fields) > 1 && fields[1] == "b"
	number := 1
	if len(fields) > 5 {
		if n, err := strconv.Atoi(fields[5]); err == nil && n > 0 {
			number = n
		}
	}
	return number, blackFirst
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
