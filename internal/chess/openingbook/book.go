package openingbook

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	chesslib "github.com/corentings/chess/v2"
)

// Result 는 책에 있는 한 수. Weight 가 클수록 자주 둔다.
type Result struct {
	Move   string
	Weight uint16
}

// Book 은 Polyglot 형식의 오프닝 북.
type Book struct {
	pg *chesslib.PolyglotBook
}

func Open(path string) (*Book, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("polyglot book path required")
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open polyglot book %q: %w", path, err)
	}
	defer file.Close()

	b, err := Load(file)
	if err != nil {
		return nil, fmt.Errorf("load polyglot book %q: %w", path, err)
	}
	return b, nil
}

func Load(r io.Reader) (*Book, error) {
	pg, err := chesslib.LoadFromReader(r)
	if err != nil {
		return nil, err
	}
	return &Book{pg: pg}, nil
}

// Moves 는 fen 국면의 책 수를 가중치 내림차순으로 준다. 없으면 빈 슬라이스.
func (b *Book) Moves(fen string) ([]Result, error) {
	if b == nil || b.pg == nil {
		return nil, nil
	}
	hasher := chesslib.NewZobristHasher()
	hashStr, err := hasher.HashPosition(fen)
	if err != nil {
		return nil, fmt.Errorf("compute polyglot hash: %w", err)
	}
	entries := b.pg.FindMoves(chesslib.ZobristHashToUint64(hashStr))
	out := make([]Result, 0, len(entries))
	for _, entry := range entries {
		move := chesslib.DecodeMove(entry.Move).ToMove()
		out = append(out, Result{Move: move.String(), Weight: entry.Weight})
	}
	SortByWeight(out)
	return out, nil
}

// SortByWeight 는 가중치 내림차순, 같으면 수 이름순.
func SortByWeight(rs []Result) {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].Weight != rs[j].Weight {
			return rs[i].Weight > rs[j].Weight
		}
		return rs[i].Move < rs[j].Move
	})
}

// Polyglot 은 캐슬링을 킹이 룩 칸으로 가는 수로 적는다.
var castlingAliases = map[string]string{
	"e1h1": "e1g1",
	"e1a1": "e1c1",
	"e8h8": "e8g8",
	"e8a8": "e8c8",
}

// CastlingAlias 는 Polyglot 캐슬링 표기를 일반 UCI 로 바꾼다. 킹 수인지는 호출자가 확인한다.
func CastlingAlias(uci string) (string, bool) {
	v, ok := castlingAliases[uci]
	return v, ok
}
