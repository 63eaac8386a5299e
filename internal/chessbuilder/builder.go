package chessbuilder

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-arena/internal/chess"
	"github.com/park285/cheese-arena/internal/chess/openingbook"
	"github.com/park285/cheese-arena/internal/config"
	"github.com/park285/cheese-arena/internal/match"
)

// Deps 는 설정에서 만든 대국 구성요소 묶음.
type Deps struct {
	Searcher    *chess.Searcher
	Store       *match.RedisStore // REDIS_URL 이 없으면 nil
	Archive     match.Archive
	TimeControl match.TimeControl
	White       match.Player
	Black       match.Player
	StartFEN    string
	Rated       bool
	MaxPlies    int
	History     int
	// Seed 가 0 이 아니면 대국마다 AI 난수를 이 값으로 다시 맞춘다.
	Seed int64

	logger *zap.Logger
}

func New(cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	// 프로필 덮어쓰기가 선수 해석보다 먼저다.
	if cfg.ProfilesDir != "" {
		if err := chess.LoadProfiles(cfg.ProfilesDir); err != nil {
			return nil, fmt.Errorf("load profiles: %w", err)
		}
	}
	tc, err := match.ParseTimeControl(cfg.TimeControl)
	if err != nil {
		return nil, err
	}
	white, err := match.ParsePlayer(cfg.WhitePlayer)
	if err != nil {
		return nil, fmt.Errorf("white: %w", err)
	}
	black, err := match.ParsePlayer(cfg.BlackPlayer)
	if err != nil {
		return nil, fmt.Errorf("black: %w", err)
	}
	if _, err := chess.NewGameEngine(cfg.StartFEN); err != nil {
		return nil, fmt.Errorf("start position: %w", err)
	}

	opts := chess.SearchOptions{
		Seed:    cfg.RandomSeed,
		Workers: cfg.SearchWorkers,
		Logger:  logger.Named("search"),
	}
	if cfg.BookPath != "" {
		book, err := openingbook.Open(cfg.BookPath)
		if err != nil {
			return nil, err
		}
		opts.Book = book
		logger.Info("opening_book_loaded", zap.String("path", cfg.BookPath))
	}

	d := &Deps{
		Searcher:    chess.NewSearcher(opts),
		TimeControl: tc,
		White:       white,
		Black:       black,
		StartFEN:    cfg.StartFEN,
		Rated:       cfg.Rated,
		MaxPlies:    cfg.MaxPlies,
		History:     cfg.HistoryLimit,
		Seed:        cfg.RandomSeed,
		logger:      logger,
	}

	if cfg.RedisURL != "" {
		store, err := match.NewRedisStore(cfg.RedisURL, time.Duration(cfg.SessionTTLSec)*time.Second)
		if err != nil {
			return nil, fmt.Errorf("init match store: %w", err)
		}
		d.Store = store
	} else {
		logger.Info("match_store_disabled", zap.String("reason", "REDIS_URL not set"))
	}

	if cfg.DatabaseURL != "" {
		archive, err := match.NewPostgresArchive(cfg.DatabaseURL)
		if err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("init archive: %w", err)
		}
		d.Archive = archive
	} else {
		logger.Info("archive_in_memory", zap.String("reason", "DATABASE_URL not set"))
		d.Archive = match.NewMemoryArchive()
	}
	return d, nil
}

func (d *Deps) NewMatch() (*match.Match, error) {
	if d.Seed != 0 {
		d.Searcher.SetRandomSeed(d.Seed)
	}
	return match.NewMatch(match.Config{
		White:       d.White,
		Black:       d.Black,
		TimeControl: d.TimeControl,
		StartFEN:    d.StartFEN,
		Rated:       d.Rated,
		Searcher:    d.Searcher,
		Logger:      d.logger.Named("match"),
	})
}

func (d *Deps) Close() error {
	if d == nil {
		return nil
	}
	var errs []error
	if d.Store != nil {
		errs = append(errs, d.Store.Close())
	}
	if d.Archive != nil {
		errs = append(errs, d.Archive.Close())
	}
	return errors.Join(errs...)
}
