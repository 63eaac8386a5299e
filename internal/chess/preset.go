package chess

import (
	"embed"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	yaml "gopkg.in/yaml.v3"
)

const (
	MinLevel = 1
	MaxLevel = 5
)

//go:embed profiles.yaml
var profileFiles embed.FS

type DifficultyProfile struct {
	Level      int     `yaml:"level" json:"level"`
	Name       string  `yaml:"name" json:"name"`
	Elo        int     `yaml:"elo" json:"elo"`
	MaxDepth   int     `yaml:"max_depth" json:"maxDepth"`
	Randomness float64 `yaml:"randomness" json:"randomness"`
	// Workers > 1 이면 루트 수를 병렬로 평가한다.
	Workers int `yaml:"workers" json:"workers,omitempty"`
}

type profileFile struct {
	Profiles []DifficultyProfile `yaml:"profiles"`
}

var (
	profileMu sync.RWMutex
	profiles  = mustLoadEmbeddedProfiles()
)

func mustLoadEmbeddedProfiles() map[int]DifficultyProfile {
	raw, err := fs.ReadFile(profileFiles, "profiles.yaml")
	if err != nil {
		panic(fmt.Sprintf("read embedded profiles: %v", err))
	}
	out := make(map[int]DifficultyProfile, MaxLevel)
	if err := mergeProfiles(out, raw); err != nil {
		panic(fmt.Sprintf("parse embedded profiles: %v", err))
	}
	return out
}

func mergeProfiles(dst map[int]DifficultyProfile, raw []byte) error {
	var f profileFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return err
	}
	for _, p := range f.Profiles {
		p.Name = strings.TrimSpace(p.Name)
		if err := ValidateProfile(p); err != nil {
			return err
		}
		dst[p.Level] = p
	}
	return nil
}

// LoadProfiles 는 dir 의 *.yaml 파일을 이름 순으로 읽어 기본 프로필을 덮어쓴다.
// 하나라도 잘못되면 아무것도 바꾸지 않는다.
func LoadProfiles(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read profile dir: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	profileMu.RLock()
	next := make(map[int]DifficultyProfile, len(profiles))
	for k, v := range profiles {
		next[k] = v
	}
	profileMu.RUnlock()

	for _, name := range files {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if err := mergeProfiles(next, raw); err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
	}

	profileMu.Lock()
	profiles = next
	profileMu.Unlock()
	return nil
}

// GetProfile 은 "3", "level3", "advanced" 같은 이름을 모두 받는다.
func GetProfile(name string) (DifficultyProfile, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	switch key {
	case "beginner":
		key = "1"
	case "intermediate":
		key = "2"
	case "advanced":
		key = "3"
	case "expert":
		key = "4"
	case "master":
		key = "5"
	}
	key = strings.TrimPrefix(key, "level")
	level, err := strconv.Atoi(key)
	if err != nil {
		return DifficultyProfile{}, fmt.Errorf("unknown difficulty profile: %s", name)
	}
	return ProfileForLevel(level)
}

func ProfileForLevel(level int) (DifficultyProfile, error) {
	profileMu.RLock()
	p, ok := profiles[level]
	profileMu.RUnlock()
	if !ok {
		return DifficultyProfile{}, fmt.Errorf("unknown difficulty level: %d", level)
	}
	return p, nil
}

func Profiles() []DifficultyProfile {
	profileMu.RLock()
	out := make([]DifficultyProfile, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p)
	}
	profileMu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out
}

func ValidateProfile(p DifficultyProfile) error {
	switch {
	case p.Level < MinLevel || p.Level > MaxLevel:
		return fmt.Errorf("level %d out of range %d-%d", p.Level, MinLevel, MaxLevel)
	case p.MaxDepth <= 0:
		return fmt.Errorf("max depth must be > 0: %d", p.MaxDepth)
	case math.IsNaN(p.Randomness) || p.Randomness < 0 || p.Randomness > 1:
		return fmt.Errorf("randomness must be in [0,1]: %v", p.Randomness)
	case p.Workers < 0:
		return fmt.Errorf("workers must be >= 0: %d", p.Workers)
	case p.Elo < 0:
		return fmt.Errorf("elo must be >= 0: %d", p.Elo)
	}
	return nil
}
