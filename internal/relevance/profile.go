package relevance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

var ErrInvalidProfile = errors.New("invalid scoring profile")

// Weights - 카테고리별 매칭 1건당 가중치
type Weights struct {
	IP       int `yaml:"ip" json:"ip"`
	Server   int `yaml:"server" json:"server"`
	OS       int `yaml:"os" json:"os"`
	Security int `yaml:"security" json:"security"`
}

// CVSSBonus - 키워드가 하나 이상 매칭됐을 때 CVSS 구간별 가산점
type CVSSBonus struct {
	Critical int `yaml:"critical" json:"critical"`
	High     int `yaml:"high" json:"high"`
	Medium   int `yaml:"medium" json:"medium"`
}

// Profile - 점수 계산 튜닝 값
type Profile struct {
	Weights       Weights   `yaml:"weights" json:"weights"`
	CVSSBonus     CVSSBonus `yaml:"cvss_bonus" json:"cvss_bonus"`
	IndustryBonus int       `yaml:"industry_bonus" json:"industry_bonus"`
	Threshold     int       `yaml:"threshold" json:"threshold"`
	MinMatches    int       `yaml:"min_matches" json:"min_matches"`
	// OS 토큰은 이 길이(rune)를 넘어야 매칭 대상
	OSMinLength  int  `yaml:"os_min_length" json:"os_min_length"`
	DedupeTokens bool `yaml:"dedupe_tokens" json:"dedupe_tokens"`
}

// DefaultProfile - 기본 가중치/임계값
func DefaultProfile() Profile {
	return Profile{
		Weights: Weights{
			IP:       10,
			Server:   8,
			OS:       6,
			Security: 4,
		},
		CVSSBonus: CVSSBonus{
			Critical: 5,
			High:     3,
			Medium:   1,
		},
		IndustryBonus: 3,
		Threshold:     4,
		MinMatches:    1,
		OSMinLength:   2,
		DedupeTokens:  true,
	}
}

// Validate - 음수 값은 허용하지 않음
func (p Profile) Validate() error {
	values := map[string]int{
		"weights.ip":          p.Weights.IP,
		"weights.server":      p.Weights.Server,
		"weights.os":          p.Weights.OS,
		"weights.security":    p.Weights.Security,
		"cvss_bonus.critical": p.CVSSBonus.Critical,
		"cvss_bonus.high":     p.CVSSBonus.High,
		"cvss_bonus.medium":   p.CVSSBonus.Medium,
		"industry_bonus":      p.IndustryBonus,
		"threshold":           p.Threshold,
		"min_matches":         p.MinMatches,
		"os_min_length":       p.OSMinLength,
	}
	for name, value := range values {
		if value < 0 {
			return fmt.Errorf("%w: %s must be >= 0 (got %d)", ErrInvalidProfile, name, value)
		}
	}
	return nil
}

// ParseProfile - YAML 문서를 기본값 위에 덮어써서 Profile 생성
func ParseProfile(data []byte) (Profile, error) {
	profile := DefaultProfile()
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	if err := profile.Validate(); err != nil {
		return Profile{}, err
	}
	return profile, nil
}

// LoadProfile - 파일에서 Profile 로드 (path가 비어 있으면 기본값)
func LoadProfile(path string) (Profile, error) {
	if path == "" {
		return DefaultProfile(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read scoring profile %s: %w", path, err)
	}
	return ParseProfile(data)
}

// ProfileStore - 요청 처리 중에도 교체 가능한 현재 Profile
type ProfileStore struct {
	current atomic.Pointer[Profile]
}

func NewProfileStore(profile Profile) *ProfileStore {
	store := &ProfileStore{}
	store.Set(profile)
	return store
}

func (s *ProfileStore) Get() Profile {
	if p := s.current.Load(); p != nil {
		return *p
	}
	return DefaultProfile()
}

func (s *ProfileStore) Set(profile Profile) {
	s.current.Store(&profile)
}

// Scorer - 현재 Profile로 Scorer 생성
func (s *ProfileStore) Scorer() *Scorer {
	return NewScorer(s.Get())
}

// WatchProfile - 파일 변경 시 Profile을 다시 로드 (ctx 종료 시 반환)
// 편집기가 rename으로 저장하는 경우가 있어 파일이 아닌 디렉터리를 감시
// 잘못된 파일은 로그만 남기고 기존 Profile 유지
func WatchProfile(ctx context.Context, path string, store *ProfileStore, logger *slog.Logger) error {
	if path == "" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve scoring profile path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create profile watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			profile, err := LoadProfile(target)
			if err != nil {
				logger.Warn("scoring profile reload failed, keeping previous profile", "path", target, "error", err)
				continue
			}
			store.Set(profile)
			logger.Info("scoring profile reloaded", "path", target, "threshold", profile.Threshold)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("scoring profile watcher error", "error", err)
		}
	}
}
