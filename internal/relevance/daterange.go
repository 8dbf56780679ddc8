package relevance

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidRange = errors.New("invalid date range")

// Range - 대시보드 기간 필터
type Range string

const (
	RangeAll   Range = "all"
	RangeToday Range = "today"
	RangeWeek  Range = "week"
	RangeMonth Range = "month"
	RangeYear  Range = "year"
)

// ParseRange - 빈 문자열은 all
func ParseRange(value string) (Range, error) {
	switch r := Range(strings.ToLower(strings.TrimSpace(value))); r {
	case "":
		return RangeAll, nil
	case RangeAll, RangeToday, RangeWeek, RangeMonth, RangeYear:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q (expected today, week, month, year or all)", ErrInvalidRange, value)
	}
}

// Since - 기간의 하한 (all이면 zero time)
// today는 now가 속한 location의 자정, 나머지는 7/30/365일 이전
func (r Range) Since(now time.Time) time.Time {
	switch r {
	case RangeToday:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case RangeWeek:
		return now.AddDate(0, 0, -7)
	case RangeMonth:
		return now.AddDate(0, 0, -30)
	case RangeYear:
		return now.AddDate(0, 0, -365)
	default:
		return time.Time{}
	}
}

// Contains - published가 [Since(now), now] 안에 있는지 (미래 시각은 제외)
func (r Range) Contains(published, now time.Time) bool {
	if r == RangeAll || r == "" {
		return true
	}
	return !published.Before(r.Since(now)) && !published.After(now)
}

// Timestamped - 기간 필터 대상
type Timestamped interface {
	PublishedAt() time.Time
}

// FilterByRange - 기간 안의 항목만 순서를 유지해 반환
func FilterByRange[T Timestamped](items []T, r Range, now time.Time) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if r.Contains(item.PublishedAt(), now) {
			out = append(out, item)
		}
	}
	return out
}
