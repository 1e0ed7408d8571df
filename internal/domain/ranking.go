package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const bucketNamespace = "ranking:products"

func DateKey(t time.Time) string { return t.UTC().Format("20060102") }

func HourKey(t time.Time) string { return t.UTC().Format("2006010215") }

func ParseDateKey(key string) (time.Time, error) {
	t, err := time.ParseInLocation("20060102", key, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date key %q", ErrInvalidPeriodKey, key)
	}
	return t, nil
}

func DailyPeriodKey(t time.Time) string { return "daily:" + DateKey(t) }

func WeeklyPeriodKey(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("weekly:%04dW%02d", year, week)
}

func MonthlyPeriodKey(t time.Time) string { return "monthly:" + t.UTC().Format("200601") }

// HourlyBucket names the sorted set accumulating scores for one hour.
func HourlyBucket(hourKey string) string { return bucketNamespace + ":hourly:" + hourKey }

// DailyBucket names the promoted sorted set holding one day's rolled-up scores.
func DailyBucket(dateKey string) string { return bucketNamespace + ":daily:" + dateKey }

// PeriodBucket names the sorted set for an arbitrary period key, e.g.
// "weekly:2025W36" maps to "ranking:products:weekly:2025W36".
func PeriodBucket(periodKey string) string { return bucketNamespace + ":" + periodKey }

// StagingBucket names the working copy a rollup builds before promotion.
// Staging keys carry a TTL so aborted jobs self-heal instead of leaking.
func StagingBucket(bucket string) string { return bucket + ":staging" }

type MemberScore struct {
	ProductID string
	Score     decimal.Decimal
}

type RankedProduct struct {
	ProductID string
	Score     decimal.Decimal
	Position  int
}

// RankMembers orders members by descending score with ascending product id
// as the tie-break, so repeated rollups of the same bucket produce the same
// positions.
func RankMembers(members []MemberScore) []RankedProduct {
	sorted := make([]MemberScore, len(members))
	copy(sorted, members)
	sort.Slice(sorted, func(i, j int) bool {
		cmp := sorted[i].Score.Cmp(sorted[j].Score)
		if cmp != 0 {
			return cmp > 0
		}
		return sorted[i].ProductID < sorted[j].ProductID
	})
	ranked := make([]RankedProduct, len(sorted))
	for i, m := range sorted {
		ranked[i] = RankedProduct{ProductID: m.ProductID, Score: m.Score, Position: i + 1}
	}
	return ranked
}

// PeriodDates expands a period key into the date keys of the daily buckets
// it covers. Accepted forms: daily:yyyyMMdd, weekly:yyyyWww, monthly:yyyyMM.
func PeriodDates(periodKey string) ([]string, error) {
	kind, rest, found := strings.Cut(periodKey, ":")
	if !found || rest == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPeriodKey, periodKey)
	}
	switch kind {
	case "daily":
		if _, err := ParseDateKey(rest); err != nil {
			return nil, err
		}
		return []string{rest}, nil
	case "weekly":
		yearRaw, weekRaw, ok := strings.Cut(rest, "W")
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPeriodKey, periodKey)
		}
		year, err := strconv.Atoi(yearRaw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPeriodKey, periodKey)
		}
		week, err := strconv.Atoi(weekRaw)
		if err != nil || week < 1 || week > 53 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPeriodKey, periodKey)
		}
		monday := isoWeekStart(year, week)
		dates := make([]string, 0, 7)
		for i := 0; i < 7; i++ {
			dates = append(dates, DateKey(monday.AddDate(0, 0, i)))
		}
		return dates, nil
	case "monthly":
		first, err := time.ParseInLocation("200601", rest, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPeriodKey, periodKey)
		}
		next := first.AddDate(0, 1, 0)
		var dates []string
		for d := first; d.Before(next); d = d.AddDate(0, 0, 1) {
			dates = append(dates, DateKey(d))
		}
		return dates, nil
	default:
		return nil, fmt.Errorf("%w: unknown period kind %q", ErrInvalidPeriodKey, kind)
	}
}

// DatesBetween lists the date keys from from to to inclusive.
func DatesBetween(from, to time.Time) []string {
	start := from.UTC().Truncate(24 * time.Hour)
	end := to.UTC().Truncate(24 * time.Hour)
	var dates []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, DateKey(d))
	}
	return dates
}

// isoWeekStart returns the Monday of the given ISO week. January 4th is
// always inside ISO week 1.
func isoWeekStart(year, week int) time.Time {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	weekday := int(jan4.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	week1Monday := jan4.AddDate(0, 0, 1-weekday)
	return week1Monday.AddDate(0, 0, (week-1)*7)
}
