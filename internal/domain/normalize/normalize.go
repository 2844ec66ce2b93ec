// Package normalize turns raw dataset records into typed records.
package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/okian/dopingplot/internal/domain/model"
)

const (
	secondsPerMinute = 60
	maxSeconds       = 59
)

var timePattern = regexp.MustCompile(`^(\d+):(\d{1,2})$`)

var (
	errBadFormat  = errors.New("want M:SS")
	errSecondsOOR = errors.New("seconds out of range")
	errMinutesOOR = errors.New("minutes out of range")
)

// Normalize converts raw records one-to-one and in order. A nil slice is
// rejected with ErrInvalidInput. The first malformed time aborts the whole
// batch with a *ParseError and no records are returned.
func Normalize(raw []model.RawRecord) ([]model.NormalizedRecord, error) {
	if raw == nil {
		return nil, fmt.Errorf("normalize: nil record set: %w", ErrInvalidInput)
	}
	out := make([]model.NormalizedRecord, len(raw))
	for i, r := range raw {
		secs, err := ParseTime(r.Time)
		if err != nil {
			return nil, &ParseError{Index: i, Value: r.Time, Err: err}
		}
		out[i] = model.NormalizedRecord{
			Index:       i,
			Year:        YearDate(r.Year),
			TimeSeconds: secs,
			Doping:      r.Doping,
		}
	}
	return out, nil
}

// ParseTime parses "M:SS" (any number of minute digits, one or two second
// digits) into whole seconds.
func ParseTime(s string) (int, error) {
	m := timePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, errBadFormat
	}
	minutes, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, errMinutesOOR
	}
	if minutes > (math.MaxInt-maxSeconds)/secondsPerMinute {
		return 0, errMinutesOOR
	}
	seconds, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, err
	}
	if seconds > maxSeconds {
		return 0, errSecondsOOR
	}
	return minutes*secondsPerMinute + seconds, nil
}

// YearDate anchors a calendar year to Jan 1 00:00 UTC.
func YearDate(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// Decode reads the dataset document. Anything other than a top level JSON
// array is reported as ErrInvalidInput.
func Decode(r io.Reader) ([]model.RawRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("dataset is not a JSON array: %w", ErrInvalidInput)
	}
	records := make([]model.RawRecord, 0)
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("decode dataset: %w: %w", ErrInvalidInput, err)
	}
	return records, nil
}
