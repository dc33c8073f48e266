package hikvision

import (
	"errors"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// TimeRange bounds a segment query by start time.
//
// A zero time leaves that side open. When both forms of a bound are set,
// the Unix seconds form wins.
type TimeRange struct {
	From time.Time
	To   time.Time

	FromUnix *int64
	ToUnix   *int64
}

// Lower returns the lower bound, if there is one.
func (r TimeRange) Lower() (time.Time, bool) {
	if r.FromUnix != nil {
		return time.Unix(*r.FromUnix, 0).UTC(), true
	}
	if !r.From.IsZero() {
		return r.From, true
	}
	return time.Time{}, false
}

// Upper returns the upper bound, if there is one.
func (r TimeRange) Upper() (time.Time, bool) {
	if r.ToUnix != nil {
		return time.Unix(*r.ToUnix, 0).UTC(), true
	}
	if !r.To.IsZero() {
		return r.To, true
	}
	return time.Time{}, false
}

// containsExclusive reports whether t is strictly between the bounds.
func (r TimeRange) containsExclusive(t time.Time) bool {
	if lower, ok := r.Lower(); ok && !t.After(lower) {
		return false
	}
	if upper, ok := r.Upper(); ok && !t.Before(upper) {
		return false
	}
	return true
}

// TimelineOptions controls BuildTimeline.
type TimelineOptions struct {
	// Concurrency is how many directories are read at once; anything below 1 means 1.
	Concurrency int
	// ContinueOnError keeps the segments of the readable directories when others fail.
	ContinueOnError bool
}

// BuildTimeline merges the segments of every source into one list ordered by start time.
//
// Segments with the same start time keep the directory order and then the
// order of their source. The result is never nil when the error is nil.
// With ContinueOnError, the returned error joins one DirectoryError per failed
// directory and the timeline holds everything else.
func BuildTimeline(sources []IndexSource, timeRange TimeRange, options TimelineOptions) ([]*Segment, error) {
	results := make([][]*Segment, len(sources))
	failures := make([]error, len(sources))

	group := new(errgroup.Group)
	group.SetLimit(max(options.Concurrency, 1))
	for i, source := range sources {
		i, source := i, source
		group.Go(func() error {
			segments, err := source.ListSegments(timeRange)
			if err != nil {
				err = &DirectoryError{Directory: source.Directory(), Err: err}
				if options.ContinueOnError {
					logger.Warnf("%v", err)
					failures[i] = err
					return nil
				}
				return err
			}
			results[i] = segments
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	timeline := []*Segment{}
	for _, segments := range results {
		timeline = append(timeline, segments...)
	}
	sort.SliceStable(timeline, func(i, j int) bool {
		return timeline[i].StartTime.Before(timeline[j].StartTime)
	})

	return timeline, errors.Join(failures...)
}
