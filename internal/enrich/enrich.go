// Package enrich fetches video metadata for a set of identifiers, one
// blocking lookup at a time, and returns it as a map the pure transform can
// read without touching the network.
package enrich

import (
	"context"
	"errors"

	"github.com/backmassage/campaigndelta/internal/logging"
	"github.com/backmassage/campaigndelta/internal/youtube"
)

// Lookuper fetches metadata for a single video id.
type Lookuper interface {
	Lookup(ctx context.Context, id string) (youtube.Metadata, error)
}

// LookupFunc adapts a plain function to Lookuper.
type LookupFunc func(ctx context.Context, id string) (youtube.Metadata, error)

// Lookup calls f.
func (f LookupFunc) Lookup(ctx context.Context, id string) (youtube.Metadata, error) {
	return f(ctx, id)
}

// Result maps each identifier to its metadata. An identifier is in exactly
// one of Metadata or Misses.
type Result struct {
	Metadata map[string]youtube.Metadata
	Misses   map[string]error
}

// Enrich looks up every id in order. Repeated and empty ids are looked up
// at most once. Links are unique per table, so a repeat only arises when two
// spellings of a link name the same video, and both rows read the same
// metadata. A failed lookup (not found, HTTP error, per-lookup timeout)
// is recorded in Misses and the loop continues. Cancellation of ctx stops
// the loop and returns ctx.Err().
func Enrich(ctx context.Context, l Lookuper, ids []string, log *logging.Logger) (*Result, error) {
	res := &Result{
		Metadata: make(map[string]youtube.Metadata, len(ids)),
		Misses:   make(map[string]error),
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if id == "" {
			continue
		}
		if _, ok := res.Metadata[id]; ok {
			continue
		}
		if _, ok := res.Misses[id]; ok {
			continue
		}

		md, err := l.Lookup(ctx, id)
		if err != nil {
			// The parent context ending is a run abort, not a row miss.
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return nil, ctxErr
			}
			res.Misses[id] = err
			log.Warn("Lookup failed for %s: %v", id, err)
			continue
		}
		res.Metadata[id] = md
		log.Debug("Fetched %s: %d views, duration %q", id, md.Views, md.Duration)
	}
	return res, nil
}
