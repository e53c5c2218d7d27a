// Package cache implements the cache-aside read path used by every
// market-data endpoint: check the shared store first, fall back to the
// upstream fetch on a miss, and write the fresh result back with a TTL.
//
// Store trouble is never allowed to fail a request. A broken read
// degrades to a direct fetch and a broken write is logged and dropped,
// because the freshly fetched value is still perfectly good to serve.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/briangreenhill/coinwatch/kv"
)

// Outcome reports how a GetOrFetch call was satisfied. It exists so
// the fallback paths stay visible to callers and tests instead of
// being buried in swallowed errors.
type Outcome int

const (
	// OutcomeHit means the value came straight from the store.
	OutcomeHit Outcome = iota
	// OutcomeMiss means the store had no entry and the fetch ran.
	OutcomeMiss
	// OutcomeBypass means the store was skipped or unreachable and
	// the fetch ran without cache participation being guaranteed.
	OutcomeBypass
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHit:
		return "hit"
	case OutcomeMiss:
		return "miss"
	case OutcomeBypass:
		return "bypass"
	default:
		return "unknown"
	}
}

// GetOrFetch returns the value cached under key, or runs fetch and
// caches its result for ttl. Values are stored as JSON.
//
// A fetch error propagates unchanged and nothing is cached. Store
// errors never propagate: a failed read falls back to fetch, a failed
// write is logged and ignored. A ttl of zero or less disables caching
// for the call entirely.
//
// Concurrent callers that miss on the same key all fetch
// independently; upstream reads are idempotent so the duplicate work
// is accepted rather than coordinated away.
func GetOrFetch[T any](ctx context.Context, store kv.Store, log zerolog.Logger, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, Outcome, error) {
	var zero T

	if ttl <= 0 {
		v, err := fetch(ctx)
		if err != nil {
			return zero, OutcomeBypass, err
		}
		return v, OutcomeBypass, nil
	}

	raw, found, err := store.Get(ctx, key)
	outcome := OutcomeMiss
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache read failed, fetching directly")
		outcome = OutcomeBypass
	} else if found {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			log.Debug().Str("key", key).Msg("cache hit")
			return v, OutcomeHit, nil
		}
		// Stale or corrupt payload; treat as a miss so the fetch
		// below overwrites it.
		log.Warn().Str("key", key).Msg("cache entry undecodable, refetching")
	}

	log.Debug().Str("key", key).Msg("cache miss")
	v, err := fetch(ctx)
	if err != nil {
		return zero, outcome, err
	}

	if raw, err := json.Marshal(v); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache encode failed")
	} else if err := store.Set(ctx, key, raw, ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	} else {
		log.Debug().Str("key", key).Dur("ttl", ttl).Msg("cache set")
	}

	return v, outcome, nil
}
