package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"reeldrop.app/reeldrop/internal/media"
	"reeldrop.app/reeldrop/internal/sourceurl"
)

// Extractor is the boundary to the upstream extraction collaborator. Probe
// failures carry a media.Failure classification; Fetch reuses the client
// identity recorded on the session so format IDs stay valid.
type Extractor interface {
	Probe(ctx context.Context, url string, profile Profile) (*media.Session, error)
	Fetch(ctx context.Context, sess *media.Session, desc media.StreamDescriptor, destPath string) error
}

// blockedBackoff bounds the extra pause taken after an attempt fails with a
// rate-limit/blocking signature, on top of the next profile's own jitter.
const (
	blockedBackoffMin = 2 * time.Second
	blockedBackoffMax = 5 * time.Second
)

// Resolver walks a strategy catalog until one profile yields a verified
// session. It holds no shared mutable state; a Resolver is safe for
// concurrent use.
type Resolver struct {
	extractor Extractor
	catalog   []Profile

	// sleep is swappable so tests don't wait out jitter windows.
	sleep func(time.Duration)
}

// New builds a Resolver over the default strategy catalog.
func New(extractor Extractor) *Resolver {
	return &Resolver{
		extractor: extractor,
		catalog:   DefaultCatalog(),
		sleep:     time.Sleep,
	}
}

// NewWithCatalog builds a Resolver over a custom catalog. Order is preserved.
func NewWithCatalog(extractor Extractor, catalog []Profile) *Resolver {
	r := New(extractor)
	if len(catalog) > 0 {
		r.catalog = catalog
	}
	return r
}

// Resolve attempts each profile in catalog order until one produces a usable
// session: construction succeeded, the title reads, and at least one stream
// is enumerable. It fails fast with media.ErrInvalidInput for unrecognized
// URLs and with media.ErrResolutionExhausted when every profile fails.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (*media.Session, error) {
	url, err := sourceurl.Normalize(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", media.ErrInvalidInput, err)
	}

	var lastErr error
	for i, profile := range r.catalog {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		// Jittered pause between attempts keeps request signatures from
		// correlating. The first profile goes out immediately.
		if i > 0 {
			r.sleep(jitter(profile.DelayMin, profile.DelayMax))
		}

		sess, err := r.extractor.Probe(ctx, url, profile)
		if err == nil {
			if verified(sess) {
				slog.Info("session resolved", "profile", profile.Identity, "title", sess.Title, "streams", len(sess.Streams))
				return sess, nil
			}
			// Construction succeeded but nothing is playable. That counts as
			// a failure for this profile.
			err = fmt.Errorf("profile %s: session has no playable streams", profile.Identity)
		}

		lastErr = err
		slog.Warn("strategy attempt failed", "profile", profile.Identity, "kind", media.KindOf(err).String(), "error", err)

		if media.IsBlocked(err) {
			r.sleep(jitter(blockedBackoffMin, blockedBackoffMax))
		}
	}

	return nil, fmt.Errorf("%w: last attempt: %v", media.ErrResolutionExhausted, lastErr)
}

// verified applies the usability bar for a freshly probed session: a readable
// title and at least one enumerable stream (progressive preferred, but any
// stream keeps the session usable).
func verified(sess *media.Session) bool {
	if sess == nil || sess.Title == "" {
		return false
	}
	return sess.HasProgressive() || len(sess.Streams) > 0
}

func jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + rand.N(max-min)
}
