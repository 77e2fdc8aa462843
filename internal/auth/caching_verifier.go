package auth

import (
	"context"
	"time"

	"helpdesk-realtime-api/internal/cache"
)

// CachingVerifier remembers verified principals by token until the token
// expires or maxAge elapses, whichever comes first. Failures are not cached.
type CachingVerifier struct {
	next   Verifier
	cache  *cache.TTLCache[string, Principal]
	maxAge time.Duration
	now    func() time.Time
}

func NewCachingVerifier(next Verifier, maxAge time.Duration, maxEntries int) *CachingVerifier {
	return &CachingVerifier{
		next:   next,
		cache:  cache.New[string, Principal](cache.Options{MaxEntries: maxEntries}),
		maxAge: maxAge,
		now:    time.Now,
	}
}

func (v *CachingVerifier) Verify(ctx context.Context, token string) (*Principal, error) {
	if p, ok := v.cache.Get(token); ok {
		return &p, nil
	}
	p, err := v.next.Verify(ctx, token)
	if err != nil || p == nil {
		return nil, err
	}

	ttl := v.maxAge
	if !p.ExpiresAt.IsZero() {
		if untilExpiry := p.ExpiresAt.Sub(v.now()); untilExpiry < ttl {
			ttl = untilExpiry
		}
	}
	v.cache.Set(token, *p, ttl)
	return p, nil
}
