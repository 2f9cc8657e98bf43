package compiler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	DefaultCacheTTL     = 10 * time.Minute
	defaultCacheCleanup = 20 * time.Minute
)

// Cached memoizes successful compilations of another Compiler.
//
// Results that inlined imports are never cached: the imported files can
// change without the request changing.
type Cached struct {
	next  Compiler
	cache *cache.Cache
}

// NewCached wraps next with a cache whose entries expire after ttl.
func NewCached(next Compiler, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cached{
		next:  next,
		cache: cache.New(ttl, defaultCacheCleanup),
	}
}

func (c *Cached) Compile(ctx context.Context, req Request) (*Result, error) {
	key := cacheKey(req)
	if v, ok := c.cache.Get(key); ok {
		slog.Debug("Theme compile cache hit", "path", req.SourcePath)
		return v.(*Result), nil
	}

	res, err := c.next.Compile(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(res.Imports) == 0 {
		c.cache.SetDefault(key, res)
	}
	return res, nil
}

func cacheKey(req Request) string {
	h := sha256.New()
	for _, part := range []string{req.ScopeClass, req.SourcePath, req.Content} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
