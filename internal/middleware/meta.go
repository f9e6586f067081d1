package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-center-api/pkg/middleware/requestid"
)

// Keys of the envelope meta object.
const (
	MetaCacheHit  = "cache_hit"
	MetaRequestID = "request_id"
	MetaElapsedMS = "elapsed_ms"
	MetaMonth     = "month"
)

const (
	responseMetaKey = "tutor.response_meta"
	cacheHeader     = "X-Cache"
)

type responseMeta struct {
	started time.Time
	fields  map[string]interface{}
}

// WithResponseMeta starts the per-request meta record read by ExtractMeta.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseMetaKey, &responseMeta{started: time.Now(), fields: map[string]interface{}{}})
		c.Next()
	}
}

// SetCacheHit flags whether the payload came from Redis and mirrors it in X-Cache.
func SetCacheHit(c *gin.Context, hit bool) {
	metaFor(c).fields[MetaCacheHit] = hit
	if hit {
		c.Header(cacheHeader, "HIT")
	} else {
		c.Header(cacheHeader, "MISS")
	}
}

// SetMeta records an arbitrary meta field, e.g. the billing month served.
func SetMeta(c *gin.Context, key string, value interface{}) {
	metaFor(c).fields[key] = value
}

// ExtractMeta snapshots the meta for the envelope. Elapsed time is measured up
// to the call, i.e. just before the body is written.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	raw, ok := c.Get(responseMetaKey)
	if !ok {
		return nil
	}
	meta, ok := raw.(*responseMeta)
	if !ok {
		return nil
	}
	out := make(map[string]interface{}, len(meta.fields)+2)
	for k, v := range meta.fields {
		out[k] = v
	}
	if id := requestid.Value(c); id != "" {
		out[MetaRequestID] = id
	}
	if !meta.started.IsZero() {
		out[MetaElapsedMS] = time.Since(meta.started).Milliseconds()
	}
	return out
}

func metaFor(c *gin.Context) *responseMeta {
	if raw, ok := c.Get(responseMetaKey); ok {
		if meta, ok := raw.(*responseMeta); ok {
			return meta
		}
	}
	meta := &responseMeta{fields: map[string]interface{}{}}
	c.Set(responseMetaKey, meta)
	return meta
}
