package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutorhub-api/pkg/middleware/requestid"
)

const (
	responseMetaKey = "response_meta"
	startedAtKey    = "response_meta_started"
)

// Meta keys written by the API.
const (
	MetaCacheHit       = "cache_hit"
	MetaProcessingTime = "processing_time_ms"
	MetaRequestID      = "request_id"
)

// WithResponseMeta gives handlers a per-request meta map. The request id is added up front.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseMetaKey, map[string]interface{}{})
		if id := requestid.Value(c); id != "" {
			SetMeta(c, MetaRequestID, id)
		}
		c.Set(startedAtKey, time.Now())
		c.Next()
	}
}

// SetMeta records a value in the response meta.
func SetMeta(c *gin.Context, key string, value interface{}) {
	metaOf(c)[key] = value
}

// SetCacheHit records whether the payload came from cache.
func SetCacheHit(c *gin.Context, hit bool) {
	SetMeta(c, MetaCacheHit, hit)
}

// ExtractMeta returns the meta map with processing time filled in, or nil without
// WithResponseMeta.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	raw, ok := c.Get(responseMetaKey)
	if !ok {
		return nil
	}
	meta, _ := raw.(map[string]interface{})
	if started, ok := c.Get(startedAtKey); ok && meta != nil {
		if _, set := meta[MetaProcessingTime]; !set {
			meta[MetaProcessingTime] = time.Since(started.(time.Time)).Milliseconds()
		}
	}
	return meta
}

func metaOf(c *gin.Context) map[string]interface{} {
	if raw, ok := c.Get(responseMetaKey); ok {
		if meta, ok := raw.(map[string]interface{}); ok {
			return meta
		}
	}
	meta := map[string]interface{}{}
	c.Set(responseMetaKey, meta)
	return meta
}
