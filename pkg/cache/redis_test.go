package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/tutorhub-api/pkg/config"
)

func TestOptionsFromConfig(t *testing.T) {
	opts := Options(config.RedisConfig{Host: "cache.local", Port: 6380, DB: 2, PoolSize: 8, Timeout: time.Second})

	assert.Equal(t, "cache.local:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 8, opts.PoolSize)
	assert.Equal(t, time.Second, opts.ReadTimeout)
}
