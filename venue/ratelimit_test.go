package venue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllowsBurstThenBlocks(t *testing.T) {
	rl := NewRateLimiter(5, 1) // 5 calls/sec, matching CoinbaseRest.ratelimiter
	allowed := 0
	for i := 0; i < 5; i++ {
		if rl.Allow() {
			allowed++
		}
	}
	assert.Equal(t, 5, allowed)
	assert.False(t, rl.Allow())
}

func TestRateLimiterZeroCallsDefaultsToOne(t *testing.T) {
	rl := NewRateLimiter(0, 1)
	assert.True(t, rl.Allow())
}
