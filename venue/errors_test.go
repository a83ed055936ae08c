package venue

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyRetryable(t *testing.T) {
	assert.Equal(t, Retryable, Classify(ErrTransport))
	assert.Equal(t, Retryable, Classify(ErrRateLimited))
}

func TestClassifyFatal(t *testing.T) {
	assert.Equal(t, Fatal, Classify(ErrAuth))
	assert.Equal(t, Fatal, Classify(ErrProtocolViolation))
}

func TestClassifySurface(t *testing.T) {
	assert.Equal(t, Surface, Classify(ErrInsufficientFunds))
	assert.Equal(t, Surface, Classify(ErrBelowMinimumTrade))
	assert.Equal(t, Surface, Classify(nil))
	assert.Equal(t, Surface, Classify(&RejectionError{Code: "400", Text: "bad request"}))
}

func TestClassifyUnwrapsWrappedSentinel(t *testing.T) {
	wrapped := fmt.Errorf("adapter call failed: %w", ErrAuth)
	assert.Equal(t, Fatal, Classify(wrapped))
}

func TestKindRecognisesRejectionError(t *testing.T) {
	assert.Equal(t, KindVenueRejected, Kind(&RejectionError{Code: "500", Text: "internal error"}))
}

func TestKindUnknownForUnrecognisedError(t *testing.T) {
	assert.Equal(t, KindUnknown, Kind(fmt.Errorf("some unrelated failure")))
}
