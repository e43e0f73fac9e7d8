package logctx

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestFrom_ReturnsNopWhenUnset(t *testing.T) {
	logger := From(context.Background())
	assert.Equal(t, zerolog.Disabled, logger.GetLevel())
}

func TestWithAndFrom_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, zerolog.InfoLevel)

	ctx := With(context.Background(), logger)
	got := From(ctx)

	got.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
}
