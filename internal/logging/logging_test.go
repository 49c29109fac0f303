package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerV2_WritesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerV2WithWriter("order-service", &buf)

	logger.Info("Order created", Fields{"order_id": int64(42), "user_id": int64(1)})

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "Order created", line["msg"])
	assert.Equal(t, "INFO", line["level"])
	assert.Equal(t, "order-service", line["service"])
	assert.EqualValues(t, 42, line["order_id"])
}

func TestLoggerV2_RespectsLevel(t *testing.T) {
	t.Cleanup(func() { SetLevel("info") })

	var buf bytes.Buffer
	logger := NewLoggerV2WithWriter("cart-service", &buf)

	SetLevel("warn")
	logger.Info("hidden")
	assert.Zero(t, buf.Len())

	SetLevel("debug")
	logger.Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestLoggerV2_FatalExits(t *testing.T) {
	code := 0
	exit = func(c int) { code = c }
	t.Cleanup(func() { exit = os.Exit })

	var buf bytes.Buffer
	NewLoggerV2WithWriter("main", &buf).Fatal("cannot start")

	assert.Equal(t, 1, code)
	assert.Contains(t, buf.String(), "cannot start")
}

func TestRequestID_RoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")

	assert.Equal(t, "req-1", RequestIDFrom(ctx))
	assert.Empty(t, RequestIDFrom(context.Background()))
}
