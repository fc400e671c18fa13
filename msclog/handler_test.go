package msclog_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/nomis52/msc/msclog"
	"github.com/nomis52/msc/problem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapturingHandlerEnabledAlwaysTrue(t *testing.T) {
	report := &problem.Report{}
	underlying := slog.NewJSONHandler(bytes.NewBuffer(nil), &slog.HandlerOptions{Level: slog.LevelError})
	h := msclog.NewCapturingHandler(underlying, report, "svc:a")

	ctx := context.Background()
	assert.True(t, h.Enabled(ctx, slog.LevelDebug))
	assert.True(t, h.Enabled(ctx, slog.LevelError))
}

func TestCapturingHandlerCapturesIntoReport(t *testing.T) {
	report := &problem.Report{}
	var buf bytes.Buffer
	underlying := slog.NewJSONHandler(&buf, nil)
	logger := msclog.ForTask(slog.New(underlying), report, "svc:a")

	logger.Info("retrying connection", "attempt", 2)

	problems := report.All()
	require.Len(t, problems, 1)
	assert.Equal(t, problem.Info, problems[0].Severity)
	assert.Equal(t, "svc:a", problems[0].Source)
	assert.Contains(t, problems[0].Message, "retrying connection")
	assert.Contains(t, buf.String(), "retrying connection")
}

func TestCapturingHandlerWithAttrsPreservesCapture(t *testing.T) {
	report := &problem.Report{}
	underlying := slog.NewJSONHandler(bytes.NewBuffer(nil), nil)
	logger := msclog.ForTask(slog.New(underlying), report, "svc:a")

	logger.With("pool", "db1").Info("connected")

	problems := report.All()
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0].Message, "pool=db1")
}

func TestNewComponentLogger(t *testing.T) {
	logger := msclog.New(nil, "container")
	assert.NotNil(t, logger)
}
