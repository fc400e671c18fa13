// Package msclog supplies the container's component-logger convention and a
// slog.Handler that tees every record it handles into a problem.Report as
// INFO-severity entries. ForTask builds a logger around that handler; nothing
// in this module installs one automatically, so a Service.Start/Stop body's
// log lines reach a transaction's report only when it logs through a logger
// built with ForTask.
//
// Grounded on logging/capturing_handler.go's CapturingHandler, which wraps
// an slog.Handler to capture records into a LogCollector keyed by activity
// ID while still passing them through; here the sink is a *problem.Report
// keyed by source name instead of a *LogCollector keyed by activity ID.
package msclog

import (
	"context"
	"log/slog"

	"github.com/nomis52/msc/problem"
)

// New returns the component logger convention used throughout this module:
// logger.With("component", name), mirroring the teacher's
// logger.With("component", ...)/logger.With("activity", name) pattern.
func New(base *slog.Logger, component string) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	return base.With("component", component)
}

// CapturingHandler wraps an slog.Handler to capture log records emitted
// during a task's EXECUTE phase into a problem.Report, while still passing
// every record through to the underlying handler.
type CapturingHandler struct {
	underlying slog.Handler
	report     *problem.Report
	source     string
	attrs      []slog.Attr
}

// NewCapturingHandler wraps underlying so that every record handled also
// gets appended to report as an Info-severity problem tagged with source
// (typically the task's name).
func NewCapturingHandler(underlying slog.Handler, report *problem.Report, source string) *CapturingHandler {
	return &CapturingHandler{underlying: underlying, report: report, source: source}
}

// Enabled always reports true: every record must reach the report
// regardless of the underlying handler's configured level, which still
// filters what actually gets written out in Handle.
func (h *CapturingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return true
}

// Handle appends a problem.Problem built from the record to the report,
// then passes the record through to the underlying handler.
func (h *CapturingHandler) Handle(ctx context.Context, r slog.Record) error {
	msg := r.Message
	for _, a := range h.attrs {
		msg += " " + a.Key + "=" + a.Value.String()
	}
	r.Attrs(func(a slog.Attr) bool {
		msg += " " + a.Key + "=" + a.Value.String()
		return true
	})
	h.report.Add(problem.Problem{Severity: problem.Info, Source: h.source, Message: msg})
	if !h.underlying.Enabled(ctx, r.Level) {
		return nil
	}
	return h.underlying.Handle(ctx, r)
}

// WithAttrs returns a new CapturingHandler carrying the added attributes,
// preserving capture through a .With() chain.
func (h *CapturingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	copy(newAttrs[len(h.attrs):], attrs)
	return &CapturingHandler{
		underlying: h.underlying.WithAttrs(attrs),
		report:     h.report,
		source:     h.source,
		attrs:      newAttrs,
	}
}

// WithGroup returns a new CapturingHandler wrapping the grouped underlying
// handler, preserving capture through a .With() chain.
func (h *CapturingHandler) WithGroup(name string) slog.Handler {
	return &CapturingHandler{
		underlying: h.underlying.WithGroup(name),
		report:     h.report,
		source:     h.source,
		attrs:      h.attrs,
	}
}

// ForTask returns a *slog.Logger that tees everything logged through it
// into report under source, wrapping base's handler.
func ForTask(base *slog.Logger, report *problem.Report, source string) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	return slog.New(NewCapturingHandler(base.Handler(), report, source))
}
