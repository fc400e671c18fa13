package problem_test

import (
	"testing"

	"github.com/nomis52/msc/problem"
	"github.com/stretchr/testify/assert"
)

func TestReportCanCommit(t *testing.T) {
	var r problem.Report
	assert.True(t, r.CanCommit())

	r.Addf(problem.Warning, "src", "just a warning")
	assert.True(t, r.CanCommit())

	r.Addf(problem.Error, "src", "boom: %d", 42)
	assert.False(t, r.CanCommit())
	assert.Equal(t, problem.Error, r.Worst())
}

func TestReportCriticalBlocks(t *testing.T) {
	var r problem.Report
	r.Add(problem.Problem{Severity: problem.Critical, Source: "task", Message: "panic"})
	assert.False(t, r.CanCommit())
	assert.Equal(t, problem.Critical, r.Worst())
}

func TestReportAllIsDefensiveCopy(t *testing.T) {
	var r problem.Report
	r.Addf(problem.Info, "src", "one")
	all := r.All()
	all[0].Message = "mutated"
	assert.Equal(t, "one", r.All()[0].Message)
}
