package cli

import (
	"bytes"
	"context"

	"github.com/labsafe/sdsassist/internal/core/domain"
	"github.com/labsafe/sdsassist/internal/core/ports/driving"
)

// stubAnswerService returns a canned answer.
type stubAnswerService struct {
	answer    domain.Answer
	err       error
	lastQuery domain.Query
}

func (s *stubAnswerService) Ask(_ context.Context, query domain.Query) (domain.Answer, error) {
	s.lastQuery = query
	return s.answer, s.err
}

// stubScreenService returns canned findings.
type stubScreenService struct {
	findings   []domain.HazardFinding
	unresolved []string
	err        error
	lastNames  []string
}

func (s *stubScreenService) Screen(_ context.Context, materials []string) ([]domain.HazardFinding, []string, error) {
	s.lastNames = materials
	return s.findings, s.unresolved, s.err
}

// stubIngestService returns canned reports.
type stubIngestService struct {
	report *driving.IngestReport
	batch  *driving.BatchReport
	err    error
}

func (s *stubIngestService) IngestFile(_ context.Context, _ string) (*driving.IngestReport, error) {
	return s.report, s.err
}

func (s *stubIngestService) IngestBytes(_ context.Context, _ string, _ []byte) (*driving.IngestReport, error) {
	return s.report, s.err
}

func (s *stubIngestService) IngestDir(_ context.Context, _ string) (*driving.BatchReport, error) {
	return s.batch, s.err
}

// resetServices clears all injected services. Returned by setup helpers
// for deferred cleanup so tests don't leak state into each other.
func resetServices() {
	SetServices(Deps{})
}

// execute runs the root command with the given args and captures output.
func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}
