package service

import (
	"context"

	"bugsentinel/internal/app/client/ai"
	"bugsentinel/internal/domain/snippet"
)

// AnalyzeCode runs analysis on code that is not necessarily saved.
func (s *Service) AnalyzeCode(ctx context.Context, req ai.AnalyzeRequest) Result[[]snippet.Issue] {
	if s.ai == nil || !s.ai.Available() {
		return fail[[]snippet.Issue](ErrAIUnavailable)
	}

	s.state.SetAnalyzing(true)
	defer s.state.SetAnalyzing(false)

	issues, err := s.ai.AnalyzeCode(ctx, req)
	if err != nil {
		s.log.Warn("analysis failed", "language", req.Language, "error", err)
		return fail[[]snippet.Issue](err)
	}

	s.state.SetAnalysisResults(issues)
	return ok(issues)
}

// AnalyzeSnippet analyzes a stored snippet. With save set, the issues are
// written back onto the snippet like any other edit.
func (s *Service) AnalyzeSnippet(ctx context.Context, ref snippet.Ref, prompt string, save bool) Result[[]snippet.Issue] {
	v, found := s.find(ref)
	if !found {
		return fail[[]snippet.Issue](snippet.ErrNotFound)
	}

	res := s.AnalyzeCode(ctx, ai.AnalyzeRequest{Code: v.Code, Language: v.Language, Prompt: prompt})
	if !res.OK() || !save {
		return res
	}

	issues := res.Data
	if up := s.UpdateSnippet(ctx, ref, snippet.UpdateRequest{Analysis: &issues}); !up.OK() {
		s.log.Warn("attach analysis", "id", ref.ID(), "error", up.Error)
	}
	return res
}
