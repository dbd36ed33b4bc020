package recognizer

import "fmt"

// Registry holds one implementation per recognizer role and dispatches a
// pipeline stage name to the implementation that owns it. Stages are modeled
// as a tagged variant rather than a class hierarchy: each accessor returns a
// plain interface value, and callers switch on the stage name to pick one.
type Registry struct {
	asr           ASR
	diarizer      Diarizer
	postProcessor PostProcessor
	llmAnalyzer   LLMAnalyzer
	researcher    Researcher
}

// NewRegistry builds a Registry from concrete implementations. Any argument
// may be nil; callers that exercise a stage with a nil implementation get
// ErrStageUnavailable.
func NewRegistry(asr ASR, diarizer Diarizer, postProcessor PostProcessor, llmAnalyzer LLMAnalyzer, researcher Researcher) *Registry {
	return &Registry{
		asr:           asr,
		diarizer:      diarizer,
		postProcessor: postProcessor,
		llmAnalyzer:   llmAnalyzer,
		researcher:    researcher,
	}
}

// ErrStageUnavailable is returned by an accessor when no implementation was
// registered for that role.
type ErrStageUnavailable struct {
	Stage string
}

func (e *ErrStageUnavailable) Error() string {
	return fmt.Sprintf("recognizer: no implementation registered for stage %q", e.Stage)
}

// ASR returns the registered ASR implementation.
func (r *Registry) ASR() (ASR, error) {
	if r.asr == nil {
		return nil, &ErrStageUnavailable{Stage: "ASR"}
	}
	return r.asr, nil
}

// Diarizer returns the registered Diarizer implementation.
func (r *Registry) Diarizer() (Diarizer, error) {
	if r.diarizer == nil {
		return nil, &ErrStageUnavailable{Stage: "DIARIZATION"}
	}
	return r.diarizer, nil
}

// PostProcessor returns the registered PostProcessor implementation.
func (r *Registry) PostProcessor() (PostProcessor, error) {
	if r.postProcessor == nil {
		return nil, &ErrStageUnavailable{Stage: "POSTPROCESS"}
	}
	return r.postProcessor, nil
}

// LLMAnalyzer returns the registered LLMAnalyzer implementation.
func (r *Registry) LLMAnalyzer() (LLMAnalyzer, error) {
	if r.llmAnalyzer == nil {
		return nil, &ErrStageUnavailable{Stage: "NLP"}
	}
	return r.llmAnalyzer, nil
}

// Researcher returns the registered Researcher implementation.
func (r *Registry) Researcher() (Researcher, error) {
	if r.researcher == nil {
		return nil, &ErrStageUnavailable{Stage: "RESEARCH"}
	}
	return r.researcher, nil
}
