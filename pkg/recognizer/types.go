// Package recognizer defines the stage-worker contracts for the five
// recognizer roles (ASR, diarization, post-processing, LLM analysis,
// research) and a registry that dispatches a pipeline stage to its
// implementation.
package recognizer

import "context"

// ProgressFunc reports incremental progress for a long-running recognizer
// call. Implementations should call it at least every 5% or 10 seconds,
// whichever comes first, and must tolerate being called from any goroutine.
type ProgressFunc func(pct int, message string)

// TranscriptSegment is one timed span of the ASR stage's output.
type TranscriptSegment struct {
	StartSeconds float64
	EndSeconds   float64
	Text         string
	Confidence   float64
}

// TranscribeRequest is the input to ASR.Transcribe.
type TranscribeRequest struct {
	JobID        string
	AudioURL     string
	Preset       ASRPreset
	LanguageHint string
}

// TranscriptResult is the output of ASR.Transcribe.
type TranscriptResult struct {
	FullText              string
	Segments              []TranscriptSegment
	WordTimestamps        []map[string]interface{}
	DetectedLanguage      string
	GlobalConfidence      float64
	AudioDurationSeconds  float64
	ModelIdentifier       string
	ProcessingTimeMillis  int
}

// ASRPreset selects an ASR model/decoding tradeoff.
type ASRPreset string

// ASR presets.
const (
	ASRPresetHighPrecision    ASRPreset = "HIGH_PRECISION"
	ASRPresetBalanced         ASRPreset = "BALANCED"
	ASRPresetFast             ASRPreset = "FAST"
	ASRPresetMultilingualAuto ASRPreset = "MULTILINGUAL_AUTO"
)

// SpeakerSegment is one timed, speaker-attributed span.
type SpeakerSegment struct {
	StartSeconds float64
	EndSeconds   float64
	SpeakerID    string
	Confidence   float64
}

// DiarizeRequest is the input to Diarizer.Diarize.
type DiarizeRequest struct {
	JobID                string
	AudioURL             string
	ExpectedSpeakerCount int // 0 = auto-detect
}

// DiarizationResult is the output of Diarizer.Diarize.
type DiarizationResult struct {
	SpeakerCount             int
	Segments                 []SpeakerSegment
	SpeakerEmbeddings        map[string][]float64
	RoleAssignments          map[string]interface{}
	RoleAssignmentConfidence float64
	SeparationQualityScore   float64
}

// Correction is one lexicon-driven text repair made during post-processing.
type Correction struct {
	Offset      int
	Original    string
	Replacement string
	Confidence  float64
}

// MedicalEntity is one term recognized during the post-processing NER pass.
type MedicalEntity struct {
	Text     string
	Category string // anatomy, pathology, pharmacology, procedure, ...
	Offset   int
}

// StructuralSegment maps a time span to a pedagogical activity (lecture,
// Q&A, case discussion, ...).
type StructuralSegment struct {
	StartSeconds float64
	EndSeconds   float64
	Activity     string
}

// PostProcessRequest is the input to PostProcessor.Process.
type PostProcessRequest struct {
	JobID    string
	RawText  string
	Segments []TranscriptSegment
}

// PostProcessResult is the output of PostProcessor.Process.
type PostProcessResult struct {
	CorrectedText      string
	Corrections        []Correction
	MedicalEntities    map[string][]MedicalEntity
	ClassGlossary      []map[string]interface{}
	StructuralSegments []StructuralSegment
}

// AnalyzeRequest is the input to LLMAnalyzer.Analyze.
type AnalyzeRequest struct {
	JobID         string
	CorrectedText string
	Subject       string
}

// AnalysisResult is the output of LLMAnalyzer.Analyze.
type AnalysisResult struct {
	Summary           string
	KeyConcepts       []string
	ClassStructure    map[string]interface{}
	TerminologyMedica []map[string]interface{}
	KeyMoments        []map[string]interface{}
	Confidence        float64
	Coherence         float64
	Completeness      float64
	MedicalRelevance  float64
}

// NeedsReview reports whether the analysis should be flagged for human
// review (confidence below 0.8 or coherence below 0.7).
func (a *AnalysisResult) NeedsReview() bool {
	return a.Confidence < 0.8 || a.Coherence < 0.7
}

// ResearchRequest is the input to Researcher.Research: one batch of terms
// drawn from an LLMAnalysisResult's terminology_medica.
type ResearchRequest struct {
	JobID   string
	Terms   []string
	Preset  string // COMPREHENSIVE, QUICK, ACADEMIC, CLINICAL, ITALIAN_FOCUSED
	Language string
}

// SourceRecord is one bibliographic record attached to a TermResult.
type SourceRecord struct {
	SourceType          string
	Title               string
	URL                 string
	Authors             []string
	DOI                 string
	PMID                string
	Journal             string
	Abstract            string
	KeyPoints           []string
	RelevantExcerpt     string
	Conclusions         string
	Keywords            []string
	ContentCategory     string
	PeerReviewed        bool
	OfficialSource      bool
	HighImpactJournal   bool
	RelevanceScore      float64
	AuthorityScore      float64
	RecencyScore        float64
	ContentQualityScore float64
	OverallScore        float64
}

// TermResult is the research outcome for a single term.
type TermResult struct {
	Term                   string
	NormalizedTerm         string
	PrimaryDefinition      string
	AlternativeDefinitions []map[string]interface{}
	Translations           map[string]string
	Synonyms               []string
	RelatedTerms           []string
	Confidence             float64
	SourceReliability      float64
	Freshness              float64
	Consensus              float64
	QualityGrade           string
	FromCache              bool
	Sources                []SourceRecord
}

// ResearchBatchResult is the output of Researcher.Research.
type ResearchBatchResult struct {
	Results     []TermResult
	CacheHits   int
	CacheMisses int
	Warnings    []string
}

// ASR transcribes an audio recording.
type ASR interface {
	Transcribe(ctx context.Context, req TranscribeRequest, progress ProgressFunc) (*TranscriptResult, error)
}

// Diarizer assigns speaker turns across an audio recording.
type Diarizer interface {
	Diarize(ctx context.Context, req DiarizeRequest, progress ProgressFunc) (*DiarizationResult, error)
}

// PostProcessor corrects ASR text against a medical lexicon and segments it
// structurally.
type PostProcessor interface {
	Process(ctx context.Context, req PostProcessRequest, progress ProgressFunc) (*PostProcessResult, error)
}

// LLMAnalyzer summarizes a corrected transcript and extracts terminology.
type LLMAnalyzer interface {
	Analyze(ctx context.Context, req AnalyzeRequest, progress ProgressFunc) (*AnalysisResult, error)
}

// Researcher resolves a batch of medical terms to sourced definitions.
type Researcher interface {
	Research(ctx context.Context, req ResearchRequest, progress ProgressFunc) (*ResearchBatchResult, error)
}
