package queue

import (
	"context"
	"fmt"

	"github.com/axonote/pipeline/ent/classsession"
	"github.com/axonote/pipeline/ent/llmanalysisresult"
	"github.com/axonote/pipeline/ent/postprocessingresult"
	"github.com/axonote/pipeline/ent/transcriptionresult"
	"github.com/google/uuid"

	"github.com/axonote/pipeline/ent"
	"github.com/axonote/pipeline/pkg/recognizer"
)

func (e *StageExecutor) runASR(ctx context.Context, job *ent.ProcessingJob, progress recognizer.ProgressFunc) ([]string, error) {
	session, err := e.db.ClassSession.Get(ctx, job.ClassSessionID)
	if err != nil {
		return nil, fmt.Errorf("load class session: %w", err)
	}
	if session.AudioURL == nil {
		return nil, fmt.Errorf("class session %s has no assembled audio yet", session.ID)
	}

	asr, err := e.registry.ASR()
	if err != nil {
		return nil, err
	}

	result, err := asr.Transcribe(ctx, recognizer.TranscribeRequest{
		JobID:    job.ID,
		AudioURL: *session.AudioURL,
		Preset:   recognizer.ASRPresetBalanced,
	}, progress)
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}

	tx, err := e.db.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}

	_, err = tx.TranscriptionResult.Create().
		SetID(uuid.New().String()).
		SetClassSessionID(job.ClassSessionID).
		SetJobID(job.ID).
		SetFullText(result.FullText).
		SetSegments(segmentsToMaps(result.Segments)).
		SetWordTimestamps(result.WordTimestamps).
		SetDetectedLanguage(result.DetectedLanguage).
		SetGlobalConfidence(result.GlobalConfidence).
		SetAudioDurationSeconds(result.AudioDurationSeconds).
		SetModelIdentifier(result.ModelIdentifier).
		SetProcessingTimeMs(result.ProcessingTimeMillis).
		Save(ctx)
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("save transcription result: %w", err)
	}

	if err := tx.ClassSession.UpdateOneID(session.ID).
		SetPipelineState(classsession.PipelineStateAsr).
		SetDurationSeconds(result.AudioDurationSeconds).
		Exec(ctx); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("advance pipeline state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	e.publishSessionStatus(ctx, job.ClassSessionID, classsession.PipelineStateAsr)
	return nil, nil
}

func (e *StageExecutor) runDiarization(ctx context.Context, job *ent.ProcessingJob, progress recognizer.ProgressFunc) ([]string, error) {
	session, err := e.db.ClassSession.Get(ctx, job.ClassSessionID)
	if err != nil {
		return nil, fmt.Errorf("load class session: %w", err)
	}
	if session.AudioURL == nil {
		return nil, fmt.Errorf("class session %s has no assembled audio yet", session.ID)
	}

	diarizer, err := e.registry.Diarizer()
	if err != nil {
		return nil, err
	}

	result, err := diarizer.Diarize(ctx, recognizer.DiarizeRequest{
		JobID:    job.ID,
		AudioURL: *session.AudioURL,
	}, progress)
	if err != nil {
		return nil, fmt.Errorf("diarize: %w", err)
	}

	tx, err := e.db.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}

	embeddings := make(map[string][]float64, len(result.SpeakerEmbeddings))
	for k, v := range result.SpeakerEmbeddings {
		embeddings[k] = v
	}

	_, err = tx.DiarizationResult.Create().
		SetID(uuid.New().String()).
		SetClassSessionID(job.ClassSessionID).
		SetJobID(job.ID).
		SetSpeakerCount(result.SpeakerCount).
		SetSegments(speakerSegmentsToMaps(result.Segments)).
		SetSpeakerEmbeddings(embeddings).
		SetRoleAssignments(result.RoleAssignments).
		SetRoleAssignmentConfidence(result.RoleAssignmentConfidence).
		SetSeparationQualityScore(result.SeparationQualityScore).
		Save(ctx)
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("save diarization result: %w", err)
	}

	if err := tx.ClassSession.UpdateOneID(session.ID).
		SetPipelineState(classsession.PipelineStateDiarization).
		Exec(ctx); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("advance pipeline state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	e.publishSessionStatus(ctx, job.ClassSessionID, classsession.PipelineStateDiarization)
	return nil, nil
}

func (e *StageExecutor) runPostProcess(ctx context.Context, job *ent.ProcessingJob, progress recognizer.ProgressFunc) ([]string, error) {
	transcription, err := e.db.TranscriptionResult.Query().
		Where(transcriptionresult.JobIDEQ(job.ID)).
		Only(ctx)
	if err != nil {
		return nil, fmt.Errorf("load transcription result: %w", err)
	}

	postProcessor, err := e.registry.PostProcessor()
	if err != nil {
		return nil, err
	}

	result, err := postProcessor.Process(ctx, recognizer.PostProcessRequest{
		JobID:    job.ID,
		RawText:  transcription.FullText,
		Segments: mapsToSegments(transcription.Segments),
	}, progress)
	if err != nil {
		return nil, fmt.Errorf("post-process: %w", err)
	}

	tx, err := e.db.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}

	entities := make(map[string][]map[string]interface{}, len(result.MedicalEntities))
	for category, list := range result.MedicalEntities {
		maps := make([]map[string]interface{}, 0, len(list))
		for _, entity := range list {
			maps = append(maps, map[string]interface{}{
				"text":     entity.Text,
				"category": entity.Category,
				"offset":   entity.Offset,
			})
		}
		entities[category] = maps
	}

	structural := make([]map[string]interface{}, 0, len(result.StructuralSegments))
	for _, s := range result.StructuralSegments {
		structural = append(structural, map[string]interface{}{
			"start_seconds": s.StartSeconds,
			"end_seconds":   s.EndSeconds,
			"activity":      s.Activity,
		})
	}

	corrections := make([]map[string]interface{}, 0, len(result.Corrections))
	for _, c := range result.Corrections {
		corrections = append(corrections, map[string]interface{}{
			"offset":      c.Offset,
			"original":    c.Original,
			"replacement": c.Replacement,
			"confidence":  c.Confidence,
		})
	}

	_, err = tx.PostProcessingResult.Create().
		SetID(uuid.New().String()).
		SetClassSessionID(job.ClassSessionID).
		SetJobID(job.ID).
		SetCorrectedText(result.CorrectedText).
		SetCorrections(corrections).
		SetMedicalEntities(entities).
		SetClassGlossary(result.ClassGlossary).
		SetStructuralSegments(structural).
		Save(ctx)
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("save post-processing result: %w", err)
	}

	if err := tx.ClassSession.UpdateOneID(job.ClassSessionID).
		SetPipelineState(classsession.PipelineStatePostprocess).
		Exec(ctx); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("advance pipeline state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	e.publishSessionStatus(ctx, job.ClassSessionID, classsession.PipelineStatePostprocess)
	return nil, nil
}

func (e *StageExecutor) runNLP(ctx context.Context, job *ent.ProcessingJob, progress recognizer.ProgressFunc) ([]string, error) {
	postProcessing, err := e.db.PostProcessingResult.Query().
		Where(postprocessingresult.JobIDEQ(job.ID)).
		Only(ctx)
	if err != nil {
		return nil, fmt.Errorf("load post-processing result: %w", err)
	}

	session, err := e.db.ClassSession.Get(ctx, job.ClassSessionID)
	if err != nil {
		return nil, fmt.Errorf("load class session: %w", err)
	}

	analyzer, err := e.registry.LLMAnalyzer()
	if err != nil {
		return nil, err
	}

	result, err := analyzer.Analyze(ctx, recognizer.AnalyzeRequest{
		JobID:         job.ID,
		CorrectedText: postProcessing.CorrectedText,
		Subject:       session.Subject,
	}, progress)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	tx, err := e.db.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}

	_, err = tx.LLMAnalysisResult.Create().
		SetID(uuid.New().String()).
		SetClassSessionID(job.ClassSessionID).
		SetJobID(job.ID).
		SetSummary(result.Summary).
		SetKeyConcepts(result.KeyConcepts).
		SetClassStructure(result.ClassStructure).
		SetTerminologyMedica(result.TerminologyMedica).
		SetKeyMoments(result.KeyMoments).
		SetConfidence(result.Confidence).
		SetCoherence(result.Coherence).
		SetCompleteness(result.Completeness).
		SetMedicalRelevance(result.MedicalRelevance).
		SetNeedsReview(result.NeedsReview()).
		Save(ctx)
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("save llm analysis result: %w", err)
	}

	if err := tx.ClassSession.UpdateOneID(job.ClassSessionID).
		SetPipelineState(classsession.PipelineStateNlp).
		Exec(ctx); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("advance pipeline state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	var warnings []string
	if result.NeedsReview() {
		warnings = append(warnings, "analysis flagged for human review: confidence or coherence below threshold")
	}

	e.publishSessionStatus(ctx, job.ClassSessionID, classsession.PipelineStateNlp)
	return warnings, nil
}

func (e *StageExecutor) runResearch(ctx context.Context, job *ent.ProcessingJob, progress recognizer.ProgressFunc) ([]string, error) {
	analysis, err := e.db.LLMAnalysisResult.Query().
		Where(llmanalysisresult.JobIDEQ(job.ID)).
		Only(ctx)
	if err != nil {
		return nil, fmt.Errorf("load llm analysis result: %w", err)
	}

	terms := termsFromTerminology(analysis.TerminologyMedica)

	researcher, err := e.registry.Researcher()
	if err != nil {
		return nil, err
	}

	batch, err := researcher.Research(ctx, recognizer.ResearchRequest{
		JobID:  job.ID,
		Terms:  terms,
		Preset: "COMPREHENSIVE",
	}, progress)
	if err != nil {
		return nil, fmt.Errorf("research: %w", err)
	}

	tx, err := e.db.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}

	researchJob, err := tx.ResearchJob.Create().
		SetID(uuid.New().String()).
		SetLlmAnalysisResultID(analysis.ID).
		SetPreset("COMPREHENSIVE").
		SetStatus("done").
		SetTermsTotal(len(terms)).
		SetTermsResearched(len(batch.Results)).
		SetProgressPct(100).
		SetCacheHits(batch.CacheHits).
		SetCacheMisses(batch.CacheMisses).
		SetWarnings(batch.Warnings).
		Save(ctx)
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("save research job: %w", err)
	}

	for _, term := range batch.Results {
		researchResult, err := tx.ResearchResult.Create().
			SetID(uuid.New().String()).
			SetResearchJobID(researchJob.ID).
			SetTerm(term.Term).
			SetNormalizedTerm(term.NormalizedTerm).
			SetPrimaryDefinition(term.PrimaryDefinition).
			SetAlternativeDefinitions(term.AlternativeDefinitions).
			SetTranslations(term.Translations).
			SetSynonyms(term.Synonyms).
			SetRelatedTerms(term.RelatedTerms).
			SetConfidence(term.Confidence).
			SetSourceReliability(term.SourceReliability).
			SetFreshness(term.Freshness).
			SetConsensus(term.Consensus).
			SetQualityGrade(term.QualityGrade).
			SetFromCache(term.FromCache).
			Save(ctx)
		if err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("save research result for %q: %w", term.Term, err)
		}

		for _, src := range term.Sources {
			if _, err := tx.MedicalSource.Create().
				SetID(uuid.New().String()).
				SetResearchResultID(researchResult.ID).
				SetSourceType(src.SourceType).
				SetTitle(src.Title).
				SetURL(src.URL).
				SetAuthors(src.Authors).
				SetDoi(src.DOI).
				SetPmid(src.PMID).
				SetJournal(src.Journal).
				SetAbstract(src.Abstract).
				SetKeyPoints(src.KeyPoints).
				SetRelevantExcerpt(src.RelevantExcerpt).
				SetConclusions(src.Conclusions).
				SetKeywords(src.Keywords).
				SetContentCategory(src.ContentCategory).
				SetPeerReviewed(src.PeerReviewed).
				SetOfficialSource(src.OfficialSource).
				SetHighImpactJournal(src.HighImpactJournal).
				SetRelevanceScore(src.RelevanceScore).
				SetAuthorityScore(src.AuthorityScore).
				SetRecencyScore(src.RecencyScore).
				SetContentQualityScore(src.ContentQualityScore).
				SetOverallScore(src.OverallScore).
				Save(ctx); err != nil {
				_ = tx.Rollback()
				return nil, fmt.Errorf("save medical source for %q: %w", term.Term, err)
			}
		}
	}

	if err := tx.ClassSession.UpdateOneID(job.ClassSessionID).
		SetPipelineState(classsession.PipelineStateResearch).
		Exec(ctx); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("advance pipeline state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	e.publishSessionStatus(ctx, job.ClassSessionID, classsession.PipelineStateResearch)
	return batch.Warnings, nil
}

func (e *StageExecutor) runExport(ctx context.Context, job *ent.ProcessingJob, progress recognizer.ProgressFunc) ([]string, error) {
	if err := e.db.ClassSession.UpdateOneID(job.ClassSessionID).
		SetPipelineState(classsession.PipelineStateExport).
		Exec(ctx); err != nil {
		return nil, fmt.Errorf("enter export state: %w", err)
	}
	e.publishSessionStatus(ctx, job.ClassSessionID, classsession.PipelineStateExport)

	var warnings []string
	if e.exporter != nil {
		w, err := e.exporter.Export(ctx, job.ClassSessionID)
		if err != nil {
			return nil, fmt.Errorf("export: %w", err)
		}
		warnings = w
	} else {
		warnings = append(warnings, "export stage: no exporter configured, artifacts were not generated")
	}

	if progress != nil {
		progress(100, "export complete")
	}

	if err := e.db.ClassSession.UpdateOneID(job.ClassSessionID).
		SetPipelineState(classsession.PipelineStateDone).
		Exec(ctx); err != nil {
		return nil, fmt.Errorf("advance pipeline state: %w", err)
	}

	e.publishSessionStatus(ctx, job.ClassSessionID, classsession.PipelineStateDone)
	return warnings, nil
}

func segmentsToMaps(segments []recognizer.TranscriptSegment) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(segments))
	for _, s := range segments {
		out = append(out, map[string]interface{}{
			"start_seconds": s.StartSeconds,
			"end_seconds":   s.EndSeconds,
			"text":          s.Text,
			"confidence":    s.Confidence,
		})
	}
	return out
}

func mapsToSegments(maps []map[string]interface{}) []recognizer.TranscriptSegment {
	out := make([]recognizer.TranscriptSegment, 0, len(maps))
	for _, m := range maps {
		out = append(out, recognizer.TranscriptSegment{
			StartSeconds: toFloat(m["start_seconds"]),
			EndSeconds:   toFloat(m["end_seconds"]),
			Text:         toString(m["text"]),
			Confidence:   toFloat(m["confidence"]),
		})
	}
	return out
}

func speakerSegmentsToMaps(segments []recognizer.SpeakerSegment) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(segments))
	for _, s := range segments {
		out = append(out, map[string]interface{}{
			"start_seconds": s.StartSeconds,
			"end_seconds":   s.EndSeconds,
			"speaker_id":    s.SpeakerID,
			"confidence":    s.Confidence,
		})
	}
	return out
}

// termsFromTerminology extracts the flat term list from an
// LLMAnalysisResult.terminology_medica JSON blob. Each entry is expected to
// carry at least a "term" key; entries missing one are skipped.
func termsFromTerminology(terminology []map[string]interface{}) []string {
	terms := make([]string, 0, len(terminology))
	for _, entry := range terminology {
		if t := toString(entry["term"]); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

func toFloat(v interface{}) float64 {
	f, _ := v.(float64)
	return f
}

func toString(v interface{}) string {
	s, _ := v.(string)
	return s
}
