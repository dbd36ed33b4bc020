package database

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect/sql"
)

// CreateGINIndexes creates full-text search GIN indexes for PostgreSQL.
// These indexes enable efficient full-text search on transcript, postprocessing,
// and LLM analysis output, plus medical source titles surfaced in the research cache.
func CreateGINIndexes(ctx context.Context, driver *sql.Driver) error {
	db := driver.DB()

	_, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_transcription_results_full_text_gin
		ON transcription_results USING gin(to_tsvector('english', full_text))`)
	if err != nil {
		return fmt.Errorf("failed to create full_text GIN index: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_postprocessing_results_corrected_text_gin
		ON postprocessing_results USING gin(to_tsvector('english', corrected_text))`)
	if err != nil {
		return fmt.Errorf("failed to create corrected_text GIN index: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_llm_analysis_results_summary_gin
		ON llm_analysis_results USING gin(to_tsvector('english', summary))`)
	if err != nil {
		return fmt.Errorf("failed to create summary GIN index: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_source_cache_medical_term_gin
		ON source_caches USING gin(to_tsvector('english', medical_term))`)
	if err != nil {
		return fmt.Errorf("failed to create medical_term GIN index: %w", err)
	}

	return nil
}
