package recognizer

import (
	"context"
	"regexp"
	"strings"
)

// activityPattern scores one time-span against one pedagogical activity.
// Patterns are tried in the fixed order below; ties keep the earlier one.
type activityPattern struct {
	activity string
	regex    *regexp.Regexp
}

// activityPatterns is intentionally ordered: keyword-pattern scoring breaks
// ties in favor of the earlier entry.
var activityPatterns = []activityPattern{
	{"intro", regexp.MustCompile(`(?i)\b(buongiorno|oggi parliamo|iniziamo|introduzione)\b`)},
	{"question", regexp.MustCompile(`(?i)\b(domanda|chi sa|qualcuno può|perché)\b`)},
	{"answer", regexp.MustCompile(`(?i)\b(risposta|esatto|corretto|la risposta è)\b`)},
	{"interaction", regexp.MustCompile(`(?i)\b(alzate la mano|discutiamo|in gruppo|confrontatevi)\b`)},
	{"summary", regexp.MustCompile(`(?i)\b(riassumendo|in sintesi|ricapitolando)\b`)},
	{"closing", regexp.MustCompile(`(?i)\b(arrivederci|ci vediamo|fine della lezione|grazie a tutti)\b`)},
	{"explanation", regexp.MustCompile(`(?i)\b(questo significa|si osserva|il meccanismo|quindi)\b`)},
}

// LocalPostProcessor implements PostProcessor in-process against a fixed
// medical lexicon, with no out-of-process dependency.
type LocalPostProcessor struct {
	lexicon *Lexicon
}

// NewLocalPostProcessor builds a PostProcessor backed by lexicon.
func NewLocalPostProcessor(lexicon *Lexicon) *LocalPostProcessor {
	return &LocalPostProcessor{lexicon: lexicon}
}

// Process runs the ASR-correction pass, the medical-NER pass, and structural
// segmentation, in that order. It is idempotent: repeated calls on the same
// input yield the same corrected text and entity set.
func (p *LocalPostProcessor) Process(ctx context.Context, req PostProcessRequest, progress ProgressFunc) (*PostProcessResult, error) {
	correctedText, corrections := p.lexicon.Correct(req.RawText)
	if progress != nil {
		progress(40, "asr correction complete")
	}

	entities := p.lexicon.ExtractEntities(correctedText)
	if progress != nil {
		progress(70, "medical entity extraction complete")
	}

	glossary := buildGlossary(entities)
	structural := segmentStructurally(req.Segments)
	if progress != nil {
		progress(100, "structural segmentation complete")
	}

	return &PostProcessResult{
		CorrectedText:      correctedText,
		Corrections:        corrections,
		MedicalEntities:    entities,
		ClassGlossary:      glossary,
		StructuralSegments: structural,
	}, nil
}

func buildGlossary(entities map[string][]MedicalEntity) []map[string]interface{} {
	seen := make(map[string]bool)
	var glossary []map[string]interface{}
	for category, list := range entities {
		for _, e := range list {
			key := strings.ToLower(e.Text)
			if seen[key] {
				continue
			}
			seen[key] = true
			glossary = append(glossary, map[string]interface{}{
				"term":     e.Text,
				"category": category,
			})
		}
	}
	return glossary
}

// segmentStructurally scores each transcript segment's text against every
// activityPattern and assigns it to the highest-scoring activity, breaking
// ties by pattern order. Adjacent segments with the same winning activity
// are merged into one structural span.
func segmentStructurally(segments []TranscriptSegment) []StructuralSegment {
	if len(segments) == 0 {
		return nil
	}

	var spans []StructuralSegment
	for _, seg := range segments {
		activity := classifyActivity(seg.Text)
		if len(spans) > 0 && spans[len(spans)-1].Activity == activity {
			spans[len(spans)-1].EndSeconds = seg.EndSeconds
			continue
		}
		spans = append(spans, StructuralSegment{
			StartSeconds: seg.StartSeconds,
			EndSeconds:   seg.EndSeconds,
			Activity:     activity,
		})
	}
	return spans
}

func classifyActivity(text string) string {
	bestActivity := "explanation"
	bestScore := -1
	for _, p := range activityPatterns {
		score := len(p.regex.FindAllString(text, -1))
		if score > bestScore {
			bestScore = score
			bestActivity = p.activity
		}
	}
	if bestScore <= 0 {
		return "explanation"
	}
	return bestActivity
}
