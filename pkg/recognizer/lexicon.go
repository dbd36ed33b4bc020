package recognizer

import (
	"regexp"
	"sort"
	"strings"
)

// LexiconEntry is one medical term known to the post-processing matcher.
type LexiconEntry struct {
	CanonicalTerm     string
	Category          string // anatomy, pathology, pharmacology, procedure, symptom, diagnosis, therapy, other
	Specialty         string
	Confidence        float64
	Mistranscriptions []string // common ASR mis-hearings that should be corrected to CanonicalTerm
}

// Lexicon is a normalized-text multi-pattern matcher over a fixed set of
// medical terms. It is built once and reused across post-processing calls;
// running the same matcher over the same input always yields the same
// corrections and entities.
type Lexicon struct {
	entries         []LexiconEntry
	correctionRegex *regexp.Regexp
	correctionTo    map[string]string // normalized mistranscription -> canonical term
	entryByLower    map[string]LexiconEntry
	entityRegex     *regexp.Regexp
}

// NewLexicon compiles entries into a matcher. Entries are sorted longest-
// pattern-first so overlapping terms prefer the most specific match.
func NewLexicon(entries []LexiconEntry) *Lexicon {
	sorted := make([]LexiconEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].CanonicalTerm) > len(sorted[j].CanonicalTerm)
	})

	correctionTo := make(map[string]string)
	entryByLower := make(map[string]LexiconEntry)
	var correctionPatterns []string
	var entityPatterns []string

	for _, e := range sorted {
		entryByLower[strings.ToLower(e.CanonicalTerm)] = e
		entityPatterns = append(entityPatterns, regexp.QuoteMeta(e.CanonicalTerm))
		if e.Confidence < 0.8 {
			continue
		}
		for _, m := range e.Mistranscriptions {
			normalized := normalizeForMatch(m)
			if normalized == normalizeForMatch(e.CanonicalTerm) {
				continue // before == after after normalization: not a correction
			}
			correctionTo[normalized] = e.CanonicalTerm
			correctionPatterns = append(correctionPatterns, regexp.QuoteMeta(m))
		}
	}

	var correctionRegex, entityRegex *regexp.Regexp
	if len(correctionPatterns) > 0 {
		correctionRegex = regexp.MustCompile(`(?i)\b(` + strings.Join(correctionPatterns, "|") + `)\b`)
	}
	if len(entityPatterns) > 0 {
		entityRegex = regexp.MustCompile(`(?i)\b(` + strings.Join(entityPatterns, "|") + `)\b`)
	}

	return &Lexicon{
		entries:         sorted,
		correctionRegex: correctionRegex,
		correctionTo:    correctionTo,
		entryByLower:    entryByLower,
		entityRegex:     entityRegex,
	}
}

// DefaultLexicon returns the built-in seed lexicon covering the terms most
// frequently mis-transcribed in recorded Italian medical lectures. Deployments
// with a curated per-specialty lexicon should build their own via NewLexicon
// instead of calling this.
func DefaultLexicon() *Lexicon {
	return NewLexicon([]LexiconEntry{
		{CanonicalTerm: "tachicardia", Category: "symptom", Specialty: "cardiology", Confidence: 0.9,
			Mistranscriptions: []string{"taccicardia", "tachi cardia"}},
		{CanonicalTerm: "disfagia", Category: "symptom", Specialty: "gastroenterology", Confidence: 0.85,
			Mistranscriptions: []string{"disfagia orofaringea", "dis fagia"}},
		{CanonicalTerm: "ipertensione arteriosa", Category: "pathology", Specialty: "cardiology", Confidence: 0.9,
			Mistranscriptions: []string{"iper tensione arteriosa", "ipertenzione arteriosa"}},
		{CanonicalTerm: "broncopneumopatia cronica ostruttiva", Category: "pathology", Specialty: "pulmonology", Confidence: 0.85,
			Mistranscriptions: []string{"bronco pneumopatia cronica ostruttiva"}},
		{CanonicalTerm: "anticoagulante", Category: "pharmacology", Specialty: "hematology", Confidence: 0.85,
			Mistranscriptions: []string{"anti coagulante"}},
		{CanonicalTerm: "auscultazione", Category: "procedure", Specialty: "general", Confidence: 0.85,
			Mistranscriptions: []string{"ascultazione", "osculazione"}},
		{CanonicalTerm: "elettrocardiogramma", Category: "procedure", Specialty: "cardiology", Confidence: 0.9,
			Mistranscriptions: []string{"elettro cardiogramma", "ekg"}},
		{CanonicalTerm: "diagnosi differenziale", Category: "diagnosis", Specialty: "general", Confidence: 0.85,
			Mistranscriptions: []string{"diagnosi differenziare"}},
		{CanonicalTerm: "terapia antibiotica", Category: "therapy", Specialty: "infectious_disease", Confidence: 0.85,
			Mistranscriptions: []string{"terapia anti biotica"}},
		{CanonicalTerm: "miocardio", Category: "anatomy", Specialty: "cardiology", Confidence: 0.9,
			Mistranscriptions: []string{"mio cardio"}},
	})
}

func normalizeForMatch(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Correct runs the ASR-correction pass, returning the corrected text and
// the ordered list of corrections applied.
func (l *Lexicon) Correct(text string) (string, []Correction) {
	if l.correctionRegex == nil {
		return text, nil
	}

	var corrections []Correction
	corrected := l.correctionRegex.ReplaceAllStringFunc(text, func(match string) string {
		replacement, ok := l.correctionTo[normalizeForMatch(match)]
		if !ok || replacement == match {
			return match
		}
		return replacement
	})

	// Record offsets against the original text; ReplaceAllStringFunc does not
	// expose them directly, so locate each match span independently.
	for _, loc := range l.correctionRegex.FindAllStringIndex(text, -1) {
		original := text[loc[0]:loc[1]]
		replacement, ok := l.correctionTo[normalizeForMatch(original)]
		if !ok || strings.EqualFold(replacement, original) {
			continue
		}
		corrections = append(corrections, Correction{
			Offset:      loc[0],
			Original:    original,
			Replacement: replacement,
			Confidence:  l.entryByLower[strings.ToLower(replacement)].Confidence,
		})
	}

	return corrected, corrections
}

// ExtractEntities runs the medical-NER pass over already-corrected text.
func (l *Lexicon) ExtractEntities(text string) map[string][]MedicalEntity {
	if l.entityRegex == nil {
		return nil
	}

	out := make(map[string][]MedicalEntity)
	for _, loc := range l.entityRegex.FindAllStringIndex(text, -1) {
		matched := text[loc[0]:loc[1]]
		entry, ok := l.entryByLower[strings.ToLower(matched)]
		if !ok {
			continue
		}
		category := entry.Category
		out[category] = append(out[category], MedicalEntity{
			Text:     matched,
			Category: category,
			Offset:   loc[0],
		})
	}
	return out
}
