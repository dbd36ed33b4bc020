package recognizer

import "fmt"

// ASRPresetConfig fixes the tunables for one named ASR preset.
type ASRPresetConfig struct {
	ModelIdentifier     string
	BeamSize            int
	TemperatureSchedule []float64
	VADThreshold        float64
	WordTimestamps      bool
	InitialPrompt       string
}

// ResearchPresetConfig fixes the tunables for one named research preset.
type ResearchPresetConfig struct {
	EnabledSources     []string
	MaxSourcesPerTerm  int
	IncludeRelated     bool
	EnableTranslation  bool
	PeerReviewOnly     bool
	PriorityThreshold  float64
}

// PresetRegistry resolves named ASR/research presets to their immutable
// configuration, loaded once at the edge (mirroring how pkg/config.Loader
// resolves named chain/agent configs).
type PresetRegistry struct {
	asr      map[ASRPreset]ASRPresetConfig
	research map[string]ResearchPresetConfig
}

// NewPresetRegistry builds the registry with the built-in preset table.
func NewPresetRegistry() *PresetRegistry {
	return &PresetRegistry{
		asr: map[ASRPreset]ASRPresetConfig{
			ASRPresetHighPrecision: {
				ModelIdentifier:     "whisper-large-v3",
				BeamSize:            5,
				TemperatureSchedule: []float64{0.0, 0.2, 0.4},
				VADThreshold:        0.5,
				WordTimestamps:      true,
				InitialPrompt:       "Lezione universitaria di medicina.",
			},
			ASRPresetBalanced: {
				ModelIdentifier:     "whisper-medium",
				BeamSize:            3,
				TemperatureSchedule: []float64{0.0, 0.2},
				VADThreshold:        0.5,
				WordTimestamps:      true,
				InitialPrompt:       "Lezione universitaria di medicina.",
			},
			ASRPresetFast: {
				ModelIdentifier:     "whisper-small",
				BeamSize:            1,
				TemperatureSchedule: []float64{0.0},
				VADThreshold:        0.6,
				WordTimestamps:      false,
				InitialPrompt:       "",
			},
			ASRPresetMultilingualAuto: {
				ModelIdentifier:     "whisper-large-v3",
				BeamSize:            5,
				TemperatureSchedule: []float64{0.0, 0.2, 0.4},
				VADThreshold:        0.5,
				WordTimestamps:      true,
				InitialPrompt:       "",
			},
		},
		research: map[string]ResearchPresetConfig{
			"COMPREHENSIVE": {
				EnabledSources:    []string{"pubmed", "who", "nih", "wikipedia", "medical_dictionary"},
				MaxSourcesPerTerm: 6,
				IncludeRelated:    true,
				EnableTranslation: true,
				PeerReviewOnly:    false,
				PriorityThreshold: 0.0,
			},
			"QUICK": {
				EnabledSources:    []string{"medical_dictionary", "wikipedia"},
				MaxSourcesPerTerm: 2,
				IncludeRelated:    false,
				EnableTranslation: false,
				PeerReviewOnly:    false,
				PriorityThreshold: 0.0,
			},
			"ACADEMIC": {
				EnabledSources:    []string{"pubmed", "who", "nih"},
				MaxSourcesPerTerm: 5,
				IncludeRelated:    true,
				EnableTranslation: false,
				PeerReviewOnly:    true,
				PriorityThreshold: 0.5,
			},
			"CLINICAL": {
				EnabledSources:    []string{"pubmed", "who", "nih", "medical_dictionary"},
				MaxSourcesPerTerm: 4,
				IncludeRelated:    false,
				EnableTranslation: false,
				PeerReviewOnly:    true,
				PriorityThreshold: 0.4,
			},
			"ITALIAN_FOCUSED": {
				EnabledSources:    []string{"medical_dictionary", "wikipedia", "who"},
				MaxSourcesPerTerm: 3,
				IncludeRelated:    true,
				EnableTranslation: true,
				PeerReviewOnly:    false,
				PriorityThreshold: 0.0,
			},
		},
	}
}

// ASR resolves a named ASR preset.
func (p *PresetRegistry) ASR(preset ASRPreset) (ASRPresetConfig, error) {
	cfg, ok := p.asr[preset]
	if !ok {
		return ASRPresetConfig{}, fmt.Errorf("recognizer: unknown ASR preset %q", preset)
	}
	return cfg, nil
}

// Research resolves a named research preset.
func (p *PresetRegistry) Research(preset string) (ResearchPresetConfig, error) {
	cfg, ok := p.research[preset]
	if !ok {
		return ResearchPresetConfig{}, fmt.Errorf("recognizer: unknown research preset %q", preset)
	}
	return cfg, nil
}
