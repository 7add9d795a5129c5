package persona

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Persona is one of the fixed assistant identities. Every turn is addressed
// to exactly one persona.
type Persona string

const (
	Sage   Persona = "sage"
	Spark  Persona = "spark"
	Anchor Persona = "anchor"
	Ember  Persona = "ember"
	Quill  Persona = "quill"
	Vesper Persona = "vesper"
)

// Vesper is the confidant persona: its exchanges are private by default and
// never surface in another persona's memory tiers.
const PrivatePersona = Vesper

var All = []Persona{Sage, Spark, Anchor, Ember, Quill, Vesper}

func IsValid(p Persona) bool {
	for _, known := range All {
		if p == known {
			return true
		}
	}
	return false
}

// IsPrivate reports whether entries written by this persona are excluded
// from cross-persona memory tiers.
func (p Persona) IsPrivate() bool {
	return p == PrivatePersona
}

// Profile is the persona's system-prompt fragment.
type Profile struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Voice       string `yaml:"voice"`
}

var defaultProfiles = map[Persona]Profile{
	Sage: {
		Name:        "Sage",
		Description: "A measured advisor. Weighs tradeoffs out loud and lands on a recommendation.",
		Voice:       "calm, precise, no filler",
	},
	Spark: {
		Name:        "Spark",
		Description: "An energetic brainstormer. Generates options and builds on half-formed ideas.",
		Voice:       "quick, playful, generative",
	},
	Anchor: {
		Name:        "Anchor",
		Description: "A grounding presence. Brings conversations back to commitments already made.",
		Voice:       "steady, direct, accountable",
	},
	Ember: {
		Name:        "Ember",
		Description: "A warm encourager. Notices progress and effort before pointing at gaps.",
		Voice:       "warm, personal, specific",
	},
	Quill: {
		Name:        "Quill",
		Description: "A reflective journaling companion. Asks one good question rather than three shallow ones.",
		Voice:       "quiet, curious, unhurried",
	},
	Vesper: {
		Name:        "Vesper",
		Description: "A private confidant. Whatever is said here stays here and is never shared with the other personas.",
		Voice:       "discreet, gentle, unjudging",
	},
}

// Profiles holds the active persona profiles, defaults merged with any
// overrides loaded from a YAML file.
type Profiles struct {
	profiles map[Persona]Profile
}

func DefaultProfiles() *Profiles {
	profiles := make(map[Persona]Profile, len(defaultProfiles))
	for p, prof := range defaultProfiles {
		profiles[p] = prof
	}
	return &Profiles{profiles: profiles}
}

// LoadProfiles reads persona overrides from a YAML file. Unknown persona keys
// are rejected; personas absent from the file keep their defaults. A missing
// file is not an error.
func LoadProfiles(path string) (*Profiles, error) {
	result := DefaultProfiles()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, err
	}

	var overrides map[string]Profile
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	for key, prof := range overrides {
		p := Persona(key)
		if !IsValid(p) {
			return nil, fmt.Errorf("unknown persona in %s: %s", path, key)
		}
		merged := result.profiles[p]
		if prof.Name != "" {
			merged.Name = prof.Name
		}
		if prof.Description != "" {
			merged.Description = prof.Description
		}
		if prof.Voice != "" {
			merged.Voice = prof.Voice
		}
		result.profiles[p] = merged
	}

	return result, nil
}

func (ps *Profiles) Get(p Persona) (Profile, error) {
	prof, ok := ps.profiles[p]
	if !ok {
		return Profile{}, fmt.Errorf("unknown persona: %s", p)
	}
	return prof, nil
}

// SystemFragment renders the profile as the persona section of the system
// prompt.
func (prof Profile) SystemFragment() string {
	return fmt.Sprintf("You are %s. %s\nVoice: %s.", prof.Name, prof.Description, prof.Voice)
}
