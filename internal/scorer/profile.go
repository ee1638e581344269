package scorer

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Profile is a saved weighting. Explicit weights win over preferences.
type Profile struct {
	Weights     map[string]float64 `yaml:"weights"`
	Preferences *Preferences       `yaml:"preferences"`
}

// LoadProfile reads a YAML profile from path.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "scorer: read profile %s", path)
	}
	return ParseProfile(data)
}

// ParseProfile decodes a YAML profile and validates any explicit weights.
func ParseProfile(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, eris.Wrap(err, "scorer: parse profile")
	}
	if len(p.Weights) == 0 && p.Preferences == nil {
		return nil, eris.New("scorer: profile has neither weights nor preferences")
	}
	if len(p.Weights) > 0 {
		if err := ValidateWeights(p.weights()); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

// Resolve returns the normalized weights the profile describes.
func (p *Profile) Resolve() Weights {
	if len(p.Weights) > 0 {
		return NormalizeWeights(p.weights())
	}
	if p.Preferences != nil {
		return WeightsFromPreferences(*p.Preferences)
	}
	return DefaultWeights()
}

func (p *Profile) weights() Weights {
	w := make(Weights, len(p.Weights))
	for k, v := range p.Weights {
		w[Factor(k)] = v
	}
	return w
}
