// Package scenario describes a study (culture, candidate, thresholds, voter
// counts) in YAML or JSON and opens the matching asymptotic session.
package scenario

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"actinvoting/domain/core"
	"actinvoting/domain/culture"
	"actinvoting/domain/profile"
	"actinvoting/domain/ranking"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// CultureSpec selects a culture and its parameters. Rationals are strings
// accepted by big.Rat.SetString ("1/2", "0.5").
type CultureSpec struct {
	Kind     culture.Kind `yaml:"kind" json:"kind"`
	M        int          `yaml:"m,omitempty" json:"m,omitempty"`
	Phi      string       `yaml:"phi,omitempty" json:"phi,omitempty"`
	Theta    string       `yaml:"theta,omitempty" json:"theta,omitempty"`
	Values   []string     `yaml:"values,omitempty" json:"values,omitempty"`
	Rankings [][]int      `yaml:"rankings,omitempty" json:"rankings,omitempty"`
	Weights  []float64    `yaml:"weights,omitempty" json:"weights,omitempty"`
	// File names a spreadsheet holding the rankings of a from_profile
	// culture; callers load it into Rankings and Weights.
	File     string       `yaml:"file,omitempty" json:"file,omitempty"`
}

// Scenario is one study.
type Scenario struct {
	Name      string      `yaml:"name,omitempty" json:"name,omitempty"`
	Culture   CultureSpec `yaml:"culture" json:"culture"`
	Candidate int         `yaml:"candidate" json:"candidate"`
	Alpha     []string    `yaml:"alpha,omitempty" json:"alpha,omitempty"`
	Ring      string      `yaml:"ring,omitempty" json:"ring,omitempty"`
	Ns        []int       `yaml:"ns,omitempty" json:"ns,omitempty"`
	Samples   int         `yaml:"samples,omitempty" json:"samples,omitempty"`
	Tau       []float64   `yaml:"tau,omitempty" json:"tau,omitempty"`
	Zeta      []string    `yaml:"zeta,omitempty" json:"zeta,omitempty"`
}

const (
	RingFloat = "float"
	RingExact = "exact"
)

// Parse decodes a YAML (or JSON) scenario and validates it.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, core.NewInvalidInputError("scenario", err.Error())
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads a scenario file, or a built-in scenario when path names one.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if s, berr := LoadBuiltin(path); berr == nil || !errors.Is(berr, fs.ErrNotExist) {
			return s, berr
		}
		return nil, fmt.Errorf("scenario %q not found (built-in: %s): %w",
			path, strings.Join(Builtins(), ", "), err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse scenario %q: %w", path, err)
	}
	return s, nil
}

// LoadBuiltin returns the embedded scenario called name. An unknown name
// gives an error matching fs.ErrNotExist.
func LoadBuiltin(name string) (*Scenario, error) {
	if !fs.ValidPath(name) || strings.Contains(name, "/") {
		return nil, fmt.Errorf("built-in scenario %q: %w", name, fs.ErrNotExist)
	}
	data, err := builtinFS.ReadFile("builtin/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("built-in scenario %q: %w", name, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse scenario %q: %w", name, err)
	}
	return s, nil
}

// Builtins lists the embedded scenario names, sorted.
func Builtins() []string {
	entries, _ := builtinFS.ReadDir("builtin")
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".yaml") {
			names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
		}
	}
	sort.Strings(names)
	return names
}

// Validate checks the fields that do not need the culture to be built.
func (s *Scenario) Validate() error {
	switch s.Ring {
	case "":
		s.Ring = RingFloat
	case RingFloat, RingExact:
	default:
		return core.NewInvalidInputError("ring", fmt.Sprintf("%q, want %q or %q", s.Ring, RingFloat, RingExact))
	}
	for _, n := range s.Ns {
		if n < 1 {
			return core.NewInvalidInputError("ns", fmt.Sprintf("%d voters", n))
		}
	}
	if s.Samples < 0 {
		return core.NewInvalidInputError("samples", fmt.Sprintf("%d", s.Samples))
	}
	if s.Tau != nil && s.Zeta != nil {
		return core.NewInvalidInputError("tau", "give tau or zeta, not both")
	}
	return nil
}

// AlphaRats parses Alpha, nil when it is not given.
func (s *Scenario) AlphaRats() ([]*big.Rat, error) {
	return parseRats("alpha", s.Alpha)
}

// ZetaRats parses Zeta, nil when it is not given.
func (s *Scenario) ZetaRats() ([]*big.Rat, error) {
	return parseRats("zeta", s.Zeta)
}

func parseRats(field string, values []string) ([]*big.Rat, error) {
	if values == nil {
		return nil, nil
	}
	res := make([]*big.Rat, len(values))
	for i, v := range values {
		r, ok := new(big.Rat).SetString(strings.TrimSpace(v))
		if !ok {
			return nil, core.NewInvalidInputError(field, fmt.Sprintf("%q is not a rational", v))
		}
		res[i] = r
	}
	return res, nil
}

func parseRat(field, v string) (*big.Rat, error) {
	if v == "" {
		return nil, core.NewInvalidInputError(field, "missing")
	}
	rats, err := parseRats(field, []string{v})
	if err != nil {
		return nil, err
	}
	return rats[0], nil
}

// BuildCulture instantiates the culture of the scenario.
func (s *Scenario) BuildCulture() (culture.Culture, error) {
	cul, err := s.buildCulture()
	if err != nil {
		if !core.IsInvalidInput(err) {
			err = core.NewInvalidInputError("culture", err.Error())
		}
		return nil, err
	}
	return cul, nil
}

func (s *Scenario) buildCulture() (culture.Culture, error) {
	spec := s.Culture
	switch spec.Kind {
	case culture.KindImpartial:
		if spec.M < 2 {
			return nil, core.NewInvalidInputError("culture.m", fmt.Sprintf("%d candidates", spec.M))
		}
		return culture.NewImpartial(spec.M), nil
	case culture.KindMallows:
		phi, err := parseRat("culture.phi", spec.Phi)
		if err != nil {
			return nil, err
		}
		return culture.NewMallows(spec.M, phi)
	case culture.KindPerturbed:
		theta, err := parseRat("culture.theta", spec.Theta)
		if err != nil {
			return nil, err
		}
		return culture.NewPerturbed(spec.M, theta)
	case culture.KindPlackettLuce:
		values, err := parseRats("culture.values", spec.Values)
		if err != nil {
			return nil, err
		}
		return culture.NewPlackettLuce(values)
	case culture.KindFromProfile:
		rankings := make([]ranking.Ranking, len(spec.Rankings))
		for i, r := range spec.Rankings {
			rankings[i] = ranking.Ranking(r)
		}
		weights := spec.Weights
		if weights == nil {
			weights = make([]float64, len(rankings))
			for i := range weights {
				weights[i] = 1
			}
		}
		p, err := profile.FromRankingWeights(rankings, weights)
		if err != nil {
			return nil, core.NewInvalidInputError("culture.rankings", err.Error())
		}
		return culture.NewFromProfile(p)
	default:
		return nil, core.NewInvalidInputError("culture.kind", fmt.Sprintf("unknown kind %q", spec.Kind))
	}
}
