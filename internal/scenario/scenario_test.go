package scenario

import (
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"actinvoting/domain/core"
	"actinvoting/domain/culture"
	"actinvoting/internal"
	"actinvoting/internal/asymptotic"
)

var quiet = asymptotic.WithLogger(internal.NewNopLogger())

func TestParse_YAMLAndJSON(t *testing.T) {
	yamlDoc := `
culture:
  kind: mallows
  m: 3
  phi: "1/2"
candidate: 2
ns: [11, 21]
`
	s, err := Parse([]byte(yamlDoc))
	require.NoError(t, err)
	assert.Equal(t, RingFloat, s.Ring)
	assert.Equal(t, []int{11, 21}, s.Ns)

	jsonDoc := `{"culture": {"kind": "perturbed", "m": 3, "theta": "0.5"}, "candidate": 0, "ring": "exact"}`
	s, err = Parse([]byte(jsonDoc))
	require.NoError(t, err)
	cul, err := s.BuildCulture()
	require.NoError(t, err)
	assert.Equal(t, culture.KindPerturbed, cul.Kind())
	assert.Equal(t, "Perturbed_m=3_theta=1/2", cul.String())
}

func TestParse_Invalid(t *testing.T) {
	for name, doc := range map[string]string{
		"ring":       `{"culture": {"kind": "impartial", "m": 3}, "ring": "complex"}`,
		"ns":         `{"culture": {"kind": "impartial", "m": 3}, "ns": [0]}`,
		"tau & zeta": `{"culture": {"kind": "impartial", "m": 3}, "tau": [0, 0, 0], "zeta": ["1", "1", "1"]}`,
		"syntax":     `culture: [`,
	} {
		_, err := Parse([]byte(doc))
		assert.True(t, core.IsInvalidInput(err), "%s: %v", name, err)
	}
}

func TestBuildCulture(t *testing.T) {
	tests := []struct {
		spec CultureSpec
		kind culture.Kind
		ok   bool
	}{
		{CultureSpec{Kind: culture.KindImpartial, M: 4}, culture.KindImpartial, true},
		{CultureSpec{Kind: culture.KindImpartial, M: 1}, "", false},
		{CultureSpec{Kind: culture.KindMallows, M: 3}, "", false},
		{CultureSpec{Kind: culture.KindMallows, M: 3, Phi: "-1"}, "", false},
		{CultureSpec{Kind: culture.KindPlackettLuce, Values: []string{"1", "2", "3"}}, culture.KindPlackettLuce, true},
		{CultureSpec{Kind: culture.KindPlackettLuce, Values: []string{"1", "x"}}, "", false},
		{CultureSpec{Kind: culture.KindFromProfile, Rankings: [][]int{{0, 1, 2}, {2, 1, 0}}, Weights: []float64{3, 2}}, culture.KindFromProfile, true},
		{CultureSpec{Kind: culture.KindFromProfile, Rankings: [][]int{{0, 0, 2}}}, "", false},
		{CultureSpec{Kind: "dirichlet"}, "", false},
	}
	for _, tt := range tests {
		s := &Scenario{Culture: tt.spec}
		cul, err := s.BuildCulture()
		if !tt.ok {
			assert.True(t, core.IsInvalidInput(err), "%+v: %v", tt.spec, err)
			assert.Nil(t, cul)
			continue
		}
		require.NoError(t, err, "%+v", tt.spec)
		assert.Equal(t, tt.kind, cul.Kind())
	}
}

func TestLoad_Builtins(t *testing.T) {
	names := Builtins()
	assert.Equal(t, []string{"ic3_condorcet", "ic3_mixed", "mallows3_last", "perturbed4"}, names)
	for _, name := range names {
		s, err := Load(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, s.Name)
		_, err = s.Open(quiet)
		require.NoError(t, err, name)
	}

	_, err := Load("nope")
	assert.Error(t, err)

	_, err = LoadBuiltin("../scenario")
	assert.ErrorIs(t, err, fs.ErrNotExist)
	_, err = LoadBuiltin("nope")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("culture:\n  kind: plackett_luce\n  values: [\"1\", \"2\", \"3\"]\ncandidate: 2\n"), 0o644))
	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, culture.KindPlackettLuce, s.Culture.Kind)
}

func TestOpen_ImpartialStudy(t *testing.T) {
	s, err := Load("ic3_condorcet")
	require.NoError(t, err)
	st, err := s.Open(quiet)
	require.NoError(t, err)
	assert.Equal(t, "exact", st.RingName())

	exact, err := st.ExactProbabilityString(3)
	require.NoError(t, err)
	assert.Equal(t, "17/54", exact)

	asym, err := st.Asymptotics(4)
	require.NoError(t, err)
	assert.InDelta(t, 0.10461, asym, 1e-4)
}

func TestOpen_MixedStudy(t *testing.T) {
	s, err := Load("ic3_mixed")
	require.NoError(t, err)
	st, err := s.Open(quiet)
	require.NoError(t, err)

	cl, err := st.Classification()
	require.NoError(t, err)
	assert.Equal(t, []int{0}, cl.Critical)
	assert.Equal(t, []int{1}, cl.Subcritical)

	eq, err := st.Equivalent(72)
	require.NoError(t, err)
	assert.InEpsilon(t, 0.0008451833617664524, eq, 1e-6)

	_, err = st.Asymptotics(72)
	assert.True(t, core.IsInvalidInput(err))
}

func TestOpen_MallowsStudy(t *testing.T) {
	s, err := Load("mallows3_last")
	require.NoError(t, err)
	st, err := s.Open(quiet)
	require.NoError(t, err)
	assert.Equal(t, "float", st.RingName())
	tau, err := st.Tau()
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{-0.75, -0.25, 0}, tau, 1e-7)
	eq, err := st.Equivalent(41)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(eq))
	assert.InEpsilon(t, 0.001990689277019347, eq, 1e-6)
}
