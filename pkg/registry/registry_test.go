package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aw32/hetsched/internal/config"
	"github.com/aw32/hetsched/pkg/estimator"
	"github.com/aw32/hetsched/pkg/resource"
)

func TestLookupKnownAlgorithm(t *testing.T) {
	ctor, err := Lookup("mct")
	require.NoError(t, err)

	algo, err := ctor([]*resource.Resource{{ID: 0, Name: "R0"}}, estimator.NewLinear(), config.Algorithms{}, nil)
	require.NoError(t, err)
	assert.NotNil(t, algo)
}

func TestLookupUnknownAlgorithm(t *testing.T) {
	_, err := Lookup("not-an-algorithm")
	assert.Error(t, err)
}

func TestLookupVariantAliases(t *testing.T) {
	for _, name := range []string{"heft", "heft2", "heftdyn"} {
		ctor, err := Lookup(name)
		require.NoError(t, err)
		algo, err := ctor([]*resource.Resource{{ID: 0, Name: "R0"}}, estimator.NewLinear(), config.Algorithms{}, nil)
		require.NoError(t, err)
		assert.NotNil(t, algo)
	}
}

func TestGeneticMigRequiresSolver(t *testing.T) {
	ctor, err := Lookup("geneticmig")
	require.NoError(t, err)
	_, err = ctor([]*resource.Resource{{ID: 0, Name: "R0"}}, estimator.NewLinear(), config.Algorithms{}, nil)
	assert.Error(t, err)
}

func TestNamesIncludesEveryBaseAlgorithm(t *testing.T) {
	names := Names()
	for _, want := range []string{"mct", "met", "olb", "sa", "kpb", "minmin", "maxmin",
		"sufferage", "heft", "heftmig", "genetic", "geneticmig", "geneticmig_energy",
		"simann", "reminmin", "reminminmig"} {
		assert.Contains(t, names, want)
	}
}
