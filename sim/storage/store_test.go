package storage

import (
	"context"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/racetrack-sim/racetrack-sim/sim/neuro"
)

func testGenome(seed int64) *neuro.Genome {
	rng := rand.New(rand.NewSource(seed))
	return neuro.NewRandomGenome(rng, neuro.NewGenomeID(rng), 5, []int{6}, 2, 1.0/200, 1.0)
}

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	stores := map[string]Store{}
	for kind, path := range map[string]string{
		BackendMemory: "",
		BackendFile:   filepath.Join(dir, "controllers.json"),
		BackendSQLite: filepath.Join(dir, "controllers.db"),
	} {
		s, err := NewStore(kind, path)
		require.NoError(t, err)
		require.NoError(t, s.Init(context.Background()))
		t.Cleanup(func() { _ = s.Close() })
		stores[kind] = s
	}
	return stores
}

func TestStore_ControllerRoundTripActsIdentically(t *testing.T) {
	ctx := context.Background()
	for kind, s := range openStores(t) {
		t.Run(kind, func(t *testing.T) {
			// GIVEN a saved controller
			g := testGenome(1)
			record := NewControllerRecord("c1", "run-a", 12, 345.5, g)
			require.NoError(t, s.SaveController(ctx, record))

			// WHEN it is read back
			loaded, ok, err := s.GetController(ctx, "c1")
			require.NoError(t, err)
			require.True(t, ok)

			// THEN metadata survives and the network computes bit-identical outputs
			assert.Equal(t, "run-a", loaded.RunID)
			assert.Equal(t, 12, loaded.Generation)
			assert.Equal(t, 345.5, loaded.Fitness)
			assert.Equal(t, g.ID, loaded.Genome.ID)
			for _, reading := range [][]float64{{0, 0, 0, 0, 0}, {200, 15, 70, 3.25, 199.9}} {
				assert.Equal(t, g.Act(reading), loaded.Genome.Act(reading))
			}
		})
	}
}

func TestStore_LatestAndMissing(t *testing.T) {
	ctx := context.Background()
	for kind, s := range openStores(t) {
		t.Run(kind, func(t *testing.T) {
			_, ok, err := s.LatestController(ctx)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.SaveController(ctx, NewControllerRecord("a", "r", 0, 1, testGenome(1))))
			require.NoError(t, s.SaveController(ctx, NewControllerRecord("b", "r", 1, 2, testGenome(2))))
			latest, ok, err := s.LatestController(ctx)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "b", latest.ID)

			// re-saving moves a controller to the front
			require.NoError(t, s.SaveController(ctx, NewControllerRecord("a", "r", 2, 3, testGenome(1))))
			latest, _, err = s.LatestController(ctx)
			require.NoError(t, err)
			assert.Equal(t, "a", latest.ID)
			assert.Equal(t, 2, latest.Generation)

			_, ok, err = s.GetController(ctx, "zzz")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStore_FitnessHistory(t *testing.T) {
	ctx := context.Background()
	for kind, s := range openStores(t) {
		t.Run(kind, func(t *testing.T) {
			require.NoError(t, s.SaveFitnessHistory(ctx, "run-a", []float64{1.5, 20, 300.25}))
			history, ok, err := s.GetFitnessHistory(ctx, "run-a")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, []float64{1.5, 20, 300.25}, history)

			_, ok, err = s.GetFitnessHistory(ctx, "run-b")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStore_UninitializedIsError(t *testing.T) {
	ctx := context.Background()
	for _, s := range []Store{NewMemoryStore(), NewSQLiteStore(filepath.Join(t.TempDir(), "x.db"))} {
		_, _, err := s.LatestController(ctx)
		assert.ErrorIs(t, err, ErrNotInitialized)
	}
}

func TestNewStore_UnsupportedBackend(t *testing.T) {
	_, err := NewStore("postgres", "")
	assert.Error(t, err)
}

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "controllers.json")

	first := NewFileStore(path)
	require.NoError(t, first.Init(ctx))
	require.NoError(t, first.SaveController(ctx, NewControllerRecord("a", "r", 0, 1, testGenome(1))))
	require.NoError(t, first.SaveController(ctx, NewControllerRecord("b", "r", 1, 2, testGenome(2))))
	require.NoError(t, first.SaveFitnessHistory(ctx, "r", []float64{1, 2}))

	second := NewFileStore(path)
	require.NoError(t, second.Init(ctx))
	latest, ok, err := second.LatestController(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b", latest.ID)
	history, ok, err := second.GetFitnessHistory(ctx, "r")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []float64{1, 2}, history)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "controllers.db")

	first := NewSQLiteStore(path)
	require.NoError(t, first.Init(ctx))
	require.NoError(t, first.SaveController(ctx, NewControllerRecord("a", "r", 0, 1, testGenome(1))))
	require.NoError(t, first.Close())

	second := NewSQLiteStore(path)
	require.NoError(t, second.Init(ctx))
	t.Cleanup(func() { _ = second.Close() })
	got, ok, err := second.GetController(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "r", got.RunID)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Init(ctx))
	require.NoError(t, s.SaveController(ctx, NewControllerRecord("a", "r", 0, 1, testGenome(1))))

	got, _, err := s.GetController(ctx, "a")
	require.NoError(t, err)
	got.Genome.Layers[0].Weights[0][0] = 1e9

	again, _, err := s.GetController(ctx, "a")
	require.NoError(t, err)
	assert.NotEqual(t, 1e9, again.Genome.Layers[0].Weights[0][0])
}
