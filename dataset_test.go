package dbn

import (
	"encoding/csv"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func TestOneHot(t *testing.T) {
	labels, err := OneHot(tensor.Float32, []int{2, 0, 1}, 3)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 3}, labels.Shape())
	assert.Equal(t, []float32{0, 0, 1, 1, 0, 0, 0, 1, 0}, labels.Float32s())

	_, err = OneHot(tensor.Float32, []int{3}, 3)
	assert.Error(t, err)
}

func TestBinarize(t *testing.T) {
	data := tensor.New(tensor.WithShape(2, 2), tensor.WithBacking([]float64{0.1, 0.7, 0.5, 0.51}))
	Binarize(data, 0.5)
	assert.Equal(t, []float64{0, 1, 0, 1}, data.Float64s())
}

func TestShuffleRows(t *testing.T) {
	for _, dt := range []tensor.Dtype{tensor.Float32, tensor.Float64} {
		data := tensor.New(tensor.Of(dt), tensor.WithShape(20, 2, 2))
		labels := tensor.New(tensor.Of(dt), tensor.WithShape(20, 1))
		for i := 0; i < 20; i++ {
			for j := 0; j < 4; j++ {
				setAt(data, i*4+j, float64(i))
			}
			setAt(labels, i, float64(i))
		}
		require.NoError(t, shuffleRows(rand.New(rand.NewSource(9)), data, labels))
		assert.Equal(t, tensor.Shape{20, 2, 2}, data.Shape())

		seen := make(map[int]bool)
		moved := false
		for i := 0; i < 20; i++ {
			l := int(at(labels, i))
			for j := 0; j < 4; j++ {
				assert.Equal(t, float64(l), at(data, i*4+j), "row %d lost its label", i)
			}
			seen[l] = true
			moved = moved || l != i
		}
		assert.Len(t, seen, 20)
		assert.True(t, moved)
	}

	mismatch := tensor.New(tensor.Of(tensor.Float32), tensor.WithShape(2, 1))
	assert.Error(t, shuffleRows(rand.New(rand.NewSource(1)), tensor.New(tensor.Of(tensor.Float64), tensor.WithShape(2, 1)), mismatch))
}

func at(t *tensor.Dense, i int) float64 {
	if t.Dtype() == tensor.Float32 {
		return float64(t.Float32s()[i])
	}
	return t.Float64s()[i]
}

func setAt(t *tensor.Dense, i int, v float64) {
	if t.Dtype() == tensor.Float32 {
		t.Float32s()[i] = float32(v)
		return
	}
	t.Float64s()[i] = v
}

func TestViews(t *testing.T) {
	data := tensor.New(tensor.WithShape(3, 2, 2), tensor.WithBacking([]float64{
		0, 1, 2, 3,
		4, 5, 6, 7,
		8, 9, 10, 11,
	}))
	r := rows(data, 1, 3)
	assert.Equal(t, tensor.Shape{2, 2, 2}, r.Shape())
	assert.Equal(t, []float64{4, 5, 6, 7, 8, 9, 10, 11}, r.Float64s())

	s := sample(data, 2)
	assert.Equal(t, tensor.Shape{2, 2}, s.Shape())
	s.Float64s()[0] = 100
	assert.Equal(t, 100.0, data.Float64s()[8], "views share their memory")

	assert.Equal(t, tensor.Shape{3, 4}, flat(data).Shape())
	assert.Equal(t, tensor.Shape{1, 2, 2}, asBatch(s).Shape())
	assert.Equal(t, []int{1, 0}, classify(tensor.New(tensor.WithShape(2, 2), tensor.WithBacking([]float64{0, 1, 3, 2})), 2, 2))
}

func TestPool(t *testing.T) {
	a := borrowTensor(tensor.Float64, 2, 3)
	assert.Equal(t, tensor.Shape{2, 3}, a.Shape())
	returnTensor(a)
	b := borrowTensor(tensor.Float64, 3, 2)
	assert.Equal(t, tensor.Shape{3, 2}, b.Shape())
	assert.Equal(t, tensor.Float64, b.Dtype())
	c := borrowTensor(tensor.Float32, 6)
	assert.Equal(t, tensor.Float32, c.Dtype())
}

func TestStatisticsDump(t *testing.T) {
	s := makeStatistics()
	s.pretrained(1, 0.5)
	s.pretrained(1, 0.25)
	s.pretrained(0, 0.75)
	s.fineTuned(0.125, 0.1)

	filename := filepath.Join(t.TempDir(), "stats.csv")
	require.NoError(t, s.Dump(filename))
	f, err := os.Open(filename)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	expected := [][]string{
		{"phase", "layer", "epoch", "error", "learning_rate"},
		{"pretrain", "1", "0", "0.50000", ""},
		{"pretrain", "1", "1", "0.25000", ""},
		{"pretrain", "0", "0", "0.75000", ""},
		{"finetune", "", "0", "0.12500", "0.10000"},
	}
	if diff := cmp.Diff(expected, records); diff != "" {
		t.Errorf("unexpected records (-want +got):\n%s", diff)
	}
}

func TestConfig(t *testing.T) {
	if !DefaultConfig().IsValid() {
		t.Errorf("Expected Default Config to be correct")
	}
	for _, mod := range []func(*Config){
		func(c *Config) { c.LearningRate = 0 },
		func(c *Config) { c.FinalMomentum = 1 },
		func(c *Config) { c.K = 0 },
		func(c *Config) { c.Updater = RMSProp + 1 },
		func(c *Config) { c.LRDriver = Step; c.StepEvery = 0 },
		func(c *Config) { c.LRDriver = Bold; c.BoldDec = 1 },
	} {
		c := DefaultConfig()
		mod(&c)
		assert.False(t, c.IsValid(), "%+v", c)
	}
	assert.Equal(t, 0.5, DefaultConfig().momentum(0))
	assert.Equal(t, 0.9, DefaultConfig().momentum(6))
}
