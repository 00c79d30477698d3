package textlayer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReconstructLinesClustersWithinTolerance(t *testing.T) {
	frags := []Fragment{
		{Text: "Hello", X: 10, Y: 700},
		{Text: "world.", X: 60, Y: 701.5},
		{Text: "Second", X: 10, Y: 680},
	}

	lines := ReconstructLines(frags)
	assert.Equal(t, []string{"Hello world.", "Second"}, lines)
}

func TestReconstructLinesSeparatesBeyondTolerance(t *testing.T) {
	frags := []Fragment{
		{Text: "above", X: 10, Y: 700},
		{Text: "below", X: 10, Y: 697},
	}

	lines := ReconstructLines(frags)
	assert.Equal(t, []string{"above", "below"}, lines)
}

func TestReconstructLinesOrdersTopDown(t *testing.T) {
	// PDF y grows upward, so the largest y is the first reading line.
	frags := []Fragment{
		{Text: "bottom", X: 10, Y: 100},
		{Text: "top", X: 10, Y: 700},
		{Text: "middle", X: 10, Y: 400},
	}

	lines := ReconstructLines(frags)
	assert.Equal(t, []string{"top", "middle", "bottom"}, lines)
}

func TestReconstructLinesJoinsInEncounterOrder(t *testing.T) {
	frags := []Fragment{
		{Text: "world", X: 60, Y: 500},
		{Text: "Hello", X: 10, Y: 500},
	}

	lines := ReconstructLines(frags)
	assert.Equal(t, []string{"world Hello"}, lines)
}

func TestReconstructLinesDropsBlankFragments(t *testing.T) {
	frags := []Fragment{
		{Text: "   ", X: 10, Y: 500},
		{Text: "text", X: 20, Y: 500},
		{Text: "", X: 30, Y: 500},
	}

	lines := ReconstructLines(frags)
	assert.Equal(t, []string{"text"}, lines)
}

func TestClassifyBornDigitalAtThreshold(t *testing.T) {
	long := Fragment{Text: "This reconstructed line carries well over forty characters.", Y: 500}
	assert.Equal(t, BornDigital, Classify([]Fragment{long}))
}

func TestClassifyScannedBelowThreshold(t *testing.T) {
	assert.Equal(t, Scanned, Classify([]Fragment{{Text: "Page 3", Y: 20}}))
	assert.Equal(t, Scanned, Classify(nil))
}
