// Package textlayer reconstructs reading-order lines from the positioned
// text fragments of a source page and classifies pages as born-digital or
// scanned based on the amount of usable text found.
package textlayer

import (
	"sort"
	"strings"
)

// yTolerance is the maximum vertical distance, in layout units, between a
// fragment and a cluster's representative for the fragment to join that line.
const yTolerance = 2.5

// bornDigitalThreshold is the minimum reconstructed-text length for a page
// to be considered born-digital. Pages with a real text layer comfortably
// exceed it; image-only pages produce little or no text.
const bornDigitalThreshold = 40

// Fragment is one positioned piece of text from a page's text layer.
// X may be absent (zero) for sources that only report vertical position.
type Fragment struct {
	Text string
	X    float64
	Y    float64
}

// Classification of a source page.
type Classification string

const (
	BornDigital Classification = "born_digital"
	Scanned     Classification = "scanned"
)

type cluster struct {
	y     float64 // representative Y of the line (first fragment's Y)
	parts []string
}

// ReconstructLines clusters fragments into lines and returns them top of
// page first. A fragment joins an existing cluster when its Y is within
// yTolerance of the cluster's representative Y, otherwise it starts a new
// cluster. Fragments within a line are joined with single spaces in
// encounter order; they are not re-sorted by X, so multi-column or
// right-to-left layouts may interleave.
func ReconstructLines(frags []Fragment) []string {
	var clusters []*cluster
	for _, f := range frags {
		text := strings.TrimSpace(f.Text)
		if text == "" {
			continue
		}
		var target *cluster
		for _, c := range clusters {
			if diff := f.Y - c.y; diff >= -yTolerance && diff <= yTolerance {
				target = c
				break
			}
		}
		if target == nil {
			target = &cluster{y: f.Y}
			clusters = append(clusters, target)
		}
		target.parts = append(target.parts, text)
	}

	// Page coordinates grow upward: the largest Y is the top of the page.
	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].y > clusters[j].y
	})

	lines := make([]string, 0, len(clusters))
	for _, c := range clusters {
		lines = append(lines, strings.Join(c.parts, " "))
	}
	return lines
}

// Classify reconstructs the page text and applies the born-digital
// threshold. Born-digital pages are converted directly from their text
// layer; scanned pages go through rasterization and transcription.
func Classify(frags []Fragment) Classification {
	text := strings.Join(ReconstructLines(frags), "\n")
	if len([]rune(text)) >= bornDigitalThreshold {
		return BornDigital
	}
	return Scanned
}
