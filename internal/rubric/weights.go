package rubric

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// WeightKind discriminates how a raw weight was written in the source
// document. Keeping the union explicit avoids ad hoc numeric guessing at
// normalization time.
type WeightKind int

const (
	WeightAbsent WeightKind = iota
	WeightDecimal
	WeightPercent
	WeightPoints
	WeightFraction
)

// RawWeight is one unresolved weight expression. Value carries the parsed
// number in the unit implied by Kind (percent values are stored as the
// percentage, e.g. 40 for "40%").
type RawWeight struct {
	Kind  WeightKind
	Value float64
}

// Resolve converts a raw weight to the pre-normalization scale shared by
// NormalizeWeights: percentages and fractions become fractions of 1,
// point values stay in points and are scaled by the caller's sum.
func (w RawWeight) Resolve() float64 {
	switch w.Kind {
	case WeightPercent:
		return w.Value / 100.0
	case WeightDecimal, WeightFraction, WeightPoints:
		return w.Value
	default:
		return 0
	}
}

// NormalizeWeights converts heterogeneous raw weights into fractions
// summing to 1.0. Deterministic and order-preserving:
//   - no positive weight anywhere: every item gets 1/n
//   - any resolved value above 1.0: treat the batch as point/percent units
//     and divide by the batch sum
//   - all values <= 1.0 but the sum is off by more than tol: rescale by sum
//   - otherwise: keep as-is
func NormalizeWeights(raw []RawWeight, tol float64) []float64 {
	if tol <= 0 {
		tol = 0.01
	}
	n := len(raw)
	if n == 0 {
		return nil
	}
	out := make([]float64, n)
	var sum, maxv float64
	anyPositive := false
	for i, w := range raw {
		v := w.Resolve()
		if v < 0 {
			v = 0
		}
		out[i] = v
		sum += v
		if v > maxv {
			maxv = v
		}
		if v > 0 {
			anyPositive = true
		}
	}
	if !anyPositive {
		for i := range out {
			out[i] = 1.0 / float64(n)
		}
		return out
	}
	if maxv > 1.0 || math.Abs(sum-1.0) > tol {
		for i := range out {
			out[i] /= sum
		}
	}
	return out
}

// Inline weight token patterns, tried in order. Group 1 carries the number;
// fraction patterns carry the denominator in group 2.
var inlineWeightPatterns = []struct {
	re   *regexp.Regexp
	kind WeightKind
}{
	{regexp.MustCompile(`(?i)\((\d+(?:\.\d+)?)\s*%\)`), WeightPercent},
	{regexp.MustCompile(`(?i)\[(\d+(?:\.\d+)?)\s*%\]`), WeightPercent},
	{regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*%`), WeightPercent},
	{regexp.MustCompile(`(?i)\((\d+(?:\.\d+)?)\s*(?:pts?|points?|marks?)\)`), WeightPoints},
	{regexp.MustCompile(`(?i)\[(\d+(?:\.\d+)?)\s*(?:pts?|points?|marks?)\]`), WeightPoints},
	{regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:pts?|points?|marks?)`), WeightPoints},
	{regexp.MustCompile(`\((\d+(?:\.\d+)?)/(\d+(?:\.\d+)?)\)`), WeightFraction},
	{regexp.MustCompile(`(\d+(?:\.\d+)?)/(\d+(?:\.\d+)?)`), WeightFraction},
	{regexp.MustCompile(`(?i)weight\s*[:=]\s*(\d+(?:\.\d+)?)`), WeightDecimal},
}

var spaceRun = regexp.MustCompile(`\s+`)

// ParseInlineWeight extracts a weight token like "(40%)", "[30 pts]",
// "12/30" or "weight: 0.4" from text, returning the parsed weight and the
// text with the token removed. When no token is present the weight kind is
// WeightAbsent and text is returned unchanged.
func ParseInlineWeight(text string) (RawWeight, string) {
	if text == "" {
		return RawWeight{}, text
	}
	for _, p := range inlineWeightPatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		val, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		w := RawWeight{Kind: p.kind, Value: val}
		switch p.kind {
		case WeightFraction:
			den, err := strconv.ParseFloat(m[2], 64)
			if err != nil || den == 0 {
				continue
			}
			w.Value = val / den
		case WeightDecimal:
			// "weight: 40" almost always means 40%.
			if val > 1 {
				w.Value = val / 100.0
			}
		}
		cleaned := p.re.ReplaceAllString(text, "")
		cleaned = strings.TrimSpace(spaceRun.ReplaceAllString(cleaned, " "))
		return w, cleaned
	}
	return RawWeight{}, text
}

// ParseWeightCell interprets a table cell as a weight. Bare numbers are
// treated as decimals when <= 1 and as point/percent units otherwise, which
// NormalizeWeights scales against the batch sum.
func ParseWeightCell(cell string) RawWeight {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return RawWeight{}
	}
	if v, err := strconv.ParseFloat(cell, 64); err == nil {
		if v <= 1 {
			return RawWeight{Kind: WeightDecimal, Value: v}
		}
		return RawWeight{Kind: WeightPoints, Value: v}
	}
	w, _ := ParseInlineWeight(cell)
	return w
}
