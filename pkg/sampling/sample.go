package sampling

// Sample draws one value from a normalized spec using the given source.
// Identical sources and identical specs always yield the identical value;
// seeded runs are reproducible.
//
// Categorical specs use a cumulative-weight inverse-CDF lookup against one
// uniform draw. Weighted-range specs select an interval by the same lookup
// over interval weights, then draw uniformly within the chosen interval.
// Uniform specs scale one draw directly into [Lo, Hi).
func Sample(src *Source, spec Spec) (Value, error) {
	if !spec.normalized() {
		return Value{}, invalidDistribution("spec is not normalized (total mass %v)", spec.TotalWeight())
	}
	switch spec.Kind {
	case KindCategorical:
		idx, err := pickIndex(src, len(spec.Categories), func(i int) float64 { return spec.Categories[i].Weight })
		if err != nil {
			return Value{}, err
		}
		return LabelValue(spec.Categories[idx].Label), nil
	case KindWeightedRange:
		idx, err := pickIndex(src, len(spec.Intervals), func(i int) float64 { return spec.Intervals[i].Weight })
		if err != nil {
			return Value{}, err
		}
		iv := spec.Intervals[idx]
		return NumberValue(iv.Lo + src.Float64()*(iv.Hi-iv.Lo)), nil
	case KindUniform:
		return NumberValue(spec.Lo + src.Float64()*(spec.Hi-spec.Lo)), nil
	default:
		return Value{}, invalidDistribution("unknown kind %q", string(spec.Kind))
	}
}

// pickIndex selects a member index by inverse CDF over one uniform draw.
// Rounding in the cumulative sum can leave the draw above the final boundary;
// the last positive-weight member absorbs that residue.
func pickIndex(src *Source, n int, weight func(int) float64) (int, error) {
	draw := src.Float64()
	var cum float64
	last := -1
	for i := 0; i < n; i++ {
		w := weight(i)
		if w <= 0 {
			continue
		}
		last = i
		cum += w
		if draw < cum {
			return i, nil
		}
	}
	if last < 0 {
		return 0, invalidDistribution("no member with positive weight")
	}
	return last, nil
}
