package derive

// Rate divides numerator by denominator with missing-safe semantics:
// the result is nil (never zero, infinity, or a panic) when either
// operand is missing or the denominator is zero. Downstream aggregates
// skip nil values, so an undefined rate silently drops out of rolling
// means instead of poisoning them.
func Rate(num, den *float64) *float64 {
	if num == nil || den == nil || *den == 0 {
		return nil
	}
	r := *num / *den
	return &r
}

// PerCapita scales a count to a per-`per` rate against the given
// population (e.g. per=100_000 for the per-100k series). nil when the
// count is missing or the population is not positive.
func PerCapita(value *float64, population, per float64) *float64 {
	if value == nil || population <= 0 {
		return nil
	}
	r := *value * per / population
	return &r
}
