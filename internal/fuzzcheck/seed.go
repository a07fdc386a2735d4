package fuzzcheck

// seeds builds the initial candidate set: the empty string, each literal
// part the pattern spells out, and each alphabet atom pumped once — the
// obvious interesting strings, capped by SeedLimit/MaxSeedSize.
func seeds(fc *FuzzContext, cfg Config) []FString {
	out := []FString{NewFString(nil)}

	for _, part := range fc.Parts {
		if len(part) == 0 {
			continue
		}
		out = append(out, NewFString([]FElem{NewRepeat(part, 1)}))
	}

	for _, r := range fc.Alphabet {
		out = append(out, NewFString([]FElem{NewRepeat([]rune{r}, 1)}))
	}

	filtered := out[:0]
	for _, s := range out {
		if len(s.ToUString()) <= cfg.MaxSeedSize {
			filtered = append(filtered, s)
		}
	}
	if len(filtered) > cfg.SeedLimit {
		filtered = filtered[:cfg.SeedLimit]
	}
	return filtered
}
