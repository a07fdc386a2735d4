package fuzzcheck

// mutator is one of the six mutation operators: given a trace to perturb
// and the search context, it returns a new candidate FString.
type mutator func(fc *FuzzContext, cfg Config, t Trace) FString

var mutators = []mutator{
	mutateRepeat,
	mutateInsert,
	mutateInsertPart,
	mutateUpdate,
	mutateCopy,
	mutateDelete,
}

// randomBlock draws a short rune sequence from fc's alphabet, length in
// [0,size).
func randomBlock(fc *FuzzContext, rnd Random, size int) []rune {
	if size <= 0 || len(fc.Alphabet) == 0 {
		return nil
	}
	n := rnd.Intn(size)
	block := make([]rune, n)
	for i := range block {
		block[i] = fc.Alphabet[rnd.Intn(len(fc.Alphabet))]
	}
	return block
}

// mutateRepeat perturbs an existing Repeat element's count, additively by
// [-10,10] or by doubling — whichever the coin flip picks.
func mutateRepeat(fc *FuzzContext, cfg Config, t Trace) FString {
	str := t.Str
	idx := repeatIndices(str)
	if len(idx) == 0 {
		return str
	}
	i := idx[cfg.Random.Intn(len(idx))]
	e := str.Elems[i]
	if cfg.Random.Intn(2) == 0 {
		delta := cfg.Random.Intn(21) - 10
		e.Count += delta
	} else {
		e.Count *= 2
	}
	if e.Count < 0 {
		e.Count = 0
	}
	return str.ReplaceAt(i, e)
}

func repeatIndices(str FString) []int {
	var idx []int
	for i, e := range str.Elems {
		if e.Repeat {
			idx = append(idx, i)
		}
	}
	return idx
}

// mutateInsert inserts a single literal rune or a freshly sampled Repeat
// block at a random position.
func mutateInsert(fc *FuzzContext, cfg Config, t Trace) FString {
	str := t.Str
	pos := cfg.Random.Intn(str.Size() + 1)
	var e FElem
	if cfg.Random.Intn(2) == 0 && len(fc.Alphabet) > 0 {
		e = Wrap(fc.Alphabet[cfg.Random.Intn(len(fc.Alphabet))])
	} else {
		size := str.Size()
		if size == 0 {
			size = 1
		}
		e = NewRepeat(randomBlock(fc, cfg.Random, size), cfg.Random.Intn(10))
	}
	return str.InsertAt(pos, e)
}

// mutateInsertPart inserts one of the pattern's own literal parts at a
// random position, optionally wrapped in a Repeat.
func mutateInsertPart(fc *FuzzContext, cfg Config, t Trace) FString {
	str := t.Str
	if len(fc.Parts) == 0 {
		return mutateInsert(fc, cfg, t)
	}
	part := fc.Parts[cfg.Random.Intn(len(fc.Parts))]
	pos := cfg.Random.Intn(str.Size() + 1)
	if cfg.Random.Intn(2) == 0 {
		return str.InsertAt(pos, NewRepeat(part, 1+cfg.Random.Intn(10)))
	}
	s := str
	for i, r := range part {
		s = s.InsertAt(pos+i, Wrap(r))
	}
	return s
}

// mutateUpdate replaces a random position's element with a fresh Wrap or a
// re-randomized Repeat.
func mutateUpdate(fc *FuzzContext, cfg Config, t Trace) FString {
	str := t.Str
	if str.Size() == 0 {
		return mutateInsert(fc, cfg, t)
	}
	i := cfg.Random.Intn(str.Size())
	var e FElem
	if cfg.Random.Intn(2) == 0 && len(fc.Alphabet) > 0 {
		e = Wrap(fc.Alphabet[cfg.Random.Intn(len(fc.Alphabet))])
	} else {
		size := str.Size()
		e = NewRepeat(randomBlock(fc, cfg.Random, size), cfg.Random.Intn(10))
	}
	return str.ReplaceAt(i, e)
}

// mutateCopy copies a random slice of elements to a random position.
func mutateCopy(fc *FuzzContext, cfg Config, t Trace) FString {
	str := t.Str
	n := str.Size()
	if n == 0 {
		return str
	}
	i := cfg.Random.Intn(n)
	j := i + cfg.Random.Intn(n-i) + 1
	slice := append([]FElem(nil), str.Elems[i:j]...)
	pos := cfg.Random.Intn(n + 1)
	return str.InsertAt(pos, slice[0]).pasteRest(slice[1:], pos+1)
}

// pasteRest inserts the remaining elements of a copied slice one at a time
// starting at pos, preserving their order.
func (f FString) pasteRest(rest []FElem, pos int) FString {
	s := f
	for i, e := range rest {
		s = s.InsertAt(pos+i, e)
	}
	return s
}

// mutateDelete deletes a random non-empty slice of elements. Requires at
// least 2 elements so the result can't collapse the whole candidate.
func mutateDelete(fc *FuzzContext, cfg Config, t Trace) FString {
	str := t.Str
	n := str.Size()
	if n < 2 {
		return str
	}
	i := cfg.Random.Intn(n - 1)
	j := i + 1 + cfg.Random.Intn(n-i-1)
	if j <= i {
		j = i + 1
	}
	return str.Delete(i, j)
}

// crossover cuts two traces and swaps tails, returning both offspring.
func crossover(cfg Config, a, b Trace) (FString, FString) {
	ai := 0
	if a.Str.Size() > 0 {
		ai = cfg.Random.Intn(a.Str.Size() + 1)
	}
	bi := 0
	if b.Str.Size() > 0 {
		bi = cfg.Random.Intn(b.Str.Size() + 1)
	}
	return a.Str.Cross(b.Str, ai, bi)
}
