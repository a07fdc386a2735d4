package fuzzcheck

// Stats tracks counters for one Check call, the fuzz path's half of the
// pipeline's diagnostic surface (see automaton.Stats for the automaton
// path's half). Analysis is single-threaded, so these are plain counters.
type Stats struct {
	SeedsAdmitted   int
	GenerationsRun  int
	MutationsTried  int
	CrossoversTried int
	AttackAttempts  int
}
