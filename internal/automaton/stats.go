package automaton

// Stats tracks counters for one Check call: a diagnostic surface instead
// of a logging call at each stage of the pipeline. Analysis is single
// threaded, so these are plain counters, not atomics.
type Stats struct {
	ProductVertices int
	SCCsFound       int
}
