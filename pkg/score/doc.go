// Package score implements the ranking model: the metadata quality score
// ([Composite], composite_v2), the execution score ([BenchScore],
// bench_score) and their blend into the final score used by [Rank].
//
// Every function is pure. The final score is derived on demand from its
// inputs and never stored on its own.
package score
