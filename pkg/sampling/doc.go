// Package sampling implements the probabilistic core of the synthetic record
// generator: distribution specifications, seeded random sources, correlation
// rules that condition one variable on previously sampled values, preventive
// hard/soft constraints that reshape probability mass before any draw, and a
// bulk sampler that emits records as a lazy forward-only sequence.
//
// The package is deliberately free of configuration parsing, persistence, and
// calendar logic; those concerns live in internal collaborator packages. It
// must not import anything under internal/ (enforced by an architecture test).
//
// Invalid values are prevented structurally: constraints zero or shrink
// candidate weights before sampling, so the engine never generates a record
// and discards it. Every error raised here indicates a configuration defect,
// never a transient condition, and nothing in this package retries.
package sampling
