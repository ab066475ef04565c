// Package dag is the deferred unit model of the pipeline. A Builder
// accumulates units whose inputs are plain values or forward references to
// other units' not yet computed outputs, plus ordering-only dependency
// edges. Builder.Graph validates the whole graph in one step and only a
// validated Graph is ever handed to an Executor, so a graph is dispatched
// entirely or not at all.
//
// References are opaque: nothing in this package dereferences a FieldRef.
// An Executor substitutes the producer's output once the producer has
// completed, and poisons every transitive dependent when it fails.
package dag
