// Package orchestrator turns classified inputs into one-shot stage graphs.
//
// Every stage follows the same shape: one fan-out unit per group, a fan-in
// unit only when more than one fan-out unit exists, and a log aggregation
// unit that waits for all of them and merges their toolsUsed outputs. The
// package only declares graphs; running them is the job of a dag.Executor,
// and Check maps the reported outcomes back onto the stage's branches.
package orchestrator
