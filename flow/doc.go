// Package flow composes and runs pipelines over tabular packages.
//
// A flow is an ordered list of steps. Each step is one of a closed set of
// kinds, chosen by the factory that built it:
//
//	RowStep      called for every row of every resource
//	RowsStep     called once per resource with its descriptor and stream
//	PackageStep  two-phase: Describe mutates the package descriptor, Process
//	             returns one stream per output resource
//	Seed         produces the flow's initial resource; must be first
//	Nested       a sub-flow, flattened into the parent at build time
//	Checkpoint   persists the package, or resumes from a saved copy
//
// Evaluation is lazy and pull based. Open runs every describe phase and wires
// iterators; rows move only when a consumer pulls them:
//
//	f := flow.New(
//		flow.SeedRows("greetings", rows),
//		flow.RowStep(lowercase),
//	)
//	res, err := f.Results(ctx)
//
// Errors raised by a step carry its position, kind, resource and row number;
// errors passing through later steps are left unchanged.
package flow
