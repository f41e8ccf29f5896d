// Package sink writes the resources of a flow to external systems while
// passing their rows on unchanged.
//
// DumpToPath stores each resource as a CSV or JSON object next to a
// datapackage.json descriptor that source.Datapackage can read back.
// DumpToSQL creates one table per resource and inserts rows in batches.
//
// Both are package steps: nothing is written until the rows are pulled, and
// both report what they wrote through flow.Results.Summaries.
package sink
