// Package source reads tabular resources into a flow.
//
// Every reader implements Source and can start a flow or join one:
//
//	flow.New(
//	    source.Seed(source.CSV(store, "in/orders.csv")),
//	    source.Load(source.JSON(store, "in/customers.json")),
//	    ...
//	)
//
// Seed must be the first step and defines the flow's initial resource. Load
// appends a resource to the current package and can appear anywhere. When
// no schema is declared with WithSchema, the schema is inferred from a
// sample of the rows. Downloads are retried with resilience.Retry.
//
// Datapackage re-reads the output of sink.DumpToPath with the schema stored
// next to the data.
package source
