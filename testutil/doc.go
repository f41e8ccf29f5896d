// Package testutil provides helpers for testing flows and their
// collaborators.
//
// # Quick Start
//
//	func TestMyStep(t *testing.T) {
//	    h := testutil.T(t)
//	    store := h.Storage()
//	    res := h.Results(flow.New(
//	        flow.SeedRows("people", testutil.Rows([]string{"name"}, []any{"Alice"})),
//	        myStep,
//	    ))
//	    // res.Data[0] holds the rows of "people"
//	}
//
// Storage, checkpoint stores and flows created through a THelper are
// cleaned up when the test ends.
package testutil
