// Package classify maps errors returned by dispatched operations onto
// JSON-RPC error objects.
//
// Classification looks at the root cause of an error (the last error in its
// Unwrap chain). A root cause may describe itself by implementing Coded, or be
// matched by one of an ordered list of rules:
//
//	c := classify.New(
//	    classify.WithRules(
//	        classify.For[*NotFoundError](classify.ErrorDescriptor{
//	            Code:    -32004,
//	            Message: "Not found",
//	            Data:    []classify.DataResolver{classify.Field(func(e *NotFoundError) any { return e.Key })},
//	        }),
//	    ),
//	)
//
// The first matching rule wins. A mapping whose code is outside the server
// error range [-32099, -32000], or whose message is empty, is rejected and the
// error is reported as Internal error. A mapping that designates more than one
// data carrier is rejected permanently, since the ambiguity cannot go away
// between calls.
package classify
