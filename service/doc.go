// Package service describes the remotely callable operations of a Go type.
//
// Types opt in by implementing Provider and returning a Definition built with
// the fluent registration API. No reflection over methods is involved; the
// registration names every operation and every parameter explicitly:
//
//	type Calculator struct{}
//
//	func (c *Calculator) RPCService() service.Definer {
//	    return service.Define[*Calculator]("calculator").
//	        Method("add", (*Calculator).add,
//	            service.Param[int]("x"),
//	            service.Param[int]("y")).
//	        Method("greet", (*Calculator).greet,
//	            service.Optional[string]("name"))
//	}
//
//	func (c *Calculator) add(ctx context.Context, args service.Args) (any, error) {
//	    return service.Arg[int](args, "x") + service.Arg[int](args, "y"), nil
//	}
//
// Parameter order is the positional order used when a request supplies an
// array instead of an object.
//
// # Descriptors
//
// Describe turns a Definition into an immutable ServiceDescriptor. Duplicate
// method names (including methods folded in with Include) and duplicate
// parameter names are configuration errors. Methods without a name or handler
// are skipped with a warning.
//
// Handlers receive the target instance as their first argument, so a
// descriptor is shared by every instance of a type. RPCService must therefore
// not capture the receiver.
//
// # Caching
//
// Cache memoizes descriptors per dynamic type with a TTL (one hour by default).
// Concurrent first lookups of the same type build the descriptor once.
//
// # Registry
//
// Registry maps service names to target instances for dispatch by name.
package service
