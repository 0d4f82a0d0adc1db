// Package executor implements a breadth-first GraphQL executor that resolves
// synchronous fields inline and hands asynchronous fields to the Runtime one
// depth at a time.
//
// # Sync and async fields
//
// schema.Field.Async classifies every field. Sync fields are projections or
// cheap lookups answered by Runtime.ResolveSync as soon as they are reached;
// descending through them never adds depth. Async fields are queued while the
// current depth is expanded and resolved together by a single call to
// Runtime.BatchResolveAsync. Their object results are expanded in turn, and
// any async children they contain form the next batch. For a query whose async
// depth is d the batch hook is called exactly d times, which lets the runtime
// overlap independent slow resolvers at the same depth.
//
// # Value completion
//
//   - Non-Null: complete the inner type; a null result records an error and
//     propagates null to the nearest nullable ancestor.
//   - List: complete each element with an index path; a null element of a
//     Non-Null item type nullifies the whole list.
//   - Scalar and enum: Runtime.SerializeLeafValue.
//   - Interface and union: Runtime.ResolveType picks the object type, the
//     concrete-value hook unwraps the value, then it completes as an object.
//   - Object: collect sub-fields, honouring @skip/@include and fragment type
//     conditions (including interface and union conditions).
//
// Queued tasks below a path nullified by Non-Null propagation are dropped
// before the next batch. Once the request context is done no further batch is
// started and the remaining tasks fail with the context error.
//
// # Errors
//
// Errors accumulate as located GraphQL errors (message and path) and do not
// stop execution, so results may be partial.
package executor
