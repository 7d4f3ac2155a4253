/*

Process of compilation

Encoded Unit (tlwire) ->
	decode ->
Intermediate Representation (ir) ->
	flags ->
	inline ->
	flags ->
Optimized Unit ->
	encode ->
Artifact Cache (bbolt + zstd)

Non-local returns are resolved while inlining:
a closure's return from its method becomes a plain return
once the closure is spliced into that method,
or a copy to the call result anywhere else.

*/
package compiler
