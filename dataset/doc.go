// Package dataset provides the immutable, row-major point set consumed by the
// clustering engine.
//
// A Dataset holds N points with F real-valued features each. The backing slice
// is never mutated after construction; Row returns a view into it.
package dataset
