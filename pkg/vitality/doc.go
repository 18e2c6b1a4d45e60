// Package vitality implements the repository reliability scoring model.
// It exposes [Evaluate], the [Metrics] it consumes and the [Assessment]
// it produces. The package is pure: it performs no I/O and holds no state.
package vitality
