// Package selection models the media browser's UI state as a pure
// state-transition function. Apply(state, event) returns the next state
// without side effects, which keeps selection, filtering, and breadcrumb
// logic testable away from any rendering or transport concern.
package selection
