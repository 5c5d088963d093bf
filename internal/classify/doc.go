// Package classify assigns each row an ad format from threshold rules and
// prices it with the user's cost formula.
//
//   - Classify: bumper / skippable_reach / skippable_view priority chain (format.go)
//   - CostModel: compiled cost expression plus benchmark/cost tables (cost.go)
//
// Both are pure: the same inputs always give the same result.
package classify
