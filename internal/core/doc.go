// Package core implements the window aggregation, grouping and filtering
// engine behind the app list.
//
// The package owns three plain tables (WindowTable, FavoritesList and
// OutputContext) and turns a snapshot of them into an ordered list of
// display items. Nothing here locks or starts goroutines; callers serialize
// access through a single control loop (see internal/engine).
package core
