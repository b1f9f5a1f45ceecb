// Package views derives summary tables from normalized Canvas tables.
//
// Views are pure functions over *table.Table values; they never call the API.
// The canvas package composes them with fetches where a one-call operation is
// useful.
package views
