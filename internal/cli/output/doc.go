// Package output renders graphite-cli results as a table, JSON or YAML.
//
// Tables are built by reflection from slices, maps and structs. Column
// names come from json tags; a `table` tag tunes a field:
//
//	table:"-"       never shown
//	table:"wide"    shown only with --wide
//	table:"millis"  an int64 Unix-millisecond timestamp rendered as a date
//
// JSON and YAML both honour json tags so the three formats agree on
// field names.
package output
