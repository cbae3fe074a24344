// Pivotal stages entity/attribute/value facts in SQLite and exports them as
// wide rows, one row per entity and one column per attribute key.
//
// Usage:
//
//	# Ingest a long-format file and export to every enabled output
//	pivotal export --config pivotal.yaml
//
//	# Export a JSON Lines file to CSV without a config file
//	pivotal export --input facts.jsonl
//
//	# Generate random data and time the export
//	pivotal demo --entities 10000 --keys 200
//
//	# Re-export when the input changes and on a schedule
//	pivotal watch --config pivotal.yaml
//
//	# Show version information
//	pivotal version
package main

func main() {
	Execute()
}
