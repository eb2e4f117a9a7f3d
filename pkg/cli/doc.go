// Package cli provides the protomerge command-line interface.
//
// # Overview
//
// protomerge loads several versions of a protobuf schema, merges them into one
// version-agnostic schema and reports every place the versions disagree.
//
// # Commands
//
// merge: Merge versions and print the report
//
//	protomerge merge \
//		--version v1=./proto/v1 \
//		--version v2=./proto/v2 \
//		--format json \
//		--output merged.json
//
// Versions, import paths, exclusions and name mappings can also come from a merge file:
//
//	protomerge merge --config protomerge.yaml --fail-on-incompatible
//
// explain: Show how one field was resolved
//
//	protomerge explain --config protomerge.yaml --field Order.amount
//
// watch: Re-merge whenever a .proto file changes
//
//	protomerge watch --config protomerge.yaml --debounce 500ms
//
// version: Print the build version
//
//	protomerge version
//
// # Configuration
//
// Process settings come from PROTOMERGE_* environment variables, optionally seeded
// from a .env file. Flags override merge file values, which override environment
// defaults.
//
//	export PROTOMERGE_LOG_LEVEL=debug
//	export PROTOMERGE_METRICS_FILE=/var/lib/node_exporter/protomerge.prom
package cli
