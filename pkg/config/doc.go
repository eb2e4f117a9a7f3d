// Package config loads process settings from the environment and merge settings from
// a YAML or TOML file.
//
// # Environment
//
// LoadConfig reads PROTOMERGE_* variables, after seeding the environment from a .env
// file when one is present:
//
//	PROTOMERGE_LOG_LEVEL="info"          # debug, info, warn, error
//	PROTOMERGE_WORKERS="0"               # 0 uses GOMAXPROCS
//	PROTOMERGE_CACHE_ENABLED="true"
//	PROTOMERGE_CACHE_MAX_ENTRIES="32"
//	PROTOMERGE_CACHE_TTL="10m"
//	PROTOMERGE_METRICS_FILE="/var/lib/node_exporter/protomerge.prom"
//	PROTOMERGE_OTEL_ENABLED="true"
//	PROTOMERGE_OTEL_ENDPOINT="otel-collector:4317"
//	PROTOMERGE_OTEL_SAMPLING_RATE="0.1"
//
// # Merge file
//
// LoadMergeFile reads the versions to merge and the merger options:
//
//	versions:
//	  - name: v1
//	    dir: protos/v1
//	  - name: v2
//	    dir: protos/v2
//	exclude_fields:
//	  - Order.legacy_total
//	field_name_mappings:
//	  cust_id: customer_id
//
// CLI flags override merge file values, which override environment defaults.
package config
