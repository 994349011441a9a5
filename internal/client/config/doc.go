// Package config loads runtime configuration for the gigbook CLI.
//
// Sources, later ones winning:
//
//  1. Built-in defaults (see NewViper).
//  2. config.yaml in the data directory.
//  3. GIGBOOK_* environment variables, e.g. GIGBOOK_SERVER_ADDR.
//  4. Command-line flags bound by the CLI.
//
// The data directory itself comes from the flag, GIGBOOK_DATA_DIR or the
// user config directory, since it is where config.yaml lives.
//
//	server_addr: gigbook.example.com:50051
//	platform: web
//	request_timeout: 10s
//	sync_timeout: 1m
//	log_level: debug
package config
