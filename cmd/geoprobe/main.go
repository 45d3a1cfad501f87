// Command geoprobe exercises the location resolver from a terminal: live
// search and reverse lookups against the configured provider, plus offline
// distance and query-simplification checks.
//
// Usage:
//
//	GEOCODER_API_KEY=... go run ./cmd/geoprobe search "8th cross btm 2nd stage"
//	GEOCODER_API_KEY=... go run ./cmd/geoprobe reverse 12.9716 77.5946
//	go run ./cmd/geoprobe distance 12.9716 77.5946 12.9352 77.6245
//	go run ./cmd/geoprobe simplify "btm 2nd stage"
package main

import "os"

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
