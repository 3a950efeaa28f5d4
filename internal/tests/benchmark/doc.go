// Package benchmark holds performance benchmarks for graphite's hot
// paths: session creation and lookup, cookie resolution and the auth
// middleware.
//
// Run benchmarks with:
//
//	go test -bench=. -benchmem ./internal/tests/benchmark/...
//
// Compare runs with:
//
//	go test -bench=. -benchmem -count=5 ./internal/tests/benchmark/... | tee new.txt
//	benchstat old.txt new.txt
package benchmark
