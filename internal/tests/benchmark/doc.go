// Package benchmark provides performance benchmarks for dsh.
//
// Run benchmarks with:
//
//	go test -bench=. -benchmem ./internal/tests/benchmark/...
//
// Compare fan-out settings:
//
//	go test -bench=BenchmarkFetchTokens -benchmem -count=5 ./internal/tests/benchmark/... | tee fetch.txt
//	benchstat old.txt fetch.txt
package benchmark
