// Package tools discovers the text-processing binaries the compiler binds
// to and reports their capabilities.
//
// Discovery runs at most once per tool per Registry; results, including
// definitive absences, are memoized behind a single lock. Probe subprocess
// failures are never cached as errors - a failed probe is an absence.
// The Fingerprint summarizes every resolution and participates in the
// compile-cache key, so a changed toolset can never serve a stale command.
package tools
