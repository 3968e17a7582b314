// Package shared holds cross-cutting helpers that do not belong to a
// single domain package. The testutil subpackage provides log capture
// helpers for asserting on structured log output in tests.
package shared
