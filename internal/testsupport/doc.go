// Package testsupport provides shared test fixtures: temp-dir configs and
// xlsx workbook builders matching the quiz export shape.
package testsupport
