// Package handlers implements the HTTP surface spec.md §6 defines,
// thin adapters over internal/orchestrator and internal/catalogdb:
//   - Frame, sprite-sheet, VTT, chapters, and video-clip derivation
//   - Catalog dumps and forced rescans
//   - Health, readiness, liveness, version, and metrics endpoints
package handlers
