// Package services defines shared utilities consumed by the pipeline stages and
// the local model integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and image ordinals for
//     logging and error reporting.
//   - Structured error markers plus the Wrap helper so callers classify
//     failures with errors.Is instead of matching message text.
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// handling, observability, retries) stays uniform across the pipeline.
package services
