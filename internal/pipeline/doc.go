// Package pipeline orchestrates a featuregen run: images are analysed in
// parallel by the vision model, merged, turned into a prompt for the chosen
// template, synthesized into a requirements document by the text model, and
// serialized.
//
// The first irrecoverable vision failure cancels the remaining analyses; no
// partial document is ever produced. Timeout and ServiceUnreachable backend
// errors are retried with capped exponential backoff. ModelNotFound never is.
// Model names and every other tunable are passed in through Options, so a run
// depends on nothing but its arguments.
package pipeline
