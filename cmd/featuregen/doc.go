// Package main hosts the featuregen CLI entrypoint and command graph.
//
// The Cobra command tree turns terminal invocations into pipeline runs
// (analyze, refine), Ollama housekeeping (init, models), template discovery,
// result cache maintenance, and configuration scaffolding. Configuration
// resolution, logger construction, and backend wiring live in the command
// context so subcommands only describe user experience.
package main
