// Package ollama is the model backend client for the local Ollama runtime.
//
// Generate sends either an image plus instruction (vision) or a text prompt
// (text) and returns the raw generated text. Every call runs under a bounded
// timeout, and failures come back as *BackendError classified into one of
// ServiceUnreachable, ModelNotFound, Timeout, or MalformedResponse. The client
// performs no retries; retry policy belongs to the pipeline.
//
// Model management helpers (Ping, ListModels, HasModel, PullModel) back the
// init and models commands.
package ollama
