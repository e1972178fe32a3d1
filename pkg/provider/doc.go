// Package provider implements the generic chat engine behind every vendor
// connection. A single Client speaks the Chat Completions wire dialect and
// takes all vendor differences (auth style, endpoints, listing shape,
// capability detection) from an immutable profile.VendorProfile, so adding
// a vendor means adding a table entry, not a new adapter.
//
// Chat and ChatStream normalize requests and responses to the pkg/llm
// types: system prompt injection, sampling clamps, content block splitting
// on the way out; text, tool calls, stop reason, and usage on the way back.
// Transport failures are embedded in the returned response as structured
// llm.Error values and simultaneously returned as the error.
package provider
