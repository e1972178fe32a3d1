// Package profile holds the immutable per-vendor configuration records that
// parameterize the generic provider engine. A VendorProfile captures
// everything that differs between vendors: base URL, auth style, the shape of
// the model-listing response, the tool-calling detection rule, model-name
// filters, and the chat endpoint path.
//
// Profiles are data, not behavior. The engine in pkg/provider and the
// discovery engine in pkg/discovery interpret them; nothing here performs
// I/O. Built-in profiles are created once at package init and must never be
// mutated.
package profile
