// Package tools builds tool definitions for chat requests.
//
// Callers describe the functions a model may invoke with [Define] and the
// property helpers (String, Number, Enum, ...), which produce the object
// schemas every supported vendor understands. The mcp subpackage converts
// tools served over the Model Context Protocol into the same definitions.
package tools
