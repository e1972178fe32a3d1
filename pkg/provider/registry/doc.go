// Package registry manages provider lifecycle: a static id to factory
// table, lazily created singleton instances, the active-provider pointer,
// cooldown-cached health checks, and one-call bootstrap. A Registry is an
// explicit object; callers that want isolation (tests, parallel sessions)
// create their own.
package registry
