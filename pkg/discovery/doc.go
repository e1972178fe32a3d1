// Package discovery implements runtime model discovery against vendor
// listing endpoints. Instead of hardcoding model catalogs, the engine builds
// a listing request from a vendor profile, extracts models from the response
// via dot-path lookups, evaluates tool-calling support with the profile's
// capability rule, and caches results per (provider, base URL, key
// fingerprint) for ten minutes.
//
// Fetch never returns an error value: every failure mode, including
// transport errors and non-2xx statuses, is reported inside the Result the
// way a health probe reports its outcome. A 2xx response that yields zero
// usable models is a soft failure: the Result still reports OK with an
// attached empty_result error.
//
// Vendor-specific model filtering (prefix inclusion, pattern exclusion, and
// the fall-back-to-unfiltered rule for self-hosted endpoints) is a layer on
// top of the generic engine, applied by callers via FilterResult.
package discovery
