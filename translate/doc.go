// Package translate is the front door of the bridge: one call runs a set of
// C headers through parsing, platform mapping, and emission, and returns the
// generated binding package.
//
// Results are memoized per input fingerprint, which covers the entry header
// bytes, the define and include configuration, the target platform, and the
// output naming. An optional disk cache persists generated modules across
// processes under fingerprint-named directories.
//
// A Translator is safe for concurrent use. Requests with distinct
// fingerprints translate independently; a returned module is shared between
// callers and must be treated as read-only.
package translate
