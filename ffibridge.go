package ffibridge

import (
	"context"

	"github.com/wippyai/ffi-bridge/emit"
	"github.com/wippyai/ffi-bridge/translate"
)

// defaultTranslator backs the package-level Translate and memoizes per
// fingerprint for the life of the process.
var defaultTranslator = translate.New()

// Translate runs the request through a shared process-wide translator.
// Create a translate.Translator directly for a private memo or a disk
// cache.
func Translate(ctx context.Context, req translate.Request) (*emit.GeneratedModule, error) {
	return defaultTranslator.Translate(ctx, req)
}
