package parango

import "embed"

// EmbeddedAssets contains static assets shipped with the framework:
// forward.js, the relay that queues calls to proxied third-party scripts.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
