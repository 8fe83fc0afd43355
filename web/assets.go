// Package web embeds the built dashboard assets.
package web

import "embed"

// Assets holds the compiled SPA under dist/.
//
//go:embed dist
var Assets embed.FS
