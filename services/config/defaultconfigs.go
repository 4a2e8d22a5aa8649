package config

import "embed"

// Per-board defaults, keyed by file name without extension.
//
//go:embed boards/*.yaml
var boardFiles embed.FS

// EmbeddedConfigLookup allows overriding how board configs are resolved.
var EmbeddedConfigLookup = func(board string) ([]byte, bool) {
	b, err := boardFiles.ReadFile("boards/" + board + ".yaml")
	if err != nil || len(b) == 0 {
		return nil, false
	}
	return b, true
}
