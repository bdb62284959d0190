package main

import "github.com/sureweave/asure/internal/store"

// resolveStore parses storePath, falling back to dir itself (a weave
// store named "2sure" inside it) when storePath is empty.
func resolveStore(dir, storePath string) (store.Store, error) {
	if storePath == "" {
		storePath = dir
	}
	return store.Parse(storePath)
}
