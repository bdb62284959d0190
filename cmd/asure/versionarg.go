package main

import (
	"fmt"
	"strconv"

	"github.com/sureweave/asure/internal/store"
)

// parseVersionSpec accepts "latest" (the default), "prior", or a bare
// delta number for a tagged version.
func parseVersionSpec(text string) (store.VersionSpec, error) {
	switch text {
	case "", "latest":
		return store.VersionSpec{Kind: store.Latest}, nil
	case "prior":
		return store.VersionSpec{Kind: store.Prior}, nil
	default:
		n, err := strconv.Atoi(text)
		if err != nil {
			return store.VersionSpec{}, fmt.Errorf(`invalid --version %q, expected "latest", "prior", or a delta number`, text)
		}
		return store.VersionSpec{Kind: store.Tagged, Number: n}, nil
	}
}
