// Package weave implements an SCCS-style weave file: a single flat file
// holding every version of a plain-text body, with insert/delete control
// lines marking which lines belong to which delta (§4.I).
package weave

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/sureweave/asure/internal/asureerr"
)

// headerVersion is the Header.Version written by this implementation.
const headerVersion = 1

// headerPrefix marks the first line of a weave file as a JSON header,
// distinguishing it from a degenerate SCCS-style file with no header.
const headerPrefix = "\x01t"

// DeltaInfo describes one delta recorded in a weave's header.
type DeltaInfo struct {
	Name   string            `json:"name"`
	Number int               `json:"number"`
	Tags   map[string]string `json:"tags"`
	Time   time.Time         `json:"time"`
}

// Header is the first line of every weave file: the full list of deltas
// it contains, in the order they were added.
type Header struct {
	Version int         `json:"version"`
	Deltas  []DeltaInfo `json:"deltas"`
}

// NewHeader returns an empty header for a brand new weave.
func NewHeader() Header {
	return Header{Version: headerVersion}
}

// DecodeHeader reads a Header from a weave file's first line. A line not
// starting with the header prefix is treated as a foreign (plain SCCS)
// file with no recorded deltas.
func DecodeHeader(line string) (Header, error) {
	if len(line) < 2 || line[:2] != headerPrefix {
		return Header{Version: 0}, nil
	}
	var h Header
	if err := json.Unmarshal([]byte(line[2:]), &h); err != nil {
		return Header{}, asureerr.Wrap(err, "decoding weave header")
	}
	return h, nil
}

// Encode renders the header as the line that should open the weave file,
// without a trailing newline.
func (h Header) Encode() (string, error) {
	body, err := json.Marshal(h)
	if err != nil {
		return "", asureerr.Wrap(err, "encoding weave header")
	}
	return headerPrefix + string(body), nil
}

// Add appends a new delta built from tags (which must include a "name"
// entry, removed from the stored tag set) stamped at the given time, and
// returns the delta number assigned to it: one more than the largest
// existing delta number, or 1 for the first delta.
func (h *Header) Add(tags map[string]string, stamp time.Time) (int, error) {
	name, ok := tags["name"]
	if !ok {
		return 0, asureerr.ErrNameMissing
	}

	rest := make(map[string]string, len(tags)-1)
	for k, v := range tags {
		if k != "name" {
			rest[k] = v
		}
	}

	next := 1
	for _, d := range h.Deltas {
		if d.Number >= next {
			next = d.Number + 1
		}
	}

	h.Deltas = append(h.Deltas, DeltaInfo{Name: name, Number: next, Tags: rest, Time: stamp})
	return next, nil
}

// Find returns the DeltaInfo with the given name, if any.
func (h Header) Find(name string) (DeltaInfo, bool) {
	for _, d := range h.Deltas {
		if d.Name == name {
			return d, true
		}
	}
	return DeltaInfo{}, false
}

// Latest returns the largest delta number in the header; panics on a
// header with no deltas, mirroring the upstream behavior of treating an
// empty weave as a construction bug rather than a recoverable state.
func (h Header) Latest() int {
	if len(h.Deltas) == 0 {
		panic("weave: header has no deltas")
	}
	best := h.Deltas[0].Number
	for _, d := range h.Deltas[1:] {
		if d.Number > best {
			best = d.Number
		}
	}
	return best
}

// SortedNames returns every delta's name, ordered for display by
// ascending delta number.
func (h Header) SortedNames() []string {
	deltas := append([]DeltaInfo(nil), h.Deltas...)
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].Number < deltas[j].Number })
	names := make([]string, len(deltas))
	for i, d := range deltas {
		names[i] = d.Name
	}
	return names
}
