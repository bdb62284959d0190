package weave

import "io"

// Sink receives a parsed weave pushed through Parser.ParseTo. All methods
// are optional; embed NopSink to only implement the ones that matter.
type Sink interface {
	Insert(delta int) error
	Delete(delta int) error
	End(delta int) error
	Plain(text string, keep bool) error
}

// NopSink implements Sink with no-ops, so a concrete sink only needs to
// override the methods it cares about.
type NopSink struct{}

func (NopSink) Insert(int) error          { return nil }
func (NopSink) Delete(int) error          { return nil }
func (NopSink) End(int) error             { return nil }
func (NopSink) Plain(string, bool) error  { return nil }

// Parser is a push-style wrapper around PullParser: ParseTo drives the
// pull parser and dispatches each Entry to a Sink, stopping either at end
// of input or just before the line that would become the lineno'th kept
// line (so a caller can splice new content in at that exact point).
type Parser struct {
	pull    *PullParser
	sink    Sink
	pending *string
	lineno  int
}

// NewParser wraps pull, dispatching entries to sink.
func NewParser(pull *PullParser, sink Sink) *Parser {
	return &Parser{pull: pull, sink: sink}
}

// Header returns the header decoded by the underlying pull parser.
func (p *Parser) Header() Header { return p.pull.Header() }

// ParseTo runs the parser until either the input is exhausted (returning
// 0, nil) or the lineno'th kept plain line is reached, in which case that
// line is held back (not yet delivered to the sink) and lineno is
// returned; a following call delivers the held-back line first. Passing
// lineno 0 runs to the end of input.
func (p *Parser) ParseTo(lineno int) (int, error) {
	if p.pending != nil {
		text := *p.pending
		p.pending = nil
		if err := p.sink.Plain(text, true); err != nil {
			return 0, err
		}
	}

	for {
		entry, err := p.pull.Next()
		if err == io.EOF {
			return 0, nil
		}
		if err != nil {
			return 0, err
		}

		switch entry.Kind {
		case EntryPlain:
			if entry.Keep {
				p.lineno++
				if p.lineno == lineno {
					p.pending = &entry.Text
					return lineno, nil
				}
			}
			if err := p.sink.Plain(entry.Text, entry.Keep); err != nil {
				return 0, err
			}
		case EntryInsert:
			if err := p.sink.Insert(entry.Delta); err != nil {
				return 0, err
			}
		case EntryDelete:
			if err := p.sink.Delete(entry.Delta); err != nil {
				return 0, err
			}
		case EntryEnd:
			if err := p.sink.End(entry.Delta); err != nil {
				return 0, err
			}
		case EntryControl:
			// ignored
		}
	}
}
