package sanitizer

// SectionPart is a non-indented line and the indented lines that follow it.
type SectionPart struct {
	// RelevantStackTraces holds the traces that identify the root cause, in
	// the order they appear. Empty for parts with no relevant trace.
	RelevantStackTraces []StackTrace
}

// parsePart finds the relevant stack traces of one section part.
//
// Begin patterns for the error name are consumed in order. After a line matches
// the current pattern, following frame lines form a candidate trace; the first
// non-frame line closes it and is then checked against the next pattern. Parsing
// stops once every pattern has produced a trace. A candidate with no frames is
// discarded without consuming its pattern.
//
// Traces without an in-codebase frame are reported in errs and skipped.
func (p *Parser) parsePart(errorName string, lines []string) (SectionPart, []error) {
	begins := p.table.Lookup(errorName)

	var (
		traces    []StackTrace
		errs      []error
		closed    int
		candidate []string
		inTrace   bool
	)

	closeCandidate := func() {
		inTrace = false
		if len(candidate) == 0 {
			return
		}
		closed++
		st, err := p.extractor.Extract(candidate)
		candidate = nil
		if err != nil {
			errs = append(errs, err)
			return
		}
		traces = append(traces, st)
	}

	for _, line := range lines {
		if inTrace {
			if stackFramePattern.MatchString(line) {
				candidate = append(candidate, line)
				continue
			}
			closeCandidate()
			if closed == len(begins) {
				break
			}
		}

		if begins[closed].MatchString(line) {
			inTrace = true
		}
	}

	if inTrace {
		closeCandidate()
	}

	return SectionPart{RelevantStackTraces: traces}, errs
}
