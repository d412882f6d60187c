package fiscal

import (
	"regexp"
	"strings"
)

var (
	cnpjLine = regexp.MustCompile(`CNPJ:\s*(\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2})`)
	cnoLine  = regexp.MustCompile(`CNO:\s*([\d./-]+)`)

	// "1234-56 - DESCRIÇÃO DA RECEITA"
	revenueLine = regexp.MustCompile(`^(\d{4}-\d{2}\s+-\s+.*)`)
	// revenue code fragment, used to keep codes out of free-text fields
	revenueCode = regexp.MustCompile(`\d{4}-\d{2}`)

	sectionBoundary = regexp.MustCompile(`(?i)^(?:Pendência|Pendencia|Parcelamento|Processo|Inscrição|Débito\s+com\s+Exigibilidade)`)
	reportEnd       = regexp.MustCompile(`(?i)Final\s+do\s+Relatório`)
	horizontalRule  = regexp.MustCompile(`^\s*_{10,}\s*$`)
	pgfnDiagnostic  = regexp.MustCompile(`(?i)Diagnóstico\s+Fiscal\s+na\s+Procuradoria-Geral`)

	// SIEFPAR sections list the plans themselves as "Parcelamento: N", so the boundary
	// for that section leaves the word out.
	siefparBoundary = regexp.MustCompile(`(?i)^(?:Pendência|Pendencia|Processo|Inscrição|Débito\s+com\s+Exigibilidade)`)
)

var baseEnds = []*regexp.Regexp{sectionBoundary, reportEnd, horizontalRule}

// Result is the outcome of one record attempt: either a record with the cursor to resume
// from, or a reason for skipping it.
type Result[T any] struct {
	Record T
	Next   int
	Skip   SkipReason
}

func (r Result[T]) ok() bool { return r.Skip == "" }

func emit[T any](rec T, next int) Result[T] {
	return Result[T]{Record: rec, Next: next}
}

func skip[T any](reason SkipReason) Result[T] {
	return Result[T]{Skip: reason}
}

// blockContext is the context key held while inside a section. The CNPJ applies
// until the next CNPJ line; the CNO until the next CNPJ or emitted record.
type blockContext struct {
	cnpj string
	cno  string
}

// sectionScanner describes how one section type is found and read.
type sectionScanner[T any] struct {
	section   Section
	start     *regexp.Regexp
	ends      []*regexp.Regexp
	trackCNO  bool
	resetsCNO bool
	isHeader  func(line string) bool
	isRecord  func(line string) bool
	parse     func(lines []string, i int, ctx blockContext) Result[T]
}

func (s *sectionScanner[T]) isEnd(line string) bool {
	return matchesAny(s.ends, line)
}

func matchesAny(res []*regexp.Regexp, line string) bool {
	for _, re := range res {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// scan walks every line once. Leaving a section only returns the scanner to the seeking
// state, so later occurrences of the same section are read as well. The line that ended
// a section is examined again as a possible start.
func (s *sectionScanner[T]) scan(lines []string, trace Trace) []T {
	out := []T{}
	var ctx blockContext
	inSection := false

	for i := 0; i < len(lines); {
		line := strings.TrimSpace(lines[i])

		if !inSection {
			if s.start.MatchString(line) {
				inSection = true
				ctx = blockContext{}
				trace.emit(Event{Kind: EventSectionEnter, Section: s.section, Line: i})
			}
			i++
			continue
		}

		if s.isEnd(line) {
			inSection = false
			trace.emit(Event{Kind: EventSectionExit, Section: s.section, Line: i})
			continue
		}

		if line == "" {
			i++
			continue
		}

		if m := cnpjLine.FindStringSubmatch(line); m != nil {
			ctx.cnpj = m[1]
			ctx.cno = ""
			i++
			continue
		}

		if s.trackCNO {
			if m := cnoLine.FindStringSubmatch(line); m != nil {
				ctx.cno = m[1]
			}
		}

		if s.isHeader != nil && s.isHeader(line) {
			i++
			continue
		}

		if ctx.cnpj != "" && s.isRecord(line) {
			res := s.parse(lines, i, ctx)
			if !res.ok() {
				trace.emit(Event{Kind: EventSkip, Section: s.section, Line: i, Reason: res.Skip})
				i++
				continue
			}
			out = append(out, res.Record)
			trace.emit(Event{Kind: EventRecord, Section: s.section, Line: i})
			if s.resetsCNO {
				ctx.cno = ""
			}
			i = res.Next
			continue
		}

		i++
	}
	return out
}

func containsAll(line string, subs ...string) bool {
	for _, s := range subs {
		if !strings.Contains(line, s) {
			return false
		}
	}
	return true
}

// block returns the n trimmed lines following index i, or false when the input ends first.
func block(lines []string, i, n int) ([]string, bool) {
	if i+n >= len(lines) {
		return nil, false
	}
	out := make([]string, n)
	for k := 0; k < n; k++ {
		out[k] = strings.TrimSpace(lines[i+1+k])
	}
	return out, true
}
