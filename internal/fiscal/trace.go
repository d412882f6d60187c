package fiscal

// Section names a region of a document handled by one scanner.
type Section string

const (
	SectionPendenciasDebito       Section = "pendencias_debito"
	SectionDebitosExigSuspensa    Section = "debitos_exig_suspensa"
	SectionParcelamentosSiefpar   Section = "parcelamentos_siefpar"
	SectionPendenciasInscricao    Section = "pendencias_inscricao"
	SectionPendenciasParcelamento Section = "pendencias_parcelamento"
	SectionDarfComposicao         Section = "darf_composicao"
)

// SkipReason explains why a candidate record was dropped.
type SkipReason string

const (
	SkipIncomplete   SkipReason = "required fields missing"
	SkipTruncated    SkipReason = "block truncated by end of input"
	SkipMissingValue SkipReason = "value line not found"
)

type EventKind int

const (
	EventSectionEnter EventKind = iota
	EventSectionExit
	EventRecord
	EventSkip
)

func (k EventKind) String() string {
	switch k {
	case EventSectionEnter:
		return "section_enter"
	case EventSectionExit:
		return "section_exit"
	case EventRecord:
		return "record"
	case EventSkip:
		return "skip"
	}
	return "unknown"
}

// Event is reported to a Trace while scanning. Line is zero-based.
type Event struct {
	Kind    EventKind
	Section Section
	Line    int
	Reason  SkipReason
}

// Trace observes scanner progress. Scanners of a report run concurrently, so a Trace
// must be safe for concurrent use.
type Trace func(Event)

func (t Trace) emit(e Event) {
	if t != nil {
		t(e)
	}
}

// Option tunes an extraction run.
type Option func(*options)

type options struct {
	trace Trace
}

// WithTrace installs an observer for scanner events.
func WithTrace(t Trace) Option {
	return func(o *options) { o.trace = t }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
