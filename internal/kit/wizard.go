package kit

import "strings"

// Step es un paso del wizard del armador. Secuencia lineal, sin saltos
// ni vuelta circular.
type Step int

const (
	StepName Step = iota
	StepSelect
	StepCustomize
	StepSummary
)

func (s Step) String() string {
	switch s {
	case StepName:
		return "name"
	case StepSelect:
		return "select"
	case StepCustomize:
		return "customize"
	case StepSummary:
		return "summary"
	}
	return "unknown"
}

func StepFrom(s string) (Step, bool) {
	switch s {
	case "name":
		return StepName, true
	case "select":
		return StepSelect, true
	case "customize":
		return StepCustomize, true
	case "summary":
		return StepSummary, true
	}
	return StepName, false
}

func (b *Builder) Step() Step { return b.step }

// CanContinue es el guard de avance del paso actual: name pide nombre no
// vacío, select pide al menos un ítem y llegar al monto mínimo. Los
// pasos de personalización y resumen no tienen guard propio.
func (b *Builder) CanContinue() bool {
	switch b.step {
	case StepName:
		return strings.TrimSpace(b.name) != ""
	case StepSelect:
		return len(b.selected) > 0 && b.Totals().CanOrder
	}
	return true
}

// Next avanza exactamente un paso. El guard vive acá adentro, no sólo en
// la UI: invocar la transición directo con un paso inválido tampoco
// avanza. No-op en summary.
func (b *Builder) Next() bool {
	if b.step >= StepSummary || !b.CanContinue() {
		return false
	}
	b.step++
	return true
}

// Prev retrocede exactamente un paso, sin guard. No-op en name.
func (b *Builder) Prev() bool {
	if b.step <= StepName {
		return false
	}
	b.step--
	return true
}
