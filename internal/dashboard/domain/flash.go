package domain

type FlashKind string

const (
	FlashSuccess FlashKind = "success"
	FlashError   FlashKind = "error"
)

// Flash is a one-shot message shown on the next page render.
type Flash struct {
	Kind    FlashKind
	Message string
}
