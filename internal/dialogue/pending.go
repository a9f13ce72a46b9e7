package dialogue

// PendingAction is the multi-stage pending-action slot of spec.md §4.4.6: a
// tagged variant identifying what to do on the next OK. Modeled as a
// closed set of Go types rather than an integer discriminator plus a
// parallel string array, per the spec's Design Notes.
type PendingAction interface {
	isPendingAction()
}

// PendingNone is the idle state: the next OK closes some exchange that has
// no follow-up action (CREG, CMGD, CHUP, the OK that closes a CMGS send).
type PendingNone struct{}

// PendingSignalQuery means: on the next OK, issue AT+CSQ.
type PendingSignalQuery struct{}

// PendingAck means: on the next OK, send an SMS with Text to the
// configured telephone number.
type PendingAck struct {
	Text string
}

// PendingCSQAck means: the CSQ probe has already been parsed into Text; on
// the next OK, send it as an SMS. Kept distinct from PendingAck so the
// state machine of spec.md §4.4.6 is represented literally, even though
// both variants perform the same action.
type PendingCSQAck struct {
	Text string
}

func (PendingNone) isPendingAction()        {}
func (PendingSignalQuery) isPendingAction() {}
func (PendingAck) isPendingAction()         {}
func (PendingCSQAck) isPendingAction()      {}
