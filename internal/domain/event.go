package domain

// TransactionEvent is one observed on-chain transaction, as seen in the
// mempool feed before finalization.
type TransactionEvent struct {
	Signature  string   `json:"signature"`  // Solana transaction signature, unique within retention window
	Slot       int64    `json:"slot"`       // ledger slot number, monotonically non-decreasing
	ObservedAt int64    `json:"observedAt"` // ingestion wall-clock time, Unix ms (not ledger time)
	Sender     string   `json:"sender"`     // fee payer / proposing account
	ProgramIDs []string `json:"programIds"` // unique program ids invoked by the transaction
}

// HasProgram reports whether the event invoked the given program.
func (e *TransactionEvent) HasProgram(programID string) bool {
	for _, id := range e.ProgramIDs {
		if id == programID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the event.
func (e *TransactionEvent) Clone() *TransactionEvent {
	c := *e
	c.ProgramIDs = append([]string(nil), e.ProgramIDs...)
	return &c
}
