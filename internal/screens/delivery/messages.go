package delivery

import (
	dlv "github.com/candidus/assessor/internal/delivery"
)

// machineUpdateMsg carries one notification from the machine.
type machineUpdateMsg dlv.Update

// machineDoneMsg is sent once the machine's update stream closes.
type machineDoneMsg struct{}

// opDoneMsg reports the outcome of an operation run off the UI goroutine.
type opDoneMsg struct {
	Op  string
	Err error
}

// answerCapturedMsg reports that a typed answer reached the machine, or
// why it was dropped.
type answerCapturedMsg struct {
	Err error
}
