package alerter

import (
	"github.com/gen2brain/beeep"
)

// Desktop shows a local notification for operators running checks
// interactively. It is not one of the tracked alert channels and never
// touches incident state.
type Desktop struct{}

func NewDesktop() *Desktop {
	return &Desktop{}
}

func (d *Desktop) Down(title, message string) error {
	return beeep.Alert(title, message, "")
}

func (d *Desktop) Up(title, message string) error {
	return beeep.Notify(title, message, "")
}
