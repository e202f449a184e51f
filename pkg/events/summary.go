package events

import (
	"fmt"
	"strings"
)

type Summary struct {
	Warnings []Event
	Errors   []Event
}

func (s Summary) String() string {
	var b strings.Builder
	section := func(title string, list []Event) {
		if len(list) == 0 {
			return
		}
		fmt.Fprintf(&b, "%s (%d):\n", title, len(list))
		for _, ev := range list {
			b.WriteString("- ")
			if ev.Stage != "" {
				b.WriteString(ev.Stage + ": ")
			}
			if ev.Path != "" {
				b.WriteString(ev.Path + ": ")
			}
			b.WriteString(ev.Message)
			if ev.Error != nil {
				fmt.Fprintf(&b, " (%s)", ev.Error)
			}
			b.WriteString("\n")
		}
	}
	section("Errors", s.Errors)
	section("Warnings", s.Warnings)
	return strings.TrimSuffix(b.String(), "\n")
}
