package agent

import (
	"fmt"
	"reflect"
	"strings"
)

// Summarize builds the reply used when the model cannot compose one. The
// output depends only on results.
func Summarize(results []CommandResult) string {
	if len(results) == 0 {
		return msgNoCommand
	}

	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n")
		}
		switch {
		case r.Success:
			fmt.Fprintf(&b, "%s completed", r.Command)
			if n, ok := itemCount(r.Payload); ok {
				fmt.Fprintf(&b, ": %d item(s)", n)
			}
			b.WriteString(".")
		case r.ErrorKind == ErrorKindValidation:
			fmt.Fprintf(&b, "%s was not run because its parameters are invalid: %s.", r.Command, r.Error)
		default:
			fmt.Fprintf(&b, "%s failed: %s.", r.Command, r.Error)
		}
	}
	return b.String()
}

func itemCount(payload any) (int, bool) {
	if payload == nil {
		return 0, false
	}
	v := reflect.ValueOf(payload)
	if v.Kind() == reflect.Slice {
		return v.Len(), true
	}
	return 0, false
}
