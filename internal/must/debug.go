package must

import (
	"fmt"
	"io"
	"log/slog"

	json "github.com/goccy/go-json"
)

// PrintJSON writes a as indented JSON, for debugging and inspection output.
func PrintJSON(w io.Writer, a any) {
	jsn, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		slog.Error("failed to print json", "type", fmt.Sprintf("%T", a), "err", err)
		return
	}

	fmt.Fprintln(w, string(jsn))
}
