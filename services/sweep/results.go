package sweep

import (
	"bufio"
	"fmt"
	"os"
)

// AppendResults appends one line per result to path, creating the file if
// missing. The format matches what the analysis tooling expects:
// "slug, sizing_ratio, balance, roi".
func AppendResults(path string, results []Result) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open results file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, r := range results {
		if _, err := fmt.Fprintln(w, r.Line()); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}
	return w.Flush()
}
