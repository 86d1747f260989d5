// registry-qc scans a JSON batch of import records for file-number
// formatting defects and prints the issues with their suggested fixes.
// With -apply it writes the auto-fixed batch to stdout instead.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/joelkehle/registry-intake/internal/qc"
)

func main() {
	var (
		input = flag.String("in", "-", "Input file holding a JSON array of records (- for stdin)")
		field = flag.String("field", qc.DefaultField, "Record field holding the file number")
		apply = flag.Bool("apply", false, "Apply every suggested fix and print the resulting records as JSON")
	)
	flag.Parse()

	var r io.Reader = os.Stdin
	if *input != "-" {
		f, err := os.Open(*input)
		if err != nil {
			log.Fatalf("open input: %v", err)
		}
		defer f.Close()
		r = f
	}

	var records []qc.Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		log.Fatalf("decode records: %v", err)
	}

	engine := &qc.Engine{Field: *field}
	issues := engine.Scan(records)

	if *apply {
		// One fix per record per pass, re-scanning between passes: a record
		// can carry several issue types at once and fixing one can change
		// what the next scan reports.
		remaining := issues
		for pass := 0; pass < 5 && len(remaining) > 0; pass++ {
			applied := map[int]bool{}
			var fixes []qc.Fix
			for _, is := range remaining {
				if !is.AutoFixable || applied[is.RecordIndex] {
					continue
				}
				applied[is.RecordIndex] = true
				fixes = append(fixes, qc.Fix{RecordIndex: is.RecordIndex, Value: is.SuggestedFix})
			}
			if len(fixes) == 0 {
				break
			}
			remaining = engine.ApplyFixes(records, fixes)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(records); err != nil {
			log.Fatalf("encode records: %v", err)
		}
		if len(remaining) > 0 {
			log.Printf("%d issue(s) remain after fixes", len(remaining))
		}
		return
	}

	if len(issues) == 0 {
		fmt.Printf("%d record(s) scanned, no issues\n", len(records))
		return
	}
	counts := qc.CountByType(issues)
	fmt.Printf("%d record(s) scanned, %d issue(s): padding=%d year=%d spacing=%d temp=%d\n",
		len(records), len(issues),
		counts[qc.IssuePadding], counts[qc.IssueYear], counts[qc.IssueSpacing], counts[qc.IssueTemp])
	for _, is := range issues {
		fmt.Printf("  #%d %-8s %-10s %q -> %q  (%s)\n",
			is.RecordIndex, is.Severity, is.Type, is.FileNumber, is.SuggestedFix, is.Description)
	}
	os.Exit(1)
}
