package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/feral-file/ff-affiliate-migrator/internal/domain"
)

// confirm asks a yes/no question, anything but y or yes declines
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s\nContinue? [y/N]: ", prompt)

	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// writeStatsTable prints legacy and migrated row counts per stage
func writeStatsTable(w io.Writer, legacy, migrated domain.StageCounts) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STAGE\tSOURCE\tMIGRATED")
	for _, stage := range domain.Stages() {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", stage, legacy[stage], migrated[stage])
	}
	return tw.Flush()
}
