package cli

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/mozilla-releng/linux-pkg-manager/pkg/retention"
)

// writeReport prints the pre-deletion summary. It always runs before any
// deletion, so a failed or dry-run execution is still informative.
func writeReport(out io.Writer, plan *retention.Plan) {
	fmt.Fprintf(out, "Found %s packages with expired versions\n",
		humanize.Comma(int64(len(plan.TargetsByScope))))
	fmt.Fprintf(out, "There's a total of %s expired versions to clean up\n",
		humanize.Comma(int64(plan.TotalTargets())))
	fmt.Fprintf(out, "Out of those versions, %s are unique across all packages\n",
		humanize.Comma(int64(len(plan.UniqueVersions))))

	if len(plan.UniqueVersions) == 0 {
		return
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Unique Expired Version"})
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, version := range plan.UniqueVersions {
		table.Append([]string{version})
	}

	table.Render()
}
