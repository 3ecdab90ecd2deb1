package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders a period report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# Period %d Report\n\n", r.Period))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Pool: %s\n\n", r.PoolID))
	sb.WriteString(fmt.Sprintf("Blocks: %d - %d\n\n", r.StartBlock, r.EndBlock))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Currency0 | %s |\n", r.Currency0))
	sb.WriteString(fmt.Sprintf("| Currency1 | %s |\n", r.Currency1))
	sb.WriteString(fmt.Sprintf("| Denominator | %s |\n", r.Denominator))
	sb.WriteString(fmt.Sprintf("| Positions | %d |\n", r.PositionCount))
	sb.WriteString(fmt.Sprintf("| Liquidity Providers | %d |\n", r.LPCount))
	sb.WriteString(fmt.Sprintf("| Total Fees (currency0) | %s |\n", r.TotalFees0.String()))
	sb.WriteString(fmt.Sprintf("| Total Fees (currency1) | %s |\n", r.TotalFees1.String()))
	sb.WriteString(fmt.Sprintf("| Total Fees (denominator) | %s |\n", r.TotalDenominator.String()))
	sb.WriteString(fmt.Sprintf("| Total Reward Distributed | %s |\n", r.TotalReward.String()))
	sb.WriteString("\n")

	// Per-LP table
	sb.WriteString("## Rewards\n\n")
	if len(r.Rows) > 0 {
		sb.WriteString("| Owner | Fees0 | Fees1 | FeesDenominator | Reward |\n")
		sb.WriteString("|-------|-------|-------|-----------------|--------|\n")
		for _, row := range r.Rows {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
				row.Owner, row.Fees0.String(), row.Fees1.String(),
				row.FeesDenominator.String(), row.Reward.String()))
		}
	} else {
		sb.WriteString("No fees were attributed this period.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
