package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders per-LP reward rows as a CSV string.
func RenderCSV(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("pool_id,period,owner,fees_currency0,fees_currency1,fees_denominator,reward\n")

	// Rows
	for _, row := range r.Rows {
		sb.WriteString(fmt.Sprintf("%s,%d,%s,%s,%s,%s,%s\n",
			r.PoolID,
			r.Period,
			row.Owner,
			row.Fees0.String(),
			row.Fees1.String(),
			row.FeesDenominator.String(),
			row.Reward.String(),
		))
	}

	return sb.String()
}
