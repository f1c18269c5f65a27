package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders the bucket analysis rows as a CSV string.
func RenderCSV(buckets []BucketRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("bucket,samples,conv_rate_mean,conv_relative,conv_p_value,")
	sb.WriteString("return_mean,return_relative,return_p_value,")
	sb.WriteString("confidence,classification,recommended\n")

	// Rows
	for _, b := range buckets {
		sb.WriteString(fmt.Sprintf("%s,%d,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%s,%s,%.2f\n",
			b.Key,
			b.Samples,
			b.ConvRateMean,
			b.ConvRelative,
			b.ConvPValue,
			b.ReturnMean,
			b.ReturnRelative,
			b.ReturnPValue,
			b.Confidence,
			b.Classification,
			b.Recommended,
		))
	}

	return sb.String()
}
