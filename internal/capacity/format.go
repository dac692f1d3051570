package capacity

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/mohammed-shakir/repp-atlas/internal/plants"
)

var listingHeader = []string{"name", "country", "source", "capacity_mw", "stat_ele", "stat_inf", "lon", "lat"}

func listingRow(p plants.Plant) []string {
	return []string{
		p.Name, p.Country, string(p.Source),
		strconv.FormatFloat(p.CapacityMW, 'f', -1, 64),
		string(p.ElecStatus), string(p.InfraStatus),
		strconv.FormatFloat(p.Lon, 'f', -1, 64),
		strconv.FormatFloat(p.Lat, 'f', -1, 64),
	}
}

// WriteListingCSV writes plants as CSV with a header row.
func WriteListingCSV(w io.Writer, t plants.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(listingHeader); err != nil {
		return err
	}
	for _, p := range t {
		if err := cw.Write(listingRow(p)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteListingText writes plants as an aligned table for terminals.
func WriteListingText(w io.Writer, t plants.Table) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSOURCE\tCAPACITY (MW)\tSTATUS\tINFRA\tLON\tLAT")
	for _, p := range t {
		name := p.Name
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%.1f\t%s\t%s\t%.4f\t%.4f\n",
			name, p.Source, p.CapacityMW, p.ElecStatus.Label(), p.InfraStatus.Label(), p.Lon, p.Lat)
	}
	return tw.Flush()
}

// WritePivotText writes a country by source table with row totals.
func WritePivotText(w io.Writer, p Pivot) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(tw, "COUNTRY\t")
	for _, s := range p.Sources {
		fmt.Fprintf(tw, "%s\t", s)
	}
	fmt.Fprintln(tw, "TOTAL\t")
	for i, c := range p.Countries {
		fmt.Fprintf(tw, "%s\t", c)
		for _, v := range p.Values[i] {
			fmt.Fprintf(tw, "%.1f\t", v)
		}
		fmt.Fprintf(tw, "%.1f\t\n", p.RowTotal(i))
	}
	return tw.Flush()
}

// WriteComparisonText writes operating against planned capacity per source.
func WriteComparisonText(w io.Writer, cs []Comparison) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "SOURCE\tOPERATING (MW)\tPLANNED (MW)\t")
	for _, c := range cs {
		fmt.Fprintf(tw, "%s\t%.1f\t%.1f\t\n", c.Source, c.Operating, c.Planned)
	}
	return tw.Flush()
}
