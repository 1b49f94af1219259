package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hussaintmg/Population-Weather-App/internal/dashboard"
)

// filterFlags are the selection flags shared by summary and export.
type filterFlags struct {
	filters []string
	from    string
	to      string
}

func (f *filterFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.filters, "filter", nil, "restrict COLUMN to values: COLUMN=v1,v2 (repeatable; COLUMN= matches nothing)")
	cmd.Flags().StringVar(&f.from, "from", "", "first date to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.to, "to", "", "last date to include (YYYY-MM-DD)")
}

func (f *filterFlags) reset() {
	f.filters, f.from, f.to = nil, "", ""
}

// selection parses the flags into a dashboard.Selection.
func (f *filterFlags) selection() (dashboard.Selection, error) {
	sel := dashboard.Selection{}
	if len(f.filters) > 0 {
		sel.Filters = make(map[string][]string, len(f.filters))
	}
	for _, raw := range f.filters {
		col, vals, ok := strings.Cut(raw, "=")
		col = strings.TrimSpace(col)
		if !ok || col == "" {
			return sel, fmt.Errorf("invalid --filter %q (use COLUMN=v1,v2)", raw)
		}
		list := sel.Filters[col]
		if list == nil {
			list = []string{}
		}
		for _, v := range strings.Split(vals, ",") {
			if v = strings.TrimSpace(v); v != "" {
				list = append(list, v)
			}
		}
		sel.Filters[col] = list
	}
	var err error
	if sel.From, err = parseDay("--from", f.from); err != nil {
		return sel, err
	}
	if sel.To, err = parseDay("--to", f.to); err != nil {
		return sel, err
	}
	return sel, nil
}

func parseDay(flag, s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid %s date %q (use YYYY-MM-DD)", flag, s)
	}
	return &t, nil
}
