package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
)

// printer writes either indented JSON or an aligned table.
type printer struct {
	w    io.Writer
	json bool
}

func (p printer) value(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// table prints rows when in text mode, or v as JSON otherwise.
func (p printer) table(v any, header []string, rows [][]string) error {
	if p.json {
		return p.value(v)
	}
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }

func money(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
