// Output formatting for the analysis verbs.
//
// All reports are tables: a list of named fields and one row of string values per record.  The
// -fmt argument selects the encoding and whether a header is printed.

package command

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"
)

type FormatKind int

const (
	FmtFixed FormatKind = iota
	FmtCsv
	FmtCsvNamed
	FmtJson
	FmtAwk
)

type FormatOptions struct {
	Kind   FormatKind
	Header bool
}

type FormatArgs struct {
	Fmt string

	// Set by Validate
	PrintOpts FormatOptions
}

func (fa *FormatArgs) Add(fs *flag.FlagSet) {
	fs.StringVar(&fa.Fmt, "fmt", "",
		"Select `format` of the output: fixed, csv, csvnamed, json, or awk,\n"+
			"optionally with \",noheader\" [default: fixed]")
}

func (fa *FormatArgs) ReifyForRemote(x *Reifier) error {
	x.String("fmt", fa.Fmt)
	return nil
}

func (fa *FormatArgs) Validate() error {
	fa.PrintOpts = FormatOptions{Kind: FmtFixed, Header: true}
	for _, w := range strings.Split(fa.Fmt, ",") {
		switch w {
		case "", "fixed":
			fa.PrintOpts.Kind = FmtFixed
		case "csv":
			fa.PrintOpts.Kind = FmtCsv
		case "csvnamed":
			fa.PrintOpts.Kind = FmtCsvNamed
		case "json":
			fa.PrintOpts.Kind = FmtJson
		case "awk":
			fa.PrintOpts.Kind = FmtAwk
		case "noheader":
			fa.PrintOpts.Header = false
		case "header":
			fa.PrintOpts.Header = true
		default:
			return fmt.Errorf("Unknown -fmt option %s", w)
		}
	}
	return nil
}

// FormatData prints one table.  `rows` are parallel with `fields` in each record.

func FormatData(out io.Writer, fields []string, rows [][]string, opts FormatOptions) error {
	switch opts.Kind {
	case FmtFixed:
		return formatFixed(out, fields, rows, opts.Header)
	case FmtCsv:
		w := csv.NewWriter(out)
		if opts.Header {
			if err := w.Write(fields); err != nil {
				return err
			}
		}
		if err := w.WriteAll(rows); err != nil {
			return err
		}
		w.Flush()
		return w.Error()
	case FmtCsvNamed:
		w := csv.NewWriter(out)
		named := make([]string, len(fields))
		for _, row := range rows {
			for i, f := range fields {
				named[i] = f + "=" + row[i]
			}
			if err := w.Write(named); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	case FmtJson:
		objs := make([]map[string]string, len(rows))
		for i, row := range rows {
			obj := make(map[string]string, len(fields))
			for j, f := range fields {
				obj[f] = row[j]
			}
			objs[i] = obj
		}
		enc := json.NewEncoder(out)
		return enc.Encode(objs)
	case FmtAwk:
		for _, row := range rows {
			ss := make([]string, len(row))
			for i, v := range row {
				ss[i] = strings.ReplaceAll(v, " ", "_")
			}
			if _, err := fmt.Fprintln(out, strings.Join(ss, " ")); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("Unknown format kind %d", opts.Kind)
}

func formatFixed(out io.Writer, fields []string, rows [][]string, header bool) error {
	widths := make([]int, len(fields))
	if header {
		for i, f := range fields {
			widths[i] = len(f)
		}
	}
	for _, row := range rows {
		for i, v := range row {
			if len(v) > widths[i] {
				widths[i] = len(v)
			}
		}
	}
	line := func(vs []string) error {
		var sb strings.Builder
		for i, v := range vs {
			if i < len(vs)-1 {
				fmt.Fprintf(&sb, "%-*s  ", widths[i], v)
			} else {
				sb.WriteString(v)
			}
		}
		_, err := fmt.Fprintln(out, strings.TrimRight(sb.String(), " "))
		return err
	}
	if header {
		if err := line(fields); err != nil {
			return err
		}
	}
	for _, row := range rows {
		if err := line(row); err != nil {
			return err
		}
	}
	return nil
}
