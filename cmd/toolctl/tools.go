package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/webtools-service/internal/convert"
	"github.com/couchcryptid/webtools-service/internal/discord"
	"github.com/couchcryptid/webtools-service/internal/markdown"
	"github.com/couchcryptid/webtools-service/internal/snowday"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// parseDimension reads a length such as "8ft", "2.5 in" or "96" (inches).
func parseDimension(s string) (convert.Dimension, error) {
	s = strings.TrimSpace(s)
	num, unit := s, ""
	if i := strings.IndexFunc(s, func(r rune) bool {
		return !unicode.IsDigit(r) && r != '.' && r != '-' && r != '+'
	}); i >= 0 {
		num, unit = s[:i], strings.TrimSpace(s[i:])
	}

	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return convert.Dimension{}, fmt.Errorf("%w: %q is not a length", convert.ErrInvalidDimension, s)
	}
	d := convert.Dimension{Value: v}
	if unit != "" {
		u, err := convert.ParseUnit(unit)
		if err != nil {
			return convert.Dimension{}, err
		}
		d.Unit = u
	}
	return d, nil
}

func newBoardFeetCmd(opts *rootOptions) *cobra.Command {
	var (
		length, width, thickness string
		in                       convert.BoardInput
	)

	cmd := &cobra.Command{
		Use:   "boardfeet",
		Short: "Compute board feet for lumber",
		Example: `  toolctl boardfeet --length 8ft --width 6 --thickness 2 --quantity 10
  toolctl boardfeet --length 2.4m --width 15cm --thickness 5cm --price 4.25`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if in.Length, err = parseDimension(length); err != nil {
				return fmt.Errorf("length: %w", err)
			}
			if in.Width, err = parseDimension(width); err != nil {
				return fmt.Errorf("width: %w", err)
			}
			if in.Thickness, err = parseDimension(thickness); err != nil {
				return fmt.Errorf("thickness: %w", err)
			}

			res, err := convert.BoardFeet(in)
			if err != nil {
				return err
			}
			return opts.print(cmd, res, func(w io.Writer) error {
				pieces := "pieces"
				if res.Quantity == 1 {
					pieces = "piece"
				}
				fmt.Fprintf(w, "%s board feet (%d %s, %s × %s × %s in)\n",
					formatFloat(res.BoardFeet), res.Quantity, pieces,
					formatFloat(convert.Round(res.LengthIn, 3)),
					formatFloat(convert.Round(res.WidthIn, 3)),
					formatFloat(convert.Round(res.ThicknessIn, 3)))
				if res.TotalCost != nil {
					fmt.Fprintf(w, "Total cost: %.2f\n", *res.TotalCost)
				}
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&length, "length", "", "board length, e.g. 8ft or 96 (inches)")
	f.StringVar(&width, "width", "", "board width")
	f.StringVar(&thickness, "thickness", "", "board thickness")
	f.IntVar(&in.Quantity, "quantity", 1, "number of pieces")
	f.IntVar(&in.Precision, "precision", convert.DefaultPrecision, "decimal places (0-3)")
	f.Float64Var(&in.PricePerBoardFoot, "price", 0, "price per board foot")
	_ = cmd.MarkFlagRequired("length")
	_ = cmd.MarkFlagRequired("width")
	_ = cmd.MarkFlagRequired("thickness")
	return cmd
}

type conversion struct {
	Value  float64      `json:"value" yaml:"value"`
	From   convert.Unit `json:"from" yaml:"from"`
	To     convert.Unit `json:"to" yaml:"to"`
	DPI    float64      `json:"dpi" yaml:"dpi"`
	Result float64      `json:"result" yaml:"result"`
}

func newConvertCmd(opts *rootOptions) *cobra.Command {
	var (
		dpi    float64
		places int
	)

	cmd := &cobra.Command{
		Use:     "convert VALUE FROM TO",
		Short:   "Convert a length between in, ft, yd, mm, cm, m and px",
		Example: "  toolctl convert 12 in cm\n  toolctl convert 1200 px in --dpi 300",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("value %q is not a number", args[0])
			}
			from, err := convert.ParseUnit(args[1])
			if err != nil {
				return err
			}
			to, err := convert.ParseUnit(args[2])
			if err != nil {
				return err
			}
			out, err := convert.Convert(value, from, to, dpi)
			if err != nil {
				return err
			}

			c := conversion{Value: value, From: from, To: to, DPI: dpi, Result: convert.Round(out, places)}
			return opts.print(cmd, c, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s %s = %s %s\n", formatFloat(c.Value), c.From, formatFloat(c.Result), c.To)
				return err
			})
		},
	}
	cmd.Flags().Float64Var(&dpi, "dpi", convert.DefaultDPI, "pixels per inch for px conversions")
	cmd.Flags().IntVar(&places, "places", 6, "decimal places in the result")
	return cmd
}

func newDiscordCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discord",
		Short: "Build and read Discord timestamp markup",
	}
	cmd.AddCommand(newDiscordGenerateCmd(opts), newDiscordParseCmd(opts))
	return cmd
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q", name)
	}
	return loc, nil
}

func newDiscordGenerateCmd(opts *rootOptions) *cobra.Command {
	var (
		at    string
		unix  int64
		style string
		tz    string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Print timestamp markup for a moment (default now) in every style",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loc, err := loadLocation(tz)
			if err != nil {
				return err
			}
			now := time.Now()
			t := now
			switch {
			case at != "":
				if t, err = time.ParseInLocation("2006-01-02T15:04", at, loc); err != nil {
					if t, err = time.Parse(time.RFC3339, at); err != nil {
						return fmt.Errorf("--at %q: want RFC3339 or 2006-01-02T15:04", at)
					}
				}
			case cmd.Flags().Changed("unix"):
				t = time.Unix(unix, 0)
			}

			formats := discord.All(t, loc, now)
			if style != "" {
				markup, err := discord.Generate(t, style)
				if err != nil {
					return err
				}
				preview, _ := discord.Preview(t.Unix(), style, loc, now)
				formats = []discord.Formatted{{Style: style, Label: discord.Label(style), Markup: markup, Preview: preview}}
			}

			return opts.print(cmd, formats, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "STYLE\tLABEL\tMARKUP\tPREVIEW")
				for _, f := range formats {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Style, f.Label, f.Markup, f.Preview)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "moment as RFC3339 or local 2006-01-02T15:04")
	cmd.Flags().Int64Var(&unix, "unix", 0, "moment as Unix seconds")
	cmd.Flags().StringVar(&style, "style", "", "only this style: t, T, d, D, f, F or R")
	cmd.Flags().StringVar(&tz, "tz", "", "IANA timezone for previews (default local)")
	cmd.MarkFlagsMutuallyExclusive("at", "unix")
	return cmd
}

type parsedTimestamp struct {
	discord.Timestamp `yaml:",inline"`
	Label             string `json:"label" yaml:"label"`
	Preview           string `json:"preview" yaml:"preview"`
}

func newDiscordParseCmd(opts *rootOptions) *cobra.Command {
	var tz string

	cmd := &cobra.Command{
		Use:     "parse MARKUP",
		Short:   "Show the moment behind timestamp markup",
		Example: "  toolctl discord parse '<t:1714144200:R>'",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := discord.Parse(args[0])
			if err != nil {
				return err
			}
			loc, err := loadLocation(tz)
			if err != nil {
				return err
			}
			preview, err := discord.Preview(ts.Unix, ts.Style, loc, time.Now())
			if err != nil {
				return err
			}

			out := parsedTimestamp{Timestamp: ts, Label: discord.Label(ts.Style), Preview: preview}
			return opts.print(cmd, out, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s (%s)\nUnix: %d\nUTC:  %s\n",
					out.Preview, out.Label, ts.Unix, ts.Time.Format(time.RFC3339))
				return err
			})
		},
	}
	cmd.Flags().StringVar(&tz, "tz", "", "IANA timezone for the preview (default local)")
	return cmd
}

func newSnowDayCmd(opts *rootOptions) *cobra.Command {
	var (
		c    snowday.Conditions
		low  float64
		prep string
	)

	cmd := &cobra.Command{
		Use:     "snowday",
		Short:   "Estimate the chance of a snow day",
		Example: "  toolctl snowday --snow 6 --low 18 --overnight --prep low",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("low") {
				c.LowTempF = &low
			}
			p, err := snowday.ParsePreparedness(prep)
			if err != nil {
				return err
			}
			c.Preparedness = p
			if err := c.Validate(); err != nil {
				return err
			}

			res := snowday.Estimate(c)
			return opts.print(cmd, res, func(w io.Writer) error {
				fmt.Fprintf(w, "Snow day chance: %d%% (%s)\n", res.Probability, res.Category)
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				for _, f := range res.Factors {
					if f.Points != 0 {
						fmt.Fprintf(tw, "  %s\t%+g\n", f.Name, f.Points)
					}
				}
				fmt.Fprintf(tw, "  preparedness\t×%g\n", res.Multiplier)
				return tw.Flush()
			})
		},
	}

	f := cmd.Flags()
	f.Float64Var(&c.SnowfallInches, "snow", 0, "expected snowfall in inches")
	f.Float64Var(&c.IceInches, "ice", 0, "expected ice accumulation in inches")
	f.Float64Var(&low, "low", 0, "overnight low in °F")
	f.Float64Var(&c.WindMPH, "wind", 0, "sustained wind in mph")
	f.BoolVar(&c.Overnight, "overnight", false, "heaviest snow falls overnight or before the morning commute")
	f.StringVar(&prep, "prep", "medium", "district preparedness: low, medium or high")
	f.IntVar(&c.PriorSnowDays, "prior", 0, "snow days already used this year")
	return cmd
}

func newMarkdownCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "markdown [FILE]",
		Short: "Convert HTML to Markdown (reads stdin when FILE is omitted or -)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var src []byte
			var err error
			if len(args) == 0 || args[0] == "-" {
				src, err = io.ReadAll(cmd.InOrStdin())
			} else {
				src, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read html: %w", err)
			}
			if len(strings.TrimSpace(string(src))) == 0 {
				return errors.New("no HTML given")
			}

			md, err := markdown.Convert(string(src))
			if err != nil {
				return err
			}
			return opts.print(cmd, map[string]string{"markdown": md}, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, md)
				return err
			})
		},
	}
}
