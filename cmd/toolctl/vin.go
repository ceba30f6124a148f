package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/webtools-service/internal/adapter/kafka"
	"github.com/couchcryptid/webtools-service/internal/adapter/nhtsa"
	"github.com/couchcryptid/webtools-service/internal/config"
	"github.com/couchcryptid/webtools-service/internal/domain"
	"github.com/couchcryptid/webtools-service/internal/lookup"
	"github.com/couchcryptid/webtools-service/internal/observability"
	"github.com/couchcryptid/webtools-service/internal/store"
)

func newVINCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vin",
		Short: "Decode VINs and manage the lookup cache and history",
	}
	cmd.AddCommand(
		newVINDecodeCmd(opts),
		newVINHistoryCmd(opts),
		newVINCacheCmd(opts),
		newVINValidateCmd(opts),
		newVINEnqueueCmd(opts),
	)
	return cmd
}

// withService opens the configured store, builds the lookup service over it
// and closes the store when fn returns.
func (o *rootOptions) withService(cmd *cobra.Command, fn func(ctx context.Context, svc *lookup.Service) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := o.cfg

	st, err := store.Open(ctx, store.Options{
		Backend:     cfg.StorageBackend,
		Path:        cfg.StoragePath,
		DatabaseURL: cfg.DatabaseURL,
		QuotaBytes:  cfg.StorageQuotaBytes,
	})
	if err != nil {
		return err
	}
	defer st.Close()

	logger := o.logger(cmd.ErrOrStderr())
	metrics := observability.NewUnregisteredMetrics()
	clock := clockwork.NewRealClock()

	cache := lookup.NewCache(ctx, st, lookup.CacheConfig{TTL: cfg.VINCacheTTL, MaxItems: cfg.VINCacheSize}, clock, logger, metrics)
	history := lookup.NewHistory(st, cfg.VINHistorySize, clock, logger, metrics)
	decoder := nhtsa.NewClient(cfg.VINAPIURL, cfg.VINAPITimeout, metrics, logger)
	svc := lookup.NewService(decoder, cache, history, clock, logger, metrics, lookup.WithStore(st))

	return fn(ctx, svc)
}

func newVINDecodeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "decode VIN [VIN...]",
		Short: "Decode one or more VINs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withService(cmd, func(ctx context.Context, svc *lookup.Service) error {
				results := make([]domain.LookupResult, 0, len(args))
				var errs []error
				for _, vin := range args {
					res, err := svc.Lookup(ctx, vin)
					if err != nil {
						errs = append(errs, err)
						continue
					}
					results = append(results, res)
				}

				if len(results) > 0 {
					err := opts.print(cmd, results, func(w io.Writer) error {
						if len(results) == 1 {
							return writeVehicle(w, results[0])
						}
						return writeResultTable(w, results)
					})
					if err != nil {
						return err
					}
				}
				return errors.Join(errs...)
			})
		},
	}
}

func writeVehicle(w io.Writer, res domain.LookupResult) error {
	v := res.Vehicle
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"VIN", v.VIN},
		{"Make", v.Make},
		{"Model", v.Model},
		{"Year", v.Year},
		{"Trim", v.Trim},
		{"Series", v.Series},
		{"Manufacturer", v.Manufacturer},
		{"Vehicle type", v.VehicleType},
		{"Body class", v.BodyClass},
		{"Drive type", v.DriveType},
		{"Fuel type", v.FuelType},
		{"Engine cylinders", v.EngineCylinders},
		{"Displacement (L)", v.DisplacementL},
		{"Transmission", v.Transmission},
		{"Doors", v.Doors},
		{"Plant city", v.PlantCity},
		{"Plant country", v.PlantCountry},
	}
	for _, r := range rows {
		if r[1] != "" {
			fmt.Fprintf(tw, "%s:\t%s\n", r[0], r[1])
		}
	}
	fmt.Fprintf(tw, "Source:\t%s\n", res.Source)
	fmt.Fprintf(tw, "Check digit:\t%s\n", checkDigitLabel(res.CheckDigitValid))
	return tw.Flush()
}

func writeResultTable(w io.Writer, results []domain.LookupResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VIN\tMAKE\tMODEL\tYEAR\tSOURCE\tCHECK DIGIT")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Vehicle.VIN, r.Vehicle.Make, r.Vehicle.Model, r.Vehicle.Year, r.Source, checkDigitLabel(r.CheckDigitValid))
	}
	return tw.Flush()
}

func checkDigitLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "mismatch"
}

func newVINHistoryCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent lookups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withService(cmd, func(ctx context.Context, svc *lookup.Service) error {
				items := svc.History(ctx)
				return opts.print(cmd, items, func(w io.Writer) error {
					if len(items) == 0 {
						_, err := fmt.Fprintln(w, "No lookups yet.")
						return err
					}
					tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
					fmt.Fprintln(tw, "ID\tVIN\tMAKE\tMODEL\tYEAR\tLOOKED UP")
					for _, it := range items {
						fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
							it.ID, it.VIN, it.Make, it.Model, it.Year,
							time.UnixMilli(it.Timestamp).Format("2006-01-02T15:04:05"))
					}
					return tw.Flush()
				})
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withService(cmd, func(ctx context.Context, svc *lookup.Service) error {
				svc.ClearHistory(ctx)
				fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
				return nil
			})
		},
	}

	rmCmd := &cobra.Command{
		Use:   "rm ID",
		Short: "Delete one history entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withService(cmd, func(ctx context.Context, svc *lookup.Service) error {
				svc.RemoveHistory(ctx, args[0])
				return nil
			})
		},
	}

	cmd.AddCommand(clearCmd, rmCmd)
	return cmd
}

func newVINCacheCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the decode cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withService(cmd, func(_ context.Context, svc *lookup.Service) error {
				stats := svc.CacheStats()
				return opts.print(cmd, stats, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Entries:   %d\nHits:      %d\nMisses:    %d\nEvictions: %d\n",
						stats.Entries, stats.Hits, stats.Misses, stats.Evictions)
					return err
				})
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop every cached decode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withService(cmd, func(ctx context.Context, svc *lookup.Service) error {
				svc.ClearCache(ctx)
				fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
				return nil
			})
		},
	}

	cmd.AddCommand(statsCmd, clearCmd)
	return cmd
}

// vinCheck is the offline verdict for one input.
type vinCheck struct {
	Input           string `json:"input" yaml:"input"`
	VIN             string `json:"vin" yaml:"vin"`
	Valid           bool   `json:"valid" yaml:"valid"`
	CheckDigitValid bool   `json:"checkDigitValid" yaml:"checkDigitValid"`
	Error           string `json:"error,omitempty" yaml:"error,omitempty"`
}

func checkVIN(input string) vinCheck {
	vin := domain.NormalizeVIN(input)
	c := vinCheck{Input: input, VIN: vin}
	if err := domain.ValidateVIN(vin); err != nil {
		c.Error = err.Error()
		return c
	}
	c.Valid = true
	c.CheckDigitValid = domain.CheckDigitValid(vin)
	return c
}

func newVINValidateCmd(opts *rootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "validate [VIN...]",
		Short: "Check VIN format and check digits without calling vPIC",
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := collectVINs(cmd, args, file)
			if err != nil {
				return err
			}
			if len(inputs) == 0 {
				return errors.New("no VINs given")
			}

			checks := make([]vinCheck, 0, len(inputs))
			invalid := 0
			for _, in := range inputs {
				c := checkVIN(in)
				if !c.Valid {
					invalid++
				}
				checks = append(checks, c)
			}

			err = opts.print(cmd, checks, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "VIN\tSTATUS\tDETAIL")
				for _, c := range checks {
					switch {
					case !c.Valid:
						fmt.Fprintf(tw, "%s\tinvalid\t%s\n", c.Input, c.Error)
					case !c.CheckDigitValid:
						fmt.Fprintf(tw, "%s\twarning\tcheck digit mismatch\n", c.VIN)
					default:
						fmt.Fprintf(tw, "%s\tok\t\n", c.VIN)
					}
				}
				return tw.Flush()
			})
			if err != nil {
				return err
			}
			if invalid > 0 {
				return fmt.Errorf("%d of %d VINs invalid", invalid, len(checks))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "CSV or line-per-VIN file to read (- for stdin)")
	return cmd
}

func newVINEnqueueCmd(opts *rootOptions) *cobra.Command {
	var (
		file    string
		brokers string
		topic   string
	)

	cmd := &cobra.Command{
		Use:   "enqueue [VIN...]",
		Short: "Queue VINs for the batch decode worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			vins, err := collectVINs(cmd, args, file)
			if err != nil {
				return err
			}
			if len(vins) == 0 {
				return errors.New("no VINs given")
			}

			cfg := *opts.cfg
			if brokers != "" {
				cfg.KafkaBrokers = config.ParseBrokers(brokers)
			}
			if topic != "" {
				cfg.KafkaSourceTopic = topic
			}
			if !cfg.KafkaEnabled() {
				return errors.New("no Kafka brokers: set KAFKA_BROKERS or --brokers")
			}

			w := kafka.NewRequestWriter(&cfg, opts.logger(cmd.ErrOrStderr()))
			defer w.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if err := w.Enqueue(ctx, vins); err != nil {
				return err
			}

			out := map[string]any{"enqueued": len(vins), "topic": cfg.KafkaSourceTopic}
			return opts.print(cmd, out, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Enqueued %d VINs on %s.\n", len(vins), cfg.KafkaSourceTopic)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "CSV or line-per-VIN file to read (- for stdin)")
	cmd.Flags().StringVar(&brokers, "brokers", "", "comma-separated Kafka brokers (default from KAFKA_BROKERS)")
	cmd.Flags().StringVar(&topic, "topic", "", "source topic (default from KAFKA_SOURCE_TOPIC)")
	return cmd
}
