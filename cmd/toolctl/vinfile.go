package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// readVINs reads VINs from CSV. When the header row has a "vin" column only
// that column is used; otherwise the first field of every row is a VIN.
// Blank rows and rows starting with # are skipped.
func readVINs(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	col := 0
	if i := columnIndex(rows[0], "vin"); i >= 0 {
		col = i
		rows = rows[1:]
	}

	vins := make([]string, 0, len(rows))
	for _, row := range rows {
		if col >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[col]); v != "" {
			vins = append(vins, v)
		}
	}
	return vins, nil
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

// collectVINs merges positional VINs with those read from file ("-" is stdin).
func collectVINs(cmd *cobra.Command, args []string, file string) ([]string, error) {
	vins := append([]string(nil), args...)
	if file == "" {
		return vins, nil
	}

	var r io.Reader = cmd.InOrStdin()
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("open vin file: %w", err)
		}
		defer f.Close()
		r = f
	}
	fromFile, err := readVINs(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return append(vins, fromFile...), nil
}
