package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/tally-money/tally/internal/cli"
	"github.com/tally-money/tally/internal/model"
)

func importCmd() *cobra.Command {
	var (
		dateFormat string
		hasHeader  bool
	)

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import statement rows from a CSV file",
		Long: `Import a statement exported as CSV with columns date, description,
amount. Each distinct description becomes (or reuses) a counterparty
entity; run "tally classify" afterwards to categorize the new rows.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open statement: %w", err)
			}
			defer func() { _ = f.Close() }()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			reader := csv.NewReader(f)
			reader.FieldsPerRecord = 3
			reader.TrimLeadingSpace = true

			if hasHeader {
				if _, err := reader.Read(); err != nil && err != io.EOF {
					return fmt.Errorf("failed to read header: %w", err)
				}
			}

			bar := progressbar.Default(-1, "importing")
			entityIDs := make(map[string]int64)
			var txns []model.Transaction

			for line := 1; ; line++ {
				record, readErr := reader.Read()
				if readErr == io.EOF {
					break
				}
				if readErr != nil {
					return fmt.Errorf("row %d: %w", line, readErr)
				}

				date, parseErr := time.Parse(dateFormat, strings.TrimSpace(record[0]))
				if parseErr != nil {
					return fmt.Errorf("row %d: invalid date %q: %w", line, record[0], parseErr)
				}

				rawName := strings.TrimSpace(record[1])
				if rawName == "" {
					return fmt.Errorf("row %d: empty description", line)
				}

				amount, parseErr := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
				if parseErr != nil {
					return fmt.Errorf("row %d: invalid amount %q: %w", line, record[2], parseErr)
				}

				entityID, known := entityIDs[rawName]
				if !known {
					entity := &model.Entity{Name: rawName, Kind: model.KindCounterparty}
					if err := store.CreateEntity(ctx, entity); err != nil {
						return err
					}
					entityID = entity.ID
					entityIDs[rawName] = entityID
				}

				eid := entityID
				txns = append(txns, model.Transaction{
					Date:     date,
					RawName:  rawName,
					Amount:   amount,
					EntityID: &eid,
				})
				_ = bar.Add(1)
			}
			_ = bar.Finish()

			if err := store.SaveTransactions(ctx, txns); err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf(
				"%d transactions imported across %d counterparties", len(txns), len(entityIDs))))
			return nil
		},
	}

	cmd.Flags().StringVar(&dateFormat, "date-format", "2006-01-02", "Go layout for the date column")
	cmd.Flags().BoolVar(&hasHeader, "header", true, "skip the first row as a header")
	return cmd
}
