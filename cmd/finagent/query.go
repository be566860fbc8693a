package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/irishask/financial-ai-agent/internal/cli"
	"github.com/irishask/financial-ai-agent/internal/model"
	"github.com/irishask/financial-ai-agent/internal/queryengine"
)

const flagDateLayout = "2006-01-02"

func queryCmd() *cobra.Command {
	var (
		userID    string
		startDate string
		endDate   string
		accounts  []string
		groups    []string
		subs      []string
		minAmount float64
		maxAmount float64
		direction string
		sortBy    string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run an explicit filter query against the ledger",
		Long: `Bypasses the conversational pipeline and executes a filter
specification directly. Useful for verifying an answer or scripting.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			spec := model.QuerySpec{
				UserID:           userID,
				AccountIDs:       accounts,
				CategoryGroupIDs: groups,
				SubCategoryIDs:   subs,
				Direction:        model.Direction(direction),
				Sort:             model.SortOrder(sortBy),
			}
			if startDate != "" {
				start, err := time.Parse(flagDateLayout, startDate)
				if err != nil {
					return fmt.Errorf("invalid --start date %q: %w", startDate, err)
				}
				spec.StartDate = &start
			}
			if endDate != "" {
				end, err := time.Parse(flagDateLayout, endDate)
				if err != nil {
					return fmt.Errorf("invalid --end date %q: %w", endDate, err)
				}
				spec.EndDate = &end
			}
			if cmd.Flags().Changed("min") {
				spec.MinAmount = &minAmount
			}
			if cmd.Flags().Changed("max") {
				spec.MaxAmount = &maxAmount
			}
			if cmd.Flags().Changed("limit") {
				spec.Limit = &limit
			}

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			ledger, err := store.Snapshot(ctx)
			if err != nil {
				return err
			}

			result, err := queryengine.Execute(spec, ledger)
			if err != nil {
				return err
			}

			printResult(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id to scope the query to (required)")
	cmd.Flags().StringVar(&startDate, "start", "", "start date (YYYY-MM-DD, inclusive)")
	cmd.Flags().StringVar(&endDate, "end", "", "end date (YYYY-MM-DD, inclusive)")
	cmd.Flags().StringSliceVar(&accounts, "account", nil, "account ids to include")
	cmd.Flags().StringSliceVar(&groups, "group", nil, "category group ids (CG prefix)")
	cmd.Flags().StringSliceVar(&subs, "subcategory", nil, "subcategory ids (C prefix)")
	cmd.Flags().Float64Var(&minAmount, "min", 0, "minimum absolute amount")
	cmd.Flags().Float64Var(&maxAmount, "max", 0, "maximum absolute amount")
	cmd.Flags().StringVar(&direction, "direction", "", "transaction direction (D, C, or BOTH)")
	cmd.Flags().StringVar(&sortBy, "sort", "", "sort order (date_asc or date_desc)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of rows to print")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func printResult(result model.QueryResult) {
	fmt.Println(cli.FormatTitle(fmt.Sprintf("%d transactions matched", result.Count)))
	if result.Count == 0 {
		return
	}

	fmt.Printf("  total debit:  %10.2f\n", result.TotalDebit)
	fmt.Printf("  total credit: %10.2f\n", result.TotalCredit)
	fmt.Printf("  net:          %10.2f\n", result.Net)
	if result.AvgAmount != nil {
		fmt.Printf("  avg | min | max: %.2f | %.2f | %.2f\n",
			*result.AvgAmount, *result.MinAmount, *result.MaxAmount)
	}

	if len(result.Transactions) == 0 {
		return
	}
	fmt.Println()
	for _, rec := range result.Transactions {
		label := rec.SubCategoryName
		if label == "" {
			label = rec.CategoryName
		}
		fmt.Printf("  %s  %s  %10.2f  %-10s %s\n",
			rec.Date.Format(flagDateLayout), rec.Direction, rec.AbsAmount(), rec.AccountID, label)
	}
}
