package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/irishask/financial-ai-agent/internal/cli"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Explore the category knowledge base",
	}

	cmd.AddCommand(categoriesSearchCmd())

	return cmd
}

func categoriesSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <term> [term...]",
		Short: "Find ledger categories matching free-text terms",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			provider, err := initIndexProvider()
			if err != nil {
				return err
			}
			defer func() { _ = provider.Close() }()

			matches, err := initResolver(provider).Resolve(ctx, args)
			if err != nil {
				return err
			}
			if len(matches) == 0 {
				fmt.Println(cli.InfoStyle.Render("No categories matched. Try a different term."))
				return nil
			}

			headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
			fmt.Printf("%-10s %-28s %-12s %-10s %s\n",
				headerStyle.Render("ID"),
				headerStyle.Render("Name"),
				headerStyle.Render("Level"),
				headerStyle.Render("Distance"),
				headerStyle.Render("Confidence"))
			fmt.Println(strings.Repeat("-", 74))

			for _, m := range matches {
				confidence := string(m.Confidence)
				if m.Confidence == "high" {
					confidence = cli.SuccessStyle.Render(confidence)
				}
				fmt.Printf("%-10s %-28s %-12s %-10.3f %s\n",
					m.Category.ID, m.Category.Name, m.Category.Level, m.Distance, confidence)
			}
			return nil
		},
	}
}
