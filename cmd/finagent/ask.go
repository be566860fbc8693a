package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/irishask/financial-ai-agent/internal/cli"
	"github.com/irishask/financial-ai-agent/internal/model"
	"github.com/irishask/financial-ai-agent/internal/router"
	"github.com/irishask/financial-ai-agent/internal/session"
)

func askCmd() *cobra.Command {
	var (
		userID    string
		oneShot   string
		showAudit bool
	)

	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Ask questions about your transactions",
		Long: `Starts an interactive conversation over your ledger. Preferences you
express ("large means over 200", "only my checking account") persist for
the rest of the session and shape later answers.

Use --question for a single non-interactive turn.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			provider, err := initIndexProvider()
			if err != nil {
				return err
			}
			defer func() { _ = provider.Close() }()

			key, err := openAIKey()
			if err != nil {
				return err
			}
			client, err := router.NewOpenAIClient(key, viper.GetString("openai.model"))
			if err != nil {
				return err
			}

			sess, err := session.New(session.Config{
				Router:      client,
				Resolver:    initResolver(provider),
				Ledger:      store,
				DefaultUser: userID,
			})
			if err != nil {
				return err
			}

			if oneShot != "" {
				return runTurn(cmd, sess, oneShot, showAudit)
			}

			fmt.Println(cli.FormatTitle("finagent"))
			fmt.Println(cli.SubtleStyle.Render("Ask about your transactions. Type 'exit' to quit."))
			fmt.Println()

			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print(cli.FormatPrompt("you"))
				if !scanner.Scan() {
					fmt.Println()
					return scanner.Err()
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if line == "exit" || line == "quit" {
					return nil
				}
				if err := runTurn(cmd, sess, line, showAudit); err != nil {
					fmt.Println(cli.FormatError(err.Error()))
				}
			}
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "default user id to scope queries to")
	cmd.Flags().StringVarP(&oneShot, "question", "q", "", "ask a single question and exit")
	cmd.Flags().BoolVar(&showAudit, "audit", false, "print each turn's back-office log as JSON")

	return cmd
}

func runTurn(cmd *cobra.Command, sess *session.Session, query string, showAudit bool) error {
	outcome, err := sess.HandleTurn(cmd.Context(), query)
	if err != nil {
		return err
	}

	if outcome.Clarity == model.ClarityVague {
		fmt.Println(cli.FormatClarification(outcome.Answer))
	} else {
		fmt.Println(cli.AnswerStyle.Render(outcome.Answer))
	}

	if showAudit {
		trace, err := json.MarshalIndent(outcome.BackofficeLog, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding audit log: %w", err)
		}
		fmt.Println(cli.SubtleStyle.Render(string(trace)))
	}
	return nil
}
