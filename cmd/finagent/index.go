package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/irishask/financial-ai-agent/internal/cli"
	"github.com/irishask/financial-ai-agent/internal/config"
	"github.com/irishask/financial-ai-agent/internal/index"
)

func indexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the category search index",
	}

	cmd.AddCommand(indexBuildCmd())
	cmd.AddCommand(indexStatusCmd())

	return cmd
}

func indexBuildCmd() *cobra.Command {
	var force bool
	var kbPath string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the category index from the knowledge base",
		Long: `Embeds every category group and subcategory description and persists
the vectors locally. Run once before asking category questions, and again
whenever the knowledge base changes (with --force).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if kbPath == "" {
				kbPath = viper.GetString("index.kb_path")
			}
			if kbPath == "" {
				return fmt.Errorf("no knowledge base path given (use --knowledge-base or set index.kb_path)")
			}

			key, err := openAIKey()
			if err != nil {
				return err
			}
			embedder, err := index.NewOpenAIEmbedder(key, embeddingModel())
			if err != nil {
				return err
			}

			store, err := index.OpenStore(indexPath())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			fmt.Println(cli.FormatTitle("Building category index"))
			ix, err := index.Build(ctx, store, embedder, index.BuildOptions{
				KnowledgeBasePath: config.ExpandPath(kbPath),
				Collection:        indexCollection(),
				EmbeddingModel:    embeddingModel(),
				Force:             force,
				ShowProgress:      true,
			})
			if err != nil {
				return fmt.Errorf("failed to build index: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Index %q ready with %d categories", ix.Collection(), ix.Count())))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "rebuild even if an index already exists")
	cmd.Flags().StringVar(&kbPath, "knowledge-base", "", "path to the category knowledge base JSON")

	return cmd
}

func indexStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the state of the category index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := index.OpenStore(indexPath())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			count, err := store.Count(cmd.Context(), indexCollection())
			if err != nil {
				return err
			}
			if count == 0 {
				fmt.Println(cli.FormatWarning("Index is empty. Run 'finagent index build' first."))
				return nil
			}
			fmt.Println(cli.FormatInfo(fmt.Sprintf("Collection %q holds %d categories", indexCollection(), count)))
			return nil
		},
	}
}
