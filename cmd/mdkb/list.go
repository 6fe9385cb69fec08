package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/mdkb-mcp/internal/config"
	"github.com/dshills/mdkb-mcp/pkg/types"
)

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List knowledge bases, or the documents of one",
		Long: `List knowledge bases, or the documents of one.

Examples:
  mdkb list
  mdkb list --kb handbook
  mdkb list --search onboarding`,
		RunE: runList,
	}

	cmd.Flags().String("kb", "", "knowledge base id")
	cmd.Flags().String("search", "", "only documents whose name or title contains this text")

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	log.SetOutput(os.Stderr)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	kbID, _ := cmd.Flags().GetString("kb")
	query, _ := cmd.Flags().GetString("search")
	ctx := context.Background()

	var res types.Result
	switch {
	case query != "":
		res = a.catalog.SearchDocuments(ctx, query, kbID)
	case kbID != "":
		res = a.catalog.ListDocuments(ctx, kbID)
	default:
		res = a.catalog.ListKnowledgeBases(ctx)
	}

	if res.IsError() {
		return errors.New(res.Message)
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Text)
	return nil
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write an example configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ProjectConfigPath()
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.WriteExample(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.AddCommand(initCmd)

	return cmd
}
