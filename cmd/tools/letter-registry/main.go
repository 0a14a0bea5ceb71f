// cmd/tools/letter-registry/main.go
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"probate-workers/pkg/registry"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var registryPath string

	root := &cobra.Command{
		Use:          "letter-registry",
		Short:        "Manage the form letter template registry",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&registryPath, "path", "configs/letter-templates.json", "Path to registry file")

	root.AddCommand(
		newListCmd(&registryPath),
		newValidateCmd(&registryPath),
		newAddCmd(&registryPath),
	)
	return root
}

func newListCmd(path *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the templates in the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := registry.LoadRegistry(*path)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tASSET TYPES")
			for _, t := range reg.Templates {
				fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID, t.Name, strings.Join(t.AssetTypes, ", "))
			}
			return w.Flush()
		},
	}
}

func newValidateCmd(path *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check ids, required fields and data schemas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := registry.LoadRegistry(*path)
			if err != nil {
				return err
			}
			if err := reg.Validate(); err != nil {
				return fmt.Errorf("registry validation failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registry is valid (%d templates)\n", len(reg.Templates))
			return nil
		},
	}
}

func newAddCmd(path *string) *cobra.Command {
	var (
		id, name, description, subject string
		bodyFile, schemaFile           string
		assetTypes                     []string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a template to the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			body, err := os.ReadFile(bodyFile)
			if err != nil {
				return fmt.Errorf("read body file: %w", err)
			}

			tpl := registry.LetterTemplate{
				ID:          id,
				Name:        name,
				Description: description,
				AssetTypes:  assetTypes,
				Subject:     subject,
				Body:        string(body),
				Version:     "1.0.0",
			}
			if schemaFile != "" {
				raw, err := os.ReadFile(schemaFile)
				if err != nil {
					return fmt.Errorf("read schema file: %w", err)
				}
				if err := json.Unmarshal(raw, &tpl.DataSchema); err != nil {
					return fmt.Errorf("parse schema file: %w", err)
				}
			}

			reg, err := registry.LoadRegistry(*path)
			if os.IsNotExist(err) {
				reg = &registry.LetterRegistry{Version: "1.0.0"}
			} else if err != nil {
				return err
			}

			if err := reg.Add(tpl); err != nil {
				return err
			}
			if err := registry.SaveRegistry(reg, *path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added template: %s\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Template ID (e.g. dod-balance-request)")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&description, "description", "", "Description")
	cmd.Flags().StringVar(&subject, "subject", "", "Subject line, may contain {{placeholders}}")
	cmd.Flags().StringVar(&bodyFile, "body-file", "", "File holding the letter body")
	cmd.Flags().StringVar(&schemaFile, "schema-file", "", "JSON schema the letter data must satisfy")
	cmd.Flags().StringSliceVar(&assetTypes, "asset-types", nil, "Asset types the letter applies to")
	for _, f := range []string{"id", "name", "subject", "body-file"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}
