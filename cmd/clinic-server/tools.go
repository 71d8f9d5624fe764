package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clinic-assessment-server/internal/auth"
	"github.com/clinic-assessment-server/internal/cache"
	"github.com/clinic-assessment-server/internal/domain"
	"github.com/clinic-assessment-server/internal/mcp"
	"github.com/clinic-assessment-server/internal/repository"
	"github.com/clinic-assessment-server/internal/scoring"
	"github.com/clinic-assessment-server/internal/service"
	clientsetup "github.com/clinic-assessment-server/internal/setup"
)

func catalogCmd() *cobra.Command {
	var gender string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the questionnaire catalog as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := scoring.NewEngine(scoring.DefaultCatalog())
			return writeCatalog(cmd.OutOrStdout(), engine, gender)
		},
	}
	cmd.Flags().StringVar(&gender, "gender", "", "only list categories shown to this gender (male or female)")
	return cmd
}

func writeCatalog(w io.Writer, engine *scoring.Engine, rawGender string) error {
	catalog := engine.Catalog()
	out := struct {
		Sections   []scoring.Section  `json:"sections"`
		Categories []scoring.Category `json:"categories"`
		Tiers      []scoring.Tier     `json:"tiers"`
		MaxScore   map[string]int     `json:"maxScore"`
	}{
		Sections: catalog.Sections(),
		Tiers:    catalog.Tiers(),
		MaxScore: make(map[string]int, 2),
	}

	genders := []domain.Gender{domain.GenderMale, domain.GenderFemale}
	if rawGender != "" {
		g, err := domain.ParseGender(rawGender)
		if err != nil {
			return fmt.Errorf("invalid gender %q: %w", rawGender, err)
		}
		genders = []domain.Gender{g}
		out.Categories = catalog.CategoriesFor(g)
	} else {
		out.Categories = catalog.Categories()
	}
	for _, g := range genders {
		maxScore, err := engine.MaxPossibleScore(g)
		if err != nil {
			return err
		}
		out.MaxScore[g.String()] = maxScore
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func exportCmd() *cobra.Command {
	var (
		date   string
		search string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored assessments as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, logger, err := setup(output == "")
			if err != nil {
				return err
			}
			cfg := manager.GetConfig()
			ctx := cmd.Context()

			store, err := repository.Open(ctx, cfg.Database, logger)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer store.Close()

			svc, _, err := newService(manager, store, cache.NoopCache{}, logger)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}

			n, err := svc.ExportCSV(ctx, w, service.ListQuery{Date: date, Search: search})
			if err != nil {
				return err
			}
			logger.WithField("rows", n).Info("Export finished")
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "clinic-local day to export (YYYY-MM-DD)")
	cmd.Flags().StringVar(&search, "search", "", "patient name substring")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the scoring tools over MCP on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, logger, err := setup(true)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			server := mcp.NewServer(manager.GetConfig().MCP, scoring.NewEngine(scoring.DefaultCatalog()), logger)
			return server.Start(ctx)
		},
	}
	cmd.AddCommand(mcpInstallCmd(), mcpStatusCmd())
	return cmd
}

func mcpInstallCmd() *cobra.Command {
	var (
		clientConfig string
		opts         clientsetup.Options
	)

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Register this binary with the desktop MCP client",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := clientConfigPath(clientConfig)
			if err != nil {
				return err
			}
			opts.ConfigFile = configFile
			entry, err := clientsetup.Register(path, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s in %s\n", entry.Command, path)
			return nil
		},
	}
	cmd.Flags().StringVar(&clientConfig, "client-config", "", "client config file (default: platform location)")
	cmd.Flags().StringVar(&opts.Name, "name", clientsetup.DefaultServerName, "server name in mcpServers")
	cmd.Flags().StringVar(&opts.BinaryPath, "binary", "", "server binary (default: this executable)")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "log level passed to the server")
	return cmd
}

func mcpStatusCmd() *cobra.Command {
	var clientConfig, name string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check the desktop MCP client registration",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := clientConfigPath(clientConfig)
			if err != nil {
				return err
			}
			status, err := clientsetup.Check(path, name)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config:     %s\n", status.ConfigPath)
			fmt.Fprintf(out, "registered: %t\n", status.Registered)
			if status.Registered {
				fmt.Fprintf(out, "command:    %s %s\n", status.Entry.Command, strings.Join(status.Entry.Args, " "))
			}
			for _, issue := range status.Issues {
				fmt.Fprintf(out, "issue:      %s\n", issue)
			}
			if len(status.Issues) > 0 {
				return fmt.Errorf("%d setup issue(s) found", len(status.Issues))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&clientConfig, "client-config", "", "client config file (default: platform location)")
	cmd.Flags().StringVar(&name, "name", clientsetup.DefaultServerName, "server name in mcpServers")
	return cmd
}

func clientConfigPath(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	return clientsetup.ClientConfigPath()
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password PASSWORD",
		Short: "Print the bcrypt hash for admin.password_hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
