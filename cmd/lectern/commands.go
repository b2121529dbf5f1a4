// cmd/lectern/commands.go
package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"lectern/internal/builder"
	"lectern/internal/config"
	"lectern/internal/ctxlog"
	"lectern/internal/registry"
	"lectern/internal/scaffold"
	"lectern/internal/server"
)

type appConfig struct {
	debug      bool
	unsafe     bool
	configFile string
}

func newRootCmd() *cobra.Command {
	app := &appConfig{}
	root := &cobra.Command{
		Use:   "lectern",
		Short: "lectern - a static site generator for lecture notes",
		Long: `lectern builds lecture-note sites. Each collection keeps its pages in
reading order in a sources.yaml registry, and pages link to each other with
[text](ref:identifier) instead of URLs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log := ctxlog.New(os.Stderr, app.debug)
			cmd.SetContext(ctxlog.WithLogger(cmd.Context(), log))
		},
	}
	root.PersistentFlags().BoolVar(&app.debug, "debug", false, "Enable debug mode for verbose output.")
	root.PersistentFlags().BoolVar(&app.unsafe, "unsafe", false, "Disable HTML sanitization. Allows all raw HTML.")
	root.PersistentFlags().StringVar(&app.configFile, "config", "site.yaml", "Site config file (.yaml or .toml).")

	root.AddCommand(
		newGenCmd(app),
		newCheckCmd(app),
		newServeCmd(app),
		newListCmd(app),
		newNewCmd(app),
	)
	return root
}

func (app *appConfig) buildOptions() builder.BuildOptions {
	return builder.BuildOptions{
		Unsafe: app.unsafe,
		Debug:  app.debug,
	}
}

func newGenCmd(app *appConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "gen",
		Short: "Generate the site from content into public/",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := app.buildOptions()
			opts.CleanDestination = true
			fmt.Println("--- Generating site from content ---")
			pageCount, err := app.build(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Printf("✅ Success! Generated %d pages.\n", pageCount)
			return nil
		},
	}
}

func newCheckCmd(app *appConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate registries and cross-references without writing output",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := app.buildOptions()
			opts.DryRun = true
			pageCount, err := app.build(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Printf("✅ %d pages checked, all references resolve.\n", pageCount)
			return nil
		},
	}
}

func newServeCmd(app *appConfig) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a local dev server with auto-rebuild and live reload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			buildFunc := func(ctx context.Context, opts builder.BuildOptions) error {
				fmt.Println("--- Building site ---")
				pageCount, err := app.build(ctx, opts)
				if err != nil {
					return err
				}
				fmt.Printf("📄 Site: %d pages generated.\n", pageCount)
				return nil
			}
			return server.Run(cmd.Context(), server.Options{
				Port:       port,
				OutputDir:  outputDir,
				WatchPaths: []string{contentDir, templateDir, staticDir, app.configFile},
				Build:      app.buildOptions(),
			}, buildFunc)
		},
	}
	cmd.Flags().IntVar(&port, "port", 1313, "Port for the local development server.")
	return cmd
}

func newListCmd(app *appConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "list <collection>",
		Short: "Print a collection's registry in reading order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			siteCfg, err := config.LoadSiteConfig(app.configFile)
			if err != nil {
				return err
			}
			coll, ok := siteCfg.Collection(args[0])
			if !ok {
				return fmt.Errorf("no collection %q in %s", args[0], app.configFile)
			}
			reg, err := registry.Load(coll.SourcesPath(contentDir))
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "#\tPATH NAME\tIDENTIFIER\tTITLE")
			for i, rec := range reg.Records() {
				fmt.Fprintf(w, "%d\t/%s/%s\t%s\t%s\n", i+1, coll.Dir, rec.PathName, rec.NamedIdentifier, rec.PageTitle)
			}
			return w.Flush()
		},
	}
}

func newNewCmd(app *appConfig) *cobra.Command {
	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Create a new site or lecture page",
	}
	newCmd.AddCommand(&cobra.Command{
		Use:   "site <name>",
		Short: "Create a new site scaffold",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return scaffold.CreateNewSite(args[0])
		},
	})

	var spec scaffold.PageSpec
	pageCmd := &cobra.Command{
		Use:   "page <collection> <path-name>",
		Short: "Create a lecture page from the archetype and register it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec.Collection, spec.PathName = args[0], args[1]
			_, err := scaffold.CreateNewPage(".", app.configFile, spec)
			return err
		},
	}
	pageCmd.Flags().StringVar(&spec.Title, "title", "", "Page title (default: derived from the path name).")
	pageCmd.Flags().StringVar(&spec.Identifier, "id", "", "Named identifier for ref: links (default: the path name).")
	newCmd.AddCommand(pageCmd)
	return newCmd
}

// build loads the config and templates and runs one site build.
func (app *appConfig) build(ctx context.Context, opts builder.BuildOptions) (int, error) {
	siteCfg, err := config.LoadSiteConfig(app.configFile)
	if err != nil {
		return 0, fmt.Errorf("failed to load site config: %w", err)
	}
	tmpl, err := builder.LoadTemplates(templateDir, siteCfg.Template)
	if err != nil {
		return 0, fmt.Errorf("failed to load templates: %w", err)
	}
	pageCount, err := builder.BuildSite(ctx, outputDir, contentDir, staticDir, siteCfg, tmpl, opts)
	if err != nil {
		return 0, fmt.Errorf("site generation failed: %w", err)
	}
	return pageCount, nil
}
