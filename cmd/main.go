package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"catalog-migrator/internal/di"
	"catalog-migrator/internal/migrator"
	"catalog-migrator/internal/migrator/usecase"
	apperrors "catalog-migrator/internal/shared/errors"
	"catalog-migrator/internal/shared/logger"

	"github.com/spf13/cobra"
)

// migrateFlags mirrors the command line of the migrate command.
type migrateFlags struct {
	all         bool
	pages       bool
	blogs       bool
	articles    bool
	products    bool
	collections bool
	metafields  bool

	deletePages       bool
	deleteBlogs       bool
	deleteArticles    bool
	deleteProducts    bool
	deleteCollections bool
	deleteMetafields  bool

	skipExisting bool
	saveData     bool
	dryRun       bool
	filter       string
}

func (f *migrateFlags) runOptions() usecase.RunOptions {
	return usecase.RunOptions{
		All:               f.all,
		Pages:             f.pages,
		Blogs:             f.blogs,
		Articles:          f.articles,
		Products:          f.products,
		Collections:       f.collections,
		Metafields:        f.metafields,
		DeletePages:       f.deletePages,
		DeleteBlogs:       f.deleteBlogs,
		DeleteArticles:    f.deleteArticles,
		DeleteProducts:    f.deleteProducts,
		DeleteCollections: f.deleteCollections,
		DeleteMetafields:  f.deleteMetafields,
		SkipExisting:      f.skipExisting,
	}
}

func (f *migrateFlags) moduleOptions() migrator.Options {
	return migrator.Options{DryRun: f.dryRun, SaveData: f.saveData, Filter: f.filter}
}

func (f *migrateFlags) anySelected() bool {
	return f.all || f.pages || f.blogs || f.articles || f.products || f.collections || f.metafields
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if hint := errorHint(err); hint != "" {
			fmt.Fprintln(os.Stderr, "Hint:", hint)
		}
		stop()
		os.Exit(1)
	}
}

// errorHint suggests what to fix for the failures a user can act on.
func errorHint(err error) string {
	switch {
	case apperrors.IsPrecondition(err):
		return "grant the missing access scope to the store's app and run again"
	case apperrors.IsValidation(err):
		return "check the command flags and the store variables in the environment or .env"
	case apperrors.IsTransport(err):
		return "the store could not be reached; run again, records already migrated are skipped"
	}
	return ""
}

func newRootCmd() *cobra.Command {
	var verbosity int
	root := &cobra.Command{
		Use:           "catalog-migrator",
		Short:         "Copy content and catalog records between two Shopify stores",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().IntVarP(&verbosity, "verbosity", "v", logger.DefaultVerbosity,
		"log verbosity: 0 fatal, 1 error, 2 warn, 3 info, 4 debug, 5 payload dumps")

	root.AddCommand(newMigrateCmd(&verbosity, &migrateFlags{}), newCheckCmd(&verbosity))
	return root
}

func newMigrateCmd(verbosity *int, f *migrateFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the selected resource types from the source to the destination store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !f.anySelected() {
				return fmt.Errorf("nothing to migrate: pass --all or at least one resource flag")
			}
			container, err := newContainer(cmd.Context(), *verbosity, f.moduleOptions())
			if err != nil {
				return err
			}
			defer closeLogged(container, container.Logger)

			report, err := container.GetMigratorModule().Run(cmd.Context(), f.runOptions())
			if err != nil {
				return err
			}
			for _, stats := range report.Phases {
				container.Logger.Infof("summary %s", stats.String())
			}
			if report.HasFailures() {
				container.Logger.Warnf("run %s finished with failures: %s", report.RunID, report.Totals().String())
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&f.all, "all", false, "migrate every resource type")
	flags.BoolVar(&f.pages, "pages", false, "migrate pages")
	flags.BoolVar(&f.blogs, "blogs", false, "migrate blogs")
	flags.BoolVar(&f.articles, "articles", false, "migrate articles")
	flags.BoolVar(&f.products, "products", false, "migrate products")
	flags.BoolVar(&f.collections, "collections", false, "migrate smart and custom collections")
	flags.BoolVar(&f.metafields, "metafields", false, "migrate shop metafields")
	flags.BoolVar(&f.deletePages, "delete-pages", false, "delete existing destination pages before recreating them")
	flags.BoolVar(&f.deleteBlogs, "delete-blogs", false, "delete existing destination blogs before recreating them")
	flags.BoolVar(&f.deleteArticles, "delete-articles", false, "delete existing destination articles before recreating them")
	flags.BoolVar(&f.deleteProducts, "delete-products", false, "delete existing destination products before recreating them")
	flags.BoolVar(&f.deleteCollections, "delete-collections", false, "delete existing destination collections before recreating them")
	flags.BoolVar(&f.deleteMetafields, "delete-metafields", false, "delete existing destination shop metafields before recreating them")
	flags.BoolVar(&f.skipExisting, "skip-existing", true, "leave records that already exist at the destination alone")
	flags.BoolVar(&f.saveData, "save-data", false, "save every fetched source record to the snapshot store")
	flags.BoolVar(&f.dryRun, "dry-run", false, "log the writes a run would perform without performing them")
	flags.StringVar(&f.filter, "filter", "", "CEL expression over resource and record selecting source records")
	return cmd
}

func newCheckCmd(verbosity *int) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify both stores grant the access scopes a migration needs",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := newContainer(cmd.Context(), *verbosity, migrator.Options{})
			if err != nil {
				return err
			}
			defer closeLogged(container, container.Logger)

			if err := container.GetMigratorModule().Preflight(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "source and destination access scopes are sufficient")
			return nil
		},
	}
}

// closeLogged closes c and logs instead of returning the error, for use in
// defer.
func closeLogged(c io.Closer, log logger.Logger) {
	if err := c.Close(); err != nil {
		log.Errorf("failed to close container: %v", err)
	}
}

func newContainer(ctx context.Context, verbosity int, opts migrator.Options) (*di.Container, error) {
	container := di.NewContainer()
	if err := container.InitializeConfig(); err != nil {
		return nil, err
	}
	container.InitializeLogger(verbosity)
	if err := container.InitializeMigrator(ctx, opts); err != nil {
		return nil, err
	}
	return container, nil
}
