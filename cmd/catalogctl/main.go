// Command catalogctl drives the catalog admin API from a terminal.
//
//	catalogctl [-api URL] [-token TOKEN] <command> [flags]
//
// Commands:
//
//	list        page through the admin product table
//	deactivate  deactivate every product matching a filter
//	tree        print the storefront category tree
//	integrity   report categories that cannot be placed in the tree
//	run-job     trigger a background job by name
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"furnistore/internal/config"
	"furnistore/internal/listing"
	"furnistore/internal/logger"
	"furnistore/internal/models"
	"furnistore/pkg/adminclient"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var errUsage = errors.New("usage")

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, "catalogctl:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("catalogctl", flag.ContinueOnError)
	global.SetOutput(stderr)
	apiURL := global.String("api", envOr("CATALOG_API_URL", "http://localhost:8080"), "admin API base URL")
	token := global.String("token", os.Getenv("CATALOG_API_TOKEN"), "bearer token")
	logLevel := global.String("log-level", envOr("LOG_LEVEL", "warn"), "log level")
	if err := global.Parse(args); err != nil {
		return errUsage
	}
	if global.NArg() == 0 {
		fmt.Fprintln(stderr, "commands: list, deactivate, tree, integrity, run-job")
		return errUsage
	}

	log, err := logger.New(config.LoggerConfig{Level: *logLevel, Encoding: "console"}, true)
	if err != nil {
		return err
	}
	defer log.Sync()

	client, err := adminclient.New(*apiURL, *token, adminclient.WithLogger(log))
	if err != nil {
		return err
	}

	cmd, rest := global.Arg(0), global.Args()[1:]
	switch cmd {
	case "list":
		return listProducts(ctx, client, rest, stdout, stderr, log)
	case "deactivate":
		return deactivateProducts(ctx, client, rest, stdout, stderr, log)
	case "tree":
		return printTree(ctx, client, stdout)
	case "integrity":
		return printIntegrity(ctx, client, stdout)
	case "run-job":
		if len(rest) != 1 {
			fmt.Fprintln(stderr, "usage: catalogctl run-job <name>")
			return errUsage
		}
		if err := client.RunJob(ctx, rest[0]); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "triggered %s\n", rest[0])
		return nil
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		return errUsage
	}
}

// listingFlags are shared by list and deactivate.
type listingFlags struct {
	limit      int
	maxPages   int
	search     string
	sortBy     string
	sortDir    string
	categories string
	brands     string
	active     string
}

func (lf *listingFlags) register(fs *flag.FlagSet) {
	fs.IntVar(&lf.limit, "limit", listing.DefaultPageSize, "rows per page")
	fs.IntVar(&lf.maxPages, "pages", 0, "stop after this many pages (0 = all)")
	fs.StringVar(&lf.search, "search", "", "search term")
	fs.StringVar(&lf.sortBy, "sort", "", "sort column")
	fs.StringVar(&lf.sortDir, "dir", "", "sort direction (asc|desc)")
	fs.StringVar(&lf.categories, "category", "", "comma-separated category ids")
	fs.StringVar(&lf.brands, "brand", "", "comma-separated brand ids")
	fs.StringVar(&lf.active, "active", "", "filter on is_active (true|false)")
}

func (lf *listingFlags) engine(client *adminclient.Client, log *zap.Logger) (*listing.Engine, error) {
	var filter models.ProductTableFilter
	var err error
	if filter.CategoryIDs, err = parseIDs(lf.categories); err != nil {
		return nil, fmt.Errorf("-category: %w", err)
	}
	if filter.BrandIDs, err = parseIDs(lf.brands); err != nil {
		return nil, fmt.Errorf("-brand: %w", err)
	}
	switch lf.active {
	case "":
	case "true", "false":
		v := lf.active == "true"
		filter.IsActive = &v
	default:
		return nil, fmt.Errorf("-active must be true or false")
	}
	filter.Search = strings.TrimSpace(lf.search)

	sorting, err := listing.NormalizeSorting(models.ProductTableSorting{Column: lf.sortBy, Direction: lf.sortDir})
	if err != nil {
		return nil, err
	}
	return listing.NewEngine(client, client, listing.Options{
		PageSize: lf.limit,
		Filter:   filter,
		Sorting:  sorting,
		Logger:   log,
	}), nil
}

// loadAll pulls pages until the listing is exhausted or maxPages is reached.
func loadAll(ctx context.Context, e *listing.Engine, maxPages int) error {
	for e.Pages() == 0 || e.HasMore() {
		if maxPages > 0 && e.Pages() >= maxPages {
			return nil
		}
		before := e.Pages()
		if err := e.LoadMore(ctx); err != nil {
			return err
		}
		if e.Pages() == before {
			return errors.New("listing did not advance")
		}
	}
	return nil
}

func listProducts(ctx context.Context, client *adminclient.Client, args []string, stdout, stderr io.Writer, log *zap.Logger) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var lf listingFlags
	lf.register(fs)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	e, err := lf.engine(client, log)
	if err != nil {
		return err
	}
	defer e.Close()
	if err := loadAll(ctx, e, lf.maxPages); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSKU\tNAME\tPRICE\tACTIVE\tCATEGORY\tBRAND")
	for _, it := range e.Items() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\t%s\n",
			it.ID, it.SKU, it.Name, it.Price.StringFixed(2), it.IsActive, deref(it.CategoryName), deref(it.BrandName))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	more := ""
	if e.HasMore() {
		more = " (more available)"
	}
	loaded := fmt.Sprint(len(e.Items()))
	if total, ok := e.TotalCount(); ok && total > int64(len(e.Items())) {
		loaded = fmt.Sprintf("%s of %d", loaded, total)
	}
	fmt.Fprintf(stdout, "%s products in %d pages%s\n", loaded, e.Pages(), more)
	return nil
}

func deactivateProducts(ctx context.Context, client *adminclient.Client, args []string, stdout, stderr io.Writer, log *zap.Logger) error {
	fs := flag.NewFlagSet("deactivate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var lf listingFlags
	lf.register(fs)
	dryRun := fs.Bool("dry-run", false, "only report what would change")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if lf.active == "" {
		lf.active = "true"
	}

	e, err := lf.engine(client, log)
	if err != nil {
		return err
	}
	defer e.Close()
	if err := loadAll(ctx, e, lf.maxPages); err != nil {
		return err
	}

	e.ToggleAllRowsSelection(true)
	ids := e.SelectedIDs()
	if len(ids) == 0 {
		fmt.Fprintln(stdout, "no matching products")
		return nil
	}
	if *dryRun {
		fmt.Fprintf(stdout, "would deactivate %d products\n", len(ids))
		return nil
	}

	inactive := false
	if err := e.BulkUpdate(ctx, ids, models.ProductPatch{IsActive: &inactive}); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "deactivated %d products\n", len(ids))
	return nil
}

func printTree(ctx context.Context, client *adminclient.Client, stdout io.Writer) error {
	tree, err := client.CategoryTree(ctx)
	if err != nil {
		return err
	}
	var walk func(nodes []*models.CategoryTreeNode)
	walk = func(nodes []*models.CategoryTreeNode) {
		for _, n := range nodes {
			fmt.Fprintf(stdout, "%s%s (%s)\n", strings.Repeat("  ", n.Depth), n.Name, n.Slug)
			walk(n.Children)
		}
	}
	walk(tree)
	return nil
}

func printIntegrity(ctx context.Context, client *adminclient.Client, stdout io.Writer) error {
	report, err := client.CategoryIntegrity(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%d of %d active categories placed\n", report.Placed, report.Total)
	for _, id := range report.Orphaned {
		fmt.Fprintf(stdout, "orphaned %s\n", id)
	}
	for _, id := range report.Cyclic {
		fmt.Fprintf(stdout, "cyclic   %s\n", id)
	}
	return nil
}

func parseIDs(raw string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
