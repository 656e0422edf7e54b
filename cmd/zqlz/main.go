// Command zqlz is a small driver for the engine: connect to a database by
// URL or saved profile, run a statement or a script, list tables, print the
// result.
//
//	zqlz -url postgres://alice@localhost/app "SELECT * FROM users LIMIT 10"
//	zqlz -profile staging -script ./migrate.sql
//	zqlz -url redis://localhost:6379 -keys 'user:*'
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/samurmaykrr/zqlz/internal/database"
	"github.com/samurmaykrr/zqlz/internal/engine/manager"
	"github.com/samurmaykrr/zqlz/internal/engine/query"
	"github.com/samurmaykrr/zqlz/internal/engine/schemacache"
	"github.com/samurmaykrr/zqlz/pkg/dbcapabilities"
	"github.com/samurmaykrr/zqlz/pkg/driver"
	"github.com/samurmaykrr/zqlz/pkg/logger"
	"github.com/samurmaykrr/zqlz/pkg/schema"
	"github.com/samurmaykrr/zqlz/pkg/value"
)

type options struct {
	url             string
	profile         string
	profilesPath    string
	envFile         string
	script          bool
	continueOnError bool
	timeout         time.Duration
	logLevel        string
	listProfiles    bool
	saveProfile     string
	listTables      string
	keys            string
}

func main() {
	var opts options
	flag.StringVar(&opts.url, "url", "", "connection string, e.g. postgres://user@host/db")
	flag.StringVar(&opts.profile, "profile", "", "saved profile name to connect with")
	flag.StringVar(&opts.profilesPath, "profiles", defaultProfilesPath(), "path to the profiles file")
	flag.StringVar(&opts.envFile, "env", "", "dotenv file to load before connecting")
	flag.BoolVar(&opts.script, "script", false, "treat the argument as a file containing a multi-statement script")
	flag.BoolVar(&opts.continueOnError, "continue-on-error", false, "keep running script statements after a failure")
	flag.DurationVar(&opts.timeout, "timeout", 0, "statement timeout, e.g. 30s")
	flag.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	flag.BoolVar(&opts.listProfiles, "list-profiles", false, "list saved profiles and exit")
	flag.StringVar(&opts.saveProfile, "save-profile", "", "save -url under this profile name and exit")
	flag.StringVar(&opts.listTables, "tables", "", "list tables in the given schema ('-' for the default schema) and exit")
	flag.StringVar(&opts.keys, "keys", "", "browse keys matching this pattern (key-value backends) and exit")
	flag.Parse()

	if err := run(opts, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "zqlz:", err)
		os.Exit(1)
	}
}

func run(opts options, args []string) error {
	if opts.envFile != "" {
		if err := godotenv.Load(opts.envFile); err != nil {
			return fmt.Errorf("loading %s: %w", opts.envFile, err)
		}
	} else {
		// Best effort; a missing .env is not an error.
		_ = godotenv.Load()
	}

	logger.SetGlobalLevel(opts.logLevel)
	log := logger.NewConsole("zqlz")

	profiles, err := manager.OpenProfileStore(opts.profilesPath)
	if err != nil {
		return err
	}

	if opts.listProfiles {
		return printProfiles(profiles)
	}

	database.Register()
	mgr := manager.New(manager.Options{Logger: log, Profiles: profiles})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := resolveConfig(opts, profiles)
	if err != nil {
		return err
	}

	if opts.saveProfile != "" {
		cfg.Name = opts.saveProfile
		if err := profiles.Save(cfg); err != nil {
			return err
		}
		fmt.Printf("saved profile %q\n", opts.saveProfile)
		return nil
	}

	connID, err := mgr.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mgr.Shutdown(shutdownCtx)
	}()

	mc, _ := mgr.Get(connID)

	switch {
	case opts.listTables != "":
		return printTables(ctx, mc.Conn, opts.listTables, log)
	case opts.keys != "":
		return printKeys(ctx, mc.Conn, opts.keys)
	}

	if len(args) == 0 {
		return fmt.Errorf("nothing to run; pass a statement or use -tables / -keys")
	}

	engine := query.New(query.Options{Logger: log})
	statement := args[0]
	if opts.script {
		raw, err := os.ReadFile(statement)
		if err != nil {
			return err
		}
		return runScript(ctx, engine, mc.Conn, string(raw), opts.continueOnError)
	}
	return runStatement(ctx, engine, mc.Conn, statement)
}

// resolveConfig builds the connection config from -url or -profile. A
// password left empty falls back to ZQLZ_PASSWORD so secrets can stay in the
// environment.
func resolveConfig(opts options, profiles *manager.ProfileStore) (driver.Config, error) {
	var cfg driver.Config
	switch {
	case opts.url != "":
		details, err := dbcapabilities.ParseConnectionString(opts.url)
		if err != nil {
			return driver.Config{}, err
		}
		cfg = driver.Config{
			Database:     details.DatabaseID,
			Host:         details.Host,
			Port:         details.Port,
			Username:     details.Username,
			Password:     details.Password,
			DatabaseName: details.DatabaseName,
			Params:       details.Parameters,
		}
		if details.FilePath != "" {
			cfg.DatabaseName = details.FilePath
		}
	case opts.profile != "":
		var err error
		cfg, err = profiles.Get(opts.profile)
		if err != nil {
			return driver.Config{}, err
		}
	default:
		return driver.Config{}, fmt.Errorf("either -url or -profile is required")
	}

	if cfg.Password == "" {
		cfg.Password = os.Getenv("ZQLZ_PASSWORD")
	}
	if opts.timeout > 0 {
		cfg.Timeouts.Statement = opts.timeout
	}
	return cfg, nil
}

func runStatement(ctx context.Context, engine *query.Engine, conn driver.Connection, statement string) error {
	res, err := engine.Execute(ctx, conn, statement, nil)
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}

func runScript(ctx context.Context, engine *query.Engine, conn driver.Connection, script string, continueOnError bool) error {
	batch, err := engine.ExecuteScript(ctx, conn, script, query.BatchOptions{ContinueOnError: continueOnError})
	if batch != nil {
		for _, outcome := range batch.Outcomes {
			if outcome.Err != nil {
				fmt.Printf("[%d] FAILED: %v\n", outcome.Index+1, outcome.Err)
				continue
			}
			fmt.Printf("[%d] ok (%d rows, %s)\n", outcome.Index+1, outcome.Result.RowCount(), outcome.Result.Duration.Round(time.Millisecond))
		}
	}
	return err
}

func printResult(res *query.Result) {
	if res.Query != nil {
		printTable(res.Query)
		fmt.Printf("%d rows (%s)\n", res.Query.RowCount, res.Duration.Round(time.Millisecond))
		return
	}
	fmt.Printf("%d rows affected (%s)\n", res.Statement.RowsAffected, res.Duration.Round(time.Millisecond))
}

func printTable(result *value.QueryResult) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	names := make([]string, len(result.Columns))
	for i, col := range result.Columns {
		names[i] = col.Name
	}
	fmt.Fprintln(w, strings.Join(names, "\t"))

	for _, row := range result.Rows {
		cells := make([]string, len(row.Values))
		for i, v := range row.Values {
			cells[i] = v.String()
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	w.Flush()
}

func printTables(ctx context.Context, conn driver.Connection, schemaName string, log *logger.Logger) error {
	if schemaName == "-" {
		schemaName = ""
	}
	cache := schemacache.New(0, log)
	tables, err := cache.Tables(ctx, conn, schemaName)
	if err != nil {
		return err
	}
	for _, table := range tables {
		rows := "?"
		if table.EstimatedRows >= 0 {
			rows = fmt.Sprintf("~%d", table.EstimatedRows)
		}
		fmt.Printf("%-40s %-18s %s\n", table.Name, table.Type, rows)
	}
	return nil
}

func printKeys(ctx context.Context, conn driver.Connection, pattern string) error {
	browser, ok := conn.(interface{ KeyBrowser() schema.KeyBrowser })
	if !ok {
		return driver.NewUnsupportedError(conn.Type(), "key browsing", "not a key-value backend")
	}
	kb := browser.KeyBrowser()
	if kb == nil {
		return driver.NewUnsupportedError(conn.Type(), "key browsing", "not a key-value backend")
	}
	keys, err := kb.ListKeys(ctx, pattern, 100)
	if err != nil {
		return err
	}
	for _, key := range keys {
		ttl := "-"
		if key.TTLSeconds >= 0 {
			ttl = fmt.Sprintf("%ds", key.TTLSeconds)
		}
		fmt.Printf("%-50s %-8s %s\n", key.Key, key.Type, ttl)
	}
	return nil
}

func defaultProfilesPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home + "/.config/zqlz/profiles.yaml"
	}
	return "profiles.yaml"
}

func printProfiles(profiles *manager.ProfileStore) error {
	for _, cfg := range profiles.List() {
		target := cfg.Host
		if target == "" {
			target = cfg.DatabaseName
		}
		fmt.Printf("%-24s %-12s %s\n", cfg.Name, cfg.Database, target)
	}
	return nil
}
