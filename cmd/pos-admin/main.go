// Command pos-admin runs maintenance tasks against a POS data store: taking
// and inspecting backups, applying the PostgreSQL schema and issuing staff
// tokens.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	appkg "github.com/xenking/qpos/internal/app"
	"github.com/xenking/qpos/internal/backup"
	"github.com/xenking/qpos/internal/domain/auth"
	"github.com/xenking/qpos/internal/handler"
)

const usage = `usage: pos-admin <command> [flags]

commands:
  migrate   apply the PostgreSQL schema
  export    write a backup of the store
  inspect   summarize a backup file
  token     issue a bearer token for a staff account
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "migrate":
		err = runMigrate(ctx, args)
	case "export":
		err = runExport(ctx, args)
	case "inspect":
		err = runInspect(args, os.Stdout)
	case "token":
		err = runToken(ctx, args, os.Stdout)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		slog.Error(cmd+" failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// storageFlags registers the store selection flags on fs.
func storageFlags(fs *flag.FlagSet) *appkg.StorageConfig {
	cfg := &appkg.StorageConfig{}
	fs.StringVar(&cfg.Driver, "storage", appkg.StoragePostgres, "storage backend: postgres or redis; token also accepts memory")
	fs.StringVar(&cfg.DatabaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", "localhost:6379", "Redis address")
	fs.StringVar(&cfg.RedisPassword, "redis-password", "", "Redis password")
	fs.IntVar(&cfg.RedisDB, "redis-db", 0, "Redis database number")
	fs.StringVar(&cfg.RedisPrefix, "redis-prefix", "qpos:", "prefix for Redis keys")
	return cfg
}

// openStore connects the store and fails when it is unreachable.
func openStore(ctx context.Context, cfg *appkg.StorageConfig) (*appkg.Store, error) {
	switch cfg.Driver {
	case appkg.StoragePostgres:
		if cfg.DatabaseURL == "" {
			cfg.DatabaseURL = os.Getenv("DATABASE_URL")
		}
		if cfg.DatabaseURL == "" {
			return nil, errors.New("database URL is required: set --database-url or DATABASE_URL")
		}
	case appkg.StorageRedis:
	default:
		return nil, errors.Errorf("unsupported storage %q", cfg.Driver)
	}

	slog.Info("connecting to store", slog.String("storage", cfg.Driver))
	store, err := appkg.OpenStore(ctx, zap.NewNop(), *cfg)
	if err != nil {
		return nil, err
	}
	if err := store.Check(ctx); err != nil {
		_ = store.Close()
		return nil, errors.Wrap(err, "check store")
	}
	return store, nil
}

func runMigrate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	cfg := storageFlags(fs)
	_ = fs.Parse(args)
	cfg.Driver = appkg.StoragePostgres

	// Check applies the schema on first contact.
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	slog.Info("schema is up to date")
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	cfg := storageFlags(fs)
	dir := fs.String("dir", ".", "directory to write the backup into")
	compress := fs.Bool("gzip", false, "gzip-compress the backup")
	_ = fs.Parse(args)

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	now := time.Now()
	doc, err := backup.FromStore(ctx, store, now)
	if err != nil {
		return errors.Wrap(err, "read store")
	}

	path := filepath.Join(*dir, backup.FileName(now, *compress))
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create backup file")
	}
	if err := backup.Write(f, doc, *compress); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "close backup file")
	}

	slog.Info("backup written", slog.String("path", path))
	return nil
}

func runInspect(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("inspect needs exactly one backup file")
	}
	path := fs.Arg(0)

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open backup")
	}
	defer func() { _ = f.Close() }()

	sum, err := backup.Inspect(f, strings.HasSuffix(path, ".gz"))
	if err != nil {
		return err
	}
	return printSummary(out, sum)
}

func printSummary(out io.Writer, sum *backup.Summary) error {
	names := make([]string, 0, len(sum.Counts))
	for name := range sum.Counts {
		names = append(names, name)
	}
	sort.Strings(names)

	if _, err := fmt.Fprintf(out, "version:  %s\nexported: %s\n", sum.Version, sum.ExportDate); err != nil {
		return err
	}
	for _, name := range names {
		if _, err := fmt.Fprintf(out, "%-20s %d\n", name, sum.Counts[name]); err != nil {
			return err
		}
	}
	return nil
}

func runToken(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	cfg := storageFlags(fs)
	userID := fs.String("user", "", "staff account id")
	secret := fs.String("jwt-secret", "", "signing secret (or QPOS_AUTH_JWT_SECRET env)")
	ttl := fs.Duration("ttl", 12*time.Hour, "token lifetime")
	_ = fs.Parse(args)

	if *secret == "" {
		*secret = os.Getenv("QPOS_AUTH_JWT_SECRET")
	}
	authn, err := handler.NewAuthenticator([]byte(*secret))
	if err != nil {
		return err
	}

	users := auth.NewDirectory(nopPersister{}, zap.NewNop())
	if cfg.Driver != appkg.StorageMemory {
		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		users.Load(ctx, store)
	}

	u, err := users.User(*userID)
	if err != nil {
		return err
	}
	token, err := authn.Issue(u.Principal(), *ttl)
	if err != nil {
		return err
	}
	slog.Info("token issued", slog.String("user", u.Name), slog.String("role", string(u.Role)))
	_, err = fmt.Fprintln(out, token)
	return err
}

// nopPersister discards writes; the CLI never changes accounts.
type nopPersister struct{}

func (nopPersister) Persist(string, any) {}
