// Command catalogctl searches the property catalog from a terminal.
//
//	catalogctl search -dealType rent -city Москва -maxPrice 80000 -view list
//	catalogctl get <id>
//	catalogctl featured
//	catalogctl saved list|save <name> [criteria flags]|load <id>|delete <id>
//	catalogctl token -subject editor -ttl 24h
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"

	"realty/catalog/internal/auth"
	"realty/catalog/internal/cache"
	"realty/catalog/internal/client"
	"realty/catalog/internal/logging"
	"realty/catalog/internal/present"
	"realty/catalog/internal/search"
	"realty/catalog/internal/storage"
)

// criteriaKeys are exposed as flags on search and saved save.
var criteriaKeys = []string{
	"dealType", "category", "minPrice", "maxPrice", "minArea", "maxArea", "rooms",
	"city", "district", "metro", "features", "minFloor", "maxFloor",
	"notFirstFloor", "notLastFloor", "yearFrom", "yearTo", "search", "page", "limit", "sort",
}

type globals struct {
	apiURL    string
	token     string
	timeout   time.Duration
	statePath string
	redisAddr string
	imageBase string
	out       io.Writer
}

func main() {
	_ = godotenv.Load()
	logging.InitTo(logging.Config{Level: getEnv("LOG_LEVEL", "warn"), Pretty: true, ServiceName: "catalogctl"}, os.Stderr)

	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "catalogctl", "state.json")
}

func run(args []string, out io.Writer) error {
	g := globals{out: out}
	fs := flag.NewFlagSet("catalogctl", flag.ContinueOnError)
	fs.StringVar(&g.apiURL, "api", getEnv("CATALOG_API_URL", "http://localhost:5000"), "catalog API base URL")
	fs.StringVar(&g.token, "token", os.Getenv("CATALOG_TOKEN"), "bearer token for mutations")
	fs.DurationVar(&g.timeout, "timeout", client.DefaultTimeout, "request timeout")
	fs.StringVar(&g.statePath, "state", getEnv("CATALOG_STATE", defaultStatePath()), "saved-search file")
	fs.StringVar(&g.redisAddr, "redis", os.Getenv("CATALOG_REDIS_ADDR"), "keep saved searches in Redis at this address instead of the state file")
	fs.StringVar(&g.imageBase, "images", os.Getenv("IMAGE_BASE_S3_URL"), "public base URL for listing images")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return errors.New("usage: catalogctl [flags] search|get|featured|saved|token ...")
	}

	switch rest[0] {
	case "search":
		return g.search(rest[1:])
	case "get":
		return g.get(rest[1:])
	case "featured":
		return g.featured(rest[1:])
	case "saved":
		return g.saved(rest[1:])
	case "token":
		return g.tokenCmd(rest[1:])
	}
	return fmt.Errorf("unknown command %q", rest[0])
}

// criteriaFlags registers one string flag per criteria key and returns a
// function that parses whichever were set.
func criteriaFlags(fs *flag.FlagSet) func() (search.Criteria, error) {
	values := make(map[string]*string, len(criteriaKeys))
	for _, k := range criteriaKeys {
		values[k] = fs.String(k, "", "criteria: "+k)
	}
	return func() (search.Criteria, error) {
		q := url.Values{}
		fs.Visit(func(f *flag.Flag) {
			if v, ok := values[f.Name]; ok {
				q.Set(f.Name, *v)
			}
		})
		return search.ParseCriteria(q)
	}
}

func (g globals) api() *client.APIClient {
	return client.NewAPIClient(g.apiURL, g.token, g.timeout)
}

func (g globals) renderer() *present.Renderer {
	return present.NewRenderer(g.out, language.Russian)
}

// fetch runs cr through a Controller so the output reflects what a browser
// session would show for the same URL.
func (g globals) fetch(cr search.Criteria, view present.View) error {
	nav := client.NavigatorFunc(func(u string) {
		logging.L().Debug().Str("url", u).Msg("navigate")
	})
	ctrl := client.NewController(g.api(), nav, "/properties", g.timeout)
	<-ctrl.Load(cr)

	res := ctrl.Result()
	if res == nil {
		return errors.New("no result")
	}
	if err := g.renderer().Render(view, res.Page, res.Err); err != nil {
		return err
	}
	return res.Err
}

func (g globals) search(args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	view := fs.String("view", "grid", "grid or list")
	parse := criteriaFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cr, err := parse()
	if err != nil {
		return err
	}
	return g.fetch(cr, present.ParseView(*view))
}

func (g globals) get(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: catalogctl get <id>")
	}
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	l, err := g.api().Get(ctx, args[0])
	if err != nil {
		return err
	}
	var imageURL func(string) string
	if g.imageBase != "" {
		imageURL = func(key string) string { return storage.JoinURL(g.imageBase, key) }
	}
	return g.renderer().Detail(*l, imageURL)
}

func (g globals) featured(args []string) error {
	fs := flag.NewFlagSet("featured", flag.ContinueOnError)
	view := fs.String("view", "grid", "grid or list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	items, err := g.api().Featured(ctx)
	if err != nil {
		return err
	}
	return g.renderer().Listings(present.ParseView(*view), items)
}

func (g globals) store() (client.KVStore, func(), error) {
	if g.redisAddr != "" {
		rdb, err := cache.Connect(context.Background(), cache.Options{
			Addr:        g.redisAddr,
			Password:    os.Getenv("REDIS_PASSWORD"),
			DialTimeout: g.timeout,
		})
		if err != nil {
			return nil, nil, err
		}
		return client.NewRedisStore(rdb, cache.Prefix("catalogctl")), func() { _ = cache.Close(rdb) }, nil
	}
	fileStore, err := client.NewFileStore(g.statePath)
	if err != nil {
		return nil, nil, err
	}
	return fileStore, func() {}, nil
}

func (g globals) saved(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: catalogctl saved list|save|load|delete")
	}
	kv, closeStore, err := g.store()
	if err != nil {
		return err
	}
	defer closeStore()

	saved := client.NewSavedSearches(kv)
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	switch args[0] {
	case "list":
		list, err := saved.List(ctx)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Fprintln(g.out, "Нет сохранённых поисков.")
			return nil
		}
		for _, s := range list {
			fmt.Fprintf(g.out, "%s  %s  %s  ?%s\n", s.ID, s.CreatedAt.Local().Format("2006-01-02 15:04"), s.Name, s.Query)
		}
		return nil

	case "save":
		fs := flag.NewFlagSet("saved save", flag.ContinueOnError)
		parse := criteriaFlags(fs)
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		name := strings.Join(fs.Args(), " ")
		cr, err := parse()
		if err != nil {
			return err
		}
		entry, err := saved.Save(ctx, name, cr)
		if err != nil {
			return err
		}
		fmt.Fprintln(g.out, entry.ID)
		return nil

	case "load":
		fs := flag.NewFlagSet("saved load", flag.ContinueOnError)
		view := fs.String("view", "grid", "grid or list")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if fs.NArg() != 1 {
			return errors.New("usage: catalogctl saved load [-view list] <id>")
		}
		entry, err := saved.Get(ctx, fs.Arg(0))
		if err != nil {
			return err
		}
		cr, err := entry.Criteria()
		if err != nil {
			return err
		}
		return g.fetch(cr, present.ParseView(*view))

	case "delete":
		if len(args) != 2 {
			return errors.New("usage: catalogctl saved delete <id>")
		}
		return saved.Delete(ctx, args[1])
	}
	return fmt.Errorf("unknown saved command %q", args[0])
}

func (g globals) tokenCmd(args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	subject := fs.String("subject", "editor", "token subject")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	secret := fs.String("secret", os.Getenv("JWT_SECRET"), "signing secret")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *secret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	token, err := auth.GenerateJWT(*subject, *secret, *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(g.out, token)
	return nil
}
