package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/neillwu/wanclient/api"
	"github.com/neillwu/wanclient/app_setting"
	"github.com/neillwu/wanclient/favorites"
	"github.com/neillwu/wanclient/feed"
	"github.com/neillwu/wanclient/model"
	"github.com/neillwu/wanclient/store"
	"github.com/neillwu/wanclient/utils/dotenv"
	Logger "github.com/neillwu/wanclient/utils/log"
)

const usage = `usage: wancli [flags] <command> [args]

commands:
  login <username> <password>        sign in and persist the session
  register <user> <pass> <repass>    create an account and sign in
  logout                             sign out and clear local session
  whoami                             show the persisted session
  feed [pages]                       print the home feed (default 1 page)
  project <cid> [pages]              print a project category feed
  search <keyword>                   search articles, records the term
  favorites                          refresh and list favorited articles
  toggle <articleId>                 flip the favorite state of an article
  read <articleId>                   mark an article as read locally
  history                            print recent searches and hot keys
`

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML app setting file; defaults apply when empty")
		storePath  = flag.String("store", "", "override the local store path")
		verbose    = flag.Bool("verbose", false, "debug logging")
	)
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	dotenv.LoadDotEnvs()
	if *verbose {
		Logger.SetLevel(logrus.DebugLevel)
	}

	setting := app_setting.DefaultClientAppSetting()
	if *configPath != "" {
		setting = app_setting.ParseClientAppSetting(*configPath)
	}
	if *storePath != "" {
		setting.LOCAL_STORE_PATH = *storePath
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	st, err := store.Open(setting.LOCAL_STORE_PATH)
	if err != nil {
		Logger.Log.Fatalf("open local store: %v", err)
	}
	defer st.Close()

	httpClient, err := api.NewHTTPClient(
		setting.BASE_URL,
		time.Duration(setting.REQUEST_TIMEOUT_SECOND)*time.Second,
		st,
	)
	if err != nil {
		Logger.Log.Fatalf("build http client: %v", err)
	}

	client := api.NewClient(httpClient, st)
	client.SetRetry(setting.RETRY_MAX_ATTEMPTS, time.Duration(setting.RETRY_DELAY_MS)*time.Millisecond)

	bus := favorites.NewSignalBus()
	defer bus.Close()
	engine := favorites.NewEngine(client, client.CurrentSession, bus)

	ctx := context.Background()
	if err := run(ctx, args, client, engine, bus, st); err != nil {
		Logger.Log.Fatalf("%s: %v", args[0], err)
	}
}

func run(ctx context.Context, args []string, client *api.Client, engine *favorites.Engine, bus *favorites.SignalBus, st *store.Store) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		if len(rest) != 2 {
			return fmt.Errorf("login wants <username> <password>")
		}
		profile, err := client.Login(ctx, rest[0], rest[1])
		if err != nil {
			return err
		}
		engine.SeedFromLogin(profile.CollectIDs)
		if err := engine.Refresh(ctx); err != nil {
			Logger.Log.Warnf("favorites refresh after login failed: %v", err)
		}
		fmt.Printf("signed in as %s (%d favorites)\n", profile.Username, len(engine.IDs()))
		return nil

	case "register":
		if len(rest) != 3 {
			return fmt.Errorf("register wants <username> <password> <repassword>")
		}
		profile, err := client.Register(ctx, rest[0], rest[1], rest[2])
		if err != nil {
			return err
		}
		engine.SeedFromLogin(profile.CollectIDs)
		fmt.Printf("registered and signed in as %s\n", profile.Username)
		return nil

	case "logout":
		err := client.Logout(ctx)
		engine.Clear()
		fmt.Println("signed out")
		return err

	case "whoami":
		s := client.CurrentSession()
		if !s.IsAuthenticated() {
			fmt.Println("not signed in")
			return nil
		}
		fmt.Printf("%s (user id %d)\n", s.Username, s.UserID)
		return nil

	case "feed":
		pages := 1
		if len(rest) > 0 {
			var err error
			if pages, err = strconv.Atoi(rest[0]); err != nil {
				return fmt.Errorf("bad page count %q", rest[0])
			}
		}
		cursor := feed.NewCursor(0, client.HomeArticles)
		return printFeed(ctx, cursor, pages, engine, st)

	case "project":
		if len(rest) == 0 {
			return fmt.Errorf("project wants <cid>")
		}
		cid, err := strconv.Atoi(rest[0])
		if err != nil {
			return fmt.Errorf("bad category id %q", rest[0])
		}
		pages := 1
		if len(rest) > 1 {
			if pages, err = strconv.Atoi(rest[1]); err != nil {
				return fmt.Errorf("bad page count %q", rest[1])
			}
		}
		cursor := feed.NewCursor(1, func(ctx context.Context, page int) (*model.ArticlePage, error) {
			return client.ProjectArticles(ctx, page, cid)
		})
		return printFeed(ctx, cursor, pages, engine, st)

	case "search":
		if len(rest) == 0 {
			return fmt.Errorf("search wants <keyword>")
		}
		keyword := rest[0]
		cursor := feed.NewCursor(0, func(ctx context.Context, page int) (*model.ArticlePage, error) {
			return client.Search(ctx, page, keyword)
		})
		if err := cursor.LoadFirst(ctx); err != nil {
			return err
		}
		if err := st.AddRecentSearch(keyword); err != nil {
			Logger.Log.Warnf("failed to record search term: %v", err)
		}
		for _, a := range cursor.Items() {
			printArticle(&a, engine, st)
		}
		return nil

	case "favorites":
		if err := engine.Refresh(ctx); err != nil {
			return err
		}
		cursor := feed.NewCursor(0, client.CollectedArticles)
		if err := cursor.LoadFirst(ctx); err != nil {
			return err
		}
		for _, a := range cursor.Items() {
			printArticle(&a, engine, st)
		}
		return nil

	case "toggle":
		if len(rest) == 0 {
			return fmt.Errorf("toggle wants <articleId>")
		}
		id, err := strconv.Atoi(rest[0])
		if err != nil {
			return fmt.Errorf("bad article id %q", rest[0])
		}

		// Watch our own change signal so the optimistic flip and any
		// rollback both show up.
		sigCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		signals, err := bus.Subscribe(sigCtx)
		if err != nil {
			return err
		}
		go func() {
			for range signals {
				Logger.Log.Debug("favorites change signal received")
			}
		}()

		// Refresh first so the flip direction reflects server truth, not an
		// empty freshly-started process.
		if err := engine.Refresh(ctx); err != nil {
			return err
		}
		if err := engine.Toggle(ctx, &model.Article{ID: id}); err != nil {
			return err
		}
		fmt.Printf("article %d favorited=%v\n", id, engine.IsFavorited(id))
		return nil

	case "read":
		if len(rest) == 0 {
			return fmt.Errorf("read wants <articleId>")
		}
		id, err := strconv.Atoi(rest[0])
		if err != nil {
			return fmt.Errorf("bad article id %q", rest[0])
		}
		return st.MarkRead(id)

	case "history":
		terms, err := st.RecentSearches()
		if err != nil {
			return err
		}
		fmt.Println("recent searches:")
		for _, t := range terms {
			fmt.Printf("  %s\n", t)
		}
		keys, err := client.HotKeys(ctx)
		if err != nil {
			return err
		}
		fmt.Println("hot keys:")
		for _, k := range keys {
			fmt.Printf("  %s\n", k.Name)
		}
		return nil

	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printFeed(ctx context.Context, cursor *feed.Cursor, pages int, engine *favorites.Engine, st *store.Store) error {
	if err := cursor.LoadFirst(ctx); err != nil {
		return err
	}
	for i := 1; i < pages && !cursor.Exhausted(); i++ {
		if err := cursor.LoadNext(ctx); err != nil {
			return err
		}
	}
	for _, a := range cursor.Items() {
		printArticle(&a, engine, st)
	}
	return nil
}

func printArticle(a *model.Article, engine *favorites.Engine, st *store.Store) {
	marker := " "
	if engine.IsFavorited(a.CanonicalID()) {
		marker = "*"
	}
	read, err := st.IsRead(a.ID)
	if err == nil && read {
		marker += " (read)"
	}
	fmt.Printf("%s %7d  %-20s  %s\n", marker, a.ID, a.DisplayAuthor(), a.Title)
}
