package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/anyspecs/anyspecs/internal/api"
	"github.com/anyspecs/anyspecs/internal/config"
	"github.com/anyspecs/anyspecs/internal/library"
	"github.com/anyspecs/anyspecs/internal/notice"
	"github.com/anyspecs/anyspecs/internal/session"
	"github.com/anyspecs/anyspecs/internal/ux"
)

// app is the state shared by every command of one invocation.
type app struct {
	out     io.Writer
	errOut  io.Writer
	printer *ux.Printer

	cfg     config.Config
	client  *api.Client
	store   *session.Store
	format  ux.Format
	now     func() time.Time
	baseURL string
	verbose bool
	output  string
}

func newApp(out, errOut io.Writer) *app {
	return &app{
		out:     out,
		errOut:  errOut,
		printer: ux.NewPrinter(out, errOut),
		now:     time.Now,
	}
}

// execute runs the command line. Errors that no component reported yet
// are printed once, naming the server when it could not be reached; an
// expired server session also drops the stored one.
func (a *app) execute(args []string) error {
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	err := root.Execute()
	if err == nil {
		return nil
	}
	if api.IsUnauthorized(err) && a.store != nil {
		if cerr := a.store.Clear(); cerr != nil {
			log.Printf("clear session: %v", cerr)
		}
		notice.Errorf(a.printer, "Session expired, run anyspecs login")
		return err
	}
	if a.printer.Errors() == 0 {
		if api.IsKind(err, api.KindTransport) {
			notice.Errorf(a.printer, "Cannot reach %s: %v", a.cfg.BaseURL, err)
		} else {
			notice.Errorf(a.printer, "%v", err)
		}
	}
	return err
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "anyspecs",
		Short:         "Manage and process files in an AnySpecs library",
		Long:          "anyspecs signs in to an AnySpecs server, browses and manages its shared file library, and runs documents through the server's AI workflow.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}
	root.PersistentFlags().StringVar(&a.baseURL, "base-url", "", "server address (default $ANYSPECS_BASE_URL)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log HTTP traffic to stderr")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", "table", "output format: table, json or yaml")

	root.AddCommand(
		a.loginCmd(),
		a.registerCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.statusCmd(),
		a.noticeCmd(),
		a.filesCmd(),
		a.browseCmd(),
		a.chatCmd(),
	)
	return root
}

// setup loads configuration, builds the client and restores the stored
// session.
func (a *app) setup() error {
	if a.verbose {
		log.SetOutput(a.errOut)
	} else {
		log.SetOutput(io.Discard)
	}

	format, err := ux.ParseFormat(a.output)
	if err != nil {
		return err
	}
	a.format = format
	a.printer.SetStructured(format != ux.FormatTable)

	a.cfg = config.Load()
	if a.cfg.Environment == "development" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}
	if a.baseURL != "" {
		a.cfg.BaseURL = a.baseURL
	}

	a.client, err = api.New(api.Options{
		BaseURL:    a.cfg.BaseURL,
		CookieName: a.cfg.SessionCookie,
		Timeout:    a.cfg.HTTPTimeout,
	})
	if err != nil {
		return err
	}

	a.store = session.NewStore(a.cfg.StateDir)
	log.Printf("state directory %s", a.store.Dir())
	sess, err := a.store.Load()
	switch {
	case errors.Is(err, session.ErrNoSession):
		return nil
	case err != nil:
		log.Printf("restore session: %v", err)
		return nil
	}
	if sess.Expired(a.now()) {
		if err := a.store.Clear(); err != nil {
			log.Printf("clear session: %v", err)
		}
		a.printer.Notify(warning("Your session has expired, please log in again"))
		return nil
	}
	a.client.UseSession(sess)
	return nil
}

// requireSession returns the signed-in session or session.ErrNoSession.
func (a *app) requireSession() (*session.Session, error) {
	sess := a.client.Session()
	if sess == nil {
		return nil, fmt.Errorf("%w: run anyspecs login first", session.ErrNoSession)
	}
	return sess, nil
}

func (a *app) manager() *library.Manager {
	return library.NewManager(a.client, a.client.Session(), a.printer, a.cfg.PageSize)
}

// encode writes v in the structured output format. It reports false for
// table output so the caller renders its own view.
func (a *app) encode(v any) (bool, error) {
	if a.format == ux.FormatTable {
		return false, nil
	}
	return true, ux.Encode(a.out, v, a.format)
}

func (a *app) context(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func (a *app) println(args ...any) {
	a.printer.Println(args...)
}

func stdinIsTerminal() bool {
	return isatty.IsTerminal(os.Stdin.Fd())
}

func warning(msg string) notice.Notice {
	return notice.Notice{Level: notice.Warning, Message: msg}
}
