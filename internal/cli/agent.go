package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/BuzzLyutic/taskr/internal/dashboard"
	"github.com/BuzzLyutic/taskr/internal/localstore"
	"github.com/BuzzLyutic/taskr/internal/session"
)

// agent is the command line user agent: one remote client whose session
// value survives between invocations in the local store.
type agent struct {
	session *session.Store
	view    *dashboard.View
	out     *printer

	closers []func()
}

func (app *App) openAgent(ctx context.Context, w io.Writer) (*agent, error) {
	be, err := app.openBackend(app)
	if err != nil {
		return nil, err
	}

	store, err := localstore.Open(ctx, app.cfg.LocalDB())
	if err != nil {
		be.close()
		return nil, err
	}

	client := be.newClient()
	out := newPrinter(w, app.NoColor)
	sess := session.New(session.Options{
		Client:      client,
		Marker:      localstore.NewSessionMarker(store),
		Notifier:    out,
		Navigator:   out,
		Logger:      app.logger,
		RecoveryURL: app.cfg.RecoveryURL(),
	})
	sess.Init(ctx)

	view := dashboard.New(dashboard.Options{
		Databases: client,
		Scope:     scope(app.cfg),
		Users:     sess,
		Notifier:  out,
		Navigator: out,
		Logger:    app.logger,
	})

	return &agent{
		session: sess,
		view:    view,
		out:     out,
		closers: []func(){func() { _ = store.Close() }, be.close},
	}, nil
}

func (a *agent) Close() {
	for _, c := range a.closers {
		c()
	}
}

// requireUser fails when no session was restored.
func (a *agent) requireUser() error {
	if _, ok := a.session.User(); !ok {
		return ErrNotLoggedIn
	}
	return nil
}

// withAgent opens the agent for one command and closes it afterwards.
func (app *App) withAgent(ctx context.Context, w io.Writer, fn func(a *agent) error) error {
	a, err := app.openAgent(ctx, w)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

var readPassword = term.ReadPassword

// promptPassword reads a password from the terminal without echo.
func promptPassword(w io.Writer, prompt string) (string, error) {
	fmt.Fprint(w, prompt)
	b, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if len(b) == 0 {
		return "", errors.New("empty password")
	}
	return string(b), nil
}
