// Package main runs the SecureBank login gate as an interactive terminal
// shell backed by a JSON file store.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atinyakov/securebank/internal/client/prompt"
	"github.com/atinyakov/securebank/internal/config"
	"github.com/atinyakov/securebank/internal/form"
	"github.com/atinyakov/securebank/internal/logger"
	"github.com/atinyakov/securebank/internal/service"
	"github.com/atinyakov/securebank/internal/storage"
)

var (
	version   string
	buildDate string
)

const helpText = "Available commands: help, login, toggle, dashboard, logout, exit"

// shell drives one login controller and dashboard guard from terminal input.
type shell struct {
	login  *service.LoginController
	guard  *service.DashboardGuard
	prompt *prompt.Prompter
	out    io.Writer
}

// repl runs the interactive loop until exit or end of input.
func (s *shell) repl(ctx context.Context) error {
	state, err := s.login.Load(ctx)
	if err != nil {
		return fmt.Errorf("load form: %w", err)
	}
	if state.UserID.Value != "" {
		fmt.Fprintf(s.out, "Remembered user ID: %s\n", state.UserID.Value)
	}

	for {
		line, err := s.prompt.Line("securebank> ")
		if errors.Is(err, prompt.ErrClosed) {
			return nil
		}
		if err != nil {
			return err
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "help":
			fmt.Fprintln(s.out, helpText)
		case "login":
			if err := s.signIn(ctx); err != nil {
				if errors.Is(err, prompt.ErrClosed) {
					return nil
				}
				return err
			}
		case "toggle":
			if s.login.TogglePasswordVisibility().PasswordVisible {
				fmt.Fprintln(s.out, "Password will be shown while typing")
			} else {
				fmt.Fprintln(s.out, "Password will be hidden while typing")
			}
		case "dashboard":
			s.dashboard(ctx)
		case "logout":
			s.logout(ctx)
		case "exit":
			fmt.Fprintln(s.out, "Bye")
			return nil
		default:
			fmt.Fprintln(s.out, "Unknown command. Type 'help' for a list of commands.")
		}
	}
}

func (s *shell) signIn(ctx context.Context) error {
	state := s.login.Snapshot()
	answers, err := s.prompt.Login(prompt.Defaults{
		UserID:          state.UserID.Value,
		Remember:        state.Remember,
		PasswordVisible: state.PasswordVisible,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(s.out, "Signing in...")
	out, err := s.login.Submit(ctx, service.Credentials{
		UserID:   answers.UserID,
		Password: answers.Password,
		Remember: answers.Remember,
	})
	if errors.Is(err, service.ErrSubmitInFlight) {
		fmt.Fprintln(s.out, "A sign-in is already in progress.")
		return nil
	}
	printState(s.out, out.State)
	if !out.Success {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(out.RedirectAfter):
	}
	s.dashboard(ctx)
	return nil
}

func (s *shell) dashboard(ctx context.Context) {
	view, err := s.guard.Check(ctx)
	if errors.Is(err, service.ErrNotAuthenticated) {
		fmt.Fprintln(s.out, "Not logged in. Use 'login' first.")
		return
	}
	if err != nil {
		fmt.Fprintf(s.out, "Failed to open dashboard: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "Welcome back! Today is %s\n", view.Date)
	for _, c := range view.Cards {
		fmt.Fprintf(s.out, "  %-18s %s\n", c.Title, c.Value)
	}
}

func (s *shell) logout(ctx context.Context) {
	if err := s.guard.Logout(ctx); err != nil {
		fmt.Fprintf(s.out, "Failed to log out: %v\n", err)
		return
	}
	if _, err := s.login.Load(ctx); err != nil {
		fmt.Fprintf(s.out, "Failed to reload form: %v\n", err)
		return
	}
	fmt.Fprintln(s.out, "Logged out")
}

// printState shows field errors and the banner of a form state.
func printState(w io.Writer, state form.State) {
	for _, msg := range []string{state.UserID.Message, state.Password.Message} {
		if msg != "" {
			fmt.Fprintf(w, "  ! %s\n", msg)
		}
	}
	if state.Banner.Visible {
		fmt.Fprintf(w, "[%s] %s\n", state.Banner.Kind, state.Banner.Message)
	}
}

// terminalProfile names the local store of the current OS user.
func terminalProfile() string {
	name := cmp.Or(os.Getenv("USER"), os.Getenv("USERNAME"), "terminal")
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("securebank:"+name)).String()
}

func main() {
	options, err := config.ParseArgs(os.Args[1:])
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	fmt.Printf("SecureBank terminal %s (%s)\n", cmp.Or(version, "N/A"), cmp.Or(buildDate, "N/A"))

	l := logger.New()
	defer func() { _ = l.Log.Sync() }()
	if err := l.Init(options.LogLevel); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}

	fileStore, err := storage.NewFileStorage(options.StorageFile)
	if err != nil {
		l.Log.Fatal("cannot open storage file", zap.String("path", options.StorageFile), zap.Error(err))
	}
	local := storage.NewLocal(fileStore, terminalProfile())
	auth := service.NewAuthSimulator(options.Credentials(), time.Duration(options.AuthDelay))

	s := &shell{
		login:  service.NewLoginController(local, auth, l.Log, time.Duration(options.RedirectDelay)),
		guard:  service.NewDashboardGuard(local),
		prompt: prompt.New(os.Stdin, os.Stdout),
		out:    os.Stdout,
	}
	fmt.Println(helpText)
	if err := s.repl(context.Background()); err != nil {
		l.Log.Fatal("shell failed", zap.Error(err))
	}
}
