// Package prompt reads login input from a terminal, masking the password
// unless the form asks for it to be shown.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrClosed is returned when the input ends before a value is read.
var ErrClosed = errors.New("input closed")

// Answers is one filled-in login form.
type Answers struct {
	UserID   string
	Password string
	Remember bool
}

// Defaults pre-fill the prompts.
type Defaults struct {
	UserID          string
	Remember        bool
	PasswordVisible bool
}

// Prompter asks for the login fields on in and echoes prompts to out.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
	// fd is the terminal descriptor of in, or -1 when in is not a terminal.
	fd int
	// readPassword reads a line without echo.
	readPassword func(fd int) ([]byte, error)
}

// New returns a prompter over in and out. Masked input is used only when in
// is a terminal.
func New(in io.Reader, out io.Writer) *Prompter {
	fd := -1
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd = int(f.Fd())
	}
	return &Prompter{
		in:           bufio.NewReader(in),
		out:          out,
		fd:           fd,
		readPassword: term.ReadPassword,
	}
}

// Line prints label and returns the next input line without its newline.
func (p *Prompter) Line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	line, err := p.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		if errors.Is(err, io.EOF) {
			return "", ErrClosed
		}
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Password reads the secret. It is echoed only when visible is set or the
// input is not a terminal.
func (p *Prompter) Password(visible bool) (string, error) {
	if visible || p.fd < 0 {
		return p.Line("Password: ")
	}
	fmt.Fprint(p.out, "Password: ")
	b, err := p.readPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

// Confirm asks a yes/no question. An empty answer selects def.
func (p *Prompter) Confirm(question string, def bool) (bool, error) {
	hint := "[y/N]"
	if def {
		hint = "[Y/n]"
	}
	for {
		answer, err := p.Line(fmt.Sprintf("%s %s: ", question, hint))
		if err != nil {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Fprintln(p.out, "Please answer y or n.")
	}
}

// Login asks for the user ID, password and remember choice. An empty user
// ID keeps the pre-filled one.
func (p *Prompter) Login(def Defaults) (Answers, error) {
	label := "User ID: "
	if def.UserID != "" {
		label = fmt.Sprintf("User ID [%s]: ", def.UserID)
	}
	userID, err := p.Line(label)
	if err != nil {
		return Answers{}, err
	}
	if strings.TrimSpace(userID) == "" && def.UserID != "" {
		userID = def.UserID
	}

	password, err := p.Password(def.PasswordVisible)
	if err != nil {
		return Answers{}, err
	}

	remember, err := p.Confirm("Remember user ID?", def.Remember)
	if err != nil {
		return Answers{}, err
	}
	return Answers{UserID: userID, Password: password, Remember: remember}, nil
}
