// Package bffctl is an interactive console that drives the BFF through the
// request client, the same way the browser does: cookies in a jar, refresh on
// expiry and a login prompt when the session is gone.
package bffctl

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/jrsteele09/go-staff-bff/apiclient"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

type Console struct {
	api     *apiclient.Client
	out     io.Writer
	in      *bufio.Reader
	user    string
	current string

	// interactive is true when passwords can be read from a terminal.
	interactive bool
}

func NewConsole(baseURL string, in io.Reader, out io.Writer) (*Console, error) {
	c := &Console{
		out:         out,
		in:          bufio.NewReader(in),
		current:     "/",
		interactive: in == io.Reader(os.Stdin) && term.IsTerminal(int(os.Stdin.Fd())),
	}
	api, err := apiclient.New(baseURL,
		apiclient.WithCurrentPath(func() string { return c.current }),
		apiclient.WithLoginRedirect(func(loginURL string) {
			c.user = ""
			fmt.Fprintf(c.out, "session ended, log in again (%s)\n", loginURL)
		}),
	)
	if err != nil {
		return nil, err
	}
	c.api = api
	return c, nil
}

func (c *Console) status() string {
	if c.user == "" {
		return "anonymous"
	}
	return c.user
}

// Run reads commands until EOF or exit.
//
//	login <email>            prompt for a password and sign in
//	me                       show the signed-in profile
//	get|delete <path>        call a BFF route
//	post|put|patch <path> <json>
//	refresh                  rotate the session explicitly
//	logout                   end the session
//	exit | quit
func (c *Console) Run(ctx context.Context) {
	for {
		fmt.Fprintf(c.out, "bff %s> ", c.status())
		line, err := c.in.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch cmd := strings.ToLower(parts[0]); cmd {
		case "help":
			fmt.Fprintln(c.out, "commands: login <email>, me, get|post|put|patch|delete <path> [json], refresh, logout, exit")
		case "login":
			if len(parts) < 2 {
				fmt.Fprintln(c.out, "usage: login <email>")
				continue
			}
			c.report(c.Login(ctx, parts[1]))
		case "me":
			c.report(c.Me(ctx))
		case "get", "delete", "post", "put", "patch":
			if len(parts) < 2 {
				fmt.Fprintf(c.out, "usage: %s <path> [json]\n", cmd)
				continue
			}
			body := strings.TrimSpace(strings.Join(parts[2:], " "))
			c.report(c.Call(ctx, strings.ToUpper(cmd), parts[1], body))
		case "refresh":
			if c.api.Refresh(ctx) {
				fmt.Fprintln(c.out, "session refreshed")
			} else {
				fmt.Fprintln(c.out, "refresh rejected")
			}
		case "logout":
			c.report(c.Logout(ctx))
		case "exit", "quit":
			fmt.Fprintln(c.out, "bye")
			return
		default:
			fmt.Fprintln(c.out, "unknown command:", cmd)
		}
	}
}

func (c *Console) report(err error) {
	if err == nil || apiclient.IsAuthError(err) {
		return
	}
	for _, msg := range apiclient.Messages(err) {
		fmt.Fprintln(c.out, "error:", msg)
	}
}

func (c *Console) Login(ctx context.Context, email string) error {
	fmt.Fprint(c.out, "password: ")
	pw, err := c.password()
	fmt.Fprintln(c.out)
	if err != nil {
		return err
	}

	var out struct {
		User map[string]any `json:"user"`
	}
	if err := c.api.Call(ctx, http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": pw}, &out); err != nil {
		return err
	}
	c.user = email
	fmt.Fprintf(c.out, "logged in as %s\n", email)
	return nil
}

func (c *Console) password() (string, error) {
	if c.interactive {
		pw, err := readPassword(int(os.Stdin.Fd()))
		return string(pw), err
	}
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (c *Console) Me(ctx context.Context) error {
	c.current = "/profile"
	var profile map[string]any
	if err := c.api.Call(ctx, http.MethodGet, "/api/auth/me", nil, &profile); err != nil {
		return err
	}
	if email, ok := profile["email"].(string); ok {
		c.user = email
	}
	return c.print(profile)
}

func (c *Console) Call(ctx context.Context, method, path, body string) error {
	c.current = path
	var payload any
	if body != "" {
		if err := json.Unmarshal([]byte(body), &payload); err != nil {
			return fmt.Errorf("body is not valid JSON: %w", err)
		}
	}
	var out any
	if err := c.api.Call(ctx, method, path, payload, &out); err != nil {
		return err
	}
	return c.print(out)
}

func (c *Console) Logout(ctx context.Context) error {
	if err := c.api.Call(ctx, http.MethodPost, "/api/auth/logout", nil, nil); err != nil {
		return err
	}
	c.user = ""
	fmt.Fprintln(c.out, "logged out")
	return nil
}

func (c *Console) print(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
