// Command taskctl performs operator tasks against the tasks database:
// creating users, clearing lockouts, toggling accounts and purging sessions.
package main

import (
	"bufio"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"tasks-api/configs"
	"tasks-api/internal/repository"
	"tasks-api/internal/service"
	"tasks-api/pkg/database"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

func main() {
	if err := newApp(os.Stdin, os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// env is shared by every command; Before opens the store and After closes it.
type env struct {
	stdin  io.Reader
	stdout io.Writer
	db     *sql.DB
	auth   *service.AuthService
}

func newApp(stdin io.Reader, stdout io.Writer) *cli.App {
	e := &env{stdin: stdin, stdout: stdout}
	return &cli.App{
		Name:      "taskctl",
		Usage:     "Administer the tasks API database",
		Writer:    stdout,
		ErrWriter: stdout,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "driver",
				Usage:   "Database driver (postgres or sqlite); defaults to DB_DRIVER",
				EnvVars: []string{"TASKCTL_DRIVER"},
			},
			&cli.StringFlag{
				Name:    "dsn",
				Usage:   "Data source name, or a file path for sqlite; defaults to the configured database",
				EnvVars: []string{"TASKCTL_DSN"},
			},
		},
		Before: e.open,
		After:  e.close,
		Commands: []*cli.Command{
			e.userCommand(),
			e.sessionCommand(),
		},
	}
}

func (e *env) open(c *cli.Context) error {
	// Help and unknown commands need no database.
	if c.Args().Len() == 0 || c.Args().First() == "help" || c.Bool("help") {
		return nil
	}

	cfg := configs.LoadConfig()
	driver := strings.ToLower(c.String("driver"))
	if driver == "" {
		driver = cfg.DBDriver
	}
	dsn := c.String("dsn")
	switch {
	case dsn == "":
		cfg.DBDriver = driver
		dsn = database.DSN(cfg)
	case driver == repository.DriverSQLite:
		dsn = database.SQLiteDSN(dsn)
	}

	db, err := database.Open(driver, dsn)
	if err != nil {
		return err
	}
	if err := repository.CreateTableIfNotExists(c.Context, db, driver); err != nil {
		db.Close()
		return err
	}
	e.db = db
	e.auth = service.NewAuthService(repository.NewStore(db), nil)
	return nil
}

func (e *env) close(*cli.Context) error {
	if e.db == nil {
		return nil
	}
	return e.db.Close()
}

func (e *env) userCommand() *cli.Command {
	usernameFlag := func() cli.Flag {
		return &cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "Username", Required: true}
	}
	return &cli.Command{
		Name:  "user",
		Usage: "Manage users",
		Subcommands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Create an active user",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "fullname", Aliases: []string{"n"}, Usage: "Full name", Required: true},
					usernameFlag(),
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Password (prompted for when omitted)"},
				},
				Action: e.userAdd,
			},
			{
				Name:   "unlock",
				Usage:  "Reset the failed login counter",
				Flags:  []cli.Flag{usernameFlag()},
				Action: e.userUnlock,
			},
			{
				Name:   "activate",
				Usage:  "Allow the user to log in",
				Flags:  []cli.Flag{usernameFlag()},
				Action: e.userSetActive(true),
			},
			{
				Name:   "deactivate",
				Usage:  "Stop the user from logging in",
				Flags:  []cli.Flag{usernameFlag()},
				Action: e.userSetActive(false),
			},
		},
	}
}

func (e *env) sessionCommand() *cli.Command {
	return &cli.Command{
		Name:  "session",
		Usage: "Manage sessions",
		Subcommands: []*cli.Command{
			{
				Name:   "purge",
				Usage:  "Delete sessions whose refresh token has expired",
				Action: e.sessionPurge,
			},
		},
	}
}

func (e *env) userAdd(c *cli.Context) error {
	password := c.String("password")
	if password == "" {
		fmt.Fprint(e.stdout, "Password: ")
		var err error
		password, err = readPassword(e.stdin)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(e.stdout)
	}

	user, err := e.auth.Register(c.Context, c.String("fullname"), c.String("username"), password)
	if err != nil {
		return describe(err)
	}
	fmt.Fprintf(e.stdout, "User %s created with ID %d\n", user.Username, user.ID)
	return nil
}

func (e *env) userUnlock(c *cli.Context) error {
	username := c.String("username")
	if err := e.auth.UnlockUser(c.Context, username); err != nil {
		return describe(err)
	}
	fmt.Fprintf(e.stdout, "User %s unlocked\n", username)
	return nil
}

func (e *env) userSetActive(active bool) cli.ActionFunc {
	return func(c *cli.Context) error {
		username := c.String("username")
		if err := e.auth.SetUserActive(c.Context, username, active); err != nil {
			return describe(err)
		}
		state := "deactivated"
		if active {
			state = "activated"
		}
		fmt.Fprintf(e.stdout, "User %s %s\n", username, state)
		return nil
	}
}

func (e *env) sessionPurge(c *cli.Context) error {
	n, err := e.auth.PurgeExpiredSessions(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "Purged %d expired sessions\n", n)
	return nil
}

func describe(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return errors.New("no such user")
	}
	return err
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	// Pipes and tests.
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
