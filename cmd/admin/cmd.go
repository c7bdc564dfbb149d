package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"clubhub/internal/model"
	"clubhub/internal/validate"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type adminCreator interface {
	CreateAdmin(ctx context.Context, username, email, password string) (model.User, bool, error)
}

type commandLine struct {
	migrate func(command string) error
	admins  adminCreator
	out     io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate up|down|status - apply, roll back or show schema migrations")
	fmt.Fprintln(cli.out, "  createadmin -username USERNAME -email EMAIL - create or promote a club admin")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	createAdminCmd := flag.NewFlagSet("createadmin", flag.ContinueOnError)
	createAdminCmd.SetOutput(cli.out)
	createAdminUname := createAdminCmd.String("username", "", "The admin's username. The password will be prompted next.")
	createAdminEmail := createAdminCmd.String("email", "", "The admin's email, used when the account is new.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		switch args[2] {
		case "up", "down", "status":
			return cli.migrate(args[2])
		default:
			return fmt.Errorf("%q: no such command", args[2])
		}
	case "createadmin":
		if err := createAdminCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *createAdminUname == "" {
			createAdminCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			createAdminCmd.Usage()
			return errHelp
		}
		return cli.createAdmin(*createAdminUname, *createAdminEmail, string(pwd))
	default:
		cli.printUsage()
		return errHelp
	}
}

var emailCheck = validator.New()

// createAdmin creates a staff club admin or promotes an existing account.
func (cli *commandLine) createAdmin(uname, email, pwd string) error {
	uname = strings.TrimSpace(uname)
	email = strings.ToLower(strings.TrimSpace(email))
	if err := emailCheck.Var(email, "omitempty,email"); err != nil {
		return errors.Errorf("%q is not a valid email", email)
	}
	if msg := validate.Password(pwd); msg != "" {
		return errors.New(msg)
	}
	u, created, err := cli.admins.CreateAdmin(context.Background(), uname, email, pwd)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(cli.out, "created admin %s (id %d)\n", u.Username, u.ID)
	} else {
		fmt.Fprintf(cli.out, "promoted %s (id %d) to admin\n", u.Username, u.ID)
	}
	return nil
}
