package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/users"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp             = errors.New("help provided")
	errPasswordMismatch = errors.New("passwords do not match")
)

type superuserCreator interface {
	CreateSuperuser(ctx context.Context, email, fullName, password string) (users.User, error)
}

type commandLine struct {
	users superuserCreator
	out   io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  createsuperuser -email EMAIL [-name FULL_NAME] - create an admin account; the password is prompted next")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	createCmd := flag.NewFlagSet("createsuperuser", flag.ContinueOnError)
	createCmd.SetOutput(cli.out)
	email := createCmd.String("email", "", "The admin's email address.")
	name := createCmd.String("name", "Administrator", "The admin's full name.")

	switch args[1] {
	case "createsuperuser":
		if err := createCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *email == "" {
			createCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		u, err := cli.users.CreateSuperuser(ctx, *email, *name, pwd)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "superuser %s created (id %s)\n", u.Email, u.ID)
		return nil
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	fmt.Fprint(cli.out, "Confirm password:")
	confirm, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if string(pwd) != string(confirm) {
		return "", errPasswordMismatch
	}
	return string(pwd), nil
}
