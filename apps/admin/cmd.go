package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/yair681/pirhei-aharon/core"
	"github.com/yair681/pirhei-aharon/core/profile"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf       *core.Config
	profileSvc profile.Service
	migrate    func() error
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  bootstrap                                  - register the super-admin account")
	fmt.Println("  adduser -name NAME -email EMAIL -role ROLE - provision a user (student|teacher|admin)")
	fmt.Println("  migrate                                    - create tables and triggers")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserName := addUserCmd.String("name", "", "The user's display name.")
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserRole := addUserCmd.String("role", profile.RoleStudent, "The user's role: student, teacher or admin.")

	switch args[1] {
	case "bootstrap":
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			cli.printUsage()
			return errHelp
		}
		return cli.bootstrap(pwd)
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserName == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserName, *addUserEmail, pwd, *addUserRole)
	case "migrate":
		return cli.migrate()
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
