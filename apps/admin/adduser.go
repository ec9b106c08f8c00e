package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/yair681/pirhei-aharon/core/profile"
)

// bootstrap registers the super-admin account with the configured email.
func (cli *commandLine) bootstrap(pwd string) error {
	_, err := cli.profileSvc.RegisterSuperAdmin(context.Background(), cli.conf.SuperAdminEmail, pwd)
	return err
}

// addUser provisions a profile acting with super-admin authority.
func (cli *commandLine) addUser(name, email, pwd, role string) error {
	ctx := context.Background()

	actor, err := cli.profileSvc.GetByEmail(ctx, cli.conf.SuperAdminEmail)
	if err != nil {
		return errors.Wrap(err, "loading super-admin profile; run bootstrap first")
	}

	_, err = cli.profileSvc.Create(ctx, actor, profile.NewProfile{
		Name:     name,
		Email:    email,
		Password: pwd,
		Role:     role,
	})
	return err
}
