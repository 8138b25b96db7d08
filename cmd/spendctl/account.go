package main

import (
	"context"
	"fmt"

	"spendwatch/internal/api"
)

type registerCmd struct {
	Name     string `required help:"Display name."`
	Email    string `required help:"Login email."`
	Password string `required help:"Password."`
}

func (c *registerCmd) Run(g *globals) error {
	ctx, cancel := context.WithTimeout(context.Background(), g.Timeout)
	defer cancel()

	err := g.client().Register(ctx, api.Registration{Name: c.Name, Email: c.Email, Password: c.Password})
	if err != nil {
		return err
	}
	fmt.Printf("Registered %s. Run `spendctl login` to continue.\n", c.Email)
	return nil
}

type loginCmd struct {
	Email    string `required help:"Login email."`
	Password string `required help:"Password."`
}

func (c *loginCmd) Run(g *globals) error {
	ctx, cancel := context.WithTimeout(context.Background(), g.Timeout)
	defer cancel()

	sess, err := g.client().Login(ctx, api.Credentials{Email: c.Email, Password: c.Password})
	if err != nil {
		return err
	}
	store := g.sessions()
	if err := store.Save(sess); err != nil {
		return err
	}
	fmt.Printf("Logged in as %s (session saved to %s)\n", displayName(sess.User.Name, sess.User.Email), store.Path())
	return nil
}

type logoutCmd struct{}

func (c *logoutCmd) Run(g *globals) error {
	if err := g.sessions().Clear(); err != nil {
		return err
	}
	fmt.Println("Logged out")
	return nil
}

func displayName(name, email string) string {
	if name != "" {
		return name
	}
	return email
}
