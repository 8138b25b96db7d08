package main

import (
	"context"
	"fmt"
	"os"

	"spendwatch/internal/core"
	"spendwatch/internal/services"
)

type addCmd struct {
	Type        string `arg help:"expense or income."`
	Amount      string `arg help:"Amount, e.g. 12.50."`
	Category    string `arg help:"Category, e.g. Food."`
	Mode        string `short:"m" default:"Cash" help:"Payment mode."`
	Description string `short:"d" help:"Free text note."`
}

func (c *addCmd) Run(g *globals) error {
	a, err := g.login()
	if err != nil {
		return err
	}
	t, err := core.ParseTransactionType(c.Type)
	if err != nil {
		return err
	}
	amount, err := core.ParsePositiveAmount(c.Amount)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), g.Timeout)
	defer cancel()
	err = a.ledger.Create(ctx, a.token, core.TransactionDraft{
		Type:        t,
		Amount:      amount,
		Category:    c.Category,
		Mode:        c.Mode,
		Description: c.Description,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Recorded %s of %s in %s\n", t, amount, c.Category)
	return nil
}

type listCmd struct {
	Limit    int    `short:"n" default:"20" help:"Maximum number of transactions (0 for all)."`
	Category string `short:"c" help:"Only categories containing this text."`
}

func (c *listCmd) Run(g *globals) error {
	a, err := g.login()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), g.Timeout)
	defer cancel()

	listing, err := a.ledger.List(ctx, a.token, services.ListQuery{Limit: c.Limit, Category: c.Category})
	if err != nil {
		return err
	}
	printTransactions(os.Stdout, listing)
	return nil
}

type editCmd struct {
	ID       string `arg help:"Transaction ID."`
	Category string `required help:"New category."`
	Amount   string `required help:"New amount."`
}

func (c *editCmd) Run(g *globals) error {
	a, err := g.login()
	if err != nil {
		return err
	}
	amount, err := core.ParsePositiveAmount(c.Amount)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), g.Timeout)
	defer cancel()

	if err := a.ledger.Update(ctx, a.token, c.ID, core.TransactionPatch{Category: c.Category, Amount: amount}); err != nil {
		return err
	}
	fmt.Printf("Updated %s\n", c.ID)
	return nil
}

type rmCmd struct {
	ID string `arg help:"Transaction ID."`
}

func (c *rmCmd) Run(g *globals) error {
	a, err := g.login()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), g.Timeout)
	defer cancel()

	if err := a.ledger.Delete(ctx, a.token, c.ID); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", c.ID)
	return nil
}
