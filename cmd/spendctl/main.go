/*Command line client for the expense API*/
package main

import (
	"github.com/alecthomas/kong"

	appcli "spendwatch/internal/cli"
)

// cli commands / args available
var cli struct {
	Globals globals `embed`

	Register registerCmd `cmd help:"Create an account."`
	Login    loginCmd    `cmd help:"Log in and store the session locally."`
	Logout   logoutCmd   `cmd help:"Forget the stored session."`

	Add  addCmd  `cmd help:"Record an expense or income."`
	List listCmd `cmd help:"List recent transactions."`
	Edit editCmd `cmd help:"Change the category and amount of a transaction."`
	Rm   rmCmd   `cmd help:"Delete a transaction."`

	Report reportCmd `cmd help:"Show totals, top categories and the spending limit."`
	Series seriesCmd `cmd help:"Show spending over time."`
	Alert  alertCmd  `cmd help:"Show how much of the spending limit is used."`

	Threshold thresholdCmd `cmd help:"Manage the spending limit."`
	Alerts    alertsCmd    `cmd help:"Turn threshold alerts on or off."`

	Export exportCmd `cmd help:"Write the report to a file, Elasticsearch or Google Sheets."`
}

func main() {
	appcli.LoadEnvFile()
	ctx := kong.Parse(&cli,
		kong.Name("spendctl"),
		kong.Description("Track expenses and spending limits from the terminal."))
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
