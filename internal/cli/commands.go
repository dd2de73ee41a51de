package cli

import (
	"context"
	"strings"
)

type access int

const (
	loggedOut access = iota + 1
	loggedIn
	anyone
)

type command struct {
	run         func(s *Shell, ctx context.Context, arg string) error
	name        string
	arg         string
	description string
	access      access
}

func (c command) availableTo(authenticated bool) bool {
	switch c.access {
	case loggedOut:
		return !authenticated
	case loggedIn:
		return authenticated
	default:
		return true
	}
}

func (c command) usage() string {
	if c.arg == "" {
		return c.name
	}
	return c.name + " [" + c.arg + "]"
}

// commands is filled in init because the handlers refer back to it through help.
var commands []command

func init() {
	commands = []command{
		{name: "register", description: "Create a new user", access: loggedOut, run: (*Shell).register},
		{name: "login", description: "Log in", access: loggedOut, run: (*Shell).login},
		{name: "logout", description: "Save and log out", access: loggedIn, run: (*Shell).logout},
		{name: "income", description: "Add an income", access: loggedIn, run: (*Shell).income},
		{name: "expense", description: "Add an expense", access: loggedIn, run: (*Shell).expense},
		{name: "set-budget", description: "Set a budget for a category", access: loggedIn, run: (*Shell).setBudget},
		{name: "update-budget", description: "Change a budget limit", access: loggedIn, run: (*Shell).updateBudget},
		{name: "remove-budget", description: "Remove a budget", access: loggedIn, run: (*Shell).removeBudget},
		{name: "add-category", description: "Add a category", access: loggedIn, run: (*Shell).addCategory},
		{name: "remove-category", description: "Remove an unused category", access: loggedIn, run: (*Shell).removeCategory},
		{name: "summary", description: "Show totals", access: loggedIn, run: (*Shell).summary},
		{name: "budgets", description: "Show budget status", access: loggedIn, run: (*Shell).budgets},
		{name: "categories", description: "Show totals per category", access: loggedIn, run: (*Shell).categories},
		{name: "expenses", description: "Show expenses for selected categories", access: loggedIn, run: (*Shell).expenses},
		{name: "period", description: "Show expenses for a date range", access: loggedIn, run: (*Shell).period},
		{name: "transactions", description: "List all transactions", access: loggedIn, run: (*Shell).transactions},
		{name: "clear", description: "Delete all transactions", access: loggedIn, run: (*Shell).clear},
		{name: "export-csv", arg: "file", description: "Export transactions to CSV", access: loggedIn, run: (*Shell).exportCSV},
		{name: "export-json", arg: "file", description: "Export transactions to JSON", access: loggedIn, run: (*Shell).exportJSON},
		{name: "import-csv", arg: "path", description: "Import transactions from CSV", access: loggedIn, run: (*Shell).importCSV},
		{name: "import-json", arg: "path", description: "Import transactions from JSON", access: loggedIn, run: (*Shell).importJSON},
		{name: "import-ofx", arg: "path", description: "Import a bank statement (OFX/QFX)", access: loggedIn, run: (*Shell).importOFX},
		{name: "transfer", description: "Send money to another user", access: loggedIn, run: (*Shell).transfer},
		{name: "help", description: "Show this help", access: anyone, run: (*Shell).help},
		{name: "exit", description: "Save and quit", access: anyone, run: (*Shell).exit},
	}
}

func lookupCommand(name string) (command, bool) {
	name = strings.ToLower(name)
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}
