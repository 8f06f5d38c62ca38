package main

import (
	"fmt"
	"net/http"
	"os"
	"time"
)

// Version is set at build time
var Version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	cli := &CLI{
		BaseURL: getEnv("SCIMLY_URL", "http://localhost:8080"),
		Tenant:  getEnv("SCIMLY_TENANT", "default"),
		Token:   os.Getenv("SCIMLY_TOKEN"),
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
	if len(args) > 0 {
		if t, ok := parseArgs(args)["tenant"]; ok {
			cli.Tenant = t
		}
	}

	var err error
	switch cmd {
	case "user", "users":
		err = cli.resourceCommand("Users", args)
	case "group", "groups":
		err = cli.resourceCommand("Groups", args)
	case "entitlement", "entitlements":
		err = cli.resourceCommand("Entitlements", args)
	case "role", "roles":
		err = cli.resourceCommand("Roles", args)
	case "health":
		err = cli.healthCommand()
	case "version":
		fmt.Printf("scimly-cli %s\n", Version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`scimly-cli - Scimly Directory Command Line Interface

Usage:
  scimly-cli <command> [subcommand] [options]

Environment Variables:
  SCIMLY_URL     Base URL of Scimly server (default: http://localhost:8080)
  SCIMLY_TENANT  Tenant id (default: default)
  SCIMLY_TOKEN   API key or bearer token

Commands:
  user | group | entitlement | role
    list    [--tenant=ID] [--filter=F] [--start=N] [--count=N]
    get     <id>
    create  --data='{"userName":"alice"}'
    update  <id> --data='{...}'
    delete  <id>
    link    <id> <relation> <relatedId>    e.g. group link g1 members u1
    unlink  <id> <relation> <relatedId>

  health    Check server health
  version   Print version
`)
}
