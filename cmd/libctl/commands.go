package main

import (
	"errors"
	"fmt"
	"strings"
	"syscall"

	"locallibrary/cmd/identity"
	"locallibrary/cmd/internal/app"
	"locallibrary/cmd/internal/schema"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type rootFlags struct {
	databaseURL string
	schema      string
}

func newRootCmd(e env) *cobra.Command {
	var rf rootFlags

	root := &cobra.Command{
		Use:          "libctl",
		Short:        "Administer a locallibrary database",
		SilenceUsage: true,
	}
	root.SetOut(e.stdout)
	root.PersistentFlags().StringVar(&rf.databaseURL, "database-url", app.EnvString("LOCALLIBRARY_DATABASE_URL", ""), "PostgreSQL connection string")
	root.PersistentFlags().StringVar(&rf.schema, "schema", app.EnvString("LOCALLIBRARY_DB_SCHEMA", schema.Default), "PostgreSQL schema")

	root.AddCommand(newMigrateCmd(e, &rf), newUserCmd(e, &rf))
	return root
}

func newMigrateCmd(e env, rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or complete the schema, including the seed groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.migrate(cmd.Context(), rf.databaseURL, rf.schema); err != nil {
				return err
			}
			cmd.Printf("schema %s is up to date\n", rf.schema)
			return nil
		},
	}
}

func newUserCmd(e env, rf *rootFlags) *cobra.Command {
	user := &cobra.Command{
		Use:   "user",
		Short: "Provision accounts",
	}
	user.AddCommand(newUserCreateCmd(e, rf), newUserGrantCmd(e, rf), newUserPromoteCmd(e, rf))
	return user
}

func newUserCreateCmd(e env, rf *rootFlags) *cobra.Command {
	var in identity.NewUser

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user, optionally active and in the Librarians group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if in.Password == "" {
				pw, err := e.readPassword("Password: ")
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				in.Password = pw
			}

			acc, closeFn, err := e.accounts(cmd.Context(), rf.databaseURL, rf.schema)
			if err != nil {
				return err
			}
			defer closeFn()

			u, err := acc.CreateUser(cmd.Context(), in)
			if err != nil {
				return describe(err)
			}
			printUser(cmd, u)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Username, "username", "", "username (required)")
	cmd.Flags().StringVar(&in.Email, "email", "", "email address (required)")
	cmd.Flags().StringVar(&in.Password, "password", "", "password; prompted for when omitted")
	cmd.Flags().BoolVar(&in.Librarian, "librarian", false, "add the user to the Librarians group")
	cmd.Flags().BoolVar(&in.Active, "active", false, "activate the account immediately")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newUserGrantCmd(e env, rf *rootFlags) *cobra.Command {
	var username, perm string

	cmd := &cobra.Command{
		Use:   "grant",
		Short: "Give a user a direct permission such as catalog.can_mark_returned",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			acc, closeFn, err := e.accounts(cmd.Context(), rf.databaseURL, rf.schema)
			if err != nil {
				return err
			}
			defer closeFn()

			u, err := acc.Grant(cmd.Context(), username, perm)
			if err != nil {
				return describe(err)
			}
			printUser(cmd, u)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username (required)")
	cmd.Flags().StringVar(&perm, "permission", "", "permission codename (required)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("permission")
	return cmd
}

func newUserPromoteCmd(e env, rf *rootFlags) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Add a user to the Librarians group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			acc, closeFn, err := e.accounts(cmd.Context(), rf.databaseURL, rf.schema)
			if err != nil {
				return err
			}
			defer closeFn()

			u, err := acc.Promote(cmd.Context(), username)
			if err != nil {
				return describe(err)
			}
			printUser(cmd, u)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username (required)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func printUser(cmd *cobra.Command, u identity.User) {
	cmd.Printf("id:          %s\n", u.ID)
	cmd.Printf("username:    %s\n", u.Username)
	cmd.Printf("active:      %t\n", u.Active)
	cmd.Printf("groups:      %s\n", strings.Join(u.Groups, ", "))
	cmd.Printf("permissions: %s\n", strings.Join(u.Permissions, ", "))
}

// describe turns identity errors into the message shown on the web forms.
func describe(err error) error {
	if msg := identity.Message(err); msg != "" {
		return errors.New(msg)
	}
	return err
}

func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
