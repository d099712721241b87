package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/taskmaster/todos/cmd/api/commands"
)

// @title Todos API
// @version 1.0
// @description Personal todo lists with categories

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	rootCmd := &cobra.Command{
		Use:   "todos",
		Short: "Todos API server and client",
		Long:  `todos serves the todo and category REST API and includes a command-line client for it.`,
	}

	// Add commands
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewUserCommand())
	rootCmd.AddCommand(commands.NewClientCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
