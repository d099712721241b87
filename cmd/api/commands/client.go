package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/taskmaster/todos/internal/adapters/apiclient"
	"github.com/taskmaster/todos/internal/application/session"
	"github.com/taskmaster/todos/internal/domain/entities"
	"github.com/taskmaster/todos/internal/infrastructure/config"
	"github.com/taskmaster/todos/internal/infrastructure/logger"
)

type clientOptions struct {
	email    string
	password string
	verbose  bool
}

// NewClientCommand creates the client command that drives a remote API
func NewClientCommand() *cobra.Command {
	opts := &clientOptions{}

	clientCmd := &cobra.Command{
		Use:   "client",
		Short: "Work with todos through the REST API",
		Long:  "Reads TODOS_API_URL and TODOS_API_TOKEN, or logs in with --email and --password.",
	}
	clientCmd.PersistentFlags().StringVar(&opts.email, "email", "", "Log in with this email instead of using a token")
	clientCmd.PersistentFlags().StringVar(&opts.password, "password", "", "Password for --email")
	clientCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log requests to stdout")

	clientCmd.AddCommand(
		newClientListCommand(opts),
		newClientAddCommand(opts),
		newClientToggleCommand(opts),
		newClientTagCommand(opts),
		newClientDeleteCommand(opts),
		newClientCategoriesCommand(opts),
	)
	return clientCmd
}

// openSession connects, authenticates and loads the caller's data
func openSession(ctx context.Context, opts *clientOptions, out io.Writer) (*session.Store, *apiclient.Client, error) {
	cfg, err := config.LoadClient()
	if err != nil {
		return nil, nil, err
	}

	log := logger.NewNop()
	if opts.verbose {
		if l, err := logger.New(config.LoggerConfig{Level: "debug", Format: "console", Output: "stdout"}); err == nil {
			log = l
		}
	}

	client := apiclient.New(*cfg, log)
	if opts.email != "" {
		if _, err := client.Login(ctx, opts.email, opts.password); err != nil {
			return nil, nil, fmt.Errorf("login failed: %w", err)
		}
	}

	store := session.NewStore(client,
		session.WithLogger(log),
		session.WithNotifier(func(op string, err error) {
			fmt.Fprintf(out, "%s failed: %v\n", strings.ReplaceAll(op, "_", " "), err)
		}),
	)
	if err := store.Load(ctx); err != nil {
		return nil, nil, err
	}
	return store, client, nil
}

func newClientListCommand(opts *clientOptions) *cobra.Command {
	var (
		status    string
		query     string
		category  string
		byUrgency bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List todos",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openSession(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			filter := session.TodoFilter{Query: query, Status: session.Status(status)}
			if category != "" {
				id, err := uuid.Parse(category)
				if err != nil {
					return fmt.Errorf("invalid category id: %w", err)
				}
				filter.CategoryID = &id
			}

			todos := store.FilterTodos(filter)
			if byUrgency {
				todos = session.SortByUrgency(todos)
			}
			return printTodos(cmd.OutOrStdout(), store, todos)
		},
	}

	cmd.Flags().StringVar(&status, "status", string(session.StatusAll), "all, active or completed")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Search title and content")
	cmd.Flags().StringVar(&category, "category", "", "Only todos in this category")
	cmd.Flags().BoolVar(&byUrgency, "by-urgency", false, "Most urgent first")
	return cmd
}

func newClientAddCommand(opts *clientOptions) *cobra.Command {
	var (
		category string
		urgency  string
		content  string
	)

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a todo",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openSession(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			in := session.NewTodo{
				Title:   strings.Join(args, " "),
				Urgency: entities.Urgency(urgency),
			}
			if content != "" {
				in.Content = &content
			}
			if category != "" {
				id, err := uuid.Parse(category)
				if err != nil {
					return fmt.Errorf("invalid category id: %w", err)
				}
				in.CategoryID = &id
			}

			view, err := store.AddTodo(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", view.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Category id")
	cmd.Flags().StringVar(&urgency, "urgency", string(entities.UrgencyLow), "low, medium, high or urgent")
	cmd.Flags().StringVar(&content, "content", "", "Rich-text body")
	return cmd
}

func newClientToggleCommand(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip a todo between active and completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid todo id: %w", err)
			}

			store, _, err := openSession(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			view, err := store.ToggleTodo(cmd.Context(), id)
			if err != nil {
				return err
			}
			if view == nil {
				return fmt.Errorf("todo %s not found", id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s completed=%t\n", view.ID, view.Completed)
			return nil
		},
	}
}

func newClientTagCommand(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tag <id> [category-id...]",
		Short: "Replace the categories of a todo; no category ids clears them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]uuid.UUID, 0, len(args))
			for _, arg := range args {
				id, err := uuid.Parse(arg)
				if err != nil {
					return fmt.Errorf("invalid id %q: %w", arg, err)
				}
				ids = append(ids, id)
			}

			store, _, err := openSession(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			view, err := store.UpdateTodoCategories(cmd.Context(), ids[0], ids[1:])
			if err != nil {
				return err
			}
			if view == nil {
				return fmt.Errorf("todo %s not found", ids[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s categories: %s\n", view.ID, strings.Join(view.CategoryIDs.Strings(), ", "))
			return nil
		},
	}
}

func newClientDeleteCommand(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid todo id: %w", err)
			}

			store, _, err := openSession(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if err := store.DeleteTodo(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
			return nil
		},
	}
}

func newClientCategoriesCommand(opts *clientOptions) *cobra.Command {
	categoriesCmd := &cobra.Command{
		Use:   "categories",
		Short: "List categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openSession(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return printCategories(cmd.OutOrStdout(), store.Categories())
		},
	}

	categoriesCmd.AddCommand(
		&cobra.Command{
			Use:   "add <name> <color>",
			Short: "Create a category",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, _, err := openSession(cmd.Context(), opts, cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				category, err := store.AddCategory(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", category.ID)
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a category; its todos are kept",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := uuid.Parse(args[0])
				if err != nil {
					return fmt.Errorf("invalid category id: %w", err)
				}
				store, _, err := openSession(cmd.Context(), opts, cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				return store.DeleteCategory(cmd.Context(), id)
			},
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Create the default categories if there are none",
			RunE: func(cmd *cobra.Command, args []string) error {
				_, client, err := openSession(cmd.Context(), opts, cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				created, err := client.SetupDefaultCategories(cmd.Context())
				if err != nil {
					return err
				}
				if created {
					fmt.Fprintln(cmd.OutOrStdout(), "Default categories created")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Categories already exist")
				}
				return nil
			},
		},
	)
	return categoriesCmd
}

func printTodos(out io.Writer, store *session.Store, todos []session.TodoView) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDONE\tURGENCY\tTITLE\tCATEGORIES\tDUE")
	for _, v := range todos {
		names := make([]string, 0, len(v.CategoryIDs))
		for _, c := range store.ResolvedCategories(v.ID) {
			names = append(names, c.Name)
		}
		due := "-"
		if d := v.DueDate(); d != nil {
			due = d.Local().Format("2006-01-02 15:04")
		}
		done := " "
		if v.Completed {
			done = "x"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", v.ID, done, v.Urgency.OrDefault(), v.Title, strings.Join(names, ", "), due)
	}
	return w.Flush()
}

func printCategories(out io.Writer, categories []entities.Category) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCOLOR")
	for _, c := range categories {
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.Name, c.Color)
	}
	return w.Flush()
}

