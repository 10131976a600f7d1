package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BuzzLyutic/taskr/internal/model"
)

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"t"},
		Short:   "Manage the tasks of the logged in user",
	}
	cmd.AddCommand(newTasksListCmd(app))
	cmd.AddCommand(newTasksAddCmd(app))
	cmd.AddCommand(newTasksEditCmd(app))
	cmd.AddCommand(newTasksDoneCmd(app, true))
	cmd.AddCommand(newTasksDoneCmd(app, false))
	cmd.AddCommand(newTasksRmCmd(app))
	return cmd
}

// withTasks opens the agent and loads the user's tasks.
func (app *App) withTasks(cmd *cobra.Command, fn func(a *agent) error) error {
	return app.withAgent(cmd.Context(), cmd.OutOrStdout(), func(a *agent) error {
		if err := a.requireUser(); err != nil {
			return err
		}
		a.view.GetTasks(cmd.Context())
		if err := a.out.result(); err != nil {
			return err
		}
		return fn(a)
	})
}

func newTasksListCmd(app *App) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withTasks(cmd, func(a *agent) error {
				a.view.SyncSearch(search)
				a.out.tasks(a.view.Visible(), a.view.FilterText())
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "Show only tasks whose title contains this text")
	return cmd
}

func newTasksAddCmd(app *App) *cobra.Command {
	var title, tag string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withTasks(cmd, func(a *agent) error {
				a.view.CreateTask(cmd.Context(), model.TaskForm{Title: title, Tag: model.Tag(tag)})
				return a.out.result()
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Task title")
	cmd.Flags().StringVar(&tag, "tag", "", fmt.Sprintf("Task tag, one of %v", model.Tags))
	return cmd
}

func newTasksEditCmd(app *App) *cobra.Command {
	var title, tag string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change the title or tag of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return app.withTasks(cmd, func(a *agent) error {
				if !a.view.StartEdit(id) {
					return fmt.Errorf("task %s not found", id)
				}
				draft, _ := a.view.EditDraft()
				form := draft.Form
				if cmd.Flags().Changed("title") {
					form.Title = title
				}
				if cmd.Flags().Changed("tag") {
					form.Tag = model.Tag(tag)
				}
				a.view.EditTask(cmd.Context(), form, id)
				return a.out.result()
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&tag, "tag", "", "New tag")
	return cmd
}

func newTasksDoneCmd(app *App, done bool) *cobra.Command {
	use, short := "done <id>", "Mark a task as done"
	if !done {
		use, short = "undone <id>", "Mark a task as not done"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withTasks(cmd, func(a *agent) error {
				if done {
					a.view.MarkTaskAsDone(cmd.Context(), args[0])
				} else {
					a.view.MarkTaskAsUnDone(cmd.Context(), args[0])
				}
				return a.out.result()
			})
		},
	}
}

func newTasksRmCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withTasks(cmd, func(a *agent) error {
				a.view.DeleteTask(cmd.Context(), args[0])
				return a.out.result()
			})
		},
	}
}
