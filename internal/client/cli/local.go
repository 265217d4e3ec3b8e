package cli

import (
	"context"
	"fmt"
)

// Fav manages starred programs: "fav" lists, "fav add <id>" and
// "fav rm <id>" change the list.
func (a *App) Fav(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "list" {
		list, err := a.favorites.List(ctx)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Fprintln(a.out, "No favorites.")
			return nil
		}
		for _, f := range list {
			fmt.Fprintf(a.out, "%s  %s\n", f.ProgramID, f.ProgramName)
		}
		return nil
	}

	id, err := needArg(args[1:], "fav add|rm <program-id>")
	if err != nil {
		return err
	}
	switch args[0] {
	case "add":
		f, err := a.favorites.Add(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Starred %s.\n", f.ProgramName)
	case "rm", "remove":
		if err := a.favorites.Remove(ctx, id); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Removed.")
	default:
		_, err := needArg(nil, "fav add|rm <program-id>")
		return err
	}
	return nil
}

// Note shows the note for a program and lets the user replace it. An empty
// answer keeps the note; a single "-" deletes it.
func (a *App) Note(ctx context.Context, args []string) error {
	id, err := needArg(args, "note <program-id>")
	if err != nil {
		return err
	}
	cur, err := a.notes.Get(ctx, id)
	if err != nil {
		return err
	}
	if cur.Body != "" {
		fmt.Fprintf(a.out, "Current note:\n%s\n", cur.Body)
	}

	body, err := getMultiline(a.reader, "New note (empty keeps, '-' deletes)", a.out)
	if err != nil {
		return err
	}
	switch body {
	case "":
		return nil
	case "-":
		body = ""
	}
	if err := a.notes.Save(ctx, id, body); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Saved.")
	return nil
}

func (a *App) Notes(ctx context.Context, _ []string) error {
	list, err := a.notes.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No notes.")
		return nil
	}
	for _, n := range list {
		fmt.Fprintf(a.out, "[%s] %s\n", n.ProgramID, n.Body)
	}
	return nil
}
