package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/rechub/internal/client/client"
	"github.com/dmitrijs2005/rechub/internal/common"
)

func needArg(args []string, usage string) (string, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return "", fmt.Errorf("%w: usage: %s", common.ErrInvalidArgument, usage)
	}
	return args[0], nil
}

func (a *App) Programs(ctx context.Context, _ []string) error {
	list, err := a.programs.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No programs yet.")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tWHEN\tCOST\tRATING")
	for _, p := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%.1f (%d)\n", p.ID, p.Name, p.When, p.Cost, p.AverageRating, p.ReviewCount)
	}
	return w.Flush()
}

func (a *App) Program(ctx context.Context, args []string) error {
	id, err := needArg(args, "program <id>")
	if err != nil {
		return err
	}
	p, err := a.programs.Get(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s [%s]\n", p.Name, p.ID)
	fmt.Fprintf(a.out, "  venue:      %s\n", p.Venue)
	fmt.Fprintf(a.out, "  when:       %s\n", p.When)
	fmt.Fprintf(a.out, "  cost:       %.2f\n", p.Cost)
	fmt.Fprintf(a.out, "  accessible: %t\n", p.Accessible)
	if len(p.Tags) > 0 {
		fmt.Fprintf(a.out, "  tags:       %s\n", strings.Join(p.Tags, ", "))
	}
	if p.Location.Address != "" {
		fmt.Fprintf(a.out, "  address:    %s\n", p.Location.Address)
	}

	if note, err := a.notes.Get(ctx, p.ID); err == nil && note.Body != "" {
		fmt.Fprintf(a.out, "  your note:  %s\n", note.Body)
	}
	return nil
}

func (a *App) Reviews(ctx context.Context, args []string) error {
	id, err := needArg(args, "reviews <program-id>")
	if err != nil {
		return err
	}
	list, err := a.programs.Reviews(ctx, id)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No reviews yet.")
		return nil
	}
	for _, r := range list {
		fmt.Fprintf(a.out, "%s %s: %s\n", strings.Repeat("*", r.Rating), r.User, r.Text)
	}
	return nil
}

func (a *App) Review(ctx context.Context, args []string) error {
	id, err := needArg(args, "review <program-id>")
	if err != nil {
		return err
	}
	rating, err := getSimpleText(a.reader, "Rating (1-5)", a.out)
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(rating)
	if err != nil {
		return fmt.Errorf("%w: rating must be a number", common.ErrInvalidArgument)
	}
	name, err := getSimpleText(a.reader, "Display name (empty for anonymous)", a.out)
	if err != nil {
		return err
	}
	text, err := getMultiline(a.reader, "Review text", a.out)
	if err != nil {
		return err
	}

	if _, err := a.programs.AddReview(ctx, id, client.ReviewRequest{User: name, Rating: n, Text: text}); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Review added.")
	return nil
}

// Enroll works for guests too; a logged-in caller gets the enrollment linked
// to the account.
func (a *App) Enroll(ctx context.Context, args []string) error {
	id, err := needArg(args, "enroll <program-id>")
	if err != nil {
		return err
	}
	name, err := getSimpleText(a.reader, "Participant name", a.out)
	if err != nil {
		return err
	}

	email := a.auth.Current().Email
	if email == "" {
		if email, err = getSimpleText(a.reader, "Contact email", a.out); err != nil {
			return err
		}
	}
	notes, err := getSimpleText(a.reader, "Notes (optional)", a.out)
	if err != nil {
		return err
	}

	e, err := a.programs.Enroll(ctx, client.EnrollmentRequest{ProgramID: id, ParticipantName: name, Email: email, Notes: notes})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Enrolled in %s (enrollment %s)\n", e.ProgramName, e.ID)
	return nil
}

// Enrollments lists the caller's own enrollments, or with a program id the
// whole roster (staff only).
func (a *App) Enrollments(ctx context.Context, args []string) error {
	programID := ""
	if len(args) > 0 {
		programID = args[0]
	}
	list, err := a.programs.Enrollments(ctx, programID)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No enrollments.")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROGRAM\tPARTICIPANT\tEMAIL\tCREATED")
	for _, e := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.ProgramName, e.ParticipantName, e.Email, e.CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func (a *App) Seed(ctx context.Context, _ []string) error {
	res, err := a.programs.Seed(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Seeded %d programs.\n", res.Seeded)
	return nil
}

func (a *App) Stats(ctx context.Context, args []string) error {
	id, err := needArg(args, "stats <program-id>")
	if err != nil {
		return err
	}
	s, err := a.programs.Stats(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s: %d enrollments, %d unique participants\n", s.ProgramName, s.Enrollments, s.UniqueParticipants)
	return nil
}

func (a *App) Summary(ctx context.Context, _ []string) error {
	s, err := a.programs.Summary(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d programs, %d enrollments, %d unique participants\n", s.TotalPrograms, s.Enrollments, s.UniqueParticipants)
	return nil
}

// Email sends a message to everyone enrolled in a program. The attachment
// is either a URL or a local file, which is uploaded first.
func (a *App) Email(ctx context.Context, args []string) error {
	id, err := needArg(args, "email <program-id>")
	if err != nil {
		return err
	}
	subject, err := getSimpleText(a.reader, "Subject", a.out)
	if err != nil {
		return err
	}
	message, err := getMultiline(a.reader, "Message (HTML allowed)", a.out)
	if err != nil {
		return err
	}
	attachment, err := getSimpleText(a.reader, "Attachment URL or local file (optional)", a.out)
	if err != nil {
		return err
	}

	if attachment != "" && !strings.HasPrefix(attachment, "http://") && !strings.HasPrefix(attachment, "https://") {
		ticket, err := a.upload(ctx, attachment)
		if err != nil {
			return err
		}
		attachment = ticket.DownloadURL
	}

	res, err := a.programs.Email(ctx, id, client.EmailRequest{Subject: subject, Message: message, AttachmentURL: attachment})
	if err != nil {
		return err
	}
	if !res.Success {
		fmt.Fprintf(a.out, "Nothing sent: %s\n", res.Reason)
		return nil
	}
	fmt.Fprintf(a.out, "Sent %d of %d.\n", res.Sent, res.Count)
	for _, f := range res.Failed {
		fmt.Fprintf(a.out, "  failed: %s (%s)\n", f.Email, f.Error)
	}
	return nil
}

func (a *App) Upload(ctx context.Context, args []string) error {
	path, err := needArg(args, "upload <file>")
	if err != nil {
		return err
	}
	ticket, err := a.upload(ctx, path)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Uploaded. Download URL (valid until %s):\n%s\n", ticket.ExpiresAt.Format("2006-01-02 15:04"), ticket.DownloadURL)
	return nil
}

func (a *App) upload(ctx context.Context, path string) (*client.UploadTicket, error) {
	data, err := a.readFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return a.programs.Upload(ctx, path, data)
}
