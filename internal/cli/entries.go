package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/models"
	"github.com/dmitrijs2005/gophvault/internal/secretgen"
	"github.com/fatih/color"
)

// Add prompts for a new entry. An empty password is replaced by a generated
// one.
func (a *App) Add(ctx context.Context) error {
	if !a.isUnlocked(ctx) {
		return a.report(common.ErrLocked)
	}

	website, err := GetSimpleText(a.reader, "Website", a.out)
	if err != nil {
		return err
	}
	username, err := GetSimpleText(a.reader, "Username", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.reader, "Password (empty to generate)", a.out)
	if err != nil {
		return err
	}
	if password == "" {
		if password, err = secretgen.GeneratePassword(secretgen.DefaultOptions()); err != nil {
			return a.report(err)
		}
		fmt.Fprintf(a.out, "Generated password: %s\n", password)
	}

	e, err := a.vault.Add(ctx, website, username, password)
	if err != nil {
		return a.report(err)
	}
	a.success("Added %s (%s).", e.ID, e.Strength)
	return nil
}

// Generate prints a random password: generate [length] [nosymbols].
func (a *App) Generate(ctx context.Context, args []string) error {
	o := secretgen.DefaultOptions()
	for _, arg := range args {
		if arg == "nosymbols" {
			o.Symbols = false
			continue
		}
		n, err := strconv.Atoi(arg)
		if err != nil {
			fmt.Fprintln(a.out, "Usage: generate [length] [nosymbols]")
			return nil
		}
		o.Length = n
	}

	pw, err := secretgen.GeneratePassword(o)
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintf(a.out, "%s  (%s)\n", pw, strengthLabel(secretgen.Classify(pw)))
	return nil
}

func (a *App) List(ctx context.Context) error {
	list, err := a.vault.List(ctx)
	if err != nil {
		return a.report(err)
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No entries.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWEBSITE\tUSERNAME\tPASSWORD\tSTRENGTH")
	for _, e := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.Website, e.Username, mask(e.Password), strengthLabel(e.Strength))
	}
	return tw.Flush()
}

func (a *App) Show(ctx context.Context, args []string) error {
	if len(args) != 1 {
		fmt.Fprintln(a.out, "Usage: show <id>")
		return nil
	}
	e, err := a.vault.Get(ctx, args[0])
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintf(a.out, "ID:       %s\nWebsite:  %s\nUsername: %s\nPassword: %s\nStrength: %s\n",
		e.ID, e.Website, e.Username, e.Password, strengthLabel(e.Strength))
	dimColor.Fprintf(a.out, "Created %s, updated %s\n",
		e.CreatedAt.Local().Format("2006-01-02 15:04"), e.UpdatedAt.Local().Format("2006-01-02 15:04"))
	return nil
}

// Edit updates an entry; empty answers keep the current value.
func (a *App) Edit(ctx context.Context, args []string) error {
	if len(args) != 1 {
		fmt.Fprintln(a.out, "Usage: edit <id>")
		return nil
	}
	e, err := a.vault.Get(ctx, args[0])
	if err != nil {
		return a.report(err)
	}

	website, err := GetSimpleText(a.reader, fmt.Sprintf("Website [%s]", e.Website), a.out)
	if err != nil {
		return err
	}
	username, err := GetSimpleText(a.reader, fmt.Sprintf("Username [%s]", e.Username), a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.reader, "Password (empty to keep)", a.out)
	if err != nil {
		return err
	}

	upd, err := a.vault.Update(ctx, e.ID, orDefault(website, e.Website), orDefault(username, e.Username), orDefault(password, e.Password))
	if err != nil {
		return a.report(err)
	}
	a.success("Updated %s (%s).", upd.ID, upd.Strength)
	return nil
}

func (a *App) Delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		fmt.Fprintln(a.out, "Usage: delete <id>")
		return nil
	}
	e, err := a.vault.Get(ctx, args[0])
	if err != nil {
		return a.report(err)
	}
	ok, err := Confirm(a.reader, fmt.Sprintf("Delete %s (%s)?", e.Website, e.Username), a.out)
	if err != nil || !ok {
		return err
	}
	if err := a.vault.Delete(ctx, e.ID); err != nil {
		return a.report(err)
	}
	a.success("Deleted.")
	return nil
}

// Import reads a website,username,password CSV file.
func (a *App) Import(ctx context.Context, args []string) error {
	if len(args) != 1 {
		fmt.Fprintln(a.out, "Usage: import <file.csv>")
		return nil
	}
	if !a.isUnlocked(ctx) {
		return a.report(common.ErrLocked)
	}

	f, err := os.Open(args[0])
	if err != nil {
		return a.report(err)
	}
	defer f.Close()

	res, err := a.vault.ImportCSV(ctx, f)
	if err != nil {
		return a.report(err)
	}
	for _, rowErr := range res.Errors {
		warnColor.Fprintf(a.out, "  %s\n", rowErr)
	}
	a.success("Imported %d, failed %d.", res.Imported, res.Failed)
	return nil
}

// Backup uploads an encrypted snapshot of the stored entries.
func (a *App) Backup(ctx context.Context) error {
	if a.exporter == nil {
		fmt.Fprintln(a.out, "Backups are not configured (set an S3 bucket).")
		return nil
	}
	userID, err := a.identity.UserID(ctx)
	if err != nil {
		return a.report(err)
	}
	key, err := a.exporter.Export(ctx, userID)
	if err != nil {
		a.log.Error(ctx, "backup failed", "user_id", userID, "error", err)
		return a.report(err)
	}
	a.success("Backup written to %s.", key)
	return nil
}

func strengthLabel(s models.Strength) string {
	switch s {
	case models.StrengthStrong:
		return okColor.Sprint(s)
	case models.StrengthMedium:
		return warnColor.Sprint(s)
	case models.StrengthWeak:
		return color.New(color.FgRed, color.Bold).Sprint(s)
	}
	return string(s)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
