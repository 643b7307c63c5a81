package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/vault"
)

// Setup walks the user through creating a vault. An existing vault for the
// user is replaced, so that case needs explicit confirmation.
func (a *App) Setup(ctx context.Context) error {
	if a.state(ctx) != vault.StateNoVault {
		warnColor.Fprintln(a.out, "A vault already exists. Creating a new one deletes every stored password.")
		ok, err := Confirm(a.reader, "Continue?", a.out)
		if err != nil || !ok {
			return err
		}
	}

	var req vault.SetupRequest
	var err error

	if req.Password, req.ConfirmPassword, err = GetNewPassword(a.reader, a.out); err != nil {
		return err
	}
	if req.Question1, err = GetSimpleText(a.reader, "Security question 1", a.out); err != nil {
		return err
	}
	if req.Answer1, err = GetSimpleText(a.reader, "Answer 1", a.out); err != nil {
		return err
	}
	if req.Question2, err = GetSimpleText(a.reader, "Security question 2", a.out); err != nil {
		return err
	}
	if req.Answer2, err = GetSimpleText(a.reader, "Answer 2", a.out); err != nil {
		return err
	}
	if req.RecoveryEmail, err = GetSimpleText(a.reader, "Recovery email (optional)", a.out); err != nil {
		return err
	}

	if req.EnableTwoFactor, err = Confirm(a.reader, "Enable two-factor authentication?", a.out); err != nil {
		return err
	}
	if req.EnableTwoFactor {
		enr, err := a.vault.BeginSetup(ctx)
		if err != nil {
			return a.report(err)
		}
		fmt.Fprintf(a.out, "Add this key to your authenticator app:\n  %s\n  %s\n", enr.Secret, enr.URI)
		req.TwoFactorSecret = enr.Secret
		if req.TwoFactorCode, err = GetSimpleText(a.reader, "Code from the app", a.out); err != nil {
			return err
		}
	}

	res, err := a.vault.Setup(ctx, req)
	if err != nil {
		return a.report(err)
	}

	a.success("Vault created.")
	warnColor.Fprintf(a.out, "Recovery key: %s\nWrite it down now, it will not be shown again.\n", res.RecoveryKey)
	return nil
}

func (a *App) Unlock(ctx context.Context) error {
	if a.isUnlocked(ctx) {
		fmt.Fprintln(a.out, "Already unlocked.")
		return nil
	}
	pw, err := GetPassword(a.reader, "Vault password", a.out)
	if err != nil {
		return err
	}

	var code string
	need, err := a.vault.TwoFactorRequired(ctx)
	if err != nil {
		return a.report(err)
	}
	if need {
		if code, err = GetSimpleText(a.reader, "Two-factor code", a.out); err != nil {
			return err
		}
	}

	if err := a.vault.Unlock(ctx, pw, code); err != nil {
		return a.report(err)
	}

	list, _ := a.vault.List(ctx)
	a.success("Unlocked, %d entries.", len(list))
	return nil
}

func (a *App) Lock(ctx context.Context) error {
	a.vault.Lock()
	a.success("Locked.")
	return nil
}

// Recover replaces a forgotten password using one of the recovery methods.
func (a *App) Recover(ctx context.Context) error {
	prompt, err := a.vault.RecoveryQuestions(ctx)
	if err != nil {
		return a.report(err)
	}

	methods := "1) security questions  2) recovery key"
	if prompt.EmailAvailable {
		methods += "  3) email"
	}
	choice, err := GetSimpleText(a.reader, "Recovery method: "+methods, a.out)
	if err != nil {
		return err
	}

	var proof vault.RecoveryProof
	switch choice {
	case "1", "questions":
		a1, err := GetSimpleText(a.reader, prompt.Question1, a.out)
		if err != nil {
			return err
		}
		a2, err := GetSimpleText(a.reader, prompt.Question2, a.out)
		if err != nil {
			return err
		}
		proof = vault.QuestionsProof{Answer1: a1, Answer2: a2}

	case "2", "key":
		key, err := GetSimpleText(a.reader, "Recovery key", a.out)
		if err != nil {
			return err
		}
		proof = vault.RecoveryKeyProof{Key: key}

	case "3", "email":
		if !prompt.EmailAvailable {
			return a.report(fmt.Errorf("%w: email recovery is not available", common.ErrValidation))
		}
		if err := a.vault.RequestEmailRecovery(ctx); err != nil {
			return a.report(err)
		}
		fmt.Fprintln(a.out, "A recovery token was sent to your email.")
		tok, err := GetSimpleText(a.reader, "Token", a.out)
		if err != nil {
			return err
		}
		proof = vault.EmailTokenProof{Token: tok}

	default:
		return a.report(fmt.Errorf("%w: unknown recovery method %q", common.ErrValidation, choice))
	}

	warnColor.Fprintln(a.out, "Recovery deletes every stored password; they were encrypted with the old password.")
	ok, err := Confirm(a.reader, "Continue?", a.out)
	if err != nil || !ok {
		return err
	}

	pw, confirm, err := GetNewPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	res, err := a.vault.Recover(ctx, proof, pw, confirm)
	if err != nil {
		return a.report(err)
	}

	a.success("Password replaced, %d entries deleted. Type 'unlock' to continue.", res.PurgedEntries)
	return nil
}

// Reset destroys the vault after the user types the confirmation phrase.
func (a *App) Reset(ctx context.Context) error {
	warnColor.Fprintf(a.out, "This deletes the vault and every stored password.\n")
	phrase, err := GetSimpleText(a.reader, fmt.Sprintf("Type %q to confirm", vault.ResetPhrase), a.out)
	if err != nil {
		return err
	}
	if err := a.vault.Reset(ctx, phrase); err != nil {
		return a.report(err)
	}
	a.success("Vault deleted.")
	return nil
}

func (a *App) ChangePassword(ctx context.Context) error {
	current, err := GetPassword(a.reader, "Current password", a.out)
	if err != nil {
		return err
	}
	pw, confirm, err := GetNewPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	if err := a.vault.ChangePassword(ctx, current, pw, confirm); err != nil {
		return a.report(err)
	}
	a.success("Password changed.")
	return nil
}

// TwoFactor handles "2fa on" and "2fa off".
func (a *App) TwoFactor(ctx context.Context, args []string) error {
	if len(args) != 1 {
		fmt.Fprintln(a.out, "Usage: 2fa on|off")
		return nil
	}

	switch args[0] {
	case "on":
		enr, err := a.vault.BeginSetup(ctx)
		if err != nil {
			return a.report(err)
		}
		fmt.Fprintf(a.out, "Add this key to your authenticator app:\n  %s\n  %s\n", enr.Secret, enr.URI)
		code, err := GetSimpleText(a.reader, "Code from the app", a.out)
		if err != nil {
			return err
		}
		if err := a.vault.EnableTwoFactor(ctx, enr.Secret, code); err != nil {
			return a.report(err)
		}
		a.success("Two-factor enabled.")

	case "off":
		code, err := GetSimpleText(a.reader, "Current two-factor code", a.out)
		if err != nil {
			return err
		}
		if err := a.vault.DisableTwoFactor(ctx, code); err != nil {
			return a.report(err)
		}
		a.success("Two-factor disabled.")

	default:
		fmt.Fprintln(a.out, "Usage: 2fa on|off")
	}
	return nil
}
