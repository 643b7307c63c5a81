package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gophvault/internal/backup"
	"github.com/dmitrijs2005/gophvault/internal/identity"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/models"
	"github.com/dmitrijs2005/gophvault/internal/vault"
	"github.com/fatih/color"
)

// Vault is the part of vault.Service the CLI drives.
type Vault interface {
	State(ctx context.Context) (vault.State, error)
	BeginSetup(ctx context.Context) (vault.TwoFactorEnrollment, error)
	Setup(ctx context.Context, req vault.SetupRequest) (vault.SetupResult, error)
	TwoFactorRequired(ctx context.Context) (bool, error)
	Unlock(ctx context.Context, password, totpCode string) error
	Lock()
	Reset(ctx context.Context, phrase string) error
	ChangePassword(ctx context.Context, current, newPassword, confirm string) error
	EnableTwoFactor(ctx context.Context, secret, code string) error
	DisableTwoFactor(ctx context.Context, code string) error

	RecoveryQuestions(ctx context.Context) (vault.RecoveryPrompt, error)
	RequestEmailRecovery(ctx context.Context) error
	Recover(ctx context.Context, proof vault.RecoveryProof, newPassword, confirm string) (vault.RecoverResult, error)

	Add(ctx context.Context, website, username, password string) (models.Entry, error)
	List(ctx context.Context) ([]models.Entry, error)
	Get(ctx context.Context, id string) (models.Entry, error)
	Update(ctx context.Context, id, website, username, password string) (models.Entry, error)
	Delete(ctx context.Context, id string) error
	ImportCSV(ctx context.Context, r io.Reader) (vault.ImportResult, error)
}

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed)
	dimColor  = color.New(color.Faint)
)

type App struct {
	vault    Vault
	identity identity.Provider
	exporter backup.Exporter
	log      logging.Logger

	reader *bufio.Reader
	out    io.Writer
}

type AppOption func(*App)

// WithExporter enables the backup command.
func WithExporter(e backup.Exporter) AppOption { return func(a *App) { a.exporter = e } }

func WithLogger(l logging.Logger) AppOption { return func(a *App) { a.log = l } }

func NewApp(v Vault, id identity.Provider, in io.Reader, out io.Writer, opts ...AppOption) *App {
	a := &App{
		vault:    v,
		identity: id,
		log:      logging.Nop(),
		reader:   bufio.NewReader(in),
		out:      out,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Run prints a greeting and serves commands until exit or end of input. The
// vault is locked on return.
func (a *App) Run(ctx context.Context) {
	defer a.vault.Lock()

	fmt.Fprintln(a.out, "Welcome to gophvault (type 'help' for commands)")
	if st, err := a.vault.State(ctx); err == nil && st == vault.StateNoVault {
		warnColor.Fprintln(a.out, "No vault yet. Type 'setup' to create one.")
	}
	runREPL(ctx, a, a.status, a.reader, a.out)
}

func (a *App) state(ctx context.Context) vault.State {
	st, err := a.vault.State(ctx)
	if err != nil {
		a.log.Error(ctx, "read vault state", "error", err)
		return vault.StateNoVault
	}
	return st
}

func (a *App) isUnlocked(ctx context.Context) bool {
	return a.state(ctx) == vault.StateUnlocked
}

func (a *App) status(ctx context.Context) string {
	st := a.state(ctx)
	if st != vault.StateUnlocked {
		return st.String()
	}
	list, err := a.vault.List(ctx)
	if err != nil {
		return st.String()
	}
	return fmt.Sprintf("%s, %d entries", st, len(list))
}

// report prints err to the user and returns it unchanged.
func (a *App) report(err error) error {
	if err != nil {
		errColor.Fprintf(a.out, "Error: %s\n", describe(err))
	}
	return err
}

func (a *App) success(format string, args ...any) {
	okColor.Fprintf(a.out, format+"\n", args...)
}
