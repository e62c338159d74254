package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/dmitrijs2005/cloudconfig/internal/common"
	"github.com/dmitrijs2005/cloudconfig/internal/dbx"
	"github.com/dmitrijs2005/cloudconfig/internal/logging"
	"github.com/dmitrijs2005/cloudconfig/internal/server/repositories/repomanager"
)

// BootstrapResult is the outcome of a bootstrap run.
type BootstrapResult int

const (
	BootstrapAlreadyPresent BootstrapResult = iota
	BootstrapCreated
)

func (r BootstrapResult) String() string {
	if r == BootstrapCreated {
		return "created"
	}
	return "already present"
}

const defaultAdminName = "admin"

// Provisioner creates the first administrator of an empty store and prints
// its credentials to out.
type Provisioner struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	out         io.Writer
	logger      logging.Logger
	now         func() time.Time
	isTerminal  func(w io.Writer) bool

	mu sync.Mutex
}

func NewProvisioner(db *sql.DB, m repomanager.RepositoryManager, out io.Writer, logger logging.Logger) *Provisioner {
	return &Provisioner{
		db:          db,
		repomanager: m,
		out:         out,
		logger:      logger,
		now:         time.Now,
		isTerminal:  writerIsTerminal,
	}
}

// Run creates an administrator when no identity of any kind exists. The
// check and the insert share one transaction; concurrent calls within the
// process are serialized. The private key is printed once after commit.
func (p *Provisioner) Run(ctx context.Context) (BootstrapResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var created *NewIdentity
	err := dbx.WithTx(ctx, p.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		n, err := p.repomanager.Identities(tx).Count(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}

		created, err = mintIdentity(ctx, p.repomanager, tx, defaultAdminName, true, p.now())
		return err
	})
	if err != nil {
		return BootstrapAlreadyPresent, fmt.Errorf("bootstrap: %w", err)
	}

	if created == nil {
		p.logger.Info(ctx, "bootstrap skipped, identities already present")
		return BootstrapAlreadyPresent, nil
	}

	p.logger.Info(ctx, "bootstrap administrator created",
		"client_id", created.Identity.ID, "fingerprint", created.Fingerprint)
	if err := p.emit(ctx, "administrator created", created); err != nil {
		return BootstrapCreated, err
	}

	return BootstrapCreated, nil
}

// MintAdmin creates an additional administrator regardless of existing
// identities and prints its credentials. Public keys are immutable, so this
// is how a lost administrator key is replaced.
func (p *Provisioner) MintAdmin(ctx context.Context, name string) (*NewIdentity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	name, err := validateName("client", name)
	if err != nil {
		return nil, err
	}

	created, err := mintIdentity(ctx, p.repomanager, p.db, name, true, p.now())
	if err != nil {
		return nil, fmt.Errorf("mint administrator: %w", err)
	}

	p.logger.Info(ctx, "administrator minted",
		"client_id", created.Identity.ID, "fingerprint", created.Fingerprint)
	if err := p.emit(ctx, "new administrator created", created); err != nil {
		return nil, err
	}

	return created, nil
}

func (p *Provisioner) emit(ctx context.Context, title string, created *NewIdentity) error {
	if !p.isTerminal(p.out) {
		p.logger.Warn(ctx, "administrator private key written to a non-terminal output, remove it from logs once stored",
			"client_id", created.Identity.ID)
	}

	_, err := fmt.Fprintf(p.out,
		"CloudConfig %s\n  client id:   %s\n  fingerprint: %s\n  private key (shown once, store it now):\n%s",
		title, created.Identity.ID, created.Fingerprint, created.PrivateKeyPEM)
	common.WipeByteArray(created.PrivateKeyPEM)
	if err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

func writerIsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
