// Package cli implements the weatherdash command-line client: register,
// login, whoami and logout against the gRPC account service.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/weatherdash/internal/client/client"
	"github.com/dmitrijs2005/weatherdash/internal/client/config"
	"github.com/dmitrijs2005/weatherdash/internal/client/session"
	"github.com/dmitrijs2005/weatherdash/internal/common"
	"github.com/spf13/cobra"
)

// Accounts is the subset of *client.GRPCClient the commands use.
type Accounts interface {
	Register(ctx context.Context, firstName, lastName, email string, password []byte) (*client.Session, error)
	Login(ctx context.Context, email string, password []byte) (*client.Session, error)
	WhoAmI(ctx context.Context) (*client.Profile, error)
	SetToken(token string)
	Close() error
}

// Dialer opens an Accounts connection for cfg.
type Dialer func(cfg *config.Config) (Accounts, error)

// DialGRPC is the production Dialer.
func DialGRPC(cfg *config.Config) (Accounts, error) {
	c, err := client.NewAccountClient(cfg.ServerAddr)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func NewRootCmd(dial Dialer, version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "weatherdash",
		Short:         "Weatherdash account client",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newRegisterCmd(dial),
		newLoginCmd(dial),
		newWhoAmICmd(dial),
		newLogoutCmd(),
	)
	return root
}

// env is what every command needs after flags are parsed.
type env struct {
	cfg    *config.Config
	store  *session.Store
	reader *bufio.Reader
}

func loadEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}
	return &env{
		cfg:    cfg,
		store:  session.NewStore(cfg.TokenFile),
		reader: bufio.NewReader(cmd.InOrStdin()),
	}, nil
}

func (e *env) call(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.cfg.Timeout)
}

// explain turns client errors into messages fit for a terminal.
func explain(err error) error {
	switch {
	case errors.Is(err, client.ErrInvalidCredentials):
		return errors.New(common.MessageInvalidCredentials)
	case errors.Is(err, client.ErrAccountExists):
		return errors.New(common.MessageAccountExists)
	case errors.Is(err, client.ErrUnauthenticated), errors.Is(err, session.ErrNoToken):
		return errors.New("not logged in, run 'weatherdash login'")
	case errors.Is(err, client.ErrUnavailable):
		return errors.New("server unavailable")
	case errors.Is(err, client.ErrInvalidInput):
		return err
	default:
		return fmt.Errorf("%s: %w", common.MessageServerError, err)
	}
}
