package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crm-whatsapp/crm-service/internal/config"
	"github.com/crm-whatsapp/crm-service/internal/domain"
	"github.com/crm-whatsapp/crm-service/internal/observability"
	"github.com/crm-whatsapp/crm-service/internal/persistence"
	"github.com/crm-whatsapp/crm-service/internal/repository"
	"github.com/crm-whatsapp/crm-service/internal/service"
)

// cliActor is recorded as the author of changes made from the command line.
var cliActor = domain.Actor{Username: "crm-admin", Role: domain.RoleAdmin}

var migrateDir string

// migrateCmd applies pending SQL migrations
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending SQL migrations",
	RunE:  runMigrate,
}

// operatorCmd is the parent command for account management
var operatorCmd = &cobra.Command{
	Use:   "operator",
	Short: "Manage dashboard accounts",
}

var (
	operatorUsername string
	operatorPassword string
	operatorRole     string
)

// operatorCreateCmd creates an account
var operatorCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an operator or admin account",
	RunE:  runOperatorCreate,
}

// operatorListCmd lists accounts
var operatorListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	RunE:  runOperatorList,
}

func init() {
	migrateCmd.Flags().StringVar(&migrateDir, "dir", "", "migrations directory (defaults to POSTGRES_MIGRATIONS_DIR)")

	operatorCreateCmd.Flags().StringVarP(&operatorUsername, "username", "u", "", "account username")
	operatorCreateCmd.Flags().StringVarP(&operatorPassword, "password", "p", "", "account password")
	operatorCreateCmd.Flags().StringVarP(&operatorRole, "role", "r", string(domain.RoleOperator), "operator or admin")
	_ = operatorCreateCmd.MarkFlagRequired("username")
	_ = operatorCreateCmd.MarkFlagRequired("password")

	operatorCmd.AddCommand(operatorCreateCmd, operatorListCmd)
}

type env struct {
	cfg    *config.Config
	logger *zap.Logger
	pg     *persistence.Postgres
}

func (e *env) close() {
	e.pg.Close()
	_ = e.logger.Sync()
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		return nil, err
	}
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &env{cfg: cfg, logger: logger, pg: pg}, nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	dir := migrateDir
	if dir == "" {
		dir = e.cfg.Postgres.MigrationsDir
	}
	applied, err := persistence.RunMigrations(ctx, e.pg.PoolHandle(), dir, e.logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", applied)
	return nil
}

func operatorService(e *env) *service.OperatorService {
	return service.NewOperatorService(service.OperatorDependencies{
		OperatorRepo: repository.NewOperatorRepository(e.pg.PoolHandle()),
		Logger:       e.logger,
		BcryptCost:   e.cfg.Auth.BcryptCost,
		HardDelete:   e.cfg.Policy.OperatorHardDelete,
	})
}

func runOperatorCreate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	op, err := operatorService(e).Create(ctx, cliActor, service.OperatorCreateInput{
		Username: operatorUsername,
		Password: operatorPassword,
		Role:     domain.Role(operatorRole),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", op.Username, op.Role)
	return nil
}

func runOperatorList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	ops, err := operatorService(e).List(ctx, cliActor)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "USERNAME\tROLE\tACTIVE\tCREATED")
	for _, op := range ops {
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", op.Username, op.Role, op.Active, op.CreatedAt.Format("2006-01-02"))
	}
	return w.Flush()
}
