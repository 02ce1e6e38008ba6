package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloo-solutions/converso/internal/config"
	"github.com/cloo-solutions/converso/internal/domain"
	"github.com/cloo-solutions/converso/internal/repository"
	"github.com/cloo-solutions/converso/internal/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

func TenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenants",
		Long:  "Create, list, and configure tenants",
	}

	cmd.AddCommand(TenantCreateCmd())
	cmd.AddCommand(TenantListCmd())
	cmd.AddCommand(TenantConfigureCmd())

	return cmd
}

func TenantCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new tenant",
		Long:  "Create a new tenant with the specified name",
		Args:  cobra.ExactArgs(1),
		RunE:  runTenantCreate,
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runTenantCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	name := args[0]
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	tenantRepo := repository.NewTenantRepository(pool)
	uuidGen := &service.DefaultUUIDGenerator{}
	authSvc := service.NewAuthService(tenantRepo, nil, uuidGen)

	tenant, err := authSvc.CreateTenant(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":         tenant.ID,
			"name":       tenant.Name,
			"created_at": tenant.CreatedAt,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("Tenant created: %s (%s)\n", tenant.Name, tenant.ID)
	}

	return nil
}

func TenantListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all tenants",
		Long:  "List all tenants in the system",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runTenantList(outputFormat)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runTenantList(outputFormat string) error {
	ctx := context.Background()

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	tenantRepo := repository.NewTenantRepository(pool)

	tenants, err := tenantRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tenants: %w", err)
	}

	if outputFormat == "json" {
		data := make([]map[string]interface{}, len(tenants))
		for i, t := range tenants {
			data[i] = map[string]interface{}{
				"id":            t.ID,
				"name":          t.Name,
				"business_name": t.BusinessName,
				"created_at":    t.CreatedAt,
			}
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		if len(tenants) == 0 {
			fmt.Println("No tenants found")
			return nil
		}
		fmt.Println("Tenants:")
		for _, t := range tenants {
			fmt.Printf("  %s: %s (created: %s)\n", t.ID, t.Name, t.CreatedAt.Format("2006-01-02 15:04:05"))
		}
	}

	return nil
}

func TenantConfigureCmd() *cobra.Command {
	var (
		businessName  string
		responseTone  string
		businessFacts []string
		blockedTopics []string
	)

	cmd := &cobra.Command{
		Use:   "configure <tenant>",
		Short: "Update a tenant's business profile",
		Long:  "Update the business name, response tone, facts, and blocked topics used when generating replies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runTenantConfigure(args[0], outputFormat, businessName, responseTone, businessFacts, blockedTopics, cmd)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.Flags().StringVar(&businessName, "business-name", "", "Business name shown to customers")
	cmd.Flags().StringVar(&responseTone, "tone", "", "Response tone (e.g. friendly, formal)")
	cmd.Flags().StringSliceVar(&businessFacts, "fact", nil, "Business fact (repeatable, replaces existing facts)")
	cmd.Flags().StringSliceVar(&blockedTopics, "block-topic", nil, "Topic the assistant must not discuss (repeatable, replaces existing topics)")

	return cmd
}

func runTenantConfigure(tenantRef, outputFormat, businessName, responseTone string, businessFacts, blockedTopics []string, cmd *cobra.Command) error {
	ctx := context.Background()

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	tenantRepo := repository.NewTenantRepository(pool)

	tenant, err := resolveTenant(ctx, tenantRepo, tenantRef)
	if err != nil {
		return err
	}

	if businessName != "" {
		tenant.BusinessName = businessName
	}
	if responseTone != "" {
		tenant.ResponseTone = responseTone
	}
	if cmd.Flags().Changed("fact") {
		tenant.BusinessFacts = businessFacts
	}
	if cmd.Flags().Changed("block-topic") {
		tenant.BlockedTopics = blockedTopics
	}

	if err := domain.ValidateTenant(tenant); err != nil {
		return err
	}

	if err := tenantRepo.Update(ctx, tenant); err != nil {
		return fmt.Errorf("failed to update tenant: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":             tenant.ID,
			"name":           tenant.Name,
			"business_name":  tenant.BusinessName,
			"response_tone":  tenant.ResponseTone,
			"business_facts": tenant.BusinessFacts,
			"blocked_topics": tenant.BlockedTopics,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("Tenant %s updated\n", tenant.ID)
		if tenant.BusinessName != "" {
			fmt.Printf("  Business name: %s\n", tenant.BusinessName)
		}
		if tenant.ResponseTone != "" {
			fmt.Printf("  Tone: %s\n", tenant.ResponseTone)
		}
		if len(tenant.BusinessFacts) > 0 {
			fmt.Printf("  Facts: %s\n", strings.Join(tenant.BusinessFacts, "; "))
		}
		if len(tenant.BlockedTopics) > 0 {
			fmt.Printf("  Blocked topics: %s\n", strings.Join(tenant.BlockedTopics, ", "))
		}
	}

	return nil
}

func resolveTenant(ctx context.Context, tenantRepo *repository.TenantRepository, tenantRef string) (*domain.Tenant, error) {
	if _, err := uuid.Parse(tenantRef); err == nil {
		tenant, err := tenantRepo.GetByID(ctx, tenantRef)
		if err != nil {
			return nil, fmt.Errorf("tenant not found: %s", tenantRef)
		}
		return tenant, nil
	}

	tenant, err := tenantRepo.GetByName(ctx, tenantRef)
	if err != nil {
		if err == domain.ErrTenantNotFound {
			return nil, fmt.Errorf("tenant not found: %s", tenantRef)
		}
		return nil, err
	}
	return tenant, nil
}

func getDBPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
