package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloo-solutions/converso/internal/channel"
	"github.com/cloo-solutions/converso/internal/domain"
	"github.com/cloo-solutions/converso/internal/repository"
	"github.com/cloo-solutions/converso/internal/service"
	"github.com/spf13/cobra"
)

func ChannelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channel",
		Short: "Manage messaging channels",
		Long:  "Register and list messaging platform channels for a tenant",
	}

	cmd.AddCommand(ChannelCreateCmd())
	cmd.AddCommand(ChannelListCmd())
	cmd.AddCommand(ChannelDeactivateCmd())

	return cmd
}

func ChannelCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a messaging channel",
		Long:  "Register a WhatsApp or Instagram channel so inbound webhooks can be routed to the tenant",
		RunE:  runChannelCreate,
	}

	cmd.Flags().StringP("tenant", "t", "", "Tenant ID or name (required)")
	cmd.Flags().StringP("platform", "p", "", "Platform: whatsapp or instagram (required)")
	cmd.Flags().String("platform-id", "", "Platform account identifier, e.g. phone number ID (required)")
	cmd.Flags().String("webhook-secret", "", "App secret used to verify webhook signatures (required)")
	cmd.Flags().String("access-token", "", "Platform access token used to send replies (required)")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.MarkFlagRequired("tenant")
	cmd.MarkFlagRequired("platform")
	cmd.MarkFlagRequired("platform-id")
	cmd.MarkFlagRequired("webhook-secret")
	cmd.MarkFlagRequired("access-token")

	return cmd
}

func runChannelCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	tenantRef, _ := cmd.Flags().GetString("tenant")
	platformStr, _ := cmd.Flags().GetString("platform")
	platformID, _ := cmd.Flags().GetString("platform-id")
	webhookSecret, _ := cmd.Flags().GetString("webhook-secret")
	accessToken, _ := cmd.Flags().GetString("access-token")
	outputFormat, _ := cmd.Flags().GetString("output")

	platform, err := domain.ParseChannelPlatform(platformStr)
	if err != nil {
		return err
	}

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	tenantRepo := repository.NewTenantRepository(pool)
	channelRepo := repository.NewChannelRepository(pool)
	msgRepo := repository.NewMessageRepository(pool)
	convRepo := repository.NewConversationRepository(pool)
	txRunner := repository.NewTxRunner(pool)
	uuidGen := &service.DefaultUUIDGenerator{}

	tenant, err := resolveTenant(ctx, tenantRepo, tenantRef)
	if err != nil {
		return err
	}

	conversationSvc := service.NewConversationService(convRepo, msgRepo)
	adapters := channel.NewRegistry(channel.NewWhatsAppAdapter(), channel.NewInstagramAdapter())
	webhookSvc := service.NewWebhookServiceWithUUIDGen(channelRepo, msgRepo, conversationSvc, adapters, txRunner, "", uuidGen)

	ch, err := webhookSvc.CreateChannel(ctx, service.CreateChannelInput{
		TenantID:      tenant.ID,
		Platform:      platform,
		PlatformID:    platformID,
		WebhookSecret: webhookSecret,
		AccessToken:   accessToken,
	})
	if err != nil {
		return fmt.Errorf("failed to create channel: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":          ch.ID,
			"tenant_id":   ch.TenantID,
			"platform":    string(ch.Platform),
			"platform_id": ch.PlatformID,
			"active":      ch.Active,
			"created_at":  ch.CreatedAt,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("Channel created: %s (%s %s) for tenant %s\n", ch.ID, ch.Platform, ch.PlatformID, ch.TenantID)
	}

	return nil
}

func ChannelListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List channels for a tenant",
		Long:  "List all messaging channels registered for a tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantRef, _ := cmd.Flags().GetString("tenant")
			outputFormat, _ := cmd.Flags().GetString("output")
			return runChannelList(tenantRef, outputFormat)
		},
	}

	cmd.Flags().StringP("tenant", "t", "", "Tenant ID or name (required)")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.MarkFlagRequired("tenant")

	return cmd
}

func runChannelList(tenantRef, outputFormat string) error {
	ctx := context.Background()

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	tenantRepo := repository.NewTenantRepository(pool)
	channelRepo := repository.NewChannelRepository(pool)

	tenant, err := resolveTenant(ctx, tenantRepo, tenantRef)
	if err != nil {
		return err
	}

	channels, err := channelRepo.ListByTenant(ctx, tenant.ID)
	if err != nil {
		return fmt.Errorf("failed to list channels: %w", err)
	}

	if outputFormat == "json" {
		data := make([]map[string]interface{}, len(channels))
		for i, ch := range channels {
			data[i] = map[string]interface{}{
				"id":              ch.ID,
				"platform":        string(ch.Platform),
				"platform_id":     ch.PlatformID,
				"active":          ch.Active,
				"created_at":      ch.CreatedAt,
				"last_webhook_at": ch.LastWebhookAt,
			}
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		if len(channels) == 0 {
			fmt.Printf("No channels found for tenant %s\n", tenant.ID)
			return nil
		}
		fmt.Printf("Channels for tenant %s:\n", tenant.ID)
		for _, ch := range channels {
			status := "active"
			if !ch.Active {
				status = "inactive"
			}
			fmt.Printf("  %s: %s %s (%s)\n", ch.ID, ch.Platform, ch.PlatformID, status)
		}
	}

	return nil
}

func ChannelDeactivateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deactivate <id>",
		Short: "Deactivate a channel",
		Long:  "Deactivate a channel so its webhooks are no longer accepted",
		Args:  cobra.ExactArgs(1),
		RunE:  runChannelDeactivate,
	}

	cmd.Flags().StringP("tenant", "t", "", "Tenant ID or name (required)")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.MarkFlagRequired("tenant")

	return cmd
}

func runChannelDeactivate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	channelID := args[0]
	tenantRef, _ := cmd.Flags().GetString("tenant")
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	tenantRepo := repository.NewTenantRepository(pool)
	channelRepo := repository.NewChannelRepository(pool)

	tenant, err := resolveTenant(ctx, tenantRepo, tenantRef)
	if err != nil {
		return err
	}

	ch, err := channelRepo.GetByID(ctx, tenant.ID, channelID)
	if err != nil {
		return fmt.Errorf("channel not found: %s", channelID)
	}

	ch.Active = false
	if err := channelRepo.Update(ctx, ch); err != nil {
		return fmt.Errorf("failed to deactivate channel: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":     ch.ID,
			"active": false,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("Channel %s deactivated\n", ch.ID)
	}

	return nil
}
