package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	cart "github.com/Alturino/storefront/cart/cmd"
	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/constants"
	"github.com/Alturino/storefront/internal/log"
	notification "github.com/Alturino/storefront/notification/cmd"
	payment "github.com/Alturino/storefront/payment/cmd"
	product "github.com/Alturino/storefront/product/cmd"
	shop "github.com/Alturino/storefront/shop/cmd"
	user "github.com/Alturino/storefront/user/cmd"
)

func serviceCommand(use string, appName string, run func(context.Context)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("Run %s", appName),
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			c := cmd.Context()
			cfg := config.Get(c, appName)
			logger := log.Get(fmt.Sprintf("/var/log/%s.log", appName), cfg.Application).
				With().
				Str(constants.KEY_APP_NAME, appName).
				Logger()
			run(logger.WithContext(c))
		},
	}
}

func Start() {
	logger := log.Console(zerolog.InfoLevel).
		With().
		Str(constants.KEY_APP_NAME, constants.APP_MAIN_STOREFRONT).
		Str(constants.KEY_TAG, "main Start").
		Logger()

	logger.Trace().Msg("adding listener for SIGINT and SIGTERM")
	c, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger.Trace().Msg("added listener for SIGINT and SIGTERM")

	c = logger.WithContext(c)

	rootCmd := &cobra.Command{
		Use:          "storefront",
		Short:        "Storefront services and terminal client",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(
		serviceCommand("user", constants.APP_USER_SERVICE, user.RunUserService),
		serviceCommand("product", constants.APP_PRODUCT_SERVICE, product.RunProductService),
		serviceCommand("cart", constants.APP_CART_SERVICE, cart.RunCartService),
		serviceCommand("payment", constants.APP_PAYMENT_SERVICE, payment.RunPaymentService),
		serviceCommand("notification", constants.APP_NOTIFICATION_SERVICE, notification.RunNotificationService),
		shop.NewShopCommand(),
	)
	if err := rootCmd.ExecuteContext(c); err != nil {
		stop()
		os.Exit(1)
	}
}
