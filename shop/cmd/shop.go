package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	cartRequest "github.com/Alturino/storefront/cart/pkg/request"
	cartResponse "github.com/Alturino/storefront/cart/pkg/response"
	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/constants"
	"github.com/Alturino/storefront/internal/log"
	productResponse "github.com/Alturino/storefront/product/pkg/response"
	"github.com/Alturino/storefront/shop/internal/api"
	"github.com/Alturino/storefront/shop/internal/session"
)

var (
	ErrSessionInitializing = errors.New("session is still initializing, please try again")
	ErrNotSignedIn         = errors.New("please login first")
	ErrMissingShipping     = errors.New("please fill in all shipping fields")
	ErrMissingCard         = errors.New("please enter your card details with --payment-method or use --test")
)

const initializeTimeout = 20 * time.Second

type shop struct {
	holder *session.Holder
	client *api.Client
}

// NewShopCommand is the terminal storefront. Every subcommand shares one session holder.
func NewShopCommand() *cobra.Command {
	s := &shop{}
	cmd := newShopCommand(s)
	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return s.setup(cmd)
	}
	cmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if s.holder != nil {
			s.holder.Close()
		}
	}
	return cmd
}

func newShopCommand(s *shop) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "shop",
		Short:        "Browse products, manage your cart and check out from the terminal",
		SilenceUsage: true,
	}
	cmd.AddCommand(
		s.loginCommand(),
		s.registerCommand(),
		s.logoutCommand(),
		s.whoamiCommand(),
		s.productsCommand(),
		s.searchCommand(),
		s.productCommand(),
		s.cartCommand(),
		s.addCommand(),
		s.updateCommand(),
		s.removeCommand(),
		s.clearCommand(),
		s.checkoutCommand(),
	)
	return cmd
}

func (s *shop) setup(cmd *cobra.Command) error {
	c := cmd.Context()
	cfg := config.Get(c, constants.APP_SHOP_CLIENT)

	sessionFile := cfg.Client.SessionFile
	if sessionFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed finding home directory with error=%w", err)
		}
		sessionFile = filepath.Join(home, ".storefront", "session.json")
	}

	level := zerolog.InfoLevel
	if cfg.Application.Env == "development" {
		level = zerolog.TraceLevel
	}
	logger := log.File(filepath.Join(filepath.Dir(sessionFile), "shop.log"), level).
		With().
		Str(constants.KEY_TAG, "shop "+cmd.Name()).
		Logger()
	c = logger.WithContext(c)
	cmd.SetContext(c)

	s.client = api.NewClient(cfg.Services.ProductURL, cfg.Services.CartURL)
	s.holder = session.NewHolder(session.NewRemoteProvider(c, cfg.Services.UserURL, sessionFile))

	waitCtx, cancel := context.WithTimeout(c, initializeTimeout)
	defer cancel()
	if err := s.holder.WaitInitialized(waitCtx); err != nil {
		logger.Error().Err(err).Msg("failed waiting for session")
	}
	return nil
}

// token gates protected commands on an initialized, signed-in session.
func (s *shop) token() (string, error) {
	if s.holder.Initializing() {
		return "", ErrSessionInitializing
	}
	current := s.holder.Session()
	if current == nil {
		return "", ErrNotSignedIn
	}
	return current.Token, nil
}

func parseProductId(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid product id %q", raw)
	}
	return id, nil
}

func (s *shop) loginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login <email> <password>",
		Short: "Sign in",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			result := s.holder.Login(cmd.Context(), args[0], args[1])
			if !result.Success {
				return errors.New(result.Error)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", s.holder.Session().Email)
			return nil
		},
	}
}

func (s *shop) registerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "register <email> <password>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			result := s.holder.Register(cmd.Context(), args[0], args[1])
			if !result.Success {
				return errors.New(result.Error)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account created, signed in as %s\n", s.holder.Session().Email)
			return nil
		},
	}
}

func (s *shop) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := s.token(); err != nil {
				return err
			}
			result := s.holder.Logout(cmd.Context())
			if !result.Success {
				return errors.New(result.Error)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func (s *shop) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := s.token(); err != nil {
				return err
			}
			current := s.holder.Session()
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", current.Email, current.UserID)
			return nil
		},
	}
}

func printPage(out io.Writer, page productResponse.ProductPage) {
	if len(page.Products) == 0 {
		fmt.Fprintln(out, "No products found")
		return
	}
	for _, product := range page.Products {
		fmt.Fprintf(out, "#%-4d %-40s $%s\n", product.ID, product.Title, product.Price.StringFixed(2))
	}
	fmt.Fprintf(out, "Showing %d-%d of %d\n", page.Skip+1, page.Skip+len(page.Products), page.Total)
	if page.HasMore {
		fmt.Fprintf(out, "More available with --skip %d\n", page.NextSkip)
	}
}

func (s *shop) productsCommand() *cobra.Command {
	var limit, skip int
	cmd := &cobra.Command{
		Use:   "products",
		Short: "List products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := s.client.ListProducts(cmd.Context(), limit, skip)
			if err != nil {
				return err
			}
			printPage(cmd.OutOrStdout(), page)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 30, "page size")
	cmd.Flags().IntVar(&skip, "skip", 0, "number of products to skip")
	return cmd
}

func (s *shop) searchCommand() *cobra.Command {
	var limit, skip int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search products",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := s.client.SearchProducts(cmd.Context(), strings.Join(args, " "), limit, skip)
			if err != nil {
				return err
			}
			printPage(cmd.OutOrStdout(), page)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 30, "page size")
	cmd.Flags().IntVar(&skip, "skip", 0, "number of products to skip")
	return cmd
}

func (s *shop) productCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "product <id>",
		Short: "Show product details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProductId(args[0])
			if err != nil {
				return err
			}
			product, err := s.client.FindProduct(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "#%d %s\n", product.ID, product.Title)
			fmt.Fprintf(out, "Price:    $%s\n", product.Price.StringFixed(2))
			fmt.Fprintf(out, "Rating:   %s\n", product.Rating.StringFixed(2))
			fmt.Fprintf(out, "Stock:    %d\n", product.Stock)
			fmt.Fprintf(out, "Category: %s\n", product.Category)
			if product.Brand != "" {
				fmt.Fprintf(out, "Brand:    %s\n", product.Brand)
			}
			fmt.Fprintf(out, "\n%s\n", product.Description)
			return nil
		},
	}
}

func printCart(out io.Writer, cart cartResponse.Cart) {
	if len(cart.Items) == 0 {
		fmt.Fprintln(out, "Your cart is empty")
		return
	}
	for _, line := range cart.Items {
		fmt.Fprintf(out, "#%-4d %-40s %3d x $%s = $%s\n",
			line.ProductId, line.Title, line.Quantity, line.Price.StringFixed(2), line.Subtotal.StringFixed(2))
	}
	fmt.Fprintf(out, "Items: %d\nTotal: $%s\n", cart.ItemsCount, cart.Total.StringFixed(2))
}

func (s *shop) cartCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cart",
		Short: "Show your cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := s.token()
			if err != nil {
				return err
			}
			cart, err := s.client.GetCart(cmd.Context(), token)
			if err != nil {
				return err
			}
			printCart(cmd.OutOrStdout(), cart)
			return nil
		},
	}
}

func (s *shop) addCommand() *cobra.Command {
	var quantity int
	cmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Add a product to your cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := s.token()
			if err != nil {
				return err
			}
			id, err := parseProductId(args[0])
			if err != nil {
				return err
			}
			cart, err := s.client.AddCartItem(cmd.Context(), token, id, quantity)
			if err != nil {
				return err
			}
			printCart(cmd.OutOrStdout(), cart)
			return nil
		},
	}
	cmd.Flags().IntVarP(&quantity, "quantity", "q", 1, "quantity to add")
	return cmd
}

func (s *shop) updateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "update <id> <quantity>",
		Short: "Change the quantity of a cart line, zero or less removes it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := s.token()
			if err != nil {
				return err
			}
			id, err := parseProductId(args[0])
			if err != nil {
				return err
			}
			quantity, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[1])
			}
			cart, err := s.client.UpdateCartItem(cmd.Context(), token, id, quantity)
			if err != nil {
				return err
			}
			printCart(cmd.OutOrStdout(), cart)
			return nil
		},
	}
}

func (s *shop) removeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a product from your cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := s.token()
			if err != nil {
				return err
			}
			id, err := parseProductId(args[0])
			if err != nil {
				return err
			}
			cart, err := s.client.RemoveCartItem(cmd.Context(), token, id)
			if err != nil {
				return err
			}
			printCart(cmd.OutOrStdout(), cart)
			return nil
		},
	}
}

func (s *shop) clearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty your cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := s.token()
			if err != nil {
				return err
			}
			cart, err := s.client.ClearCart(cmd.Context(), token)
			if err != nil {
				return err
			}
			printCart(cmd.OutOrStdout(), cart)
			return nil
		},
	}
}

func (s *shop) checkoutCommand() *cobra.Command {
	checkout := cartRequest.Checkout{}
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Pay for your cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := s.token()
			if err != nil {
				return err
			}
			shipping := checkout.Shipping
			for _, field := range []string{shipping.Address, shipping.City, shipping.PostalCode, shipping.Country} {
				if strings.TrimSpace(field) == "" {
					return ErrMissingShipping
				}
			}
			if !checkout.TestPayment && strings.TrimSpace(checkout.PaymentMethod) == "" {
				return ErrMissingCard
			}

			confirmation, err := s.client.Checkout(cmd.Context(), token, checkout)
			if err != nil {
				return err
			}
			printConfirmation(cmd.OutOrStdout(), confirmation)
			return nil
		},
	}
	cmd.Flags().StringVar(&checkout.Shipping.Address, "address", "", "shipping address")
	cmd.Flags().StringVar(&checkout.Shipping.City, "city", "", "shipping city")
	cmd.Flags().StringVar(&checkout.Shipping.PostalCode, "postal-code", "", "shipping postal code")
	cmd.Flags().StringVar(&checkout.Shipping.Country, "country", "", "shipping country")
	cmd.Flags().StringVar(&checkout.PaymentMethod, "payment-method", "", "payment method id from the payment processor")
	cmd.Flags().BoolVar(&checkout.TestPayment, "test", false, "simulate a successful payment")
	return cmd
}

func printConfirmation(out io.Writer, confirmation cartResponse.Confirmation) {
	fmt.Fprintf(out, "Order confirmed: %s\n\n", confirmation.OrderNumber)
	for _, line := range confirmation.Items {
		fmt.Fprintf(out, "%3d x %-40s $%s\n", line.Quantity, line.Title, line.Subtotal.StringFixed(2))
	}
	shippingFee := "$" + confirmation.ShippingFee.StringFixed(2)
	if confirmation.ShippingFee.IsZero() {
		shippingFee = "FREE"
	}
	fmt.Fprintf(out, "\nSubtotal: $%s\n", confirmation.Subtotal.StringFixed(2))
	fmt.Fprintf(out, "Tax:      $%s\n", confirmation.Tax.StringFixed(2))
	fmt.Fprintf(out, "Shipping: %s\n", shippingFee)
	fmt.Fprintf(out, "Total:    $%s\n", confirmation.Total.StringFixed(2))
	shipping := confirmation.Shipping
	fmt.Fprintf(out, "\nShipping to %s, %s %s, %s\n", shipping.Address, shipping.City, shipping.PostalCode, shipping.Country)
}
