package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/radieske/coinflip-platform-poc/internal/coinflip-service/client"
	"github.com/radieske/coinflip-platform-poc/internal/coinflip-service/dto"
	"github.com/radieske/coinflip-platform-poc/internal/shared/config"
)

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cfg := config.Load()
	cmd := &cobra.Command{
		Use:           "coinflipctl",
		Short:         "Cliente de linha de comando do coinflip-service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().String("url", cfg.CoinflipURL, "endereço do coinflip-service")
	cmd.PersistentFlags().String("caller", "", "endereço do chamador (X-Caller)")
	cmd.PersistentFlags().Duration("timeout", 10*time.Second, "timeout por requisição")

	cmd.AddCommand(
		placeCmd(),
		getCmd(),
		refundCmd(),
		claimCmd(),
		accountCmd(),
		paramsCmd(),
		statsCmd(),
		adminCmd(),
		faucetCmd(),
		approveCmd(),
	)
	return cmd
}

// run monta o client a partir das flags globais e imprime o resultado como JSON.
func run(fn func(ctx context.Context, c *client.Client) (any, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		url, _ := cmd.Flags().GetString("url")
		caller, _ := cmd.Flags().GetString("caller")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()

		out, err := fn(ctx, client.New(url, caller))
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
}

func betID(args []string) (uint64, error) {
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bet id inválido %q", args[0])
	}
	return id, nil
}

func placeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "place <heads|tails> <wager>",
		Short: "Abre uma aposta",
		Args:  cobra.ExactArgs(2),
	}
	cmd.Flags().String("value", "", "valor anexado (modo native; vazio = wager)")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		value, _ := cmd.Flags().GetString("value")
		return run(func(ctx context.Context, c *client.Client) (any, error) {
			return c.PlaceBet(ctx, dto.PlaceBetRequest{Choice: args[0], Wager: args[1], Value: value})
		})(cmd, args)
	}
	return cmd
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <bet-id>",
		Short: "Consulta uma aposta",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := betID(args)
			if err != nil {
				return err
			}
			return run(func(ctx context.Context, c *client.Client) (any, error) {
				return c.Bet(ctx, id)
			})(cmd, args)
		},
	}
}

func refundCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refund <bet-id>",
		Short: "Reembolsa uma aposta travada",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := betID(args)
			if err != nil {
				return err
			}
			return run(func(ctx context.Context, c *client.Client) (any, error) {
				return c.Refund(ctx, id)
			})(cmd, args)
		},
	}
}

func claimCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "claim",
		Short: "Saca o saldo creditado do chamador",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, c *client.Client) (any, error) {
			return c.Claim(ctx)
		}),
	}
}

func accountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "account <address>",
		Short: "Pendências e saldo creditado de um endereço",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, c *client.Client) (any, error) {
				return c.Account(ctx, args[0])
			})(cmd, args)
		},
	}
}

func paramsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "params",
		Short: "Parâmetros atuais do engine",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, c *client.Client) (any, error) {
			return c.Params(ctx)
		}),
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Escrow pendente, passivos e contagem de apostas",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, c *client.Client) (any, error) {
			return c.Stats(ctx)
		}),
	}
}

func faucetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "faucet <address> <amount>",
		Short: "Credita saldo de teste (somente dev)",
		Args:  cobra.ExactArgs(2),
	}
	cmd.Flags().String("asset", "", "ativo (vazio = ativo do engine)")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		asset, _ := cmd.Flags().GetString("asset")
		return run(func(ctx context.Context, c *client.Client) (any, error) {
			return c.Faucet(ctx, dto.FaucetRequest{Address: args[0], Asset: asset, Amount: args[1]})
		})(cmd, args)
	}
	return cmd
}

func approveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approve <amount>",
		Short: "Autoriza o engine a debitar o chamador (modo token, somente dev)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, c *client.Client) (any, error) {
				return c.Approve(ctx, dto.AmountRequest{Amount: args[0]})
			})(cmd, args)
		},
	}
}
