package main

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/radieske/coinflip-platform-poc/internal/coinflip-service/client"
	"github.com/radieske/coinflip-platform-poc/internal/coinflip-service/dto"
)

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Operações administrativas (caller deve ser o admin)",
		Args:  cobra.MinimumNArgs(1),
	}
	cmd.AddCommand(
		adminAction("fee-rate <bps>", "Define a taxa em basis points", 1, func(args []string) (any, error) {
			bps, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return nil, err
			}
			return dto.FeeRateRequest{FeeBps: uint32(bps)}, nil
		}),
		adminAction("wager-bounds <min> <max>", "Define os limites de aposta", 2, func(args []string) (any, error) {
			return dto.WagerBoundsRequest{Min: args[0], Max: args[1]}, nil
		}),
		adminAction("max-pending <n>", "Define o limite de apostas pendentes por jogador", 1, func(args []string) (any, error) {
			n, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return nil, err
			}
			return dto.MaxPendingRequest{MaxPendingBets: uint32(n)}, nil
		}),
		adminAction("refund-policy <owner|admin|owner_or_admin>", "Define quem pode reembolsar", 1, policy),
		adminAction("payout-policy <revert|credit>", "Define o que fazer quando o pagamento falha", 1, policy),
		adminAction("refund-timeout <duration>", "Define o timeout de reembolso (ex.: 1h)", 1, func(args []string) (any, error) {
			return dto.TimeoutRequest{Timeout: args[0]}, nil
		}),
		adminAction("fee-collector <address>", "Define o destino das taxas", 1, address),
		adminAction("transfer <address>", "Transfere o papel de admin", 1, address),
		adminAction("withdraw <amount>", "Saca o saldo residual do pool", 1, func(args []string) (any, error) {
			return dto.AmountRequest{Amount: args[0]}, nil
		}),
		adminAction("recover <asset> <amount>", "Recupera ativo enviado por engano", 2, func(args []string) (any, error) {
			return dto.RecoverRequest{Asset: args[0], Amount: args[1]}, nil
		}),
		adminAction("pause", "Pausa novas apostas", 0, nil),
		adminAction("unpause", "Retoma novas apostas", 0, nil),
		vrfCmd(),
	)
	return cmd
}

// adminAction cria um subcomando que faz POST /admin/{action}; o nome da ação
// é a primeira palavra de use.
func adminAction(use, short string, nargs int, body func([]string) (any, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		var req any
		if body != nil {
			b, err := body(args)
			if err != nil {
				return err
			}
			req = b
		}
		return run(func(ctx context.Context, c *client.Client) (any, error) {
			return c.Admin(ctx, cmd.Name(), req)
		})(cmd, args)
	}
	return cmd
}

func policy(args []string) (any, error) {
	return dto.PolicyRequest{Policy: args[0]}, nil
}

func address(args []string) (any, error) {
	return dto.AddressRequest{Address: args[0]}, nil
}

func vrfCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vrf",
		Short: "Define os parâmetros do coordenador VRF",
		Args:  cobra.NoArgs,
	}
	f := cmd.Flags()
	f.String("coordinator", "", "endereço do coordenador")
	f.Uint64("subscription-id", 0, "id da assinatura")
	f.String("key-hash", "", "key hash (0x...)")
	f.Uint32("callback-gas-limit", 100000, "gas limit do callback")
	f.Uint16("confirmations", 3, "confirmações exigidas")
	f.Uint32("num-words", 1, "palavras aleatórias por pedido")
	cmd.MarkFlagRequired("coordinator")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		var req dto.VRFRequest
		req.Coordinator, _ = f.GetString("coordinator")
		req.SubscriptionID, _ = f.GetUint64("subscription-id")
		req.KeyHash, _ = f.GetString("key-hash")
		req.CallbackGasLimit, _ = f.GetUint32("callback-gas-limit")
		req.RequestConfirmations, _ = f.GetUint16("confirmations")
		req.NumWords, _ = f.GetUint32("num-words")
		return run(func(ctx context.Context, c *client.Client) (any, error) {
			return c.Admin(ctx, "vrf", req)
		})(cmd, args)
	}
	return cmd
}
