package validate

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/arbscan/internal/domain"
	"github.com/alanyoungcy/arbscan/internal/graph"
)

// mathLayer recomputes the basket economics from effective buy prices and
// applies the edge, slippage, and liquidity gates. At discovery time no
// books have been fetched, so slippage falls back to a liquidity-scaled
// estimate; pre-flight repeats this check against fresh books.
type mathLayer struct {
	cfg Config
}

func (l *mathLayer) Name() string { return "math" }

func (l *mathLayer) Check(_ context.Context, opp *domain.Opportunity, g *graph.MarketGraph) (Verdict, string) {
	return runMathCheck(l.cfg, opp, g, nil)
}

// runMathCheck is shared between Layer 3 and the pre-flight layer. When a
// leg's fresh book is present in books, its ask side supplies both the buy
// price and the walked VWAP; otherwise the snapshot's effective price and a
// liquidity-based slippage estimate stand in.
func runMathCheck(cfg Config, opp *domain.Opportunity, g *graph.MarketGraph, books map[string]*domain.OrderBook) (Verdict, string) {
	var cost, slippage float64

	for i := range opp.Legs {
		leg := &opp.Legs[i]
		m, ok := g.Market(leg.MarketID)
		if !ok {
			return VerdictReject, "leg market missing from snapshot"
		}

		tokenID := m.YesTokenID
		if leg.Side == domain.SideNo {
			tokenID = m.NoTokenID
		}

		book := books[tokenID]
		if book != nil && !book.IsEmpty() {
			bestAsk := book.BestAsk()
			if bestAsk <= 0 {
				return VerdictReject, fmt.Sprintf("leg %s has no asks", leg.MarketID)
			}
			leg.BuyPrice = bestAsk

			vwap, filled := book.VWAPBuy(cfg.TargetNotionalUSD)
			if filled+1e-9 < cfg.TargetNotionalUSD {
				return VerdictReject, fmt.Sprintf(
					"insufficient liquidity: leg %s fills only $%.0f of $%.0f",
					leg.MarketID, filled, cfg.TargetNotionalUSD)
			}
			if depth := book.AskDepthUSD(cfg.DepthPriceBand); depth < cfg.MinDepthUSD {
				return VerdictReject, fmt.Sprintf(
					"insufficient liquidity: leg %s depth $%.0f below $%.0f",
					leg.MarketID, depth, cfg.MinDepthUSD)
			}
			slippage += vwap - bestAsk
		} else {
			leg.BuyPrice = m.EffectiveBuy(leg.Side)
			if leg.BuyPrice <= 0 {
				return VerdictReject, fmt.Sprintf("leg %s has no price", leg.MarketID)
			}
			if m.LiquidityUSD < cfg.MinLiquidityUSD {
				return VerdictReject, fmt.Sprintf(
					"insufficient liquidity: leg %s catalog liquidity $%.0f below $%.0f",
					leg.MarketID, m.LiquidityUSD, cfg.MinLiquidityUSD)
			}
			slippage += estimateSlippage(m, cfg.TargetNotionalUSD) * leg.BuyPrice
		}

		cost += leg.BuyPrice
	}

	opp.Cost = cost
	opp.SlippageCost = slippage
	opp.EffectiveProfit = opp.GuaranteedReturn - cost
	if cost > 0 {
		opp.ProfitPct = opp.EffectiveProfit / cost
	}

	if cost >= opp.GuaranteedReturn-cfg.ProfitEpsilon {
		return VerdictReject, fmt.Sprintf(
			"cost %.4f leaves no edge against guaranteed return %.4f",
			cost, opp.GuaranteedReturn)
	}
	if opp.GuaranteedReturn-cost-slippage < cfg.ExecEpsilon {
		return VerdictReject, fmt.Sprintf(
			"edge %.4f consumed by slippage %.4f",
			opp.GuaranteedReturn-cost, slippage)
	}
	return VerdictPass, fmt.Sprintf("edge %.4f after slippage %.4f", opp.GuaranteedReturn-cost-slippage, slippage)
}

// estimateSlippage approximates the fractional price impact of pushing the
// target notional into a market with only catalog liquidity known: impact
// grows linearly in the liquidity share and caps at 5%.
func estimateSlippage(m *domain.Market, notional float64) float64 {
	if m.LiquidityUSD <= 0 {
		return 0.05
	}
	s := notional / m.LiquidityUSD * 0.5
	if s > 0.05 {
		return 0.05
	}
	return s
}
