package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/marginmind/backend/internal/model"
)

func printStrategy(resp *model.StrategyResponse) {
	printServiceHeader(resp.Service)

	for _, vs := range resp.VendorStrategies {
		fmt.Printf("\n=== %s ===\n", vs.VendorName)
		fmt.Printf("Current quote: %.2f %s/mo  GM %.1f%% [%s]\n",
			vs.VendorQuote.CurrentMRC, vs.VendorQuote.MRCCurrency,
			vs.VendorQuote.CurrentGM, vs.VendorQuote.GMStatus)

		if h := vs.NegotiationHistory; h != nil {
			fmt.Printf("History: %d/%d successful, avg %.1f%% / best %.1f%% discount\n",
				h.SuccessfulNegotiations, h.TotalNegotiations, h.AvgDiscount, h.BestDiscount)
		}
		if d := vs.DeliveredServices; d != nil {
			fmt.Printf("Delivered business: %d services, %.2f USD/mo\n", d.DeliveredCount, d.TotalMRCUSD)
		}

		fmt.Printf("Targets: 40%% GM at %.2f (-%.1f%%), 50%% GM at %.2f (-%.1f%%)\n",
			vs.Targets.GM40.TargetMRC, vs.Targets.GM40.DiscountNeeded,
			vs.Targets.GM50.TargetMRC, vs.Targets.GM50.DiscountNeeded)

		if len(vs.VendorVPL) > 0 {
			fmt.Println("Price-list options:")
			w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
			for _, opt := range vs.VendorVPL {
				fmt.Fprintf(w, "\t%s\t%.2f %s/mo\tGM %.1f%%\tsaves %.2f (%.1f%%)\n",
					opt.Bandwidth, opt.MRC, opt.MRCCurrency, opt.GM, opt.Savings, opt.SavingsPercent)
			}
			w.Flush()
		}

		if len(vs.Alternatives) > 0 {
			fmt.Println("Alternatives:")
			w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
			for _, alt := range vs.Alternatives {
				fmt.Fprintf(w, "\t%s\t%.2f %s/mo\tGM %.1f%% [%s]\t%s\n",
					alt.VendorName, alt.MRC, alt.MRCCurrency, alt.GM, alt.GMStatus, alt.Bandwidth)
			}
			w.Flush()
		}

		printRecommendations(vs.Recommendations)
	}
	fmt.Printf("\n%d vendor(s) analyzed.\n", resp.TotalVendors)
}

func printRenewal(resp *model.RenewalResponse) {
	printServiceHeader(resp.Service)

	for _, a := range resp.Analyses {
		fmt.Printf("\n=== %s (renewal) ===\n", a.VendorName)
		fmt.Printf("Current: %.2f/mo  GM %.1f%% [%s]\n", a.CurrentMRC, a.CurrentGM, a.GMStatus)

		if len(a.NearbyQuotes) > 0 {
			fmt.Println("Nearby same-vendor pricing:")
			for _, n := range a.NearbyQuotes {
				fmt.Printf("\t%.2f km away: %.2f/mo (%.1f%% below current)\n",
					n.DistanceKm, n.MRC, n.DiscountVsCurrent)
			}
		}

		printRecommendations(a.Recommendations)

		if o := a.OverallRecommendation; o != nil {
			fmt.Printf("Overall ask: %.1f%% discount (max seen %.1f%%) -> %.2f/mo, GM %.1f%% [%s]\n",
				o.RecommendedDiscount, o.MaxDiscount, o.RecommendedMRC, o.ProjectedGM, o.GMStatus)
			fmt.Printf("Confidence: %s (%d data sources)\n", o.Confidence, o.DataSources)
		}
	}
	fmt.Printf("\n%d vendor(s) analyzed.\n", resp.TotalVendors)
}

func printServiceHeader(svc model.ServiceInfo) {
	fmt.Printf("Service %s", svc.ServiceID)
	if svc.Customer != "" {
		fmt.Printf(" (%s)", svc.Customer)
	}
	fmt.Printf("\nClient MRC: %.2f %s  Bandwidth: %s\n", svc.ClientMRC, svc.Currency, svc.BandwidthDisplay)
	if svc.Address != "" {
		fmt.Printf("Address: %s\n", svc.Address)
	}
}

func printRecommendations(recs []model.Recommendation) {
	for _, rec := range recs {
		fmt.Printf("[%d] %s (%s, %s)\n", rec.Priority, rec.Title, rec.Type, strings.ToUpper(string(rec.Strength)))
		for _, action := range rec.Actions {
			fmt.Printf("\t- %s\n", action.Text)
		}
	}
}
