package targets

import "github.com/MrSnakeDoc/restock/internal/domain"

// Defaults is the registry used when no targets file is configured.
func Defaults() []domain.Target {
	return []domain.Target{
		{
			ID:             "hostdzire_32",
			Name:           "HostDZire $32",
			URL:            "https://hostdzire.com/billing/index.php?rp=/store/indian-cloudvps/in-cloudvps-5-nodeseek-special",
			OutOfStockText: "out of stock",
			Description:    "HostDZire $32 flash sale is back in stock.",
		},
		{
			ID:             "dmit_special",
			Name:           "DMIT Special",
			URL:            "https://example.com/dmit-link",
			OutOfStockText: "out of stock",
			Description:    "DMIT is back in stock.",
		},
		{
			ID:             "bwg_la_kvm",
			Name:           "BandwagonHost LA KVM",
			URL:            "https://example.com/bwg-buy-link",
			OutOfStockText: "out of stock",
			Description:    "BandwagonHost is back in stock.",
		},
		{
			ID:             "colocrossing_e3",
			Name:           "Colocrossing E3-2124G",
			URL:            "https://portal.colocrossing.com/register/order/service/592",
			OutOfStockText: "this service is not available",
			Description:    "Colocrossing E3-2124G is available.",
		},
	}
}
