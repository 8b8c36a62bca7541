package types

type PaymentProvider string

const (
	PaymentProviderStripe     PaymentProvider = "stripe"
	PaymentProviderPayPal     PaymentProvider = "paypal"
	PaymentProviderRevenueCat PaymentProvider = "revenuecat"
)

// ParsePaymentProvider maps a client supplied payment method to a provider.
// An empty method means stripe.
func ParsePaymentProvider(method string) (PaymentProvider, bool) {
	switch PaymentProvider(method) {
	case "", PaymentProviderStripe:
		return PaymentProviderStripe, true
	case PaymentProviderPayPal:
		return PaymentProviderPayPal, true
	case PaymentProviderRevenueCat:
		return PaymentProviderRevenueCat, true
	}
	return "", false
}

// IsSubscriptionProvider reports providers that verify store receipts instead of creating charges.
func (p PaymentProvider) IsSubscriptionProvider() bool {
	return p == PaymentProviderRevenueCat
}
